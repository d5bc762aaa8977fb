package svc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fachebot/talk-digest-bot/internal/config"
)

func TestNewTransportProxy(t *testing.T) {
	transport, err := NewTransportProxy(&config.Sock5Proxy{Enable: false})
	require.NoError(t, err)
	assert.Nil(t, transport)

	transport, err = NewTransportProxy(&config.Sock5Proxy{Host: "127.0.0.1", Port: 1080, Enable: true})
	require.NoError(t, err)
	require.NotNil(t, transport)
	assert.NotNil(t, transport.Dial)
}
