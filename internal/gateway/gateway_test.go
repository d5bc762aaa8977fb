package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowList(t *testing.T) {
	allow := NewAllowList([]int64{-100, 42})
	assert.True(t, allow.Contains(-100))
	assert.True(t, allow.Contains(42))
	assert.False(t, allow.Contains(7))

	assert.False(t, NewAllowList(nil).Contains(0))
}

func TestForwarder_DropsUnlistedChannels(t *testing.T) {
	out := make(chan Event, 1)
	f := NewForwarder(NewAllowList([]int64{1}), out)

	ok := f.Forward(context.Background(), Event{ChannelID: 2, Text: "ignored"})
	assert.False(t, ok)
	assert.Len(t, out, 0)

	ok = f.Forward(context.Background(), Event{ChannelID: 1, Text: "kept"})
	assert.True(t, ok)
	ev := <-out
	assert.Equal(t, "kept", ev.Text)
}

func TestForwarder_BlocksUntilCancelledWhenFull(t *testing.T) {
	out := make(chan Event, 1)
	f := NewForwarder(NewAllowList([]int64{1}), out)
	assert.True(t, f.Forward(context.Background(), Event{ChannelID: 1}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	ok := f.Forward(ctx, Event{ChannelID: 1})
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	assert.Len(t, out, 1)
}

func TestForwarder_Allowed(t *testing.T) {
	f := NewForwarder(NewAllowList([]int64{-100}), make(chan Event))
	assert.True(t, f.Allowed(-100))
	assert.False(t, f.Allowed(-200))
}
