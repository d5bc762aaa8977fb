package notify

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zelenin/go-tdlib/client"

	"github.com/fachebot/talk-digest-bot/internal/config"
	"github.com/fachebot/talk-digest-bot/internal/model"
)

// mockSender 记录发送的消息
type mockSender struct {
	err  error
	sent map[int64][]string
}

func (m *mockSender) SendMessage(req *client.SendMessageRequest) (*client.Message, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.sent == nil {
		m.sent = make(map[int64][]string)
	}
	text := req.InputMessageContent.(*client.InputMessageText).Text.Text
	m.sent[req.ChatId] = append(m.sent[req.ChatId], text)
	return &client.Message{}, nil
}

func testDigest(text string) *model.DailyDigest {
	return &model.DailyDigest{
		ID:        7,
		Text:      text,
		CreatedAt: time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestPublish_Modes(t *testing.T) {
	tests := []struct {
		name  string
		cfg   config.Notify
		chats []int64
	}{
		{"none 不发送", config.Notify{Mode: "none", UserIds: []int64{1}, ChatIds: []int64{-100}}, nil},
		{"private 只发私信", config.Notify{Mode: "private", UserIds: []int64{1, 2}, ChatIds: []int64{-100}}, []int64{1, 2}},
		{"group 只发群聊", config.Notify{Mode: "group", UserIds: []int64{1}, ChatIds: []int64{-100}}, []int64{-100}},
		{"both 都发送", config.Notify{Mode: "both", UserIds: []int64{1}, ChatIds: []int64{-100}}, []int64{1, -100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &mockSender{}
			cfg := tt.cfg
			n := &Notifier{sender: sender, config: &cfg}

			require.NoError(t, n.Publish(context.Background(), testDigest("today")))
			assert.Len(t, sender.sent, len(tt.chats))
			for _, chatID := range tt.chats {
				require.Len(t, sender.sent[chatID], 1)
				assert.Contains(t, sender.sent[chatID][0], "日报 #7")
				assert.Contains(t, sender.sent[chatID][0], "today")
			}
		})
	}
}

func TestPublish_EmptyDigest(t *testing.T) {
	sender := &mockSender{}
	n := &Notifier{sender: sender, config: &config.Notify{Mode: "group", ChatIds: []int64{-100}}}

	require.NoError(t, n.Publish(context.Background(), testDigest("  ")))
	require.NoError(t, n.Publish(context.Background(), nil))
	assert.Empty(t, sender.sent)
}

func TestPublish_SendError(t *testing.T) {
	sender := &mockSender{err: stderrors.New("chat not found")}
	n := &Notifier{sender: sender, config: &config.Notify{Mode: "group", ChatIds: []int64{-100}}}

	err := n.Publish(context.Background(), testDigest("today"))
	assert.Error(t, err)
}

func TestSplitMessage(t *testing.T) {
	t.Run("短消息不拆分", func(t *testing.T) {
		got := splitMessage("hello")
		assert.Equal(t, []string{"hello"}, got)
	})

	t.Run("按段落拆分", func(t *testing.T) {
		para := strings.Repeat("a", 3000)
		content := para + "\n\n" + para + "\n\n" + para
		got := splitMessage(content)
		require.Len(t, got, 3)
		for _, msg := range got {
			assert.Equal(t, para, msg)
		}
	})

	t.Run("超长段落按行拆分", func(t *testing.T) {
		line := strings.Repeat("b", 1500)
		content := strings.Join([]string{line, line, line, line}, "\n")
		got := splitMessage(content)
		require.Len(t, got, 2)
		assert.Equal(t, line+"\n"+line, got[0])
	})

	t.Run("超长单行不截断多字节字符", func(t *testing.T) {
		content := strings.Repeat("摘", 3000) // 9000 字节
		got := splitMessage(content)
		require.Len(t, got, 3)
		joined := ""
		for _, msg := range got {
			assert.LessOrEqual(t, len(msg), MaxMessageLength)
			assert.True(t, utf8.ValidString(msg))
			joined += msg
		}
		assert.Equal(t, content, joined)
	})
}
