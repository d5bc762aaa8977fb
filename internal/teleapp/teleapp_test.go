package teleapp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zelenin/go-tdlib/client"
)

func TestMessageText(t *testing.T) {
	tests := []struct {
		name    string
		message *client.Message
		want    string
		ok      bool
	}{
		{"nil 消息", nil, "", false},
		{
			name:    "文本消息",
			message: &client.Message{Content: &client.MessageText{Text: &client.FormattedText{Text: "hello"}}},
			want:    "hello",
			ok:      true,
		},
		{
			name:    "空文本",
			message: &client.Message{Content: &client.MessageText{Text: &client.FormattedText{Text: ""}}},
			ok:      false,
		},
		{
			name:    "非文本消息",
			message: &client.Message{Content: &client.MessagePhoto{}},
			ok:      false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := messageText(tt.message)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		user *client.User
		want string
	}{
		{"名和姓", &client.User{FirstName: "San", LastName: "Zhang"}, "San Zhang"},
		{"只有名", &client.User{FirstName: "张三"}, "张三"},
		{"只有姓", &client.User{LastName: "Li"}, "Li"},
		{
			name: "没有名称时使用用户名",
			user: &client.User{Usernames: &client.Usernames{ActiveUsernames: []string{"dev"}}},
			want: "@dev",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, displayName(tt.user))
		})
	}
}
