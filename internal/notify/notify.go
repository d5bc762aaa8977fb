package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/fachebot/talk-digest-bot/internal/config"
	"github.com/fachebot/talk-digest-bot/internal/logger"
	"github.com/fachebot/talk-digest-bot/internal/model"
	"github.com/zelenin/go-tdlib/client"
)

const (
	MaxMessageLength = 4000 // 单条消息最大字节数，低于 Telegram 的 4096 字符上限
)

// messageSender 发送 Telegram 消息（便于测试注入 mock）
type messageSender interface {
	SendMessage(req *client.SendMessageRequest) (*client.Message, error)
}

type Notifier struct {
	sender messageSender
	config *config.Notify
}

func NewNotifier(tdClient *client.Client, cfg *config.Notify) *Notifier {
	return &Notifier{
		sender: tdClient,
		config: cfg,
	}
}

// Publish 推送新日报，按配置发送私信和/或群聊消息
func (n *Notifier) Publish(ctx context.Context, digest *model.DailyDigest) error {
	if digest == nil || strings.TrimSpace(digest.Text) == "" {
		return nil
	}

	content := formatDigest(digest)
	switch n.config.Mode {
	case "", "none":
		return nil
	case "private":
		return n.sendAll(ctx, n.config.UserIds, content)
	case "group":
		return n.sendAll(ctx, n.config.ChatIds, content)
	case "both":
		if err := n.sendAll(ctx, n.config.UserIds, content); err != nil {
			logger.Errorf("[Notify] 私信通知失败: %v", err)
		}
		if err := n.sendAll(ctx, n.config.ChatIds, content); err != nil {
			logger.Errorf("[Notify] 群发通知失败: %v", err)
		}
		return nil
	default:
		logger.Warnf("[Notify] 未知的通知模式: %s", n.config.Mode)
		return nil
	}
}

func formatDigest(digest *model.DailyDigest) string {
	header := fmt.Sprintf("日报 #%d (%s, %d 段摘要)",
		digest.ID, digest.CreatedAt.UTC().Format("2006-01-02 15:04 MST"), len(digest.Summaries))
	return header + "\n\n" + strings.TrimSpace(digest.Text)
}

func (n *Notifier) sendAll(ctx context.Context, chatIDs []int64, content string) error {
	if len(chatIDs) == 0 {
		logger.Warnf("[Notify] 未配置通知目标")
		return nil
	}

	messages := splitMessage(content)
	for _, chatID := range chatIDs {
		for _, msg := range messages {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := n.sender.SendMessage(&client.SendMessageRequest{
				ChatId: chatID,
				InputMessageContent: &client.InputMessageText{
					Text: &client.FormattedText{Text: msg},
				},
			})
			if err != nil {
				return fmt.Errorf("发送消息到 %d 失败: %w", chatID, err)
			}
		}
		logger.Infof("[Notify] 已发送日报到 %d，共 %d 条消息", chatID, len(messages))
	}
	return nil
}

// splitMessage 将消息按段落、换行拆分为不超过 MaxMessageLength 字节的多条
func splitMessage(content string) []string {
	if len(content) <= MaxMessageLength {
		return []string{content}
	}

	messages := make([]string, 0)
	current := ""
	flush := func() {
		if current != "" {
			messages = append(messages, current)
			current = ""
		}
	}
	add := func(part, sep string) bool {
		candidate := part
		if current != "" {
			candidate = current + sep + part
		}
		if len(candidate) <= MaxMessageLength {
			current = candidate
			return true
		}
		return false
	}

	for _, para := range strings.Split(content, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if add(para, "\n\n") {
			continue
		}
		flush()
		if add(para, "\n\n") {
			continue
		}

		// 单个段落超长，按行拆分
		for _, line := range strings.Split(para, "\n") {
			if add(line, "\n") {
				continue
			}
			flush()
			if add(line, "\n") {
				continue
			}
			// 单行超长，按字符边界硬拆分
			for _, chunk := range splitRunes(line, MaxMessageLength) {
				flush()
				current = chunk
			}
		}
	}
	flush()
	return messages
}

// splitRunes 按字节上限拆分，不截断 UTF-8 字符
func splitRunes(text string, limit int) []string {
	chunks := make([]string, 0)
	start, size := 0, 0
	for i, r := range text {
		n := len(string(r))
		if size+n > limit {
			chunks = append(chunks, text[start:i])
			start, size = i, 0
		}
		size += n
	}
	if start < len(text) {
		chunks = append(chunks, text[start:])
	}
	return chunks
}
