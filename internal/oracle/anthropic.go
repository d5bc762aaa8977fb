package oracle

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/fachebot/talk-digest-bot/internal/config"
	"github.com/fachebot/talk-digest-bot/internal/errors"
	"github.com/fachebot/talk-digest-bot/internal/logger"
)

// messagesInterface 定义 Anthropic Messages API 接口，便于测试
type messagesInterface interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// AnthropicClient 基于 Anthropic Messages API 的摘要服务
type AnthropicClient struct {
	config   *config.Oracle
	messages messagesInterface
}

func NewAnthropicClient(cfg *config.Oracle, httpClient *http.Client) *AnthropicClient {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// 由调用方控制失败处理，不在 SDK 内重试
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	client := anthropic.NewClient(opts...)
	return &AnthropicClient{
		config:   cfg,
		messages: &client.Messages,
	}
}

func (c *AnthropicClient) Summarize(ctx context.Context, text string) (string, error) {
	ctx, cancel := withTimeout(ctx, c.config.TimeoutSeconds)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.config.Model),
		MaxTokens: int64(c.config.MaxTokens),
		System: []anthropic.TextBlockParam{
			{Text: SystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	}

	logger.Debugf("[Oracle] 调用 Anthropic, model: %s, 输入长度: %d", c.config.Model, len(text))
	msg, err := c.messages.New(ctx, params)
	if err != nil {
		return "", errors.NewOracle("anthropic messages", err)
	}

	var b strings.Builder
	for _, cb := range msg.Content {
		if cb.Type == "text" {
			b.WriteString(cb.Text)
		}
	}

	content := stripFences(b.String())
	if content == "" {
		return "", errors.NewOracle("anthropic messages", fmt.Errorf("返回内容为空"))
	}
	return content, nil
}
