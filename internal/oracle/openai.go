package oracle

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/fachebot/talk-digest-bot/internal/config"
	"github.com/fachebot/talk-digest-bot/internal/errors"
	"github.com/fachebot/talk-digest-bot/internal/logger"
)

// openAIClientInterface 定义 OpenAI 客户端接口，便于测试
type openAIClientInterface interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient 兼容 OpenAI Chat Completions API 的摘要服务
type OpenAIClient struct {
	config       *config.Oracle
	openaiClient openAIClientInterface
}

func NewOpenAIClient(cfg *config.Oracle, httpClient *http.Client) *OpenAIClient {
	openaiConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		openaiConfig.BaseURL = cfg.BaseURL
	}
	if httpClient != nil {
		openaiConfig.HTTPClient = httpClient
	}

	return &OpenAIClient{
		config:       cfg,
		openaiClient: openai.NewClientWithConfig(openaiConfig),
	}
}

func (c *OpenAIClient) Summarize(ctx context.Context, text string) (string, error) {
	ctx, cancel := withTimeout(ctx, c.config.TimeoutSeconds)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: c.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		MaxTokens: c.config.MaxTokens,
	}

	logger.Debugf("[Oracle] 调用 OpenAI, model: %s, 输入长度: %d", c.config.Model, len(text))
	resp, err := c.openaiClient.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", errors.NewOracle("openai chat completion", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.NewOracle("openai chat completion", fmt.Errorf("返回空结果"))
	}

	content := stripFences(resp.Choices[0].Message.Content)
	if strings.TrimSpace(content) == "" {
		return "", errors.NewOracle("openai chat completion", fmt.Errorf("返回内容为空"))
	}
	return content, nil
}
