package oracle

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fachebot/talk-digest-bot/internal/config"
	"github.com/fachebot/talk-digest-bot/internal/errors"
)

// mockOpenAIClient 模拟 OpenAI 客户端
type mockOpenAIClient struct {
	mock.Mock
}

func (m *mockOpenAIClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(openai.ChatCompletionResponse), args.Error(1)
}

// mockMessages 模拟 Anthropic Messages API
type mockMessages struct {
	mock.Mock
}

func (m *mockMessages) New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error) {
	args := m.Called(ctx, body)
	msg, _ := args.Get(0).(*anthropic.Message)
	return msg, args.Error(1)
}

func testConfig() *config.Oracle {
	return &config.Oracle{
		Provider:       "openai",
		BaseURL:        "https://api.openai.com/v1",
		APIKey:         "test-key",
		Model:          "gpt-4",
		MaxTokens:      4096,
		TimeoutSeconds: 30,
	}
}

func openAIResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
		},
	}
}

func anthropicMessage(t *testing.T, text string) *anthropic.Message {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"id":    "msg_test",
		"type":  "message",
		"role":  "assistant",
		"model": "claude-3-5-sonnet-latest",
		"content": []map[string]any{
			{"type": "text", "text": text},
		},
	})
	require.NoError(t, err)

	var msg anthropic.Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	return &msg
}

func TestNew(t *testing.T) {
	cfg := testConfig()
	o, err := New(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, o)

	cfg.Provider = "anthropic"
	o, err = New(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &AnthropicClient{}, o)

	cfg.Provider = "unknown"
	_, err = New(cfg, nil)
	assert.Error(t, err)
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"无代码块", "  plain summary  ", "plain summary"},
		{"带语言标记", "```markdown\n# Title\nbody\n```", "# Title\nbody"},
		{"不带语言标记", "```\nbody\n```", "body"},
		{"单行代码块", "```body```", "body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripFences(tt.in))
		})
	}
}

func TestOpenAIClient_Summarize(t *testing.T) {
	m := new(mockOpenAIClient)
	c := &OpenAIClient{config: testConfig(), openaiClient: m}

	m.On("CreateChatCompletion", mock.Anything, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		return req.Model == "gpt-4" &&
			len(req.Messages) == 2 &&
			req.Messages[0].Role == openai.ChatMessageRoleSystem &&
			req.Messages[0].Content == SystemPrompt &&
			req.Messages[1].Content == "segment text"
	})).Return(openAIResponse("```\nthe summary\n```"), nil)

	got, err := c.Summarize(context.Background(), "segment text")
	require.NoError(t, err)
	assert.Equal(t, "the summary", got)
	m.AssertExpectations(t)
}

func TestOpenAIClient_SummarizeErrors(t *testing.T) {
	tests := []struct {
		name string
		resp openai.ChatCompletionResponse
		err  error
	}{
		{"API 调用失败", openai.ChatCompletionResponse{}, stderrors.New("connection refused")},
		{"空 choices", openai.ChatCompletionResponse{}, nil},
		{"空内容", openAIResponse("   "), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(mockOpenAIClient)
			m.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(tt.resp, tt.err).Once()
			c := &OpenAIClient{config: testConfig(), openaiClient: m}

			_, err := c.Summarize(context.Background(), "text")
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.KindOracle))
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			}
			m.AssertExpectations(t)
		})
	}
}

func TestOpenAIClient_Timeout(t *testing.T) {
	m := new(mockOpenAIClient)
	cfg := testConfig()
	cfg.TimeoutSeconds = 1
	c := &OpenAIClient{config: cfg, openaiClient: m}

	m.On("CreateChatCompletion", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			_, ok := ctx.Deadline()
			assert.True(t, ok)
		}).
		Return(openAIResponse("ok"), nil)

	_, err := c.Summarize(context.Background(), "text")
	require.NoError(t, err)
	m.AssertExpectations(t)
}

func TestAnthropicClient_Summarize(t *testing.T) {
	m := new(mockMessages)
	cfg := testConfig()
	cfg.Provider = "anthropic"
	cfg.Model = "claude-3-5-sonnet-latest"
	c := &AnthropicClient{config: cfg, messages: m}

	m.On("New", mock.Anything, mock.MatchedBy(func(p anthropic.MessageNewParams) bool {
		return string(p.Model) == "claude-3-5-sonnet-latest" &&
			p.MaxTokens == 4096 &&
			len(p.System) == 1 && p.System[0].Text == SystemPrompt &&
			len(p.Messages) == 1
	})).Return(anthropicMessage(t, "the summary"), nil)

	got, err := c.Summarize(context.Background(), "segment text")
	require.NoError(t, err)
	assert.Equal(t, "the summary", got)
	m.AssertExpectations(t)
}

func TestAnthropicClient_SummarizeErrors(t *testing.T) {
	cfg := testConfig()
	cfg.Provider = "anthropic"

	t.Run("API 调用失败", func(t *testing.T) {
		m := new(mockMessages)
		m.On("New", mock.Anything, mock.Anything).Return(nil, stderrors.New("503")).Once()
		c := &AnthropicClient{config: cfg, messages: m}

		_, err := c.Summarize(context.Background(), "text")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.KindOracle))
	})

	t.Run("空内容", func(t *testing.T) {
		m := new(mockMessages)
		m.On("New", mock.Anything, mock.Anything).Return(anthropicMessage(t, ""), nil).Once()
		c := &AnthropicClient{config: cfg, messages: m}

		_, err := c.Summarize(context.Background(), "text")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.KindOracle))
	})
}
