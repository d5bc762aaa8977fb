package oracle

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fachebot/talk-digest-bot/internal/config"
)

// integrationTestConfig 从环境变量构建测试配置，若 ORACLE_API_KEY 未设置则跳过
func integrationTestConfig(t *testing.T) *config.Oracle {
	apiKey := os.Getenv("ORACLE_API_KEY")
	if apiKey == "" || apiKey == "your-api-key-here" {
		t.Skip("跳过集成测试：请设置 ORACLE_API_KEY 环境变量")
	}
	provider := os.Getenv("ORACLE_PROVIDER")
	if provider == "" {
		provider = "openai"
	}
	baseURL := os.Getenv("ORACLE_BASE_URL")
	if baseURL == "" && provider == "openai" {
		baseURL = "https://api.openai.com/v1"
	}
	model := os.Getenv("ORACLE_MODEL")
	if model == "" {
		model = "gpt-3.5-turbo"
	}
	return &config.Oracle{
		Provider:       provider,
		APIKey:         apiKey,
		BaseURL:        baseURL,
		Model:          model,
		MaxTokens:      1024,
		TimeoutSeconds: 60,
	}
}

func TestSummarize_Integration(t *testing.T) {
	cfg := integrationTestConfig(t)
	o, err := New(cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	text := "timestamp: 2025-02-01T10:00:00Z, author: alice, content: 部署脚本已经迁移到新的 CI 流水线\n" +
		"timestamp: 2025-02-01T10:01:00Z, author: bob, content: 周五前需要完成数据库迁移的回滚预案\n"
	got, err := o.Summarize(ctx, text)
	require.NoError(t, err)
	assert.NotEmpty(t, got)
	t.Logf("摘要结果:\n%s", got)
}
