package oracle

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fachebot/talk-digest-bot/internal/config"
)

// SystemPrompt 摘要服务的系统指令
const SystemPrompt = "You are a summarizer of large amount of content for a technical team. Summarize the following thoroughly:"

// Oracle 外部摘要服务：输入文本，返回摘要文本
type Oracle interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// New 根据 Provider 创建摘要服务客户端，httpClient 为空时使用默认客户端
func New(cfg *config.Oracle, httpClient *http.Client) (Oracle, error) {
	switch cfg.Provider {
	case "", "openai":
		return NewOpenAIClient(cfg, httpClient), nil
	case "anthropic":
		return NewAnthropicClient(cfg, httpClient), nil
	default:
		return nil, fmt.Errorf("不支持的摘要服务: %s", cfg.Provider)
	}
}

func withTimeout(ctx context.Context, seconds int) (context.Context, context.CancelFunc) {
	if seconds <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(seconds)*time.Second)
}

// stripFences 去掉响应首尾的 Markdown 代码块标记
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```")
	if i := strings.IndexByte(content, '\n'); i >= 0 && !strings.ContainsAny(content[:i], " \t") {
		// 去掉语言标记，如 ```markdown
		content = content[i+1:]
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}
