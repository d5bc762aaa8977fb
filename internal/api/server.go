package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fachebot/talk-digest-bot/internal/config"
	"github.com/fachebot/talk-digest-bot/internal/logger"
)

// NewServer 创建只读 HTTP 服务
func NewServer(cfg *config.HTTP, summaries summaryReader, digests digestReader) *http.Server {
	h := &Handlers{
		summaries: summaries,
		digests:   digests,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /summaries", h.HandleSummaries)
	mux.HandleFunc("GET /daily_digests", h.HandleDailyDigests)

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Run 启动 HTTP 服务，ctx 取消时优雅关闭
func Run(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Infof("[API] HTTP 服务已启动: http://%s", srv.Addr)
	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		logger.Warnf("[API] HTTP 服务绑定在所有网卡上，可能被外部网络访问")
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Infof("[API] 正在关闭 HTTP 服务...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
