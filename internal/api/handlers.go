package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/fachebot/talk-digest-bot/internal/logger"
	"github.com/fachebot/talk-digest-bot/internal/model"
)

type summaryReader interface {
	All(ctx context.Context) ([]*model.Summary, error)
	Page(ctx context.Context, count, page int) ([]*model.Summary, error)
}

type digestReader interface {
	AllWithSummaries(ctx context.Context) ([]*model.DailyDigest, error)
}

type Handlers struct {
	summaries summaryReader
	digests   digestReader
}

// HandleSummaries GET /summaries[?count=n&page=p]
// count 缺失或无效时返回全部摘要；page 缺失或小于 1 时视为 1。
func (h *Handlers) HandleSummaries(w http.ResponseWriter, r *http.Request) {
	var (
		summaries []*model.Summary
		err       error
	)

	if count, ok := positiveInt(r.URL.Query().Get("count")); ok {
		page, ok := positiveInt(r.URL.Query().Get("page"))
		if !ok {
			page = 1
		}
		summaries, err = h.summaries.Page(r.Context(), count, page)
	} else {
		summaries, err = h.summaries.All(r.Context())
	}

	// 查询失败时返回空列表
	if err != nil {
		logger.Errorf("[API] 查询摘要失败: %v", err)
		summaries = []*model.Summary{}
	}
	writeJSON(w, summaries)
}

// HandleDailyDigests GET /daily_digests
func (h *Handlers) HandleDailyDigests(w http.ResponseWriter, r *http.Request) {
	digests, err := h.digests.AllWithSummaries(r.Context())
	if err != nil {
		logger.Errorf("[API] 查询日报失败: %v", err)
		digests = []*model.DailyDigest{}
	}
	writeJSON(w, digests)
}

func positiveInt(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warnf("[API] 写入响应失败: %v", err)
	}
}
