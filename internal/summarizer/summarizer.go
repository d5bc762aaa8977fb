package summarizer

import (
	"context"
	"time"

	"github.com/fachebot/talk-digest-bot/internal/logger"
	"github.com/fachebot/talk-digest-bot/internal/model"
	"github.com/fachebot/talk-digest-bot/internal/segment"
)

// Request 待摘要的分段，由批处理器在轮转时投递
type Request struct {
	Index int
}

// textSummarizer 调用摘要服务（便于测试注入 mock）
type textSummarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// summaryWriter 写入摘要（便于测试注入 mock）
type summaryWriter interface {
	Create(ctx context.Context, text string, createdAt time.Time) (*model.Summary, error)
}

// Worker 单消费者：读取分段 → 调用摘要服务 → 写入摘要 → 删除分段文件
type Worker struct {
	dir    string
	oracle textSummarizer
	store  summaryWriter
	now    func() time.Time
}

func NewWorker(dir string, oracle textSummarizer, store summaryWriter) *Worker {
	return &Worker{
		dir:    dir,
		oracle: oracle,
		store:  store,
		now:    time.Now,
	}
}

// Run 按 FIFO 顺序处理请求，直到通道关闭或 ctx 取消
func (w *Worker) Run(ctx context.Context, requests <-chan Request) {
	logger.Infof("[Summarizer] 启动, 分段目录: %s", w.dir)
	defer logger.Infof("[Summarizer] 已停止")

	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-requests:
			if !ok {
				return
			}
			if err := w.Process(ctx, req); err != nil {
				logger.Errorf("[Summarizer] 处理分段失败, index: %d, %v", req.Index, err)
			}
		}
	}
}

// Process 处理单个分段。任一步骤失败都保留分段文件，错误返回给调用方记录
func (w *Worker) Process(ctx context.Context, req Request) error {
	content, err := segment.Read(w.dir, req.Index)
	if err != nil {
		return err
	}

	if segment.IsBlank(content) {
		logger.Infof("[Summarizer] 分段为空，直接删除, index: %d", req.Index)
		w.remove(req.Index)
		return nil
	}

	logger.Infof("[Summarizer] 开始生成摘要, index: %d, tokens: %d", req.Index, segment.ReplayTokens(content))
	text, err := w.oracle.Summarize(ctx, content)
	if err != nil {
		return err
	}

	summary, err := w.store.Create(ctx, text, w.now())
	if err != nil {
		return err
	}
	logger.Infof("[Summarizer] 摘要已保存, index: %d, summary: %d", req.Index, summary.ID)

	w.remove(req.Index)
	return nil
}

func (w *Worker) remove(index int) {
	if err := segment.Remove(w.dir, index); err != nil {
		logger.Warnf("[Summarizer] 删除分段文件失败, index: %d, %v", index, err)
	}
}
