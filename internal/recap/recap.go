package recap

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fachebot/talk-digest-bot/internal/logger"
	"github.com/fachebot/talk-digest-bot/internal/model"
	"github.com/robfig/cron/v3"
)

// summaryProvider 查询待汇总的摘要（便于测试注入 mock）
type summaryProvider interface {
	Eligible(ctx context.Context, since *time.Time) ([]*model.Summary, error)
}

// digestStore 日报的读写（便于测试注入 mock）
type digestStore interface {
	Watermark(ctx context.Context) (*time.Time, error)
	CreateWithSummaries(ctx context.Context, text string, createdAt time.Time, summaries []*model.Summary) (*model.DailyDigest, error)
}

// textSummarizer 调用摘要服务（便于测试注入 mock）
type textSummarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Publisher 日报提交后的推送，失败只记录日志
type Publisher interface {
	Publish(ctx context.Context, digest *model.DailyDigest) error
}

// Aggregator 定时把新摘要合成为日报
type Aggregator struct {
	cron      *cron.Cron
	interval  time.Duration
	summaries summaryProvider
	digests   digestStore
	oracle    textSummarizer
	publisher Publisher
	now       func() time.Time

	trigger chan struct{}
	done    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	mu      sync.Mutex
}

// locUTC UTC 标准时间（UTC）
var locUTC = time.UTC

func NewAggregator(
	interval time.Duration,
	summaries summaryProvider,
	digests digestStore,
	oracle textSummarizer,
	publisher Publisher,
) *Aggregator {
	return &Aggregator{
		cron:      cron.New(cron.WithLocation(locUTC)),
		interval:  interval,
		summaries: summaries,
		digests:   digests,
		oracle:    oracle,
		publisher: publisher,
		now:       time.Now,
		trigger:   make(chan struct{}, 1),
	}
}

// Start 启动定时器，启动时立即触发一次。只能调用一次
func (a *Aggregator) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return fmt.Errorf("日报定时器已启动")
	}

	spec := fmt.Sprintf("@every %s", a.interval)
	if _, err := a.cron.AddFunc(spec, a.fire); err != nil {
		return fmt.Errorf("注册日报任务失败: %w", err)
	}

	a.ctx, a.cancel = context.WithCancel(context.Background())
	a.done = make(chan struct{})
	go a.loop(a.ctx, a.done)

	a.started = true
	a.cron.Start()
	a.fire()
	logger.Infof("[Recap] 日报定时器已启动，间隔: %s", a.interval)
	return nil
}

// Stop 停止定时器并等待当前一次执行结束
func (a *Aggregator) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	ctx := a.cron.Stop()
	<-ctx.Done()
	if done != nil {
		<-done
	}
	logger.Infof("[Recap] 日报定时器已停止")
}

// fire 非阻塞触发；已有待执行的触发时合并
func (a *Aggregator) fire() {
	select {
	case a.trigger <- struct{}{}:
	default:
		logger.Debugf("[Recap] 上一次执行尚未结束，本次触发已合并")
	}
}

func (a *Aggregator) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-a.trigger:
			if _, err := a.RunOnce(ctx); err != nil {
				logger.Errorf("[Recap] 生成日报失败: %v", err)
			}
		}
	}
}

// RunOnce 执行一次汇总。没有新摘要时返回 (nil, nil)
func (a *Aggregator) RunOnce(ctx context.Context) (*model.DailyDigest, error) {
	tickTime := a.now().In(locUTC)

	watermark, err := a.digests.Watermark(ctx)
	if err != nil {
		return nil, err
	}

	summaries, err := a.summaries.Eligible(ctx, watermark)
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		logger.Debugf("[Recap] 没有新的摘要，跳过")
		return nil, nil
	}

	if watermark != nil {
		logger.Infof("[Recap] 开始生成日报，摘要数: %d，水位线: %s", len(summaries), watermark.Format(time.RFC3339))
	} else {
		logger.Infof("[Recap] 开始生成日报，摘要数: %d", len(summaries))
	}

	texts := make([]string, len(summaries))
	for i, s := range summaries {
		texts[i] = s.Text
	}
	text, err := a.oracle.Summarize(ctx, strings.Join(texts, " "))
	if err != nil {
		return nil, err
	}

	digest, err := a.digests.CreateWithSummaries(ctx, text, tickTime, summaries)
	if err != nil {
		return nil, err
	}
	logger.Infof("[Recap] 日报已保存, id: %d, 摘要数: %d", digest.ID, len(digest.Summaries))

	if a.publisher != nil {
		if err := a.publisher.Publish(ctx, digest); err != nil {
			logger.Warnf("[Recap] 推送日报失败, id: %d, %v", digest.ID, err)
		}
	}
	return digest, nil
}
