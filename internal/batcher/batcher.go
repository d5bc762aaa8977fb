package batcher

import (
	"context"
	"sync"

	"github.com/fachebot/talk-digest-bot/internal/gateway"
	"github.com/fachebot/talk-digest-bot/internal/logger"
	"github.com/fachebot/talk-digest-bot/internal/segment"
	"github.com/fachebot/talk-digest-bot/internal/summarizer"
	"github.com/fachebot/talk-digest-bot/internal/tokens"
)

// Batcher 将消息追加到当前分段，累计 token 超过阈值时轮转并投递旧分段
type Batcher struct {
	dir       string
	threshold int
	requests  chan<- summarizer.Request

	mu      sync.Mutex
	active  *segment.Segment
	running int
}

// New 发现当前分段并打开，token 计数由文件内容回放得到
func New(dir string, threshold int, requests chan<- summarizer.Request) (*Batcher, error) {
	index, err := segment.DiscoverActiveIndex(dir)
	if err != nil {
		return nil, err
	}

	active, running, err := segment.Open(dir, index)
	if err != nil {
		return nil, err
	}

	logger.Infof("[Batcher] 当前分段: %d, 已累计 tokens: %d, 阈值: %d", index, running, threshold)
	return &Batcher{
		dir:       dir,
		threshold: threshold,
		requests:  requests,
		active:    active,
		running:   running,
	}, nil
}

func (b *Batcher) ActiveIndex() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active.Index()
}

func (b *Batcher) RunningTokens() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Reconcile 为当前分段之前仍留在磁盘上的分段重新投递请求
func (b *Batcher) Reconcile(ctx context.Context) error {
	pending, err := segment.Pending(b.dir, b.ActiveIndex())
	if err != nil {
		return err
	}

	for _, index := range pending {
		logger.Infof("[Batcher] 重新投递遗留分段, index: %d", index)
		if err := b.enqueue(ctx, index); err != nil {
			return err
		}
	}
	return nil
}

// Ingest 处理一条消息。仅在投递被 ctx 取消时返回错误，写入失败只记录日志并丢弃该消息
func (b *Batcher) Ingest(ctx context.Context, ev gateway.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var enqueueErr error
	incoming := tokens.Estimate(ev.Text)
	if b.running+incoming > b.threshold {
		next, _, err := segment.Rotate(b.dir, b.active.Index())
		if err != nil {
			logger.Errorf("[Batcher] 打开新分段失败，继续写入当前分段, index: %d, %v", b.active.Index(), err)
		} else {
			old := b.active
			if err := old.Close(); err != nil {
				logger.Warnf("[Batcher] 关闭分段失败, index: %d, %v", old.Index(), err)
			}
			b.active = next
			b.running = 0
			logger.Infof("[Batcher] 分段轮转: %d -> %d", old.Index(), next.Index())

			// 投递被取消时旧分段仍在磁盘上，下次启动对账时重新投递
			enqueueErr = b.enqueue(ctx, old.Index())
		}
	}

	line := segment.FormatLine(ev.Timestamp, ev.Author, ev.Text)
	if err := b.active.Append(line); err != nil {
		logger.Errorf("[Batcher] 写入消息失败，已丢弃, channel: %d, %v", ev.ChannelID, err)
		return enqueueErr
	}
	b.running += incoming
	return enqueueErr
}

// Run 先对遗留分段做一次对账，然后处理消息直到通道关闭或 ctx 取消
func (b *Batcher) Run(ctx context.Context, events <-chan gateway.Event) {
	logger.Infof("[Batcher] 启动, 分段目录: %s", b.dir)
	defer b.close()

	if err := b.Reconcile(ctx); err != nil {
		logger.Errorf("[Batcher] 遗留分段对账失败, %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := b.Ingest(ctx, ev); err != nil {
				logger.Warnf("[Batcher] 投递分段中断, %v", err)
				return
			}
		}
	}
}

// enqueue 通道已满时阻塞，ctx 取消时放弃
func (b *Batcher) enqueue(ctx context.Context, index int) error {
	select {
	case b.requests <- summarizer.Request{Index: index}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Batcher) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.active.Close(); err != nil {
		logger.Warnf("[Batcher] 关闭分段失败, index: %d, %v", b.active.Index(), err)
	}
	logger.Infof("[Batcher] 已停止, 当前分段: %d, tokens: %d", b.active.Index(), b.running)
}
