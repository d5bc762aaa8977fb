package gateway

import (
	"context"
	"time"
)

// Event 来自聊天网关的一条消息，只被 Batcher 消费一次，不持久化
type Event struct {
	ChannelID int64
	Author    string
	Text      string
	Timestamp time.Time
}

// AllowList 允许进入流水线的频道集合
type AllowList map[int64]struct{}

func NewAllowList(channelIDs []int64) AllowList {
	allow := make(AllowList, len(channelIDs))
	for _, id := range channelIDs {
		allow[id] = struct{}{}
	}
	return allow
}

func (a AllowList) Contains(channelID int64) bool {
	_, ok := a[channelID]
	return ok
}

// Forwarder 在边界处过滤消息，并投递到有界通道
type Forwarder struct {
	allow AllowList
	out   chan<- Event
}

func NewForwarder(allow AllowList, out chan<- Event) *Forwarder {
	return &Forwarder{allow: allow, out: out}
}

// Allowed 判断频道是否在白名单中
func (f *Forwarder) Allowed(channelID int64) bool {
	return f.allow.Contains(channelID)
}

// Forward 投递消息。不在白名单中的消息直接丢弃；通道已满时阻塞，ctx 取消时放弃。
// 返回值表示消息是否已进入流水线。
func (f *Forwarder) Forward(ctx context.Context, ev Event) bool {
	if !f.allow.Contains(ev.ChannelID) {
		return false
	}

	select {
	case f.out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
