package progress

import (
	"context"
	"time"

	"z-book-ai-api/pkg/logger"
	"z-book-ai-api/pkg/metrics"
)

// GlobalTopic 未携带请求 ID 的订阅者读取的共享主题
const GlobalTopic = "global"

// Event 一次读取结果
type Event struct {
	Count int
	// Ready 读到了一个进度值
	Ready bool
	// Done 主题已关闭且已读空
	Done bool
}

// sweeper 由需要主动清理的存储实现
type sweeper interface {
	Sweep(before time.Time) int
}

// Hub 进度发布与订阅
type Hub struct {
	store     Store
	backend   string
	retention time.Duration
}

// NewHub 创建进度中心
func NewHub(store Store, backend string, retention time.Duration) *Hub {
	return &Hub{
		store:     store,
		backend:   backend,
		retention: retention,
	}
}

// requestTopicPrefix 请求主题与 GlobalTopic 分属不同命名空间，调用方传入 "global" 也不会串到共享主题
const requestTopicPrefix = "req:"

func requestTopic(id string) string {
	return requestTopicPrefix + id
}

func topicOf(id string) string {
	if id == "" {
		return GlobalTopic
	}
	return requestTopic(id)
}

// Open 为请求注册主题，同名旧主题会被清空
func (h *Hub) Open(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return h.store.Delete(ctx, requestTopic(id))
}

// Publish 发布进度到请求主题和全局主题
func (h *Hub) Publish(ctx context.Context, id string, count int) error {
	if id != "" {
		if err := h.store.Push(ctx, requestTopic(id), count); err != nil {
			return err
		}
	}
	if err := h.store.Push(ctx, GlobalTopic, count); err != nil {
		return err
	}
	metrics.ProgressPublished.WithLabelValues(h.backend).Inc()
	return nil
}

// Close 关闭请求主题
func (h *Hub) Close(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return h.store.Close(ctx, requestTopic(id))
}

// Next 非阻塞读取下一个进度值
// 全局主题永不结束
func (h *Hub) Next(ctx context.Context, id string) (Event, error) {
	topic := topicOf(id)

	// 先读关闭标记再出队，避免漏掉关闭前的最后一个值
	closed := false
	if id != "" {
		var err error
		if closed, err = h.store.Closed(ctx, topic); err != nil {
			return Event{}, err
		}
	}

	n, ok, err := h.store.Pop(ctx, topic)
	if err != nil {
		return Event{}, err
	}
	if ok {
		return Event{Count: n, Ready: true}, nil
	}
	if closed {
		return Event{Done: true}, nil
	}
	return Event{}, nil
}

// Sweep 清理超过保留期的已关闭主题
func (h *Hub) Sweep(now time.Time) int {
	s, ok := h.store.(sweeper)
	if !ok {
		return 0
	}
	return s.Sweep(now.Add(-h.retention))
}

// Run 周期性清理，直到 ctx 结束
func (h *Hub) Run(ctx context.Context, interval time.Duration) {
	if _, ok := h.store.(sweeper); !ok || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := h.Sweep(now); n > 0 {
				logger.Debug(ctx, "progress topics swept", "count", n)
			}
		}
	}
}
