// Package progress 提供按请求划分的进度通道
package progress

import (
	"context"
	"sync"
	"time"
)

// Store 进度队列存储
type Store interface {
	// Push 追加一个进度值到主题队尾
	Push(ctx context.Context, topic string, n int) error
	// Pop 取出队首进度值，队列为空时 ok 为 false
	Pop(ctx context.Context, topic string) (n int, ok bool, err error)
	// Close 标记主题不再写入
	Close(ctx context.Context, topic string) error
	// Closed 主题是否已关闭
	Closed(ctx context.Context, topic string) (bool, error)
	// Delete 删除主题及其数据
	Delete(ctx context.Context, topic string) error
}

type memoryTopic struct {
	queue    []int
	closedAt time.Time
}

// MemoryStore 进程内进度存储
type MemoryStore struct {
	mu       sync.Mutex
	topics   map[string]*memoryTopic
	maxDepth int
	now      func() time.Time
}

// NewMemoryStore 创建进程内存储，maxDepth <= 0 表示不限队列深度
func NewMemoryStore(maxDepth int) *MemoryStore {
	return &MemoryStore{
		topics:   make(map[string]*memoryTopic),
		maxDepth: maxDepth,
		now:      time.Now,
	}
}

func (s *MemoryStore) topic(name string) *memoryTopic {
	t, ok := s.topics[name]
	if !ok {
		t = &memoryTopic{}
		s.topics[name] = t
	}
	return t
}

// Push 追加进度值，超过深度上限时丢弃最旧的值
func (s *MemoryStore) Push(_ context.Context, topic string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.topic(topic)
	t.queue = append(t.queue, n)
	if s.maxDepth > 0 && len(t.queue) > s.maxDepth {
		t.queue = t.queue[len(t.queue)-s.maxDepth:]
	}
	return nil
}

// Pop 取出队首进度值
func (s *MemoryStore) Pop(_ context.Context, topic string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.topics[topic]
	if !ok || len(t.queue) == 0 {
		return 0, false, nil
	}
	n := t.queue[0]
	t.queue = t.queue[1:]
	return n, true, nil
}

// Close 标记主题关闭
func (s *MemoryStore) Close(_ context.Context, topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.topic(topic)
	if t.closedAt.IsZero() {
		t.closedAt = s.now()
	}
	return nil
}

// Closed 主题是否已关闭
func (s *MemoryStore) Closed(_ context.Context, topic string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.topics[topic]
	return ok && !t.closedAt.IsZero(), nil
}

// Delete 删除主题
func (s *MemoryStore) Delete(_ context.Context, topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.topics, topic)
	return nil
}

// Sweep 删除在 before 之前关闭的主题，返回删除数量
func (s *MemoryStore) Sweep(before time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for name, t := range s.topics {
		if !t.closedAt.IsZero() && t.closedAt.Before(before) {
			delete(s.topics, name)
			removed++
		}
	}
	return removed
}
