package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ProgressStore 以 Redis 列表保存进度队列，支持多实例共享
// 主题列表与关闭标记都带保留期 TTL，无需主动清理
type ProgressStore struct {
	client    *Client
	prefix    string
	retention time.Duration
	maxDepth  int64
}

// NewProgressStore 创建进度存储
func NewProgressStore(client *Client, prefix string, retention time.Duration, maxDepth int) *ProgressStore {
	if prefix == "" {
		prefix = "progress"
	}
	return &ProgressStore{
		client:    client,
		prefix:    prefix,
		retention: retention,
		maxDepth:  int64(maxDepth),
	}
}

func (s *ProgressStore) listKey(topic string) string {
	return fmt.Sprintf("%s:%s", s.prefix, topic)
}

func (s *ProgressStore) closedKey(topic string) string {
	return fmt.Sprintf("%s:%s:closed", s.prefix, topic)
}

// Push 追加进度值
func (s *ProgressStore) Push(ctx context.Context, topic string, n int) error {
	ctx, span := tracer.Start(ctx, "progress.Push",
		trace.WithAttributes(attribute.String("progress.topic", topic)))
	defer span.End()

	key := s.listKey(topic)
	pipe := s.client.rdb.Pipeline()
	pipe.RPush(ctx, key, n)
	if s.maxDepth > 0 {
		pipe.LTrim(ctx, key, -s.maxDepth, -1)
	}
	if s.retention > 0 {
		pipe.Expire(ctx, key, s.retention)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("push progress: %w", err)
	}
	return nil
}

// Pop 取出队首进度值
func (s *ProgressStore) Pop(ctx context.Context, topic string) (int, bool, error) {
	n, err := s.client.rdb.LPop(ctx, s.listKey(topic)).Int()
	if err != nil {
		if IsNil(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("pop progress: %w", err)
	}
	return n, true, nil
}

// Close 写入关闭标记
func (s *ProgressStore) Close(ctx context.Context, topic string) error {
	ctx, span := tracer.Start(ctx, "progress.Close",
		trace.WithAttributes(attribute.String("progress.topic", topic)))
	defer span.End()

	pipe := s.client.rdb.Pipeline()
	pipe.Set(ctx, s.closedKey(topic), time.Now().Unix(), s.retention)
	if s.retention > 0 {
		pipe.Expire(ctx, s.listKey(topic), s.retention)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("close progress: %w", err)
	}
	return nil
}

// Closed 检查关闭标记
func (s *ProgressStore) Closed(ctx context.Context, topic string) (bool, error) {
	n, err := s.client.rdb.Exists(ctx, s.closedKey(topic)).Result()
	if err != nil {
		return false, fmt.Errorf("check progress closed: %w", err)
	}
	return n > 0, nil
}

// Delete 删除主题列表与关闭标记
func (s *ProgressStore) Delete(ctx context.Context, topic string) error {
	if err := s.client.rdb.Del(ctx, s.listKey(topic), s.closedKey(topic)).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	return nil
}
