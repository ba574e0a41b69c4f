package wire

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"z-book-ai-api/internal/application/book"
	"z-book-ai-api/internal/config"
	"z-book-ai-api/internal/infrastructure/messaging"
	"z-book-ai-api/internal/infrastructure/persistence/redis"
	"z-book-ai-api/internal/interfaces/http/middleware"
)

func newTestRedis(t *testing.T) (*redis.Client, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return redis.Wrap(rdb), rdb
}

func TestProvideProgressHubBackends(t *testing.T) {
	cfg := &config.Config{}
	cfg.Progress.Retention = time.Minute

	if _, err := ProvideProgressHub(cfg, nil); err != nil {
		t.Fatalf("memory backend: %v", err)
	}

	cfg.Progress.Backend = "redis"
	if _, err := ProvideProgressHub(cfg, nil); err == nil {
		t.Fatal("redis backend without a client should fail")
	}
	client, _ := newTestRedis(t)
	if _, err := ProvideProgressHub(cfg, client); err != nil {
		t.Fatalf("redis backend: %v", err)
	}

	cfg.Progress.Backend = "kafka"
	if _, err := ProvideProgressHub(cfg, nil); err == nil {
		t.Fatal("unknown backend should fail")
	}
}

func TestProvideRateLimiter(t *testing.T) {
	cfg := &config.Config{}
	if ProvideRateLimiter(cfg, nil) != nil {
		t.Fatal("disabled rate limit should provide nil")
	}

	cfg.Security.RateLimit.Enabled = true
	cfg.Security.RateLimit.Burst = 3
	if _, ok := ProvideRateLimiter(cfg, nil).(*middleware.MemoryRateLimiter); !ok {
		t.Fatal("expected in-process limiter without redis")
	}
	client, _ := newTestRedis(t)
	if _, ok := ProvideRateLimiter(cfg, client).(*redis.RateLimiter); !ok {
		t.Fatal("expected redis limiter")
	}
}

func TestGenerationEventsPublishesOutcome(t *testing.T) {
	cfg := &config.Config{}
	client, rdb := newTestRedis(t)

	if ProvideEventProducer(cfg, client) != nil {
		t.Fatal("disabled stream should provide nil")
	}
	cfg.Messaging.RedisStream.Enabled = true
	cfg.Messaging.RedisStream.Stream = "stream:test"
	if ProvideEventProducer(cfg, nil) != nil {
		t.Fatal("stream without redis should provide nil")
	}

	producer := ProvideEventProducer(cfg, client)
	sink := &generationEvents{producer: producer}
	ctx := context.Background()

	sink.GenerationFinished(ctx, book.Outcome{
		Request: book.Request{ID: "req-1", Topic: "t", TargetWordCount: 1000},
		Status:  "success",
		Result:  &book.Result{WordCount: 1040, Chunks: 2, Chapters: 1},
	})
	sink.GenerationFinished(ctx, book.Outcome{
		Request: book.Request{ID: "req-2"},
		Status:  "error",
		Err:     errors.New("boom"),
	})

	entries, err := rdb.XRange(ctx, "stream:test", "-", "+").Result()
	if err != nil {
		t.Fatalf("XRange: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Values["type"] != messaging.TypeBookCompleted || entries[1].Values["type"] != messaging.TypeBookFailed {
		t.Fatalf("types = %v / %v", entries[0].Values["type"], entries[1].Values["type"])
	}
}

func TestProvideHealthHandlerWithoutRedis(t *testing.T) {
	cfg := &config.Config{}
	cfg.App.Version = "test"
	store := ProvideLocalStore(&config.Config{Storage: config.StorageConfig{Dir: t.TempDir()}})
	if ProvideHealthHandler(cfg, nil, store) == nil {
		t.Fatal("expected handler")
	}
}
