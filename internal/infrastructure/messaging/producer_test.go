package messaging

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestProducer(t *testing.T) (*Producer, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewProducer(rdb, "", 0), rdb
}

func TestPublishGeneration(t *testing.T) {
	ctx := context.Background()
	p, rdb := newTestProducer(t)
	if p.Stream() != StreamBookEvents {
		t.Fatalf("stream = %s", p.Stream())
	}

	id, err := p.PublishGeneration(ctx, &GenerationEvent{
		RequestID: "req-1",
		Topic:     "dragons",
		Status:    "success",
		WordCount: 1040,
		Chunks:    2,
	})
	if err != nil || id == "" {
		t.Fatalf("PublishGeneration: id=%q err=%v", id, err)
	}

	entries, err := rdb.XRange(ctx, string(StreamBookEvents), "-", "+").Result()
	if err != nil {
		t.Fatalf("XRange: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].Values["type"] != TypeBookCompleted {
		t.Fatalf("type = %v", entries[0].Values["type"])
	}

	if entries[0].Values["id"] != "req-1" {
		t.Fatalf("id = %v", entries[0].Values["id"])
	}

	var env Envelope
	if err := json.Unmarshal([]byte(entries[0].Values["data"].(string)), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	var ev GenerationEvent
	if err := env.Decode(&ev); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if ev.RequestID != "req-1" || ev.WordCount != 1040 || env.Headers["status"] != "success" || env.Source != "book-api" {
		t.Fatalf("event = %+v envelope = %+v", ev, env)
	}
}

func TestPublishGenerationFailureType(t *testing.T) {
	ctx := context.Background()
	p, rdb := newTestProducer(t)

	if _, err := p.PublishGeneration(ctx, &GenerationEvent{RequestID: "req-2", Status: "error", Error: "boom"}); err != nil {
		t.Fatalf("PublishGeneration: %v", err)
	}
	entries, _ := rdb.XRange(ctx, string(StreamBookEvents), "-", "+").Result()
	if len(entries) != 1 || entries[0].Values["type"] != TypeBookFailed {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestPublishTrimsStream(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	p := NewProducer(rdb, "stream:test", 2)

	for i := 0; i < 5; i++ {
		env, err := newEnvelope("req", TypeBookCompleted, map[string]int{"n": i})
		if err != nil {
			t.Fatalf("newEnvelope: %v", err)
		}
		if _, err := p.Publish(ctx, env); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}
	n, err := rdb.XLen(ctx, "stream:test").Result()
	if err != nil {
		t.Fatalf("XLen: %v", err)
	}
	if n > 5 || n < 2 {
		t.Fatalf("stream length = %d", n)
	}
}
