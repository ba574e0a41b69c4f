package messaging

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultMaxLen int64 = 100000

var tracer = otel.Tracer("messaging")

// Producer 向单个流追加事件，流长度按 MAXLEN ~ 近似裁剪
type Producer struct {
	client *redis.Client
	stream Stream
	maxLen int64
}

// NewProducer stream 为空时写 StreamBookEvents，maxLen <= 0 时取 100000
func NewProducer(client *redis.Client, stream Stream, maxLen int64) *Producer {
	if stream == "" {
		stream = StreamBookEvents
	}
	if maxLen <= 0 {
		maxLen = defaultMaxLen
	}
	return &Producer{client: client, stream: stream, maxLen: maxLen}
}

// Stream 目标流
func (p *Producer) Stream() Stream {
	return p.stream
}

// Publish 追加一个信封，返回流条目 ID
func (p *Producer) Publish(ctx context.Context, env *Envelope) (string, error) {
	ctx, span := tracer.Start(ctx, "messaging.publish", trace.WithAttributes(
		attribute.String("messaging.stream", string(p.stream)),
		attribute.String("event.type", env.Type),
		attribute.String("event.id", env.ID),
	))
	defer span.End()

	values, err := env.fields()
	if err != nil {
		span.SetStatus(codes.Error, "encode")
		return "", fmt.Errorf("encode envelope %s: %w", env.ID, err)
	}

	entryID, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(p.stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: values,
	}).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "xadd")
		return "", fmt.Errorf("xadd %s: %w", p.stream, err)
	}

	span.SetAttributes(attribute.String("messaging.entry_id", entryID))
	return entryID, nil
}

// PublishGeneration 发布整书生成结局
func (p *Producer) PublishGeneration(ctx context.Context, ev *GenerationEvent) (string, error) {
	env, err := newEnvelope(ev.RequestID, ev.eventType(), ev)
	if err != nil {
		return "", err
	}
	env.Header("status", ev.Status).Header("language", ev.Language)
	return p.Publish(ctx, env)
}
