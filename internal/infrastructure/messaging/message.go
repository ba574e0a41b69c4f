// Package messaging 提供基于 Redis Stream 的事件发布
package messaging

import (
	"encoding/json"
	"fmt"
	"time"
)

// Stream 流名称
type Stream string

// StreamBookEvents 整书生成结局事件流
const StreamBookEvents Stream = "stream:book:events"

// 事件类型
const (
	TypeBookCompleted = "book.completed"
	TypeBookFailed    = "book.failed"
)

// eventSource 写入信封的来源标识
const eventSource = "book-api"

// Envelope 写入流的事件信封，Payload 为具体事件的 JSON
type Envelope struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Source     string            `json:"source"`
	Payload    json.RawMessage   `json:"payload"`
	Headers    map[string]string `json:"headers,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

func newEnvelope(id, eventType string, payload any) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return &Envelope{
		ID:         id,
		Type:       eventType,
		Source:     eventSource,
		Payload:    raw,
		OccurredAt: time.Now().UTC(),
	}, nil
}

// Header 追加一个头部字段
func (e *Envelope) Header(key, value string) *Envelope {
	if e.Headers == nil {
		e.Headers = map[string]string{}
	}
	e.Headers[key] = value
	return e
}

// Decode 把 Payload 解到 v
func (e *Envelope) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// fields 转成 XADD 的字段，type 与 id 单独展开便于消费端过滤
func (e *Envelope) fields() (map[string]any, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"type": e.Type,
		"id":   e.ID,
		"data": string(data),
	}, nil
}

// GenerationEvent 一次整书生成的结局
type GenerationEvent struct {
	RequestID   string `json:"request_id"`
	Topic       string `json:"topic"`
	Language    string `json:"language"`
	TargetWords int    `json:"target_words"`
	Status      string `json:"status"`
	WordCount   int    `json:"word_count"`
	Chunks      int    `json:"chunks"`
	Chapters    int    `json:"chapters"`
	DurationMs  int64  `json:"duration_ms"`
	Error       string `json:"error,omitempty"`
}

// eventType 成功为 book.completed，其余一律 book.failed
func (ev *GenerationEvent) eventType() string {
	if ev.Status == "success" {
		return TypeBookCompleted
	}
	return TypeBookFailed
}
