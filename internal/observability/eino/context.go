// Package eino 为 Eino 组件调用提供全局 callbacks（指标与追踪）
package eino

import (
	"context"
	"strings"
)

type ctxKey int

const (
	ctxKeyStage ctxKey = iota
	ctxKeyProvider
)

const unknown = "unknown"

// WithStage 标记本次调用所属的生成阶段（chunk / top_up）
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, ctxKeyStage, stage)
}

// WithProvider 标记本次调用的模型提供方
func WithProvider(ctx context.Context, provider string) context.Context {
	return context.WithValue(ctx, ctxKeyProvider, provider)
}

// WithStageProvider 同时标记阶段与提供方
func WithStageProvider(ctx context.Context, stage, provider string) context.Context {
	return WithProvider(WithStage(ctx, stage), provider)
}

func StageFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxKeyStage)
}

func ProviderFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxKeyProvider)
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return unknown
	}
	s, ok := ctx.Value(key).(string)
	if !ok || strings.TrimSpace(s) == "" {
		return unknown
	}
	return strings.TrimSpace(s)
}
