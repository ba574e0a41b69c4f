package book

import (
	"context"
	"fmt"

	"github.com/avast/retry-go/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"z-book-ai-api/internal/infrastructure/llm"
	apperrors "z-book-ai-api/pkg/errors"
	"z-book-ai-api/pkg/logger"
	"z-book-ai-api/pkg/metrics"
	"z-book-ai-api/pkg/tracer"
)

// GeneratorConfig 分块生成参数
type GeneratorConfig struct {
	// MinWords 每个分块的最低词数
	MinWords int
	// MaxTopUps 单次尝试内补写调用上限，0 表示不限
	MaxTopUps      int
	ChunkMaxTokens int
	TopUpMaxTokens int
}

// ChunkGenerator 构建提示词并调用补全后端生成单个分块
type ChunkGenerator struct {
	client llm.CompletionClient
	cfg    GeneratorConfig
	policy RetryPolicy
}

// NewChunkGenerator 创建分块生成器
func NewChunkGenerator(client llm.CompletionClient, cfg GeneratorConfig, policy RetryPolicy) *ChunkGenerator {
	return &ChunkGenerator{
		client: client,
		cfg:    cfg,
		policy: policy,
	}
}

// GenerateChunk 生成一个不少于 MinWords 词的分块
// 后端失败时按重试策略从头重试；尝试次数耗尽返回 CodeLLMCallFailed
func (g *ChunkGenerator) GenerateChunk(ctx context.Context, topic string, currentWordCount int, language string, isNewChapter bool) (string, error) {
	ctx, span := tracer.Start(ctx, "book.GenerateChunk",
		trace.WithAttributes(
			attribute.Int("book.planned_words", currentWordCount),
			attribute.Bool("book.new_chapter", isNewChapter),
		))
	defer span.End()

	onRetry := func(n uint, err error) {
		metrics.BookChunkRetries.Inc()
		logger.Warn(ctx, "chunk generation attempt failed",
			"attempt", n+1,
			"max_attempts", g.policy.MaxAttempts,
			"planned_words", currentWordCount,
			"new_chapter", isNewChapter,
			"error", err.Error(),
		)
	}

	text, err := retry.DoWithData(func() (string, error) {
		return g.generateOnce(ctx, topic, currentWordCount, language, isNewChapter)
	}, g.policy.options(ctx, onRetry)...)
	if err != nil {
		span.RecordError(err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("generate chunk: %w", ctxErr)
		}
		return "", apperrors.ErrLLMCallFailed.WithCause(err)
	}

	kind := "continuation"
	if isNewChapter {
		kind = "chapter"
	}
	metrics.BookChunksTotal.WithLabelValues(kind).Inc()
	return text, nil
}

// generateOnce 单次尝试：一次主调用加若干补写调用
func (g *ChunkGenerator) generateOnce(ctx context.Context, topic string, currentWordCount int, language string, isNewChapter bool) (string, error) {
	text, err := g.client.Complete(ctx, llm.CompletionRequest{
		Stage:     "chunk",
		System:    systemPrompt(language, currentWordCount),
		Messages:  []string{chunkPrompt(topic, currentWordCount, language, isNewChapter)},
		MaxTokens: g.cfg.ChunkMaxTokens,
	})
	if err != nil {
		return "", err
	}

	topUps := 0
	for CountWords(text) < g.cfg.MinWords {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if g.cfg.MaxTopUps > 0 && topUps >= g.cfg.MaxTopUps {
			logger.Warn(ctx, "chunk below word floor after max top-ups",
				"words", CountWords(text),
				"min_words", g.cfg.MinWords,
				"top_ups", topUps,
			)
			break
		}

		more, err := g.client.Complete(ctx, llm.CompletionRequest{
			Stage:     "top_up",
			System:    topUpSystemPrompt(language),
			Messages:  []string{text, topUpPrompt(currentWordCount)},
			MaxTokens: g.cfg.TopUpMaxTokens,
		})
		if err != nil {
			return "", err
		}
		topUps++
		metrics.BookTopUpCalls.Inc()
		text += "\n" + more
	}

	return text, nil
}
