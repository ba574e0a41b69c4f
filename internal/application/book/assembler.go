package book

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"z-book-ai-api/pkg/logger"
	"z-book-ai-api/pkg/metrics"
	"z-book-ai-api/pkg/tracer"
)

// ChunkWriter 生成单个分块
type ChunkWriter interface {
	GenerateChunk(ctx context.Context, topic string, currentWordCount int, language string, isNewChapter bool) (string, error)
}

// ProgressSink 接收按请求划分的进度
type ProgressSink interface {
	Open(ctx context.Context, id string) error
	Publish(ctx context.Context, id string, count int) error
	Close(ctx context.Context, id string) error
}

// Outcome 一次整书生成的结局
type Outcome struct {
	Request  Request
	Status   string // success / error / canceled
	Result   *Result
	Err      error
	Duration time.Duration
}

// OutcomeSink 接收生成结局，实现方不应阻塞调用方
type OutcomeSink interface {
	GenerationFinished(ctx context.Context, o Outcome)
}

// AssemblerConfig 组装参数
type AssemblerConfig struct {
	BatchSize   int
	Step        int
	ChapterSpan int
	BatchPause  time.Duration
}

// Request 一次整书生成请求
type Request struct {
	ID              string
	Topic           string
	Language        string
	TargetWordCount int
}

// Result 生成结果
type Result struct {
	Content   string
	WordCount int
	Chunks    int
	Chapters  int
}

// Chunk 一个已生成的分块
type Chunk struct {
	Text       string
	NewChapter bool
}

// ChunkEvent 分块追加到书稿后的通知
type ChunkEvent struct {
	Index      int
	Text       string
	NewChapter bool
	// WordCount 追加后的累计真实词数
	WordCount int
}

// OnChunk 分块回调，按派发顺序调用
type OnChunk func(ChunkEvent)

type plannedChunk struct {
	planned    int
	newChapter bool
}

// Assembler 以有界并发批次驱动分块生成，直到达到目标词数
type Assembler struct {
	writer   ChunkWriter
	progress ProgressSink
	outcomes OutcomeSink
	cfg      AssemblerConfig
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewAssembler 创建书稿组装器
func NewAssembler(writer ChunkWriter, progress ProgressSink, cfg AssemblerConfig) *Assembler {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if cfg.Step <= 0 {
		cfg.Step = 500
	}
	if cfg.ChapterSpan <= 0 {
		cfg.ChapterSpan = 3000
	}
	return &Assembler{
		writer:   writer,
		progress: progress,
		cfg:      cfg,
		sleep:    sleepContext,
	}
}

// WithOutcomes 设置结局通知
func (a *Assembler) WithOutcomes(sink OutcomeSink) *Assembler {
	a.outcomes = sink
	return a
}

// GenerateBook 生成整书
// 规划计数器仅用于章节边界与循环终止，返回的词数总是从正文重新统计
func (a *Assembler) GenerateBook(ctx context.Context, req Request, onChunk OnChunk) (*Result, error) {
	ctx, span := tracer.Start(ctx, "book.Generate",
		trace.WithAttributes(
			attribute.String("book.request_id", req.ID),
			attribute.Int("book.target_words", req.TargetWordCount),
		))
	defer span.End()

	if req.TargetWordCount <= 0 {
		return nil, fmt.Errorf("target word count must be positive")
	}

	start := time.Now()
	metrics.ActiveGenerations.Inc()
	defer metrics.ActiveGenerations.Dec()

	if a.progress != nil && req.ID != "" {
		if err := a.progress.Open(ctx, req.ID); err != nil {
			logger.Warn(ctx, "failed to open progress topic", "error", err.Error())
		}
		defer func() {
			// 请求取消后仍需关闭进度主题
			if err := a.progress.Close(context.WithoutCancel(ctx), req.ID); err != nil {
				logger.Warn(ctx, "failed to close progress topic", "error", err.Error())
			}
		}()
	}

	logger.Info(ctx, "book generation started",
		"topic", req.Topic,
		"language", req.Language,
		"target_words", req.TargetWordCount,
	)

	var (
		planned  int
		chapters int
		texts    []string
		batch    = make([]plannedChunk, 0, a.cfg.BatchSize)
	)

	for planned < req.TargetWordCount {
		newChapter := chapters == 0 || (planned > 0 && planned%a.cfg.ChapterSpan < a.cfg.Step)
		if newChapter {
			chapters++
		}
		batch = append(batch, plannedChunk{planned: planned, newChapter: newChapter})
		planned += a.cfg.Step

		if len(batch) < a.cfg.BatchSize && planned < req.TargetWordCount {
			continue
		}

		chunks, err := a.runBatch(ctx, req, batch)
		if err != nil {
			metrics.BookGenerationTotal.WithLabelValues("error").Inc()
			span.RecordError(err)
			logger.Error(ctx, "book generation failed", err,
				"chunks_done", len(texts),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			a.report(ctx, Outcome{Request: req, Status: "error", Err: err, Duration: time.Since(start)})
			return nil, err
		}

		for _, chunk := range chunks {
			texts = append(texts, chunk.Text)
			count := CountWords(strings.Join(texts, " "))
			a.publish(ctx, req.ID, count)
			if onChunk != nil {
				onChunk(ChunkEvent{
					Index:      len(texts) - 1,
					Text:       chunk.Text,
					NewChapter: chunk.NewChapter,
					WordCount:  count,
				})
			}
		}
		batch = batch[:0]

		logger.Debug(ctx, "batch completed", "chunks", len(texts), "planned_words", planned)

		if planned < req.TargetWordCount {
			if err := a.sleep(ctx, a.cfg.BatchPause); err != nil {
				metrics.BookGenerationTotal.WithLabelValues("canceled").Inc()
				a.report(ctx, Outcome{Request: req, Status: "canceled", Err: err, Duration: time.Since(start)})
				return nil, fmt.Errorf("batch pause: %w", err)
			}
		}
	}

	content := strings.Join(texts, "\n\n")
	result := &Result{
		Content:   content,
		WordCount: CountWords(content),
		Chunks:    len(texts),
		Chapters:  chapters,
	}

	metrics.BookGenerationTotal.WithLabelValues("success").Inc()
	metrics.BookGenerationDuration.Observe(time.Since(start).Seconds())
	metrics.BookWordCount.Observe(float64(result.WordCount))
	span.SetAttributes(attribute.Int("book.word_count", result.WordCount))

	logger.Info(ctx, "book generation finished",
		"word_count", result.WordCount,
		"chunks", result.Chunks,
		"chapters", result.Chapters,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	a.report(ctx, Outcome{Request: req, Status: "success", Result: result, Duration: time.Since(start)})
	return result, nil
}

func (a *Assembler) report(ctx context.Context, o Outcome) {
	if a.outcomes == nil {
		return
	}
	a.outcomes.GenerationFinished(context.WithoutCancel(ctx), o)
}

// runBatch 并发生成一批分块，结果按派发顺序返回
func (a *Assembler) runBatch(ctx context.Context, req Request, batch []plannedChunk) ([]Chunk, error) {
	out := make([]Chunk, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range batch {
		g.Go(func() error {
			text, err := a.writer.GenerateChunk(gctx, req.Topic, p.planned, req.Language, p.newChapter)
			if err != nil {
				return err
			}
			out[i] = Chunk{Text: text, NewChapter: p.newChapter}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *Assembler) publish(ctx context.Context, id string, count int) {
	if a.progress == nil {
		return
	}
	if err := a.progress.Publish(ctx, id, count); err != nil {
		logger.Warn(ctx, "failed to publish progress", "count", count, "error", err.Error())
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
