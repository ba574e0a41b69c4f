package llm

import (
	"context"
	"fmt"
	"strings"

	openaiopts "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"z-book-ai-api/internal/config"
	einoobs "z-book-ai-api/internal/observability/eino"
	"z-book-ai-api/pkg/tracer"
)

// CompletionRequest 一次补全调用的输入
type CompletionRequest struct {
	// Stage 调用所属的生成阶段，用于指标标签
	Stage string
	// System 系统指令
	System string
	// Messages 按顺序排列的用户消息
	Messages []string
	// MaxTokens 单次生成的最大 token 数，0 表示使用模型默认值
	MaxTokens int
}

// CompletionClient 文本补全客户端
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Sampling 采样参数，对每次调用统一生效
type Sampling struct {
	Temperature       float32
	TopP              float32
	TopK              int
	RepetitionPenalty float64
}

// EinoClient 基于 Eino ChatModel 的补全客户端
type EinoClient struct {
	chatModel model.BaseChatModel
	provider  string
	modelName string
	sampling  Sampling
	limiter   *rate.Limiter
}

// NewEinoClient 创建补全客户端
func NewEinoClient(chatModel model.BaseChatModel, cfg *config.LLMConfig) *EinoClient {
	c := &EinoClient{
		chatModel: chatModel,
		provider:  cfg.Provider,
		modelName: cfg.Model,
		sampling: Sampling{
			Temperature:       float32(cfg.Temperature),
			TopP:              float32(cfg.TopP),
			TopK:              cfg.TopK,
			RepetitionPenalty: cfg.RepetitionPenalty,
		},
	}
	if cfg.RateLimit.Enabled && cfg.RateLimit.RequestsPerSecond > 0 {
		burst := cfg.RateLimit.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), burst)
	}
	return c
}

// Complete 发起一次补全调用，返回去除首尾空白的文本
func (c *EinoClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	ctx, span := tracer.Start(ctx, "llm.Complete",
		trace.WithAttributes(
			attribute.String("llm.provider", c.provider),
			attribute.String("llm.model", c.modelName),
			attribute.Int("llm.messages", len(req.Messages)),
			attribute.Int("llm.max_tokens", req.MaxTokens),
		))
	defer span.End()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("llm rate limiter: %w", err)
		}
	}

	msgs := make([]*schema.Message, 0, len(req.Messages)+1)
	msgs = append(msgs, schema.SystemMessage(req.System))
	for _, m := range req.Messages {
		msgs = append(msgs, schema.UserMessage(m))
	}

	// 直接调用组件时需自行挂载 callbacks，全局处理器负责指标与 llm.generate Span
	ctx = einoobs.WithStageProvider(ctx, req.Stage, c.provider)
	ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
		Name:      "book_" + req.Stage,
		Type:      c.provider,
		Component: components.ComponentOfChatModel,
	})

	out, err := c.chatModel.Generate(ctx, msgs, c.options(req)...)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("llm generate: %w", err)
	}
	if out == nil {
		return "", fmt.Errorf("llm generate: empty response")
	}

	return strings.TrimSpace(out.Content), nil
}

func (c *EinoClient) options(req CompletionRequest) []model.Option {
	opts := make([]model.Option, 0, 5)
	opts = append(opts,
		model.WithTemperature(c.sampling.Temperature),
		model.WithTopP(c.sampling.TopP),
	)
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}
	if c.modelName != "" {
		opts = append(opts, model.WithModel(c.modelName))
	}

	// top_k / repetition_penalty 不在 OpenAI 协议内，按 Together 扩展字段透传
	extra := make(map[string]any, 2)
	if c.sampling.TopK > 0 {
		extra["top_k"] = c.sampling.TopK
	}
	if c.sampling.RepetitionPenalty > 0 {
		extra["repetition_penalty"] = c.sampling.RepetitionPenalty
	}
	if len(extra) > 0 {
		opts = append(opts, openaiopts.WithExtraFields(extra))
	}
	return opts
}
