package wire

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/gin-gonic/gin"

	"z-book-ai-api/internal/application/book"
	"z-book-ai-api/internal/application/progress"
	"z-book-ai-api/internal/config"
	"z-book-ai-api/internal/infrastructure/llm"
	"z-book-ai-api/internal/infrastructure/messaging"
	"z-book-ai-api/internal/infrastructure/pdf"
	"z-book-ai-api/internal/infrastructure/persistence/redis"
	"z-book-ai-api/internal/infrastructure/storage"
	"z-book-ai-api/internal/interfaces/http/handler"
	"z-book-ai-api/internal/interfaces/http/middleware"
	"z-book-ai-api/internal/interfaces/http/router"
	"z-book-ai-api/pkg/logger"
)

// App 应用根对象
type App struct {
	Router *router.Router
	Hub    *progress.Hub
}

// ProvideRedisClient 提供 Redis 客户端，未启用时返回 nil
func ProvideRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(ctx, &cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRateLimiter Redis 可用时使用滑动窗口，否则使用进程内令牌桶
func ProvideRateLimiter(cfg *config.Config, client *redis.Client) middleware.RateLimiter {
	if !cfg.Security.RateLimit.Enabled {
		return nil
	}
	if client != nil {
		return redis.NewRateLimiter(client)
	}
	return middleware.NewMemoryRateLimiter(cfg.Security.RateLimit.Burst)
}

// ProvideChatModel 提供模型后端
func ProvideChatModel(ctx context.Context, cfg *config.Config) (model.BaseChatModel, error) {
	return llm.NewChatModel(ctx, &cfg.LLM)
}

// ProvideCompletionClient 提供补全客户端
func ProvideCompletionClient(chatModel model.BaseChatModel, cfg *config.Config) *llm.EinoClient {
	return llm.NewEinoClient(chatModel, &cfg.LLM)
}

// ProvideChunkGenerator 提供分块生成器
func ProvideChunkGenerator(client llm.CompletionClient, cfg *config.Config) *book.ChunkGenerator {
	return book.NewChunkGenerator(client, book.GeneratorConfig{
		MinWords:       cfg.Generation.MinWords,
		MaxTopUps:      cfg.Generation.MaxTopUps,
		ChunkMaxTokens: cfg.LLM.ChunkMaxTokens,
		TopUpMaxTokens: cfg.LLM.TopUpMaxTokens,
	}, book.RetryPolicyFromConfig(cfg.LLM.Retry))
}

// ProvideProgressHub 按配置选择进度存储
func ProvideProgressHub(cfg *config.Config, client *redis.Client) (*progress.Hub, error) {
	pc := cfg.Progress
	switch pc.Backend {
	case "", "memory":
		return progress.NewHub(progress.NewMemoryStore(pc.MaxDepth), "memory", pc.Retention), nil
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("progress backend redis requires cache.redis.enabled")
		}
		store := redis.NewProgressStore(client, pc.KeyPrefix, pc.Retention, pc.MaxDepth)
		return progress.NewHub(store, "redis", pc.Retention), nil
	default:
		return nil, fmt.Errorf("unknown progress backend: %s", pc.Backend)
	}
}

// ProvideEventProducer 提供生成事件生产者，Redis 或事件流未启用时返回 nil
func ProvideEventProducer(cfg *config.Config, client *redis.Client) *messaging.Producer {
	sc := cfg.Messaging.RedisStream
	if !sc.Enabled || client == nil {
		return nil
	}
	return messaging.NewProducer(client.Redis(), messaging.Stream(sc.Stream), sc.MaxLen)
}

// ProvideAssembler 提供书稿组装器
func ProvideAssembler(gen *book.ChunkGenerator, hub *progress.Hub, producer *messaging.Producer, cfg *config.Config) *book.Assembler {
	assembler := book.NewAssembler(gen, hub, book.AssemblerConfig{
		BatchSize:   cfg.Generation.BatchSize,
		Step:        cfg.Generation.Step,
		ChapterSpan: cfg.Generation.ChapterSpan,
		BatchPause:  cfg.Generation.BatchPause,
	})
	if producer != nil {
		assembler.WithOutcomes(&generationEvents{producer: producer})
	}
	return assembler
}

// generationEvents 把生成结局写入事件流
type generationEvents struct {
	producer *messaging.Producer
}

func (g *generationEvents) GenerationFinished(ctx context.Context, o book.Outcome) {
	ev := &messaging.GenerationEvent{
		RequestID:   o.Request.ID,
		Topic:       o.Request.Topic,
		Language:    o.Request.Language,
		TargetWords: o.Request.TargetWordCount,
		Status:      o.Status,
		DurationMs:  o.Duration.Milliseconds(),
	}
	if o.Result != nil {
		ev.WordCount = o.Result.WordCount
		ev.Chunks = o.Result.Chunks
		ev.Chapters = o.Result.Chapters
	}
	if o.Err != nil {
		ev.Error = o.Err.Error()
	}
	if _, err := g.producer.PublishGeneration(ctx, ev); err != nil {
		logger.Warn(ctx, "failed to publish generation event", "status", o.Status, "error", err.Error())
	}
}

// ProvideRenderer 提供 PDF 渲染器
func ProvideRenderer() *pdf.Renderer {
	return pdf.NewRenderer(pdf.Options{Compress: true})
}

// ProvideLocalStore 提供 PDF 存储
func ProvideLocalStore(cfg *config.Config) *storage.LocalStore {
	return storage.NewLocalStore(cfg.Storage.Dir)
}

// ProvideBookHandler 提供书稿处理器
func ProvideBookHandler(assembler *book.Assembler) *handler.BookHandler {
	return handler.NewBookHandler(assembler)
}

// ProvideProgressHandler 提供进度处理器
func ProvideProgressHandler(hub *progress.Hub, cfg *config.Config) *handler.ProgressHandler {
	return handler.NewProgressHandler(hub, cfg.Progress.PollInterval)
}

// ProvideHealthHandler 提供健康检查处理器
func ProvideHealthHandler(cfg *config.Config, client *redis.Client, store *storage.LocalStore) *handler.HealthHandler {
	// 避免把 nil 指针装进接口
	var checker handler.HealthChecker
	if client != nil {
		checker = client
	}
	return handler.NewHealthHandler(cfg.App.Version, checker, store)
}

// Engine 返回 HTTP 处理入口
func (a *App) Engine() *gin.Engine {
	return a.Router.Engine()
}

// StartBackground 启动后台任务，随 ctx 结束
func (a *App) StartBackground(ctx context.Context, cfg *config.Config) {
	interval := cfg.Progress.Retention / 2
	if interval <= 0 {
		return
	}
	go a.Hub.Run(ctx, interval)
	logger.Debug(ctx, "progress sweeper started", "interval", interval.String())
}
