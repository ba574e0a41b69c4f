//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"z-book-ai-api/internal/config"
	"z-book-ai-api/internal/infrastructure/llm"
	"z-book-ai-api/internal/infrastructure/pdf"
	"z-book-ai-api/internal/infrastructure/storage"
	"z-book-ai-api/internal/interfaces/http/handler"
	"z-book-ai-api/internal/interfaces/http/router"
)

func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(
		RedisSet,
		LLMSet,
		BookSet,
		DocumentSet,
		RouterSet,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}

var RedisSet = wire.NewSet(
	ProvideRedisClient,
	ProvideRateLimiter,
	ProvideEventProducer,
)

var LLMSet = wire.NewSet(
	ProvideChatModel,
	ProvideCompletionClient,
	wire.Bind(new(llm.CompletionClient), new(*llm.EinoClient)),
)

var BookSet = wire.NewSet(
	ProvideChunkGenerator,
	ProvideProgressHub,
	ProvideAssembler,
)

var DocumentSet = wire.NewSet(
	ProvideRenderer,
	ProvideLocalStore,
	wire.Bind(new(handler.Renderer), new(*pdf.Renderer)),
	wire.Bind(new(handler.DocumentStore), new(*storage.LocalStore)),
)

var RouterSet = wire.NewSet(
	ProvideBookHandler,
	handler.NewDocumentHandler,
	ProvideProgressHandler,
	ProvideHealthHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)
