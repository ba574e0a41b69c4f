package book

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"

	"z-book-ai-api/internal/config"
)

// 重试退避策略
const (
	StrategyExponential = "exponential"
	StrategyFixed       = "fixed"
)

// RetryPolicy 分块生成的重试策略
type RetryPolicy struct {
	// MaxAttempts 总尝试次数，0 表示直到成功
	MaxAttempts  uint
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Strategy     string
	// Timer 可替换的计时器，nil 时使用 time.After
	Timer retry.Timer
}

// RetryPolicyFromConfig 从配置构建重试策略
func RetryPolicyFromConfig(cfg config.RetryConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  cfg.MaxAttempts,
		InitialDelay: cfg.InitialDelay,
		MaxDelay:     cfg.MaxDelay,
		Strategy:     cfg.Strategy,
	}
}

// options 转换为 retry-go 选项
func (p RetryPolicy) options(ctx context.Context, onRetry retry.OnRetryFunc) []retry.Option {
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(p.MaxAttempts),
		retry.Delay(p.InitialDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(error) bool { return ctx.Err() == nil }),
	}
	if onRetry != nil {
		opts = append(opts, retry.OnRetry(onRetry))
	}

	switch p.Strategy {
	case StrategyFixed:
		opts = append(opts, retry.DelayType(retry.FixedDelay))
	default:
		opts = append(opts, retry.DelayType(retry.BackOffDelay))
		if p.MaxDelay > 0 {
			opts = append(opts, retry.MaxDelay(p.MaxDelay))
		}
	}

	if p.Timer != nil {
		opts = append(opts, retry.WithTimer(p.Timer))
	}
	return opts
}
