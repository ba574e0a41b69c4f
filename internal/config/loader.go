// Package config 提供配置加载功能
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// DefaultConfigDir 默认配置目录
const DefaultConfigDir = "configs"

// Load 从默认目录加载配置
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigDir)
}

// LoadFrom 加载指定目录下的配置文件
// 按优先级加载：默认配置 -> 环境配置 -> 环境变量
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// 1. 加载默认配置
	if err := loadConfigFile(v, filepath.Join(dir, "config.yaml"), false); err != nil {
		return nil, err
	}

	// 2. 加载环境特定配置
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	envFile := filepath.Join(dir, fmt.Sprintf("config.%s.yaml", env))
	if err := loadConfigFile(v, envFile, true); err != nil {
		return nil, err
	}

	// 3. 绑定环境变量 (直接覆盖)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 设置默认值 (兜底)
	setDefaults(v)

	// 兼容原有环境变量命名
	bindLegacyEnv(v)

	// 解析配置
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadConfigFile 读取文件，执行环境变量替换，并加载到 viper
func loadConfigFile(v *viper.Viper, path string, optional bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// 执行环境变量替换
	expanded := expandEnv(string(content))

	// 加载到 viper
	reader := strings.NewReader(expanded)
	if v.ConfigFileUsed() == "" {
		if err := v.ReadConfig(reader); err != nil {
			return fmt.Errorf("failed to read processed config %s: %w", path, err)
		}
		// 手动标记已加载文件，防止后续 ReadInConfig 报错
		v.SetConfigFile(path)
	} else {
		if err := v.MergeConfig(reader); err != nil {
			return fmt.Errorf("failed to merge processed config %s: %w", path, err)
		}
	}

	return nil
}

// envPattern 匹配 ${VAR} 或 ${VAR:default}
// g1: 变量名, g2: 默认值部分（含冒号）, g3: 默认值内容
var envPattern = regexp.MustCompile(`\${(\w+)(:([^}]*))?}`)

// expandEnv 替换字符串中的 ${VAR:default} 占位符
func expandEnv(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		submatch := envPattern.FindStringSubmatch(match)
		key := submatch[1]
		hasDefault := submatch[2] != ""
		defVal := submatch[3]

		val, ok := os.LookupEnv(key)
		if ok {
			return val
		}
		if hasDefault {
			return defVal
		}
		return match
	})
}

// MustLoad 加载配置，失败时 panic
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// bindLegacyEnv 绑定部署脚本沿用的环境变量名
func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("llm.api_key", "LLM_API_KEY", "TOGETHER_API_KEY")
	_ = v.BindEnv("security.auth_token", "SECURITY_AUTH_TOKEN", "AUTHORIZATION")
	_ = v.BindEnv("server.http.port", "SERVER_HTTP_PORT", "PORT")
}

// Validate 校验启动必需配置
func (c *Config) Validate() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return fmt.Errorf("llm.api_key is required (set TOGETHER_API_KEY)")
	}
	if c.Generation.BatchSize <= 0 {
		return fmt.Errorf("generation.batch_size must be positive")
	}
	if c.Generation.Step <= 0 {
		return fmt.Errorf("generation.step must be positive")
	}
	switch c.Progress.Backend {
	case "memory":
	case "redis":
		if !c.Cache.Redis.Enabled {
			return fmt.Errorf("progress.backend=redis requires cache.redis.enabled")
		}
	default:
		return fmt.Errorf("unknown progress.backend %q", c.Progress.Backend)
	}
	switch c.LLM.Retry.Strategy {
	case "exponential", "fixed":
	default:
		return fmt.Errorf("unknown llm.retry.strategy %q", c.LLM.Retry.Strategy)
	}
	return nil
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	// 应用默认值
	v.SetDefault("app.name", "z-book-ai-api")
	v.SetDefault("app.version", "v0.0.0")
	v.SetDefault("app.env", "development")

	// HTTP 服务器默认值
	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 5151)
	v.SetDefault("server.http.read_timeout", "30s")
	v.SetDefault("server.http.write_timeout", "0s")
	v.SetDefault("server.http.idle_timeout", "120s")

	// LLM 默认值（Together OpenAI 兼容接口）
	v.SetDefault("llm.provider", "together")
	v.SetDefault("llm.base_url", "https://api.together.xyz/v1")
	v.SetDefault("llm.model", "meta-llama/Meta-Llama-3.1-8B-Instruct-Turbo")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.top_p", 0.9)
	v.SetDefault("llm.top_k", 50)
	v.SetDefault("llm.repetition_penalty", 1.03)
	v.SetDefault("llm.chunk_max_tokens", 5000)
	v.SetDefault("llm.topup_max_tokens", 4000)
	v.SetDefault("llm.timeout", "5m")
	v.SetDefault("llm.retry.max_attempts", 0)
	v.SetDefault("llm.retry.initial_delay", "60s")
	v.SetDefault("llm.retry.max_delay", "2m")
	v.SetDefault("llm.retry.strategy", "fixed")
	v.SetDefault("llm.rate_limit.enabled", true)
	v.SetDefault("llm.rate_limit.requests_per_second", 5)
	v.SetDefault("llm.rate_limit.burst", 5)

	// 生成默认值
	v.SetDefault("generation.batch_size", 5)
	v.SetDefault("generation.step", 500)
	v.SetDefault("generation.chapter_span", 3000)
	v.SetDefault("generation.min_words", 500)
	v.SetDefault("generation.batch_pause", "1s")
	v.SetDefault("generation.max_topups", 0)

	// 进度通道默认值
	v.SetDefault("progress.backend", "memory")
	v.SetDefault("progress.poll_interval", "1s")
	v.SetDefault("progress.retention", "10m")
	v.SetDefault("progress.max_depth", 10000)
	v.SetDefault("progress.key_prefix", "progress")

	// 存储默认值
	v.SetDefault("storage.dir", "saved_pdfs")

	// 消息队列默认值
	v.SetDefault("messaging.redis_stream.enabled", false)
	v.SetDefault("messaging.redis_stream.stream", "stream:book:events")
	v.SetDefault("messaging.redis_stream.max_len", 100000)

	// Redis 默认值
	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.host", "localhost")
	v.SetDefault("cache.redis.port", 6379)
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.pool_size", 20)
	v.SetDefault("cache.redis.min_idle_conns", 2)
	v.SetDefault("cache.redis.dial_timeout", "5s")
	v.SetDefault("cache.redis.read_timeout", "3s")
	v.SetDefault("cache.redis.write_timeout", "3s")

	// 可观测性默认值
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")
	v.SetDefault("observability.tracing.sample_rate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.path", "/metrics")

	// 安全默认值
	v.SetDefault("security.protect_progress", false)
	v.SetDefault("security.rate_limit.enabled", true)
	v.SetDefault("security.rate_limit.requests_per_second", 20)
	v.SetDefault("security.rate_limit.burst", 40)
}
