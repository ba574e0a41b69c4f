// Package config 提供配置加载和管理功能
package config

import (
	"net"
	"strconv"
	"time"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	LLM           LLMConfig           `yaml:"llm" mapstructure:"llm"`
	Generation    GenerationConfig    `yaml:"generation" mapstructure:"generation"`
	Progress      ProgressConfig      `yaml:"progress" mapstructure:"progress"`
	Storage       StorageConfig       `yaml:"storage" mapstructure:"storage"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	Messaging     MessagingConfig     `yaml:"messaging" mapstructure:"messaging"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Host        string        `yaml:"host" mapstructure:"host"`
	Port        int           `yaml:"port" mapstructure:"port"`
	ReadTimeout time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	// WriteTimeout 为 0 表示不限制；生成请求可能持续数分钟
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// LLMConfig 文本补全后端配置
type LLMConfig struct {
	Provider          string             `yaml:"provider" mapstructure:"provider"`
	APIKey            string             `yaml:"api_key" mapstructure:"api_key"`
	BaseURL           string             `yaml:"base_url" mapstructure:"base_url"`
	Model             string             `yaml:"model" mapstructure:"model"`
	Temperature       float64            `yaml:"temperature" mapstructure:"temperature"`
	TopP              float64            `yaml:"top_p" mapstructure:"top_p"`
	TopK              int                `yaml:"top_k" mapstructure:"top_k"`
	RepetitionPenalty float64            `yaml:"repetition_penalty" mapstructure:"repetition_penalty"`
	ChunkMaxTokens    int                `yaml:"chunk_max_tokens" mapstructure:"chunk_max_tokens"`
	TopUpMaxTokens    int                `yaml:"topup_max_tokens" mapstructure:"topup_max_tokens"`
	Timeout           time.Duration      `yaml:"timeout" mapstructure:"timeout"`
	Retry             RetryConfig        `yaml:"retry" mapstructure:"retry"`
	RateLimit         LLMRateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// RetryConfig 分块生成重试配置
type RetryConfig struct {
	// MaxAttempts 为 0 表示无限重试
	MaxAttempts  uint          `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay" mapstructure:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" mapstructure:"max_delay"`
	// Strategy exponential | fixed
	Strategy string `yaml:"strategy" mapstructure:"strategy"`
}

// LLMRateLimitConfig 后端调用客户端限流
type LLMRateLimitConfig struct {
	Enabled           bool    `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// GenerationConfig 书籍组装配置
type GenerationConfig struct {
	BatchSize   int           `yaml:"batch_size" mapstructure:"batch_size"`
	Step        int           `yaml:"step" mapstructure:"step"`
	ChapterSpan int           `yaml:"chapter_span" mapstructure:"chapter_span"`
	MinWords    int           `yaml:"min_words" mapstructure:"min_words"`
	BatchPause  time.Duration `yaml:"batch_pause" mapstructure:"batch_pause"`
	// MaxTopUps 为 0 表示补写次数不设上限
	MaxTopUps int `yaml:"max_topups" mapstructure:"max_topups"`
}

// ProgressConfig 进度通道配置
type ProgressConfig struct {
	// Backend memory | redis
	Backend      string        `yaml:"backend" mapstructure:"backend"`
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	Retention    time.Duration `yaml:"retention" mapstructure:"retention"`
	MaxDepth     int           `yaml:"max_depth" mapstructure:"max_depth"`
	KeyPrefix    string        `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// StorageConfig PDF 文件存储配置
type StorageConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled      bool          `yaml:"enabled" mapstructure:"enabled"`
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// MessagingConfig 消息队列配置
type MessagingConfig struct {
	RedisStream RedisStreamConfig `yaml:"redis_stream" mapstructure:"redis_stream"`
}

// RedisStreamConfig Redis Stream 配置，仅在 Redis 启用时生效
type RedisStreamConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Stream  string `yaml:"stream" mapstructure:"stream"`
	MaxLen  int64  `yaml:"max_len" mapstructure:"max_len"`
}

// Addr 返回 host:port
func (c *RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	// AuthToken 与请求头 Authorization 比对的服务端密钥
	AuthToken string `yaml:"auth_token" mapstructure:"auth_token"`
	// ProtectProgress 为 true 时 /progress 也需要鉴权
	ProtectProgress bool            `yaml:"protect_progress" mapstructure:"protect_progress"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	CORS            CORSConfig      `yaml:"cors" mapstructure:"cors"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond int  `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int  `yaml:"burst" mapstructure:"burst"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}
