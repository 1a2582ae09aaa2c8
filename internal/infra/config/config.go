package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP  HTTPConfig  `yaml:"http"`
	FAQ   FAQConfig   `yaml:"faq"`
	Model ModelConfig `yaml:"model"`
	Cache CacheConfig `yaml:"cache"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
	MetricsPath    string          `yaml:"metricsPath"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// FAQ sources.
const (
	SourceFile        = "file"
	SourcePostgres    = "postgres"
	SourceObjectStore = "objectstore"
	SourceEmbedded    = "embedded"
)

// FAQConfig selects where the FAQ table is read from at startup.
type FAQConfig struct {
	Source      string            `yaml:"source"`
	Path        string            `yaml:"path"`
	Postgres    PostgresConfig    `yaml:"postgres"`
	ObjectStore ObjectStoreConfig `yaml:"objectStore"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	Table    string `yaml:"table"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// ObjectStoreConfig points at an S3-compatible object holding the FAQ document.
type ObjectStoreConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Key       string `yaml:"key"`
	Region    string `yaml:"region"`
}

// ModelConfig holds the local model artifact, engine and sampling settings.
type ModelConfig struct {
	Path           string        `yaml:"path"`
	ServerBinary   string        `yaml:"serverBinary"`
	BaseURL        string        `yaml:"baseUrl"`
	ContextSize    int           `yaml:"contextSize"`
	Threads        int           `yaml:"threads"`
	GPULayers      int           `yaml:"gpuLayers"`
	BatchSize      int           `yaml:"batchSize"`
	Temperature    float32       `yaml:"temperature"`
	TopP           float32       `yaml:"topP"`
	RepeatPenalty  float32       `yaml:"repeatPenalty"`
	MaxTokens      int           `yaml:"maxTokens"`
	MaxConcurrent  int           `yaml:"maxConcurrent"`
	LoadTimeout    time.Duration `yaml:"loadTimeout"`
	LockPath       string        `yaml:"lockPath"`
	Preload        bool          `yaml:"preload"`
	SystemPrompt   string        `yaml:"systemPrompt"`
	CompanyContext string        `yaml:"companyContext"`
	Encoding       string        `yaml:"encoding"`
}

// CacheConfig controls the generated answer cache.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	TTL       time.Duration `yaml:"ttl"`
	KeyPrefix string        `yaml:"keyPrefix"`
	Redis     RedisConfig   `yaml:"redis"`
}

// RedisConfig contains connection information for cache storage.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	setString("HTTP_ADDRESS", &cfg.HTTP.Address)
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	setBool("HTTP_RATE_LIMIT_ENABLED", &cfg.HTTP.RateLimit.Enabled)
	setInt("HTTP_RATE_LIMIT_RPM", &cfg.HTTP.RateLimit.RequestsPerMinute)
	setInt("HTTP_RATE_LIMIT_BURST", &cfg.HTTP.RateLimit.Burst)
	setString("HTTP_METRICS_PATH", &cfg.HTTP.MetricsPath)

	setString("FAQ_SOURCE", &cfg.FAQ.Source)
	setString("FAQ_PATH", &cfg.FAQ.Path)
	setString("FAQ_POSTGRES_DSN", &cfg.FAQ.Postgres.DSN)
	setString("FAQ_POSTGRES_TABLE", &cfg.FAQ.Postgres.Table)
	if v := os.Getenv("FAQ_POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.FAQ.Postgres.MaxConns = int32(parsed)
		}
	}
	setString("FAQ_OBJECT_ENDPOINT", &cfg.FAQ.ObjectStore.Endpoint)
	setString("FAQ_OBJECT_ACCESS_KEY", &cfg.FAQ.ObjectStore.AccessKey)
	setString("FAQ_OBJECT_SECRET_KEY", &cfg.FAQ.ObjectStore.SecretKey)
	setString("FAQ_OBJECT_BUCKET", &cfg.FAQ.ObjectStore.Bucket)
	setString("FAQ_OBJECT_KEY", &cfg.FAQ.ObjectStore.Key)
	setString("FAQ_OBJECT_REGION", &cfg.FAQ.ObjectStore.Region)

	setString("MODEL_PATH", &cfg.Model.Path)
	setString("MODEL_SERVER_BINARY", &cfg.Model.ServerBinary)
	setString("MODEL_BASE_URL", &cfg.Model.BaseURL)
	setInt("MODEL_CONTEXT_SIZE", &cfg.Model.ContextSize)
	setInt("MODEL_THREADS", &cfg.Model.Threads)
	setInt("MODEL_GPU_LAYERS", &cfg.Model.GPULayers)
	setInt("MODEL_BATCH_SIZE", &cfg.Model.BatchSize)
	setFloat32("MODEL_TEMPERATURE", &cfg.Model.Temperature)
	setFloat32("MODEL_TOP_P", &cfg.Model.TopP)
	setFloat32("MODEL_REPEAT_PENALTY", &cfg.Model.RepeatPenalty)
	setInt("MODEL_MAX_TOKENS", &cfg.Model.MaxTokens)
	setInt("MODEL_MAX_CONCURRENT", &cfg.Model.MaxConcurrent)
	setDuration("MODEL_LOAD_TIMEOUT", &cfg.Model.LoadTimeout)
	setString("MODEL_LOCK_PATH", &cfg.Model.LockPath)
	setBool("MODEL_PRELOAD", &cfg.Model.Preload)
	setString("MODEL_SYSTEM_PROMPT", &cfg.Model.SystemPrompt)
	setString("MODEL_COMPANY_CONTEXT", &cfg.Model.CompanyContext)

	setBool("CACHE_ENABLED", &cfg.Cache.Enabled)
	setDuration("CACHE_TTL", &cfg.Cache.TTL)
	setBool("CACHE_REDIS_ENABLED", &cfg.Cache.Redis.Enabled)
	setString("CACHE_REDIS_ADDR", &cfg.Cache.Redis.Addr)
}

func setString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "1" || strings.EqualFold(v, "true")
	}
}

func setInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setFloat32(key string, dst *float32) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			*dst = float32(parsed)
		}
	}
}

func setDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = parsed
		}
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:        ":8080",
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   300 * time.Second,
			AllowedOrigins: []string{"*"},
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 60,
				Burst:             20,
			},
			MetricsPath: "/metrics",
		},
		FAQ: FAQConfig{
			Source: SourceFile,
			Path:   "data/faqs.json",
			Postgres: PostgresConfig{
				Table:    "faqs",
				MaxConns: 4,
			},
		},
		Model: ModelConfig{
			Path:          "models/mistral-7b-instruct-v0.2.Q4_K_M.gguf",
			BaseURL:       "http://127.0.0.1:8081",
			ContextSize:   2048,
			Threads:       4,
			GPULayers:     30,
			BatchSize:     512,
			Temperature:   0.2,
			TopP:          0.95,
			RepeatPenalty: 1.1,
			MaxTokens:     256,
			MaxConcurrent: 1,
			LoadTimeout:   2 * time.Minute,
			Encoding:      "cl100k_base",
		},
		Cache: CacheConfig{
			Enabled:   false,
			TTL:       time.Hour,
			KeyPrefix: "faqbot",
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.ReadTimeout < 0 || c.HTTP.WriteTimeout < 0 {
		return errors.New("http timeouts cannot be negative")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if !strings.HasPrefix(c.HTTP.MetricsPath, "/") {
		return errors.New("http.metricsPath must start with /")
	}

	switch c.FAQ.Source {
	case SourceFile:
		if strings.TrimSpace(c.FAQ.Path) == "" {
			return errors.New("faq.path cannot be empty for the file source")
		}
	case SourcePostgres:
		if strings.TrimSpace(c.FAQ.Postgres.DSN) == "" {
			return errors.New("faq.postgres.dsn cannot be empty for the postgres source")
		}
	case SourceEmbedded:
	case SourceObjectStore:
		if c.FAQ.ObjectStore.Endpoint == "" || c.FAQ.ObjectStore.Bucket == "" || c.FAQ.ObjectStore.Key == "" {
			return errors.New("faq.objectStore endpoint, bucket and key are required for the objectstore source")
		}
	default:
		return fmt.Errorf("faq.source %q is not one of file, postgres, objectstore, embedded", c.FAQ.Source)
	}

	if strings.TrimSpace(c.Model.Path) == "" {
		return errors.New("model.path cannot be empty")
	}
	if strings.TrimSpace(c.Model.BaseURL) == "" {
		return errors.New("model.baseUrl cannot be empty")
	}
	if c.Model.ContextSize <= 0 {
		return errors.New("model.contextSize must be positive")
	}
	if c.Model.Threads <= 0 {
		return errors.New("model.threads must be positive")
	}
	if c.Model.GPULayers < 0 {
		return errors.New("model.gpuLayers cannot be negative")
	}
	if c.Model.BatchSize <= 0 {
		return errors.New("model.batchSize must be positive")
	}
	if c.Model.Temperature < 0 {
		return errors.New("model.temperature cannot be negative")
	}
	if c.Model.TopP <= 0 || c.Model.TopP > 1 {
		return errors.New("model.topP must be in (0, 1]")
	}
	if c.Model.RepeatPenalty <= 0 {
		return errors.New("model.repeatPenalty must be positive")
	}
	if c.Model.MaxTokens <= 0 {
		return errors.New("model.maxTokens must be positive")
	}
	if c.Model.MaxTokens >= c.Model.ContextSize {
		return errors.New("model.maxTokens must be smaller than model.contextSize")
	}
	if c.Model.MaxConcurrent <= 0 {
		return errors.New("model.maxConcurrent must be positive")
	}
	if c.Model.LoadTimeout <= 0 {
		return errors.New("model.loadTimeout must be positive")
	}

	if c.Cache.TTL < 0 {
		return errors.New("cache.ttl cannot be negative")
	}
	if c.Cache.Redis.Enabled && strings.TrimSpace(c.Cache.Redis.Addr) == "" {
		return errors.New("cache.redis.addr cannot be empty when redis cache is enabled")
	}
	return nil
}
