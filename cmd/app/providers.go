package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/faqbot/internal/domain/chat"
	"github.com/yanqian/faqbot/internal/domain/faq"
	"github.com/yanqian/faqbot/internal/domain/gateway"
	"github.com/yanqian/faqbot/internal/infra/answercache"
	"github.com/yanqian/faqbot/internal/infra/config"
	"github.com/yanqian/faqbot/internal/infra/faqsource"
	"github.com/yanqian/faqbot/internal/infra/filelock"
	"github.com/yanqian/faqbot/internal/infra/llm/llamacpp"
	"github.com/yanqian/faqbot/internal/infra/tokenizer"
)

const faqLoadTimeout = 30 * time.Second

// provideFAQCatalog reads the FAQ table once at startup. A missing or broken
// source is fatal: the service has nothing to answer from.
func provideFAQCatalog(cfg *config.Config, logger *slog.Logger) (*faq.Catalog, error) {
	ctx, cancel := context.WithTimeout(context.Background(), faqLoadTimeout)
	defer cancel()

	src, release, err := newFAQSource(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer release()

	catalog, err := faq.LoadCatalog(ctx, src)
	if err != nil {
		return nil, err
	}
	logger.Info("faq catalog loaded", "source", cfg.FAQ.Source, "entries", catalog.Len())
	return catalog, nil
}

func newFAQSource(ctx context.Context, cfg *config.Config, logger *slog.Logger) (faq.Source, func(), error) {
	noop := func() {}
	switch cfg.FAQ.Source {
	case config.SourcePostgres:
		pool, err := newPostgresPool(ctx, cfg.FAQ.Postgres)
		if err != nil {
			return nil, noop, err
		}
		src, err := faqsource.NewPostgres(pool, cfg.FAQ.Postgres.Table)
		if err != nil {
			pool.Close()
			return nil, noop, err
		}
		return src, pool.Close, nil
	case config.SourceObjectStore:
		store := cfg.FAQ.ObjectStore
		src, err := faqsource.NewObjectStore(faqsource.ObjectStoreConfig{
			Endpoint:  store.Endpoint,
			AccessKey: store.AccessKey,
			SecretKey: store.SecretKey,
			Bucket:    store.Bucket,
			Key:       store.Key,
			Region:    store.Region,
		}, logger)
		if err != nil {
			return nil, noop, err
		}
		return src, noop, nil
	case config.SourceEmbedded:
		src, err := faqsource.NewEmbedded()
		if err != nil {
			return nil, noop, err
		}
		return src, noop, nil
	default:
		return faqsource.NewFile(cfg.FAQ.Path), noop, nil
	}
}

func newPostgresPool(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(strings.TrimSpace(cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("invalid postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("init postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return pool, nil
}

func provideGatewayConfig(cfg *config.Config) gateway.Config {
	m := cfg.Model
	return gateway.Config{
		ModelPath:      m.Path,
		ContextSize:    m.ContextSize,
		Threads:        m.Threads,
		GPULayers:      m.GPULayers,
		BatchSize:      m.BatchSize,
		Temperature:    m.Temperature,
		TopP:           m.TopP,
		RepeatPenalty:  m.RepeatPenalty,
		MaxTokens:      m.MaxTokens,
		MaxConcurrent:  m.MaxConcurrent,
		LoadTimeout:    m.LoadTimeout,
		SystemPrompt:   m.SystemPrompt,
		CompanyContext: m.CompanyContext,
	}
}

func provideModelLoader(cfg *config.Config, logger *slog.Logger) gateway.Loader {
	return llamacpp.NewLoader(llamacpp.LoaderConfig{
		ServerBinary: cfg.Model.ServerBinary,
		BaseURL:      cfg.Model.BaseURL,
	}, logger)
}

func provideTokenCounter(cfg *config.Config, logger *slog.Logger) gateway.TokenCounter {
	return tokenizer.New(cfg.Model.Encoding, logger)
}

// provideProcessLock returns nil when no lock path is configured; the gateway
// then only deduplicates loads inside this process.
func provideProcessLock(cfg *config.Config, logger *slog.Logger) gateway.Locker {
	path := strings.TrimSpace(cfg.Model.LockPath)
	if path == "" {
		return nil
	}
	logger.Info("model load lock enabled", "path", path)
	return filelock.New(path)
}

func provideChatConfig(cfg *config.Config) chat.Config {
	return chat.Config{
		MaxTokens:    cfg.Model.MaxTokens,
		CacheEnabled: cfg.Cache.Enabled,
		CacheTTL:     cfg.Cache.TTL,
	}
}

func provideAnswerCache(cfg *config.Config, logger *slog.Logger) chat.AnswerCache {
	if !cfg.Cache.Enabled {
		return nil
	}
	if cfg.Cache.Redis.Enabled {
		opt, err := buildValkeyOptions(cfg)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory cache", "error", err)
			return answercache.NewMemoryStore()
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory cache", "error", err)
			return answercache.NewMemoryStore()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory cache", "error", err)
			client.Close()
		} else {
			logger.Info("answer cache valkey store enabled", "addr", cfg.Cache.Redis.Addr)
			return answercache.NewValkeyStore(client, cfg.Cache.KeyPrefix)
		}
	}
	logger.Info("answer cache memory store enabled", "ttl", cfg.Cache.TTL.String())
	return answercache.NewMemoryStore()
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	if strings.Contains(cfg.Cache.Redis.Addr, "://") {
		return valkey.ParseURL(cfg.Cache.Redis.Addr)
	}
	return valkey.ClientOption{InitAddress: []string{cfg.Cache.Redis.Addr}}, nil
}
