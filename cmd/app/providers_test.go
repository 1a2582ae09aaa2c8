package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/faqbot/internal/infra/answercache"
	"github.com/yanqian/faqbot/internal/infra/config"
	"github.com/yanqian/faqbot/internal/infra/filelock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProvideFAQCatalogEmbedded(t *testing.T) {
	cfg := &config.Config{FAQ: config.FAQConfig{Source: config.SourceEmbedded}}
	catalog, err := provideFAQCatalog(cfg, testLogger())
	require.NoError(t, err)
	require.Equal(t, 7, catalog.Len())
}

func TestProvideFAQCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faqs.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"What is Iron Lady?": "A leadership institute.", "": "dropped"}`), 0o600))

	cfg := &config.Config{FAQ: config.FAQConfig{Source: config.SourceFile, Path: path}}
	catalog, err := provideFAQCatalog(cfg, testLogger())
	require.NoError(t, err)
	require.Equal(t, 1, catalog.Len())
}

func TestProvideFAQCatalogMissingFile(t *testing.T) {
	cfg := &config.Config{FAQ: config.FAQConfig{Source: config.SourceFile, Path: filepath.Join(t.TempDir(), "none.json")}}
	_, err := provideFAQCatalog(cfg, testLogger())
	require.Error(t, err)
}

func TestProvideFAQCatalogBadPostgresDSN(t *testing.T) {
	cfg := &config.Config{FAQ: config.FAQConfig{
		Source:   config.SourcePostgres,
		Postgres: config.PostgresConfig{DSN: "postgres://%zz"},
	}}
	_, err := provideFAQCatalog(cfg, testLogger())
	require.Error(t, err)
}

func TestProvideGatewayConfig(t *testing.T) {
	cfg := &config.Config{Model: config.ModelConfig{
		Path:          "/m.gguf",
		ContextSize:   2048,
		Threads:       4,
		GPULayers:     30,
		BatchSize:     512,
		Temperature:   0.2,
		TopP:          0.95,
		RepeatPenalty: 1.1,
		MaxTokens:     256,
		MaxConcurrent: 2,
		LoadTimeout:   time.Minute,
	}}
	got := provideGatewayConfig(cfg)
	require.Equal(t, "/m.gguf", got.ModelPath)
	require.Equal(t, 2048, got.ContextSize)
	require.Equal(t, 30, got.GPULayers)
	require.Equal(t, 256, got.MaxTokens)
	require.Equal(t, 2, got.MaxConcurrent)
	require.Equal(t, time.Minute, got.LoadTimeout)
}

func TestProvideProcessLock(t *testing.T) {
	require.Nil(t, provideProcessLock(&config.Config{}, testLogger()))

	cfg := &config.Config{Model: config.ModelConfig{LockPath: "/tmp/faqbot/model.lock"}}
	lock, ok := provideProcessLock(cfg, testLogger()).(*filelock.Lock)
	require.True(t, ok)
	require.Equal(t, "/tmp/faqbot/model.lock", lock.Path())
}

func TestProvideAnswerCache(t *testing.T) {
	require.Nil(t, provideAnswerCache(&config.Config{}, testLogger()))

	cfg := &config.Config{Cache: config.CacheConfig{Enabled: true, TTL: time.Minute}}
	_, ok := provideAnswerCache(cfg, testLogger()).(*answercache.MemoryStore)
	require.True(t, ok)

	cfg.Cache.Redis = config.RedisConfig{Enabled: true, Addr: "redis://%zz"}
	_, ok = provideAnswerCache(cfg, testLogger()).(*answercache.MemoryStore)
	require.True(t, ok)
}
