package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hireloop/matchengine/internal/catalog"
	"github.com/hireloop/matchengine/internal/config"
	"github.com/hireloop/matchengine/internal/embedding"
	"github.com/hireloop/matchengine/internal/engine"
	"github.com/hireloop/matchengine/internal/logger"
	"github.com/hireloop/matchengine/internal/storage"
	"github.com/hireloop/matchengine/internal/storage/memory"
	"github.com/hireloop/matchengine/internal/storage/postgres"
	"github.com/hireloop/matchengine/internal/storage/sqlite"
)

// buildLogger creates the CLI logger. Reading through viper keeps the
// flag > env > config-file precedence.
func buildLogger() (*zap.Logger, error) {
	return logger.New(viper.GetBool("logging.json"), viper.GetBool("logging.debug"))
}

// openStore opens the configured embedding cache backend.
func openStore(cfg *config.Config) (storage.EmbeddingStore, error) {
	switch cfg.Storage.Backend {
	case "sqlite":
		if dir := filepath.Dir(cfg.Storage.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("create data directory %q: %w", dir, err)
			}
		}
		return sqlite.New(cfg.Storage.DSN)
	case "postgres":
		return postgres.New(cfg.Storage.DSN)
	case "memory":
		return memory.New(cfg.Storage.Capacity)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %q", cfg.Storage.Backend)
	}
}

// buildEngine wires provider, cache, and engine from config. The returned
// cleanup closes the cache and must run before exit.
func buildEngine(ctx context.Context, cfg *config.Config, log *zap.Logger) (*engine.Engine, func(), error) {
	provider, err := embedding.NewProvider(ctx, cfg.Embedding)
	if err != nil {
		return nil, nil, fmt.Errorf("building embedding provider: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("opening embedding cache: %w", err)
	}

	weights, err := cfg.Matching.WeightTable()
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	eng, err := engine.New(provider, store, log, engine.Config{
		Orchestrator: engine.OrchestratorConfig{
			MaxBatchSize: cfg.Embedding.MaxBatchSize,
			Retry:        embedding.DefaultRetryPolicy(),
		},
		Weights:       weights,
		MissingPolicy: engine.MissingPolicy(cfg.Matching.MissingPolicy),
	})
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if err := store.Close(); err != nil {
			log.Warn("closing embedding cache", zap.Error(err))
		}
	}
	return eng, cleanup, nil
}

// loadCatalog reads the catalog named by the --catalog flag or config.
func loadCatalog() (*catalog.Catalog, error) {
	return catalog.Load(viper.GetString("catalog"))
}
