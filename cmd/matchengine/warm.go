package main

import (
	"context"
	"log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Pre-compute embeddings for every catalog entity",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		runWarm()
	},
}

func init() {
	rootCmd.AddCommand(warmCmd)
}

func runWarm() {
	ctx := context.Background()

	logger, err := buildLogger()
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	cfg, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	cat, err := loadCatalog()
	if err != nil {
		logger.Fatal("loading the catalog", zap.Error(err))
	}

	entities := cat.Entities()
	if len(entities) == 0 {
		logger.Info("exiting", zap.String("reason", "catalog is empty"))
		return
	}

	eng, cleanup, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("building the engine", zap.Error(err))
	}
	defer cleanup()

	logger.Info("warming the embedding cache", zap.Int("entities", len(entities)))

	bulk, err := eng.Warm(ctx, entities)
	if err != nil {
		logger.Fatal("warming failed", zap.Error(err))
	}

	for id, failErr := range bulk.Failed {
		logger.Warn("entity not warmed", zap.String("entity", id), zap.Error(failErr))
	}

	if len(bulk.Sets) == 0 && len(bulk.Failed) > 0 {
		logger.Fatal("warming failed for every entity")
	}

	logger.Info("catalog warmed",
		zap.Int("warmed", len(bulk.Sets)),
		zap.Int("failed", len(bulk.Failed)))
}
