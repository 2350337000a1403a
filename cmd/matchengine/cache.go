package main

import (
	"context"
	"fmt"
	"log"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	promptYes = "Yes"
	promptNo  = "No"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the embedding cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show embedding cache counts",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		runCacheStats()
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge [entity-id...]",
	Short: "Drop cached vectors for entities (default: every catalog entity)",
	Run: func(cmd *cobra.Command, args []string) {
		runCachePurge(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd, cachePurgeCmd)

	cachePurgeCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
}

func runCacheStats() {
	ctx := context.Background()

	logger, err := buildLogger()
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	cfg, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	store, err := openStore(cfg)
	if err != nil {
		logger.Fatal("opening the embedding cache", zap.Error(err))
	}
	defer store.Close()

	stats, err := store.Stats(ctx)
	if err != nil {
		logger.Fatal("reading cache stats", zap.Error(err))
	}

	fmt.Printf("Backend:  %s\n", cfg.Storage.Backend)
	fmt.Printf("Vectors:  %d\n", stats.Vectors)
	fmt.Printf("Entities: %d\n", stats.Entities)
}

func runCachePurge(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	logger, err := buildLogger()
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	cfg, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	ids := args
	if len(ids) == 0 {
		cat, err := loadCatalog()
		if err != nil {
			logger.Fatal("loading the catalog", zap.Error(err))
		}
		for _, entity := range cat.Entities() {
			ids = append(ids, entity.EntityID())
		}
	}

	if len(ids) == 0 {
		logger.Info("exiting", zap.String("reason", "nothing to purge"))
		return
	}

	if cmd.Flag("yes").Value.String() == "false" {
		prompt := promptui.Select{
			Label: fmt.Sprintf("Purge cached vectors for %d entities?", len(ids)),
			Items: []string{promptYes, promptNo},
		}
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		if action != promptYes {
			logger.Info("exiting", zap.String("reason", "purge not confirmed"))
			return
		}
	}

	store, err := openStore(cfg)
	if err != nil {
		logger.Fatal("opening the embedding cache", zap.Error(err))
	}
	defer store.Close()

	var removed int64
	for _, id := range ids {
		n, err := store.DeleteEntity(ctx, id)
		if err != nil {
			logger.Warn("purging entity failed", zap.String("entity", id), zap.Error(err))
			continue
		}
		removed += n
	}

	logger.Info("cache purged",
		zap.Int("entities", len(ids)),
		zap.Int64("vectors_removed", removed))
}
