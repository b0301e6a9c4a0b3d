package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"changelens/internal/errors"
	"changelens/internal/storage"
)

var cacheModel string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clean the embedding cache",
	Long:  "Manage the embedding vectors cached in .changelens/cache.db.",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry counts and size",
	Args:  cobra.NoArgs,
	RunE:  runCacheStats,
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove expired entries",
	Args:  cobra.NoArgs,
	RunE:  runCachePrune,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove cached vectors",
	Long:  "Remove every cached vector, or only those of --model.",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

func init() {
	cacheClearCmd.Flags().StringVar(&cacheModel, "model", "", "Only clear vectors of this model")

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

// withCache opens the cache database for one command
func withCache(cmd *cobra.Command, fn func(*app, *storage.EmbeddingCache) error) error {
	a, err := newApp(cmd.Context(), appOptions{})
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	db, err := storage.Open(a.repoRoot, a.logger)
	if err != nil {
		return fail(errors.New(errors.InternalError, "failed to open cache database", err))
	}
	a.db = db

	if err := fn(a, storage.NewEmbeddingCache(db)); err != nil {
		return fail(err)
	}
	return nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	return withCache(cmd, func(a *app, cache *storage.EmbeddingCache) error {
		stats, err := cache.Stats()
		if err != nil {
			return err
		}
		return emitOperational(stats, func() string {
			return fmt.Sprintf("Entries: %d (%d expired)\nSize:    %s\nPath:    %s\n",
				stats.Entries, stats.Expired, formatBytes(stats.SizeBytes), a.db.Path())
		})
	})
}

func runCachePrune(cmd *cobra.Command, args []string) error {
	return withCache(cmd, func(a *app, cache *storage.EmbeddingCache) error {
		n, err := cache.CleanupExpired()
		if err != nil {
			return err
		}
		a.logger.Info("Pruned embedding cache", "deleted", n)
		return emitOperational(map[string]int64{"deleted": n}, func() string {
			return fmt.Sprintf("Removed %d expired entries\n", n)
		})
	})
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	return withCache(cmd, func(a *app, cache *storage.EmbeddingCache) error {
		if err := cache.Clear(cacheModel); err != nil {
			return err
		}
		scope := "all models"
		if cacheModel != "" {
			scope = cacheModel
		}
		return emitOperational(map[string]string{"cleared": scope}, func() string {
			return "Cleared cached vectors for " + scope + "\n"
		})
	})
}
