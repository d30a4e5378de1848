package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ripple/internal/config"
	"ripple/internal/fetchcache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the fetch response cache",
	}
	cmd.AddCommand(newCacheStatsCommand(ctx))
	cmd.AddCommand(newCacheClearCommand(ctx))
	return cmd
}

func openCache(cfg *config.Config) *fetchcache.Cache {
	dir := cfg.Cache.Dir
	if strings.TrimSpace(dir) == "" {
		dir = cfg.Paths.CacheDir
	}
	return fetchcache.New(fetchcache.Options{
		Path:       filepath.Join(dir, "fetch.json"),
		TTL:        time.Duration(cfg.Cache.TTLMinutes) * time.Minute,
		MaxEntries: cfg.Cache.MaxEntries,
	}, nil)
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache entry count and configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cache := openCache(cfg)
			stats := cache.Stats()

			rows := [][]string{
				{"enabled", yesNo(cfg.Cache.Enabled)},
				{"entries", fmt.Sprintf("%d", stats.Entries)},
				{"ttl", fmt.Sprintf("%dm", cfg.Cache.TTLMinutes)},
				{"max entries", fmt.Sprintf("%d", cfg.Cache.MaxEntries)},
			}
			cmd.Println(renderTable([]string{"FIELD", "VALUE"}, rows, nil))
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached fetch responses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cache := openCache(cfg)
			entries := cache.Stats().Entries
			if err := cache.Clear(); err != nil {
				return err
			}
			cmd.Printf("cleared %d cache entries\n", entries)
			return nil
		},
	}
}
