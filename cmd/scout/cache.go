package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"scout/internal/logging"
	"scout/internal/rescache"
)

// cacheCmd inspects the answer cache
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the answer cache",
	Long: `Answers are cached per question, project root, and threshold with a
short TTL. The cache lives inside one session; with persistence
enabled in .scout/config.yaml it also survives between invocations.

Subcommands:
  stats - Show cached answer counts
  clear - Drop persisted answers`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cached answer counts",
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop persisted answers",
	RunE:  runCacheClear,
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	root, cfg, err := loadProjectConfig()
	if err != nil {
		return err
	}
	defer logging.CloseAll()

	cache := rescache.NewCache(cfg.GetCacheTTL())
	defer cache.Close()

	persisted := "disabled"
	if cfg.Cache.Persist {
		path := resolvePath(root, cfg.Cache.Path)
		persisted = path
		if err := cache.LoadFrom(path); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}

	stats := cache.Stats()
	fmt.Println(styleTitle.Render("Answer cache"))
	fmt.Printf("entries:     %d\n", stats.Entries)
	fmt.Printf("ttl:         %s\n", cfg.GetCacheTTL())
	fmt.Printf("persistence: %s\n", persisted)
	if !cfg.Cache.Persist {
		fmt.Println(styleMuted.Render("Hit rates are per session; run the interactive session and use /cache."))
	}
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	root, cfg, err := loadProjectConfig()
	if err != nil {
		return err
	}
	defer logging.CloseAll()

	if !cfg.Cache.Persist {
		fmt.Println("Cache persistence is disabled; answers live only inside a session.")
		return nil
	}

	path := resolvePath(root, cfg.Cache.Path)
	cache := rescache.NewCache(cfg.GetCacheTTL())
	defer cache.Close()

	entries := 0
	if err := cache.LoadFrom(path); err == nil {
		entries = cache.Stats().Entries
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			fmt.Println("No persisted answers to clear.")
			return nil
		}
		return err
	}
	fmt.Printf("Cleared %d persisted answer(s).\n", entries)
	return nil
}
