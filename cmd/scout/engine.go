package main

import (
	"fmt"
	"os"
	"path/filepath"

	"scout/internal/confidence"
	"scout/internal/config"
	"scout/internal/envprobe"
	"scout/internal/filescan"
	"scout/internal/graph"
	"scout/internal/logging"
	"scout/internal/rescache"
	"scout/internal/research"
	"scout/internal/websearch"
)

// bootResult bundles everything a command needs to answer questions.
type bootResult struct {
	root   string
	cfg    *config.Config
	engine *research.Engine
	cache  *rescache.Cache
	store  *graph.Store
	env    *envprobe.Registry

	close func()
}

// bootEngine resolves the project root, loads its configuration, and
// wires the full cascade: file searcher, decision graph, environment
// registry, web client, and answer cache.
func bootEngine(root string) (*bootResult, error) {
	root, err := resolveRoot(root)
	if err != nil {
		return nil, err
	}

	if err := logging.Initialize(root); err != nil {
		// Logging is best effort; the engine works without it.
		fmt.Fprintf(os.Stderr, "warning: logging disabled: %v\n", err)
	}

	cfg, err := config.Load(config.DefaultConfigPath(root))
	if err != nil {
		return nil, err
	}

	searcher := filescan.NewSearcher(filescan.Config{
		MaxResults:       cfg.FileScan.MaxResults,
		MaxDepth:         cfg.FileScan.MaxDepth,
		ContentScanBytes: cfg.FileScan.ContentScanKB * 1024,
		TimeBudget:       cfg.GetFileScanBudget(),
		IgnoreDirs:       cfg.FileScan.IgnoreDirs,
	})

	registry := envprobe.NewRegistry(envprobe.RunnerConfig{
		ProbeTimeout:   cfg.GetProbeTimeout(),
		QueryTimeout:   cfg.GetQueryTimeout(),
		MaxOutputBytes: int64(cfg.Environment.MaxOutputKB) * 1024,
	}, cfg.Environment.Disabled)

	client := websearch.NewClient(websearch.Config{
		Endpoint:   cfg.WebSearch.Endpoint,
		UserAgent:  cfg.WebSearch.UserAgent,
		Timeout:    cfg.GetWebSearchTimeout(),
		MaxResults: cfg.WebSearch.MaxResults,
	})

	cache := rescache.NewCache(cfg.GetCacheTTL())
	cachePath := resolvePath(root, cfg.Cache.Path)
	if cfg.Cache.Persist {
		if err := cache.LoadFrom(cachePath); err != nil {
			logging.CacheWarn("discarding persisted answers: %v", err)
		}
	}
	if cfg.Cache.WatchProject {
		if err := cache.WatchProject(root); err != nil {
			logging.CacheWarn("project watch unavailable: %v", err)
		}
	}

	opts := research.Options{
		Files:   searcher,
		Env:     registry,
		Web:     client,
		Cache:   cache,
		Weights: weightsFromConfig(cfg.Research.Weights),
		Timeout: cfg.GetOverallTimeout(),
	}

	store := openGraphStore(root, cfg, false)
	if store != nil {
		opts.Graph = store
	}

	b := &bootResult{
		root:   root,
		cfg:    cfg,
		engine: research.NewEngine(opts),
		cache:  cache,
		store:  store,
		env:    registry,
	}
	b.close = func() {
		if cfg.Cache.Persist {
			if err := cache.SaveTo(cachePath); err != nil {
				logging.CacheWarn("persisting answers failed: %v", err)
			}
		}
		cache.Close()
		if store != nil {
			_ = store.Close()
		}
		logging.CloseAll()
	}
	return b, nil
}

// openGraphStore opens the decision graph for a project. With no
// configured path the store lives at .scout/graph.db; in that default
// location the cascade only picks it up once it exists, so recording
// the first decision is what turns the tier on. Graph subcommands
// pass create=true to bring the default store into being.
func openGraphStore(root string, cfg *config.Config, create bool) *graph.Store {
	path := cfg.Graph.DatabasePath
	if path == "" {
		path = filepath.Join(".scout", "graph.db")
		if !create {
			if _, err := os.Stat(resolvePath(root, path)); err != nil {
				return nil
			}
		}
	}

	store, err := graph.NewStore(resolvePath(root, path))
	if err != nil {
		logging.GraphWarn("decision graph unavailable: %v", err)
		return nil
	}
	return store
}

func resolveRoot(root string) (string, error) {
	if root == "" {
		return os.Getwd()
	}
	return filepath.Abs(root)
}

func resolvePath(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

func weightsFromConfig(w config.WeightsConfig) confidence.Weights {
	if w == (config.WeightsConfig{}) {
		return nil
	}
	return confidence.Weights{
		string(research.SourceProjectFiles):   w.ProjectFiles,
		string(research.SourceEnvironment):    w.Environment,
		string(research.SourceKnowledgeGraph): w.KnowledgeGraph,
		string(research.SourceWebSearch):      w.WebSearch,
	}
}
