// Package config loads and persists scout configuration.
// Configuration lives in .scout/config.yaml under the workspace root;
// a missing file means defaults. Environment variables override the
// file for the handful of settings that change per invocation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for scout.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Research    ResearchConfig    `yaml:"research"`
	FileScan    FileScanConfig    `yaml:"filescan"`
	Environment EnvironmentConfig `yaml:"environment"`
	Graph       GraphConfig       `yaml:"graph"`
	WebSearch   WebSearchConfig   `yaml:"websearch"`
	Cache       CacheConfig       `yaml:"cache"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ResearchConfig controls the cascade itself.
type ResearchConfig struct {
	// DefaultThreshold is the confidence the cascade tries to clear
	// when the caller does not supply one.
	DefaultThreshold float64 `yaml:"default_threshold"`

	// OverallTimeout bounds one whole question, all tiers included.
	OverallTimeout string `yaml:"overall_timeout"`

	Weights WeightsConfig `yaml:"weights"`
}

// WeightsConfig holds the per-tier aggregation weights. First-party
// evidence (files on disk, live environment) outranks recorded
// decisions, which outrank unverified web results.
type WeightsConfig struct {
	ProjectFiles   float64 `yaml:"project_files"`
	Environment    float64 `yaml:"environment"`
	KnowledgeGraph float64 `yaml:"knowledge_graph"`
	WebSearch      float64 `yaml:"web_search"`
}

// FileScanConfig controls the project file searcher.
type FileScanConfig struct {
	MaxResults    int      `yaml:"max_results"`
	MaxDepth      int      `yaml:"max_depth"`
	ContentScanKB int      `yaml:"content_scan_kb"`
	TimeBudget    string   `yaml:"time_budget"`
	IgnoreDirs    []string `yaml:"ignore_dirs"`
}

// EnvironmentConfig controls capability discovery and queries.
type EnvironmentConfig struct {
	ProbeTimeout string `yaml:"probe_timeout"`
	QueryTimeout string `yaml:"query_timeout"`
	MaxOutputKB  int    `yaml:"max_output_kb"`

	// Disabled lists capability names that must never be probed or
	// queried, regardless of what is installed.
	Disabled []string `yaml:"disabled"`
}

// GraphConfig points at the decision graph store. An empty path
// disables the knowledge-graph tier unless an adapter is injected
// programmatically.
type GraphConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// WebSearchConfig controls the last-resort web tier.
type WebSearchConfig struct {
	Endpoint   string `yaml:"endpoint"`
	UserAgent  string `yaml:"user_agent"`
	Timeout    string `yaml:"timeout"`
	MaxResults int    `yaml:"max_results"`
}

// CacheConfig controls the answer cache.
type CacheConfig struct {
	TTL     string `yaml:"ttl"`
	Persist bool   `yaml:"persist"`
	Path    string `yaml:"path"`

	// WatchProject invalidates cached answers for a project root when
	// files under it change. Off by default: plain TTL semantics.
	WatchProject bool `yaml:"watch_project"`
}

// LoggingConfig mirrors the block the logging package reads directly.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`  // debug, info, warn, error
	JSONFormat bool            `yaml:"json_format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "scout",
		Version: "0.4.1",

		Research: ResearchConfig{
			DefaultThreshold: 0.6,
			OverallTimeout:   "30s",
			Weights: WeightsConfig{
				ProjectFiles:   0.95,
				Environment:    0.95,
				KnowledgeGraph: 0.90,
				WebSearch:      0.50,
			},
		},

		FileScan: FileScanConfig{
			MaxResults:    12,
			MaxDepth:      12,
			ContentScanKB: 64,
			TimeBudget:    "2s",
			IgnoreDirs: []string{
				"node_modules", "vendor", "dist", "build", "target",
				"__pycache__", ".venv", "coverage", "bin", "obj",
			},
		},

		Environment: EnvironmentConfig{
			ProbeTimeout: "1500ms",
			QueryTimeout: "5s",
			MaxOutputKB:  64,
		},

		Graph: GraphConfig{
			DatabasePath: "",
		},

		WebSearch: WebSearchConfig{
			Endpoint:   "https://html.duckduckgo.com/html/",
			UserAgent:  "Mozilla/5.0 (compatible; scout-research/1.0)",
			Timeout:    "10s",
			MaxResults: 5,
		},

		Cache: CacheConfig{
			TTL:     "5m",
			Persist: false,
			Path:    filepath.Join(".scout", "answers.json"),
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultConfigPath returns the config file location for a workspace.
func DefaultConfigPath(workspace string) string {
	return filepath.Join(workspace, ".scout", "config.yaml")
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SCOUT_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			c.Research.DefaultThreshold = f
		}
	}
	if path := os.Getenv("SCOUT_GRAPH_DB"); path != "" {
		c.Graph.DatabasePath = path
	}
	if url := os.Getenv("SCOUT_WEB_ENDPOINT"); url != "" {
		c.WebSearch.Endpoint = url
	}
	if v := os.Getenv("SCOUT_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = b
		}
	}
}

// GetOverallTimeout returns the whole-question deadline as a duration.
func (c *Config) GetOverallTimeout() time.Duration {
	d, err := time.ParseDuration(c.Research.OverallTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetProbeTimeout returns the per-probe deadline as a duration.
func (c *Config) GetProbeTimeout() time.Duration {
	d, err := time.ParseDuration(c.Environment.ProbeTimeout)
	if err != nil {
		return 1500 * time.Millisecond
	}
	return d
}

// GetQueryTimeout returns the per-capability query deadline.
func (c *Config) GetQueryTimeout() time.Duration {
	d, err := time.ParseDuration(c.Environment.QueryTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// GetFileScanBudget returns the file search time budget.
func (c *Config) GetFileScanBudget() time.Duration {
	d, err := time.ParseDuration(c.FileScan.TimeBudget)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// GetWebSearchTimeout returns the web search deadline.
func (c *Config) GetWebSearchTimeout() time.Duration {
	d, err := time.ParseDuration(c.WebSearch.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetCacheTTL returns the answer cache TTL.
func (c *Config) GetCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}
