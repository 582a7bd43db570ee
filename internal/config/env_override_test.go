package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvOverrides_Threshold(t *testing.T) {
	t.Run("valid value applies", func(t *testing.T) {
		t.Setenv("SCOUT_THRESHOLD", "0.8")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, 0.8, cfg.Research.DefaultThreshold)
	})

	t.Run("out of range ignored", func(t *testing.T) {
		t.Setenv("SCOUT_THRESHOLD", "1.5")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, 0.6, cfg.Research.DefaultThreshold)
	})

	t.Run("garbage ignored", func(t *testing.T) {
		t.Setenv("SCOUT_THRESHOLD", "high")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, 0.6, cfg.Research.DefaultThreshold)
	})
}

func TestEnvOverrides_GraphDB(t *testing.T) {
	t.Setenv("SCOUT_GRAPH_DB", "/var/lib/scout/decisions.db")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "/var/lib/scout/decisions.db", cfg.Graph.DatabasePath)
}

func TestEnvOverrides_WebEndpoint(t *testing.T) {
	t.Setenv("SCOUT_WEB_ENDPOINT", "http://127.0.0.1:9999/html/")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "http://127.0.0.1:9999/html/", cfg.WebSearch.Endpoint)
}

func TestEnvOverrides_Debug(t *testing.T) {
	t.Run("true enables", func(t *testing.T) {
		t.Setenv("SCOUT_DEBUG", "true")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.True(t, cfg.Logging.DebugMode)
	})

	t.Run("non-bool ignored", func(t *testing.T) {
		t.Setenv("SCOUT_DEBUG", "yes-please")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.False(t, cfg.Logging.DebugMode)
	})
}

func TestEnvOverrides_AppliedByLoad(t *testing.T) {
	t.Setenv("SCOUT_THRESHOLD", "0.9")

	cfg, err := Load("/nonexistent/config.yaml")
	assert.NoError(t, err)
	assert.Equal(t, 0.9, cfg.Research.DefaultThreshold)
}
