package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CATHOGRAPH_DATASET_PATH", "/tmp/mats.json")
	t.Setenv("CATHOGRAPH_THRESHOLD", "0.7")
	t.Setenv("CATHOGRAPH_WORKERS", "4")
	t.Setenv("CATHOGRAPH_LITHIUM_ONLY", "false")
	t.Setenv("CATHOGRAPH_STORE_BACKEND", "badger")

	cfg := LoadFromEnv()
	assert.Equal(t, "/tmp/mats.json", cfg.DatasetPath)
	assert.Equal(t, 0.7, cfg.Threshold)
	assert.Equal(t, 4, cfg.Workers)
	assert.False(t, cfg.LithiumOnly)
	assert.Equal(t, StoreBadger, cfg.StoreBackend)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnvBadValuesFallBack(t *testing.T) {
	t.Setenv("CATHOGRAPH_THRESHOLD", "not-a-number")
	t.Setenv("CATHOGRAPH_WORKERS", "many")

	cfg := LoadFromEnv()
	assert.Equal(t, Default().Threshold, cfg.Threshold)
	assert.Equal(t, Default().Workers, cfg.Workers)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cathograph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"dataset_path: custom.json\nthreshold: 0.9\nlog_level: debug\n"), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "custom.json", cfg.DatasetPath)
	assert.Equal(t, 0.9, cfg.Threshold)
	assert.Equal(t, "debug", cfg.LogLevel)
	// Untouched fields keep defaults.
	assert.Equal(t, Default().GraphPath, cfg.GraphPath)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad backend", func(c *Config) { c.StoreBackend = "sqlite" }},
		{"threshold above one", func(c *Config) { c.Threshold = 1.5 }},
		{"zero threshold", func(c *Config) { c.Threshold = 0 }},
		{"negative threshold", func(c *Config) { c.Threshold = -0.1 }},
		{"negative workers", func(c *Config) { c.Workers = -1 }},
		{"unknown log level", func(c *Config) { c.LogLevel = "loud" }},
		{"file backend without path", func(c *Config) { c.GraphPath = "" }},
		{"badger backend without dir", func(c *Config) {
			c.StoreBackend = StoreBadger
			c.DataDir = ""
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
