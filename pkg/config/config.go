// Package config handles cathograph configuration.
//
// Configuration can be loaded from:
//   - Environment variables, prefixed CATHOGRAPH_ (Docker/K8s friendly)
//   - A YAML configuration file
//   - Programmatic defaults
//
// Environment Variables:
//
//	CATHOGRAPH_DATASET_PATH       - Material dataset (JSON or CSV)
//	CATHOGRAPH_GRAPH_PATH         - Persisted similarity graph (JSON file)
//	CATHOGRAPH_STORE_BACKEND      - "file" or "badger"
//	CATHOGRAPH_DATA_DIR           - Badger data directory
//	CATHOGRAPH_THRESHOLD          - Initial similarity threshold
//	CATHOGRAPH_MIN_AVG_DEGREE     - Density floor for threshold recalibration
//	CATHOGRAPH_WORKERS            - Pairwise pass worker count (0 = all cores)
//	CATHOGRAPH_LITHIUM_ONLY       - Keep only lithium-bearing formulas
//	CATHOGRAPH_LIMIT              - Cap on loaded materials (0 = no cap)
//	CATHOGRAPH_LOG_LEVEL          - trace|debug|info|warn|error
//	CATHOGRAPH_LOG_FORMAT         - "json" or "console"
//
// Example Usage:
//
//	cfg := config.LoadFromEnv()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid config: %v", err)
//	}
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	StoreFile   = "file"
	StoreBadger = "badger"
)

// Config holds all cathograph settings.
type Config struct {
	// DatasetPath is the material dataset consumed by build.
	DatasetPath string `yaml:"dataset_path"`

	// GraphPath is the persisted adjacency list (file backend).
	GraphPath string `yaml:"graph_path"`

	// StoreBackend selects graph persistence: "file" or "badger".
	StoreBackend string `yaml:"store_backend"`

	// DataDir is the badger data directory (badger backend).
	DataDir string `yaml:"data_dir"`

	// Threshold is the initial minimum qualifying similarity.
	Threshold float64 `yaml:"threshold"`

	// MinAvgDegree is the density floor for threshold recalibration.
	MinAvgDegree float64 `yaml:"min_avg_degree"`

	// Workers bounds the pairwise similarity pass. 0 = all cores.
	Workers int `yaml:"workers"`

	// LithiumOnly keeps only lithium-bearing formulas at ingestion.
	LithiumOnly bool `yaml:"lithium_only"`

	// Limit caps the number of loaded materials. 0 = no cap.
	Limit int `yaml:"limit"`

	// LogLevel is the zerolog level name.
	LogLevel string `yaml:"log_level"`

	// LogFormat is "json" or "console".
	LogFormat string `yaml:"log_format"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		DatasetPath:  "battery_cathodes.json",
		GraphPath:    "adjacency_list.json",
		StoreBackend: StoreFile,
		DataDir:      "./data",
		Threshold:    0.85,
		MinAvgDegree: 5,
		LithiumOnly:  true,
		LogLevel:     "info",
		LogFormat:    "console",
	}
}

// LoadFromEnv builds a Config from environment variables, with defaults
// applied where a variable is not set.
func LoadFromEnv() Config {
	cfg := Default()
	cfg.DatasetPath = getEnv("CATHOGRAPH_DATASET_PATH", cfg.DatasetPath)
	cfg.GraphPath = getEnv("CATHOGRAPH_GRAPH_PATH", cfg.GraphPath)
	cfg.StoreBackend = getEnv("CATHOGRAPH_STORE_BACKEND", cfg.StoreBackend)
	cfg.DataDir = getEnv("CATHOGRAPH_DATA_DIR", cfg.DataDir)
	cfg.Threshold = getEnvFloat("CATHOGRAPH_THRESHOLD", cfg.Threshold)
	cfg.MinAvgDegree = getEnvFloat("CATHOGRAPH_MIN_AVG_DEGREE", cfg.MinAvgDegree)
	cfg.Workers = getEnvInt("CATHOGRAPH_WORKERS", cfg.Workers)
	cfg.LithiumOnly = getEnvBool("CATHOGRAPH_LITHIUM_ONLY", cfg.LithiumOnly)
	cfg.Limit = getEnvInt("CATHOGRAPH_LIMIT", cfg.Limit)
	cfg.LogLevel = getEnv("CATHOGRAPH_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("CATHOGRAPH_LOG_FORMAT", cfg.LogFormat)
	return cfg
}

// LoadFile reads a YAML configuration file over the defaults. Environment
// variables still win: callers typically LoadFile then overlay LoadFromEnv
// values themselves, or just pick one source.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values that cannot work.
func (c Config) Validate() error {
	if c.StoreBackend != StoreFile && c.StoreBackend != StoreBadger {
		return fmt.Errorf("store_backend must be %q or %q, got %q", StoreFile, StoreBadger, c.StoreBackend)
	}
	if c.StoreBackend == StoreFile && c.GraphPath == "" {
		return fmt.Errorf("graph_path required for the file backend")
	}
	if c.StoreBackend == StoreBadger && c.DataDir == "" {
		return fmt.Errorf("data_dir required for the badger backend")
	}
	if c.Threshold <= 0 || c.Threshold > 1 {
		// Zero is reserved by the graph builder to mean "use the
		// default threshold", so it cannot be configured explicitly.
		return fmt.Errorf("threshold must be in (0,1], got %v", c.Threshold)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	switch strings.ToLower(c.LogLevel) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return strings.EqualFold(val, "true") || val == "1"
	}
	return defaultVal
}
