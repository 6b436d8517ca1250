// Package config handles ThoughtDB configuration.
//
// Configuration is layered: built-in defaults, then an optional YAML file,
// then THOUGHTDB_* environment variables. Later layers win, so a container
// deployment can override a single value without rewriting the file.
//
// Example Usage:
//
//	cfg, err := config.Load("./thoughtdb.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	cfg.ApplyEnv()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid config: %v", err)
//	}
//
// Environment Variables:
//   - THOUGHTDB_DATA_DIR="./data"
//   - THOUGHTDB_EMBEDDING_API_URL="http://localhost:11434"
//   - THOUGHTDB_EMBEDDING_MODEL="all-minilm"
//   - THOUGHTDB_EMBEDDING_DIMENSIONS=384
//   - THOUGHTDB_EMBEDDING_TIMEOUT=30s
//   - THOUGHTDB_EMBEDDING_CACHE_SIZE=10000
//   - THOUGHTDB_GENERATION_MODEL="llama3.2"
//   - THOUGHTDB_GENERATION_TIMEOUT=2m
//   - THOUGHTDB_SYNC_SPREADSHEET_ID="1abc..."
//   - THOUGHTDB_SYNC_TOKEN="ya29...."
//   - THOUGHTDB_SYNC_PREVIEW_LENGTH=100
//   - THOUGHTDB_INDEX_REBUILD_WORKERS=4
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all ThoughtDB configuration.
type Config struct {
	Storage    StorageConfig    `yaml:"storage"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Sync       SyncConfig       `yaml:"sync"`
	Index      IndexConfig      `yaml:"index"`
}

// StorageConfig holds durable storage settings.
type StorageConfig struct {
	// DataDir is the directory for BadgerDB data files.
	DataDir string `yaml:"data_dir"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIURL     string        `yaml:"api_url"`
	Model      string        `yaml:"model"`
	Dimensions int           `yaml:"dimensions"`
	Timeout    time.Duration `yaml:"timeout"`
	// CacheSize is the LRU capacity for cached embeddings.
	CacheSize int `yaml:"cache_size"`
}

// GenerationConfig holds LLM settings for graph question answering.
type GenerationConfig struct {
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// SyncConfig holds remote mirror settings.
type SyncConfig struct {
	// SpreadsheetID identifies the mirror sheet. Empty disables sync.
	SpreadsheetID string `yaml:"spreadsheet_id"`
	// Token is the OAuth bearer token for the Sheets API.
	Token string `yaml:"token"`
	// PreviewLength truncates thought content pushed to the mirror.
	PreviewLength int `yaml:"preview_length"`
}

// IndexConfig holds session index settings.
type IndexConfig struct {
	// RebuildWorkers bounds embedding concurrency during session rebuild.
	RebuildWorkers int `yaml:"rebuild_workers"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			DataDir: "./data/thoughtdb",
		},
		Embedding: EmbeddingConfig{
			APIURL:     "http://localhost:11434",
			Model:      "all-minilm",
			Dimensions: 384,
			Timeout:    30 * time.Second,
			CacheSize:  10000,
		},
		Generation: GenerationConfig{
			Model:   "llama3.2",
			Timeout: 2 * time.Minute,
		},
		Sync: SyncConfig{
			PreviewLength: 100,
		},
		Index: IndexConfig{
			RebuildWorkers: 4,
		},
	}
}

// Load reads configuration from a YAML file on top of the defaults.
// A missing file is not an error; the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides configuration from THOUGHTDB_* environment variables.
func (c *Config) ApplyEnv() {
	c.Storage.DataDir = getEnv("THOUGHTDB_DATA_DIR", c.Storage.DataDir)

	c.Embedding.APIURL = getEnv("THOUGHTDB_EMBEDDING_API_URL", c.Embedding.APIURL)
	c.Embedding.Model = getEnv("THOUGHTDB_EMBEDDING_MODEL", c.Embedding.Model)
	c.Embedding.Dimensions = getEnvInt("THOUGHTDB_EMBEDDING_DIMENSIONS", c.Embedding.Dimensions)
	c.Embedding.Timeout = getEnvDuration("THOUGHTDB_EMBEDDING_TIMEOUT", c.Embedding.Timeout)
	c.Embedding.CacheSize = getEnvInt("THOUGHTDB_EMBEDDING_CACHE_SIZE", c.Embedding.CacheSize)

	c.Generation.Model = getEnv("THOUGHTDB_GENERATION_MODEL", c.Generation.Model)
	c.Generation.Timeout = getEnvDuration("THOUGHTDB_GENERATION_TIMEOUT", c.Generation.Timeout)

	c.Sync.SpreadsheetID = getEnv("THOUGHTDB_SYNC_SPREADSHEET_ID", c.Sync.SpreadsheetID)
	c.Sync.Token = getEnv("THOUGHTDB_SYNC_TOKEN", c.Sync.Token)
	c.Sync.PreviewLength = getEnvInt("THOUGHTDB_SYNC_PREVIEW_LENGTH", c.Sync.PreviewLength)

	c.Index.RebuildWorkers = getEnvInt("THOUGHTDB_INDEX_REBUILD_WORKERS", c.Index.RebuildWorkers)
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir must not be empty")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model must not be empty")
	}
	if c.Embedding.Timeout <= 0 {
		return fmt.Errorf("embedding.timeout must be positive")
	}
	if c.Generation.Timeout <= 0 {
		return fmt.Errorf("generation.timeout must be positive")
	}
	if c.Sync.PreviewLength < 0 {
		return fmt.Errorf("sync.preview_length must not be negative")
	}
	if c.Index.RebuildWorkers <= 0 {
		return fmt.Errorf("index.rebuild_workers must be positive, got %d", c.Index.RebuildWorkers)
	}
	return nil
}

// SyncEnabled reports whether a mirror is configured.
func (c *Config) SyncEnabled() bool {
	return c.Sync.SpreadsheetID != ""
}

// Helper functions for environment variable parsing

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

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		// Bare numbers are treated as seconds
		if secs, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultVal
}
