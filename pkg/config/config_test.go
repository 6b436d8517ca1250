package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "all-minilm", cfg.Embedding.Model)
	assert.Equal(t, 384, cfg.Embedding.Dimensions)
	assert.Equal(t, 100, cfg.Sync.PreviewLength)
	assert.Equal(t, 4, cfg.Index.RebuildWorkers)
	assert.False(t, cfg.SyncEnabled())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thoughtdb.yaml")
	content := `
storage:
  data_dir: /var/lib/thoughtdb
embedding:
  model: nomic-embed-text
  dimensions: 768
sync:
  spreadsheet_id: sheet-abc
  preview_length: 50
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/var/lib/thoughtdb", cfg.Storage.DataDir)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	assert.Equal(t, 768, cfg.Embedding.Dimensions)
	assert.Equal(t, "sheet-abc", cfg.Sync.SpreadsheetID)
	assert.Equal(t, 50, cfg.Sync.PreviewLength)
	assert.True(t, cfg.SyncEnabled())

	// Untouched sections keep their defaults
	assert.Equal(t, "llama3.2", cfg.Generation.Model)
	assert.Equal(t, 30*time.Second, cfg.Embedding.Timeout)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("THOUGHTDB_DATA_DIR", "/tmp/env-data")
	t.Setenv("THOUGHTDB_EMBEDDING_DIMENSIONS", "1024")
	t.Setenv("THOUGHTDB_EMBEDDING_TIMEOUT", "45s")
	t.Setenv("THOUGHTDB_SYNC_SPREADSHEET_ID", "env-sheet")
	t.Setenv("THOUGHTDB_INDEX_REBUILD_WORKERS", "8")

	cfg := Default()
	cfg.ApplyEnv()

	assert.Equal(t, "/tmp/env-data", cfg.Storage.DataDir)
	assert.Equal(t, 1024, cfg.Embedding.Dimensions)
	assert.Equal(t, 45*time.Second, cfg.Embedding.Timeout)
	assert.Equal(t, "env-sheet", cfg.Sync.SpreadsheetID)
	assert.Equal(t, 8, cfg.Index.RebuildWorkers)
}

func TestApplyEnvBareSecondsDuration(t *testing.T) {
	t.Setenv("THOUGHTDB_EMBEDDING_TIMEOUT", "90")

	cfg := Default()
	cfg.ApplyEnv()
	assert.Equal(t, 90*time.Second, cfg.Embedding.Timeout)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty data dir", func(c *Config) { c.Storage.DataDir = "" }},
		{"zero dimensions", func(c *Config) { c.Embedding.Dimensions = 0 }},
		{"empty model", func(c *Config) { c.Embedding.Model = "" }},
		{"zero embed timeout", func(c *Config) { c.Embedding.Timeout = 0 }},
		{"zero generation timeout", func(c *Config) { c.Generation.Timeout = 0 }},
		{"negative preview", func(c *Config) { c.Sync.PreviewLength = -1 }},
		{"zero workers", func(c *Config) { c.Index.RebuildWorkers = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
