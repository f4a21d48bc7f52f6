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

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, ":9090", cfg.Server.MetricsAddr)
	assert.True(t, cfg.Server.MetricsEnabled)
	assert.Equal(t, SqliteDBType, cfg.Database.Type)
	assert.Equal(t, 0.85, cfg.Classifier.PatternThreshold)
	assert.Equal(t, 0.75, cfg.Classifier.SemanticThreshold)
	assert.Equal(t, 0.5, cfg.Classifier.LLMThreshold)
	assert.Equal(t, 4, cfg.Workers.Count)
	assert.Equal(t, 5, cfg.Webhooks.FailureThreshold)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, SqliteDBType, cfg.Database.Type)
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clavr.yaml")
	content := `
server:
  addr: ":9000"
  session_ttl: 1h
database:
  type: sqlite
  dsn: /tmp/clavr.db
classifier:
  pattern_threshold: 0.9
  llm_model: gemini-2.5-pro
workers:
  count: 8
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, time.Hour, cfg.Server.SessionTTL)
	assert.Equal(t, "/tmp/clavr.db", cfg.Database.DSN)
	assert.Equal(t, 0.9, cfg.Classifier.PatternThreshold)
	assert.Equal(t, "gemini-2.5-pro", cfg.Classifier.LLMModel)
	assert.Equal(t, 8, cfg.Workers.Count)
	// untouched fields keep their defaults
	assert.Equal(t, ":9090", cfg.Server.MetricsAddr)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CLAVR_ADDR", ":7070")
	t.Setenv("CLAVR_DB_TYPE", "sqlite")
	t.Setenv("CLAVR_WORKER_COUNT", "2")

	cfg := Default()
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, 2, cfg.Workers.Count)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "unknown database type",
			mutate:  func(c *Config) { c.Database.Type = "mysql" },
			wantErr: "unsupported database type",
		},
		{
			name:    "postgres without DSN",
			mutate:  func(c *Config) { c.Database.Type = PostgresDBType },
			wantErr: "requires a DSN",
		},
		{
			name:    "pattern threshold out of range",
			mutate:  func(c *Config) { c.Classifier.PatternThreshold = 1.5 },
			wantErr: "pattern threshold",
		},
		{
			name:    "negative semantic threshold",
			mutate:  func(c *Config) { c.Classifier.SemanticThreshold = -0.1 },
			wantErr: "semantic threshold",
		},
		{
			name:    "zero workers",
			mutate:  func(c *Config) { c.Workers.Count = 0 },
			wantErr: "worker count",
		},
		{
			name:    "zero failure threshold",
			mutate:  func(c *Config) { c.Webhooks.FailureThreshold = 0 },
			wantErr: "failure threshold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
