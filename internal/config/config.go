package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Database type identifiers.
const (
	PostgresDBType = "postgres"
	SqliteDBType   = "sqlite"
)

// Config is the top-level application configuration. Values are loaded from an
// optional YAML file and can be overridden by environment variables.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Google     GoogleConfig     `yaml:"google"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Webhooks   WebhookConfig    `yaml:"webhooks"`
	Workers    WorkerConfig     `yaml:"workers"`
	Export     ExportConfig     `yaml:"export"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Addr is the listen address for the REST API (default ":8080").
	Addr string `yaml:"addr"`

	// MetricsAddr is the listen address for the Prometheus metrics server (default ":9090").
	MetricsAddr string `yaml:"metrics_addr"`

	// MetricsEnabled controls whether the dedicated metrics server is started.
	MetricsEnabled bool `yaml:"metrics_enabled"`

	// SessionTTL is how long a login session stays valid (default 24h).
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// DatabaseConfig holds relational store settings.
type DatabaseConfig struct {
	// Type is "sqlite" or "postgres".
	Type string `yaml:"type"`

	// DSN is the driver-specific connection string. Empty with sqlite means in-memory.
	DSN string `yaml:"dsn"`
}

// GoogleConfig holds OAuth client settings for the Google APIs.
type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`

	// TokenDir is the directory where per-account OAuth tokens are stored.
	// Defaults to the user cache dir.
	TokenDir string `yaml:"token_dir"`
}

// ClassifierConfig holds settings for the query classification pipeline.
type ClassifierConfig struct {
	// GenAIAPIKey authenticates embedding and LLM calls.
	GenAIAPIKey string `yaml:"genai_api_key"`

	// EmbeddingModel is the embedding model name (default gemini-embedding-001).
	EmbeddingModel string `yaml:"embedding_model"`

	// LLMModel is the generative model used for stage-3 classification
	// (default gemini-2.5-flash).
	LLMModel string `yaml:"llm_model"`

	// PatternThreshold is the minimum confidence at which a pattern match is
	// accepted without consulting later stages (default 0.85).
	PatternThreshold float64 `yaml:"pattern_threshold"`

	// SemanticThreshold is the minimum cosine similarity at which a semantic
	// match is accepted (default 0.75).
	SemanticThreshold float64 `yaml:"semantic_threshold"`

	// LLMThreshold is the minimum self-reported LLM confidence (default 0.5).
	LLMThreshold float64 `yaml:"llm_threshold"`
}

// WebhookConfig holds webhook delivery settings.
type WebhookConfig struct {
	// MaxElapsedTime caps the total retry window per delivery (default 10m).
	MaxElapsedTime time.Duration `yaml:"max_elapsed_time"`

	// FailureThreshold is the number of consecutive failed deliveries after
	// which a subscription is marked failed and skipped (default 5).
	FailureThreshold int `yaml:"failure_threshold"`

	// Timeout is the per-request HTTP timeout (default 10s).
	Timeout time.Duration `yaml:"timeout"`
}

// WorkerConfig holds background job queue settings.
type WorkerConfig struct {
	// Count is the number of worker goroutines (default 4).
	Count int `yaml:"count"`

	// QueueSize is the job channel capacity (default 256).
	QueueSize int `yaml:"queue_size"`
}

// ExportConfig holds GDPR export settings.
type ExportConfig struct {
	// Dir is where finished export archives are written (default os.TempDir()).
	Dir string `yaml:"dir"`
}

// Default returns a Config populated with defaults and environment overrides.
func Default() Config {
	cfg := Config{
		Server: ServerConfig{
			Addr:           ":8080",
			MetricsAddr:    ":9090",
			MetricsEnabled: true,
			SessionTTL:     24 * time.Hour,
		},
		Database: DatabaseConfig{
			Type: SqliteDBType,
		},
		Classifier: ClassifierConfig{
			EmbeddingModel:    "gemini-embedding-001",
			LLMModel:          "gemini-2.5-flash",
			PatternThreshold:  0.85,
			SemanticThreshold: 0.75,
			LLMThreshold:      0.5,
		},
		Webhooks: WebhookConfig{
			MaxElapsedTime:   10 * time.Minute,
			FailureThreshold: 5,
			Timeout:          10 * time.Second,
		},
		Workers: WorkerConfig{
			Count:     4,
			QueueSize: 256,
		},
		Export: ExportConfig{
			Dir: os.TempDir(),
		},
	}
	cfg.applyEnv()
	return cfg
}

// Load reads a YAML config file, applies defaults for unset fields, and then
// applies environment overrides. A missing file is not an error; defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	// Environment wins over the file
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides configuration from environment variables.
func (c *Config) applyEnv() {
	c.Server.Addr = getEnvOrDefault("CLAVR_ADDR", c.Server.Addr)
	c.Server.MetricsAddr = getEnvOrDefault("CLAVR_METRICS_ADDR", c.Server.MetricsAddr)
	c.Database.Type = getEnvOrDefault("CLAVR_DB_TYPE", c.Database.Type)
	c.Database.DSN = getEnvOrDefault("CLAVR_DB_DSN", c.Database.DSN)
	c.Google.ClientID = getEnvOrDefault("GOOGLE_CLIENT_ID", c.Google.ClientID)
	c.Google.ClientSecret = getEnvOrDefault("GOOGLE_CLIENT_SECRET", c.Google.ClientSecret)
	c.Google.TokenDir = getEnvOrDefault("CLAVR_TOKEN_DIR", c.Google.TokenDir)
	c.Classifier.GenAIAPIKey = getEnvOrDefault("GEMINI_API_KEY", c.Classifier.GenAIAPIKey)
	c.Classifier.EmbeddingModel = getEnvOrDefault("CLAVR_EMBEDDING_MODEL", c.Classifier.EmbeddingModel)
	c.Classifier.LLMModel = getEnvOrDefault("CLAVR_LLM_MODEL", c.Classifier.LLMModel)
	c.Export.Dir = getEnvOrDefault("CLAVR_EXPORT_DIR", c.Export.Dir)

	if v := os.Getenv("CLAVR_WORKER_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Workers.Count = n
		}
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Database.Type {
	case SqliteDBType, PostgresDBType:
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	if c.Database.Type == PostgresDBType && c.Database.DSN == "" {
		return fmt.Errorf("postgres database requires a DSN")
	}

	if c.Classifier.PatternThreshold < 0 || c.Classifier.PatternThreshold > 1 {
		return fmt.Errorf("pattern threshold must be between 0.0 and 1.0, got %f", c.Classifier.PatternThreshold)
	}
	if c.Classifier.SemanticThreshold < 0 || c.Classifier.SemanticThreshold > 1 {
		return fmt.Errorf("semantic threshold must be between 0.0 and 1.0, got %f", c.Classifier.SemanticThreshold)
	}
	if c.Classifier.LLMThreshold < 0 || c.Classifier.LLMThreshold > 1 {
		return fmt.Errorf("llm threshold must be between 0.0 and 1.0, got %f", c.Classifier.LLMThreshold)
	}

	if c.Workers.Count <= 0 {
		return fmt.Errorf("worker count must be positive, got %d", c.Workers.Count)
	}
	if c.Webhooks.FailureThreshold <= 0 {
		return fmt.Errorf("webhook failure threshold must be positive, got %d", c.Webhooks.FailureThreshold)
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
