// Package config provides configuration management for the match engine.
// It loads settings from environment variables with the MATCHENGINE_ prefix
// and provides sensible defaults for all configuration options. The CLI
// additionally layers a YAML config file over these values via viper, so
// every field carries mapstructure and yaml tags.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hireloop/matchengine/pkg/types"
)

// Config holds all configuration settings for the match engine.
type Config struct {
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Embedding EmbeddingConfig `mapstructure:"embedding" yaml:"embedding"`
	Matching  MatchingConfig  `mapstructure:"matching" yaml:"matching"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// StorageConfig contains embedding cache backend configuration.
type StorageConfig struct {
	// Backend selects the cache implementation: sqlite, postgres, memory (default: sqlite)
	Backend string `mapstructure:"backend" yaml:"backend"`

	// DSN is the sqlite file path or postgres connection string (default: ./data/matchengine.db)
	DSN string `mapstructure:"dsn" yaml:"dsn"`

	// Capacity bounds the memory backend, in vectors (default: 4096)
	Capacity int `mapstructure:"capacity" yaml:"capacity"`
}

// EmbeddingConfig contains embedding provider configuration.
type EmbeddingConfig struct {
	// Provider selects the backend: openai, gemini, ollama (default: openai)
	Provider string `mapstructure:"provider" yaml:"provider"`

	// Model overrides the provider's default embedding model
	Model string `mapstructure:"model" yaml:"model"`

	// Dimension is the vector width all providers must produce (default: 768)
	Dimension int `mapstructure:"dimension" yaml:"dimension"`

	// MaxBatchSize is the most texts sent in one provider call (default: 64)
	MaxBatchSize int `mapstructure:"max-batch-size" yaml:"max-batch-size"`

	// RequestsPerSecond rate-limits provider calls (default: 10)
	RequestsPerSecond float64 `mapstructure:"requests-per-second" yaml:"requests-per-second"`

	// TimeoutSeconds is the per-request timeout (default: 30)
	TimeoutSeconds int `mapstructure:"timeout-seconds" yaml:"timeout-seconds"`

	// OpenAIAPIKey authenticates against OpenAI (falls back to OPENAI_API_KEY)
	OpenAIAPIKey string `mapstructure:"openai-api-key" yaml:"openai-api-key"`

	// OpenAIBaseURL points at an OpenAI-compatible endpoint
	OpenAIBaseURL string `mapstructure:"openai-base-url" yaml:"openai-base-url"`

	// GeminiAPIKey authenticates against the Gemini API (falls back to GEMINI_API_KEY)
	GeminiAPIKey string `mapstructure:"gemini-api-key" yaml:"gemini-api-key"`

	// OllamaURL is the local Ollama API URL (default: http://localhost:11434)
	OllamaURL string `mapstructure:"ollama-url" yaml:"ollama-url"`
}

// MatchingConfig contains scoring and ranking configuration.
type MatchingConfig struct {
	// MissingPolicy handles pairs without vectors: renormalize, strict (default: renormalize)
	MissingPolicy string `mapstructure:"missing-policy" yaml:"missing-policy"`

	// TopK is the default ranking cut (default: 20)
	TopK int `mapstructure:"top-k" yaml:"top-k"`

	// MinScore is the default ranking floor (default: 0.6)
	MinScore float64 `mapstructure:"min-score" yaml:"min-score"`

	// Weights overrides the default weight table, keyed "profile:job"
	// (e.g. "skills:description"). Empty means the built-in table.
	Weights map[string]float64 `mapstructure:"weights" yaml:"weights"`
}

// LoggingConfig contains logger configuration.
type LoggingConfig struct {
	// JSON switches log output from console to JSON format (default: false)
	JSON bool `mapstructure:"json" yaml:"json"`

	// Debug enables debug-level logging (default: false)
	Debug bool `mapstructure:"debug" yaml:"debug"`
}

// Load builds a Config from environment variables with sensible defaults.
// All environment variables use the MATCHENGINE_ prefix; provider API keys
// additionally fall back to their conventional names.
func Load() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend:  getEnv("MATCHENGINE_STORAGE_BACKEND", "sqlite"),
			DSN:      getEnv("MATCHENGINE_STORAGE_DSN", "./data/matchengine.db"),
			Capacity: getEnvInt("MATCHENGINE_STORAGE_CAPACITY", 4096),
		},
		Embedding: EmbeddingConfig{
			Provider:          getEnv("MATCHENGINE_EMBEDDING_PROVIDER", "openai"),
			Model:             getEnv("MATCHENGINE_EMBEDDING_MODEL", ""),
			Dimension:         getEnvInt("MATCHENGINE_EMBEDDING_DIMENSION", 768),
			MaxBatchSize:      getEnvInt("MATCHENGINE_MAX_BATCH_SIZE", 64),
			RequestsPerSecond: getEnvFloat("MATCHENGINE_REQUESTS_PER_SECOND", 10),
			TimeoutSeconds:    getEnvInt("MATCHENGINE_EMBEDDING_TIMEOUT", 30),
			OpenAIAPIKey:      getEnv("MATCHENGINE_OPENAI_API_KEY", getEnv("OPENAI_API_KEY", "")),
			OpenAIBaseURL:     getEnv("MATCHENGINE_OPENAI_BASE_URL", ""),
			GeminiAPIKey:      getEnv("MATCHENGINE_GEMINI_API_KEY", getEnv("GEMINI_API_KEY", "")),
			OllamaURL:         getEnv("MATCHENGINE_OLLAMA_URL", "http://localhost:11434"),
		},
		Matching: MatchingConfig{
			MissingPolicy: getEnv("MATCHENGINE_MISSING_POLICY", "renormalize"),
			TopK:          getEnvInt("MATCHENGINE_TOP_K", 20),
			MinScore:      getEnvFloat("MATCHENGINE_MIN_SCORE", 0.6),
		},
		Logging: LoggingConfig{
			JSON:  getEnvBool("MATCHENGINE_LOG_JSON", false),
			Debug: getEnvBool("MATCHENGINE_LOG_DEBUG", false),
		},
	}
}

// Validate checks the configuration for values no component can work with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("config: unsupported storage backend: %q", c.Storage.Backend)
	}

	switch c.Embedding.Provider {
	case "openai", "gemini", "ollama":
	default:
		return fmt.Errorf("config: unsupported embedding provider: %q", c.Embedding.Provider)
	}

	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("config: embedding dimension must be positive, got %d", c.Embedding.Dimension)
	}
	if c.Embedding.MaxBatchSize <= 0 {
		return fmt.Errorf("config: max batch size must be positive, got %d", c.Embedding.MaxBatchSize)
	}
	if c.Embedding.RequestsPerSecond <= 0 {
		return fmt.Errorf("config: requests per second must be positive, got %v", c.Embedding.RequestsPerSecond)
	}

	switch c.Matching.MissingPolicy {
	case "renormalize", "strict":
	default:
		return fmt.Errorf("config: unsupported missing policy: %q", c.Matching.MissingPolicy)
	}

	if c.Matching.TopK <= 0 {
		return fmt.Errorf("config: top-k must be positive, got %d", c.Matching.TopK)
	}
	if c.Matching.MinScore < 0 || c.Matching.MinScore > 1 {
		return fmt.Errorf("config: min score must be in [0,1], got %v", c.Matching.MinScore)
	}

	if _, err := c.Matching.WeightTable(); err != nil {
		return err
	}

	return nil
}

// WeightTable converts the configured weight overrides into a validated
// types.WeightTable. An empty override map selects the default table.
func (m MatchingConfig) WeightTable() (types.WeightTable, error) {
	if len(m.Weights) == 0 {
		return types.DefaultWeightTable(), nil
	}

	table := make(types.WeightTable, len(m.Weights))
	for key, weight := range m.Weights {
		profile, job, ok := strings.Cut(key, ":")
		if !ok {
			return nil, fmt.Errorf("config: weight key %q is not of the form profile:job", key)
		}
		pair := types.DimensionPair{
			Profile: types.DimensionKey(profile),
			Job:     types.DimensionKey(job),
		}
		table[pair] = weight
	}

	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid weight table: %w", err)
	}

	return table, nil
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as an integer,
// it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as a float,
// it returns the default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value.
// It recognizes "true", "1", "yes" as true and "false", "0", "no" as false (case-insensitive).
// If the environment variable exists but cannot be parsed as a boolean,
// it returns the default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch value {
		case "true", "1", "yes", "True", "TRUE", "Yes", "YES":
			return true
		case "false", "0", "no", "False", "FALSE", "No", "NO":
			return false
		}
	}
	return defaultValue
}
