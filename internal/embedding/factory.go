package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/hireloop/matchengine/internal/config"
)

// NewProvider creates the appropriate embedding provider from configuration.
// The context is only used by providers whose SDKs dial during construction.
func NewProvider(ctx context.Context, cfg config.EmbeddingConfig) (Provider, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	switch cfg.Provider {
	case "openai", "":
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:            cfg.OpenAIAPIKey,
			Model:             cfg.Model,
			BaseURL:           cfg.OpenAIBaseURL,
			Timeout:           timeout,
			Dimension:         cfg.Dimension,
			RequestsPerSecond: cfg.RequestsPerSecond,
		}), nil
	case "gemini":
		return NewGeminiProvider(ctx, GeminiConfig{
			APIKey:            cfg.GeminiAPIKey,
			Model:             cfg.Model,
			Timeout:           timeout,
			Dimension:         cfg.Dimension,
			RequestsPerSecond: cfg.RequestsPerSecond,
		})
	case "ollama":
		return NewOllamaProvider(OllamaConfig{
			BaseURL:   cfg.OllamaURL,
			Model:     cfg.Model,
			Timeout:   timeout,
			Dimension: cfg.Dimension,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %q", cfg.Provider)
	}
}
