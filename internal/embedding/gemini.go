package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// GeminiConfig holds configuration for the Gemini embedding provider.
type GeminiConfig struct {
	APIKey            string
	Model             string        // default: text-embedding-004
	Timeout           time.Duration // default: 30s
	Dimension         int           // default: 768
	RequestsPerSecond float64       // default: 10
}

// GeminiProvider implements Provider using the Google GenAI SDK.
type GeminiProvider struct {
	cfg     GeminiConfig
	client  *genai.Client
	limiter *rate.Limiter
	breaker *CircuitBreaker
}

// NewGeminiProvider creates a new Gemini embedding provider configured for
// the Gemini API backend.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	if cfg.Model = strings.TrimSpace(cfg.Model); cfg.Model == "" {
		cfg.Model = "text-embedding-004"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Dimension == 0 {
		cfg.Dimension = 768
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = 10
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiProvider{
		cfg:     cfg,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		breaker: NewCircuitBreaker(),
	}, nil
}

// EmbedBatch generates one embedding vector per input text, in input order.
func (p *GeminiProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}
	for i, text := range texts {
		if text == "" {
			return nil, fmt.Errorf("%w: text %d is empty", ErrInvalidInput, i)
		}
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	vectors, err := p.breaker.Execute(ctx, func() ([][]float64, error) {
		return p.embedBatch(ctx, texts)
	})
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return nil, fmt.Errorf("%w: gemini circuit breaker open", ErrUnavailable)
		}
		return nil, err
	}
	return vectors, nil
}

func (p *GeminiProvider) embedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, genai.Text(text)...)
	}

	dim := int32(p.cfg.Dimension)
	config := &genai.EmbedContentConfig{OutputDimensionality: &dim}

	resp, err := p.client.Models.EmbedContent(ctx, p.cfg.Model, contents, config)
	if err != nil {
		return nil, classifyGeminiError(err)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: gemini returned %d embeddings for %d inputs",
			ErrProtocolMismatch, len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float64, len(texts))
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, fmt.Errorf("%w: gemini returned empty embedding at index %d", ErrProtocolMismatch, i)
		}
		if len(e.Values) != p.cfg.Dimension {
			return nil, fmt.Errorf("%w: gemini returned %d-dimensional vector, want %d",
				ErrProtocolMismatch, len(e.Values), p.cfg.Dimension)
		}
		vec := make([]float64, len(e.Values))
		for j, v := range e.Values {
			vec[j] = float64(v)
		}
		vectors[i] = vec
	}

	return vectors, nil
}

// classifyGeminiError maps SDK errors onto the package's sentinel errors.
func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 429:
			return fmt.Errorf("%w: gemini: %v", ErrRateLimited, err)
		case 400:
			return fmt.Errorf("%w: gemini: %v", ErrInvalidInput, err)
		}
	}
	return fmt.Errorf("%w: gemini: %v", ErrUnavailable, err)
}

// Dimension returns the configured vector width.
func (p *GeminiProvider) Dimension() int {
	return p.cfg.Dimension
}

// Model returns the configured model name.
func (p *GeminiProvider) Model() string {
	return p.cfg.Model
}

// Compile-time assertion.
var _ Provider = (*GeminiProvider)(nil)
