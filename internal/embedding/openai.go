package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// OpenAIConfig holds configuration for the OpenAI embedding provider.
type OpenAIConfig struct {
	APIKey            string
	Model             string        // default: text-embedding-3-small
	BaseURL           string        // default: https://api.openai.com
	Timeout           time.Duration // default: 30s
	Dimension         int           // default: 768
	RequestsPerSecond float64       // default: 10
}

// OpenAIProvider implements Provider using the OpenAI embeddings API.
// Requests are rate limited and wrapped with circuit breaker protection.
type OpenAIProvider struct {
	cfg     OpenAIConfig
	client  *http.Client
	limiter *rate.Limiter
	breaker *CircuitBreaker
}

// NewOpenAIProvider creates a new OpenAI embedding provider.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
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
	return &OpenAIProvider{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		breaker: NewCircuitBreaker(),
	}
}

// openAIEmbeddingRequest is the request body for POST /v1/embeddings.
type openAIEmbeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

// openAIEmbeddingResponse is the response body from POST /v1/embeddings.
type openAIEmbeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// EmbedBatch generates one embedding vector per input text, in input order.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
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
			return nil, fmt.Errorf("%w: openai circuit breaker open", ErrUnavailable)
		}
		return nil, err
	}
	return vectors, nil
}

func (p *OpenAIProvider) embedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	reqBody := openAIEmbeddingRequest{
		Model:      p.cfg.Model,
		Input:      texts,
		Dimensions: p.cfg.Dimension,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.cfg.BaseURL+"/v1/embeddings", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, classifyHTTPStatus("openai", resp.StatusCode, body)
	}

	var respData openAIEmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return nil, fmt.Errorf("%w: failed to decode openai response: %v", ErrProtocolMismatch, err)
	}

	if len(respData.Data) != len(texts) {
		return nil, fmt.Errorf("%w: openai returned %d embeddings for %d inputs",
			ErrProtocolMismatch, len(respData.Data), len(texts))
	}

	// The index field is authoritative for ordering.
	vectors := make([][]float64, len(texts))
	for _, d := range respData.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("%w: openai returned out-of-range index %d", ErrProtocolMismatch, d.Index)
		}
		if vectors[d.Index] != nil {
			return nil, fmt.Errorf("%w: openai returned duplicate index %d", ErrProtocolMismatch, d.Index)
		}
		if len(d.Embedding) != p.cfg.Dimension {
			return nil, fmt.Errorf("%w: openai returned %d-dimensional vector, want %d",
				ErrProtocolMismatch, len(d.Embedding), p.cfg.Dimension)
		}
		vectors[d.Index] = d.Embedding
	}

	return vectors, nil
}

// classifyHTTPStatus maps a provider HTTP error status onto the package's
// sentinel errors. The response body is included for operators.
func classifyHTTPStatus(provider string, status int, body []byte) error {
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s returned status %d: %s", ErrRateLimited, provider, status, string(body))
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s returned status %d: %s", ErrInvalidInput, provider, status, string(body))
	default:
		return fmt.Errorf("%w: %s returned status %d: %s", ErrUnavailable, provider, status, string(body))
	}
}

// Dimension returns the configured vector width.
func (p *OpenAIProvider) Dimension() int {
	return p.cfg.Dimension
}

// Model returns the configured model name.
func (p *OpenAIProvider) Model() string {
	return p.cfg.Model
}

// Compile-time assertion.
var _ Provider = (*OpenAIProvider)(nil)
