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
)

// OllamaConfig holds configuration for the Ollama embedding provider.
type OllamaConfig struct {
	// BaseURL is the base URL for the Ollama API (default: http://localhost:11434)
	BaseURL string

	// Model is the embedding model name (default: nomic-embed-text)
	Model string

	// Timeout is the request timeout duration (default: 30s)
	Timeout time.Duration

	// Dimension is the expected vector width (default: 768)
	Dimension int
}

// OllamaProvider implements Provider against a local Ollama server.
// All HTTP calls are wrapped with circuit breaker protection.
type OllamaProvider struct {
	cfg     OllamaConfig
	client  *http.Client
	breaker *CircuitBreaker
}

// NewOllamaProvider creates a new Ollama embedding provider.
func NewOllamaProvider(cfg OllamaConfig) *OllamaProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "nomic-embed-text"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Dimension == 0 {
		cfg.Dimension = 768
	}

	return &OllamaProvider{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		breaker: NewCircuitBreaker(),
	}
}

// ollamaEmbedRequest is the request body for the /api/embed endpoint.
type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// ollamaEmbedResponse is the response from the /api/embed endpoint.
// The embeddings field holds one vector per input, in input order.
type ollamaEmbedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// EmbedBatch generates one embedding vector per input text, in input order.
func (p *OllamaProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}
	for i, text := range texts {
		if text == "" {
			return nil, fmt.Errorf("%w: text %d is empty", ErrInvalidInput, i)
		}
	}

	vectors, err := p.breaker.Execute(ctx, func() ([][]float64, error) {
		return p.embedBatch(ctx, texts)
	})
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return nil, fmt.Errorf("%w: ollama circuit breaker open", ErrUnavailable)
		}
		return nil, err
	}
	return vectors, nil
}

func (p *OllamaProvider) embedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	reqBody := ollamaEmbedRequest{
		Model: p.cfg.Model,
		Input: texts,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.cfg.BaseURL+"/api/embed", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, classifyHTTPStatus("ollama", resp.StatusCode, body)
	}

	var respData ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return nil, fmt.Errorf("%w: failed to decode ollama response: %v", ErrProtocolMismatch, err)
	}

	if len(respData.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: ollama returned %d embeddings for %d inputs",
			ErrProtocolMismatch, len(respData.Embeddings), len(texts))
	}

	for i, vec := range respData.Embeddings {
		if len(vec) != p.cfg.Dimension {
			return nil, fmt.Errorf("%w: ollama returned %d-dimensional vector at index %d, want %d",
				ErrProtocolMismatch, len(vec), i, p.cfg.Dimension)
		}
	}

	return respData.Embeddings, nil
}

// HealthCheck verifies that Ollama is reachable by checking the /api/version
// endpoint. This does not use circuit breaker protection since it's a health
// check itself.
func (p *OllamaProvider) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", p.cfg.BaseURL+"/api/version", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("health check returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// Dimension returns the configured vector width.
func (p *OllamaProvider) Dimension() int {
	return p.cfg.Dimension
}

// Model returns the configured model name.
func (p *OllamaProvider) Model() string {
	return p.cfg.Model
}

// Compile-time assertion.
var _ Provider = (*OllamaProvider)(nil)
