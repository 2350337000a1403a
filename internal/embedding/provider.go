// Package embedding turns text into dense vectors through pluggable provider
// backends (OpenAI, Gemini, Ollama). All providers speak the same batch
// contract and classify their failures into the package's sentinel errors.
package embedding

import "context"

// MaxInputChars is the longest text a provider is sent. Callers truncate
// before fingerprinting so a cached vector always corresponds to the text
// that produced it.
const MaxInputChars = 8000

// Provider generates embedding vectors for batches of text.
type Provider interface {
	// EmbedBatch returns exactly one vector per input text, in input order.
	// Inputs must be non-empty; callers filter empty texts before batching.
	// On failure the returned error wraps one of the package sentinels and
	// no vectors are returned.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)

	// Dimension returns the width of the vectors this provider produces.
	Dimension() int

	// Model returns the embedding model identifier, recorded alongside
	// cached vectors.
	Model() string
}

// Truncate caps text at MaxInputChars bytes. Callers truncate before
// fingerprinting so the fingerprint always matches the embedded text.
func Truncate(text string) string {
	if len(text) <= MaxInputChars {
		return text
	}
	return text[:MaxInputChars]
}
