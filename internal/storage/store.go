// Package storage defines the embedding cache contract shared by all
// backends.
//
// The cache is keyed by (entity ID, dimension, fingerprint). The fingerprint
// hashes the exact text that was embedded, so changed source text naturally
// misses and the fresh vector replaces the old one in that (entity, dimension)
// slot. Writes are idempotent upserts: concurrent writers racing on the same
// key compute the same value, so last-writer-wins is safe without locking.
package storage

import (
	"context"
	"errors"

	"github.com/hireloop/matchengine/pkg/types"
)

var (
	// ErrNotFound indicates no cached vector exists for the requested key.
	ErrNotFound = errors.New("embedding not found")

	// ErrInvalidInput indicates the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable indicates the backend cannot be reached. Callers treat
	// this as a performance degradation and fall back to the provider, not
	// as a hard failure.
	ErrUnavailable = errors.New("embedding store unavailable")
)

// EmbeddingStore persists dimension vectors keyed by entity, dimension, and
// content fingerprint.
type EmbeddingStore interface {
	// Get returns the cached vector for the exact key. Returns ErrNotFound
	// when the slot is empty or holds a vector for a different fingerprint.
	Get(ctx context.Context, entityID string, dim types.DimensionKey, fingerprint string) ([]float64, error)

	// Put upserts the vector for the (entityID, dim) slot, recording the
	// fingerprint and model it was computed from. Atomic and idempotent.
	Put(ctx context.Context, entityID string, dim types.DimensionKey, fingerprint string, vector []float64, model string) error

	// DeleteEntity removes all cached vectors for an entity and returns the
	// number of removed vectors. Deleting an unknown entity is not an error.
	DeleteEntity(ctx context.Context, entityID string) (int64, error)

	// Stats reports cache occupancy for maintenance surfaces.
	Stats(ctx context.Context) (Stats, error)

	// Close releases any resources held by the store.
	Close() error
}

// Stats summarizes cache contents.
type Stats struct {
	// Vectors is the number of cached dimension vectors.
	Vectors int64

	// Entities is the number of distinct entities with at least one vector.
	Entities int64
}
