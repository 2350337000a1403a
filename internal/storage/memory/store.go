// Package memory provides an in-process implementation of the embedding
// store backed by a bounded LRU cache. It is used when no database is
// configured and in tests; eviction silently drops the oldest slots, which
// callers observe as ordinary cache misses.
package memory

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hireloop/matchengine/internal/storage"
	"github.com/hireloop/matchengine/pkg/types"
)

// DefaultCapacity bounds the number of cached vectors when no explicit
// capacity is given.
const DefaultCapacity = 4096

// slotSep joins entity ID and dimension into a cache key. The unit separator
// cannot appear in well-formed entity IDs.
const slotSep = "\x1f"

type entry struct {
	fingerprint string
	vector      []float64
}

// Store implements storage.EmbeddingStore in process memory.
type Store struct {
	cache *lru.Cache[string, entry]
}

// New creates an in-memory embedding store holding at most capacity vectors.
// A capacity of zero or less selects DefaultCapacity.
func New(capacity int) (*Store, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	cache, err := lru.New[string, entry](capacity)
	if err != nil {
		return nil, fmt.Errorf("memory: failed to create cache: %w", err)
	}

	return &Store{cache: cache}, nil
}

func slotKey(entityID string, dim types.DimensionKey) string {
	return entityID + slotSep + string(dim)
}

// Get retrieves the cached vector for the exact (entity, dimension,
// fingerprint) key. A slot holding a different fingerprint counts as a miss.
func (s *Store) Get(ctx context.Context, entityID string, dim types.DimensionKey, fingerprint string) ([]float64, error) {
	if entityID == "" || dim == "" || fingerprint == "" {
		return nil, fmt.Errorf("%w: entity ID, dimension and fingerprint are required", storage.ErrInvalidInput)
	}

	e, ok := s.cache.Get(slotKey(entityID, dim))
	if !ok || e.fingerprint != fingerprint {
		return nil, storage.ErrNotFound
	}

	// Copy so callers cannot mutate the cached vector.
	vector := make([]float64, len(e.vector))
	copy(vector, e.vector)

	return vector, nil
}

// Put upserts the vector for the (entity, dimension) slot.
func (s *Store) Put(ctx context.Context, entityID string, dim types.DimensionKey, fingerprint string, vector []float64, model string) error {
	if entityID == "" || dim == "" || fingerprint == "" {
		return fmt.Errorf("%w: entity ID, dimension and fingerprint are required", storage.ErrInvalidInput)
	}

	if len(vector) == 0 {
		return fmt.Errorf("%w: embedding vector cannot be empty", storage.ErrInvalidInput)
	}

	if model == "" {
		return fmt.Errorf("%w: model is required", storage.ErrInvalidInput)
	}

	stored := make([]float64, len(vector))
	copy(stored, vector)

	s.cache.Add(slotKey(entityID, dim), entry{fingerprint: fingerprint, vector: stored})

	return nil
}

// DeleteEntity removes all cached vectors for an entity.
func (s *Store) DeleteEntity(ctx context.Context, entityID string) (int64, error) {
	if entityID == "" {
		return 0, fmt.Errorf("%w: entity ID is required", storage.ErrInvalidInput)
	}

	prefix := entityID + slotSep

	var removed int64
	for _, key := range s.cache.Keys() {
		if strings.HasPrefix(key, prefix) {
			if s.cache.Remove(key) {
				removed++
			}
		}
	}

	return removed, nil
}

// Stats reports cache occupancy.
func (s *Store) Stats(ctx context.Context) (storage.Stats, error) {
	entities := make(map[string]struct{})
	for _, key := range s.cache.Keys() {
		entityID, _, _ := strings.Cut(key, slotSep)
		entities[entityID] = struct{}{}
	}

	return storage.Stats{
		Vectors:  int64(s.cache.Len()),
		Entities: int64(len(entities)),
	}, nil
}

// Close discards all cached vectors.
func (s *Store) Close() error {
	s.cache.Purge()
	return nil
}

// Compile-time assertion.
var _ storage.EmbeddingStore = (*Store)(nil)
