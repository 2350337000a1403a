// Package sqlite provides a SQLite-backed embedding store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/hireloop/matchengine/internal/storage"
	"github.com/hireloop/matchengine/pkg/types"
)

// Store implements storage.EmbeddingStore using SQLite.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) a SQLite embedding store at dsn.
// Use ":memory:" for an ephemeral store.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. A single open connection
	// serialises writes and avoids SQLITE_BUSY errors under concurrent load.
	// WAL mode allows concurrent readers to proceed without blocking the writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to enable WAL mode: %w", err)
	}

	// Wait instead of failing with SQLITE_BUSY when another goroutine holds
	// the connection.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to set busy timeout: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Get retrieves the cached vector for the exact (entity, dimension,
// fingerprint) key. A row stored under a different fingerprint counts as a
// miss: the source text has changed and the vector is stale.
func (s *Store) Get(ctx context.Context, entityID string, dim types.DimensionKey, fingerprint string) ([]float64, error) {
	if entityID == "" || dim == "" || fingerprint == "" {
		return nil, fmt.Errorf("%w: entity ID, dimension and fingerprint are required", storage.ErrInvalidInput)
	}

	query := `
		SELECT vector, vector_dim
		FROM embeddings
		WHERE entity_id = ? AND dimension = ? AND fingerprint = ?
	`

	var buf []byte
	var vectorDim int

	err := s.db.QueryRowContext(ctx, query, entityID, string(dim), fingerprint).Scan(&buf, &vectorDim)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: failed to get embedding: %w", err)
	}

	vector, err := storage.DecodeVector(buf, vectorDim)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to decode embedding: %w", err)
	}

	return vector, nil
}

// Put upserts the vector for the (entity, dimension) slot. A write with a new
// fingerprint replaces the stale vector for that slot atomically.
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

	query := `
		INSERT INTO embeddings (entity_id, dimension, fingerprint, vector, vector_dim, model, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(entity_id, dimension) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			vector = excluded.vector,
			vector_dim = excluded.vector_dim,
			model = excluded.model,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := s.db.ExecContext(ctx, query, entityID, string(dim), fingerprint, storage.EncodeVector(vector), len(vector), model)
	if err != nil {
		return fmt.Errorf("sqlite: failed to store embedding: %w", err)
	}

	return nil
}

// DeleteEntity removes all cached vectors for an entity.
func (s *Store) DeleteEntity(ctx context.Context, entityID string) (int64, error) {
	if entityID == "" {
		return 0, fmt.Errorf("%w: entity ID is required", storage.ErrInvalidInput)
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM embeddings WHERE entity_id = ?`, entityID)
	if err != nil {
		return 0, fmt.Errorf("sqlite: failed to delete embeddings: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: failed to check rows affected: %w", err)
	}

	return removed, nil
}

// Stats reports cache occupancy.
func (s *Store) Stats(ctx context.Context) (storage.Stats, error) {
	var stats storage.Stats

	query := `SELECT COUNT(*), COUNT(DISTINCT entity_id) FROM embeddings`
	if err := s.db.QueryRowContext(ctx, query).Scan(&stats.Vectors, &stats.Entities); err != nil {
		return storage.Stats{}, fmt.Errorf("sqlite: failed to read stats: %w", err)
	}

	return stats, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Compile-time assertion.
var _ storage.EmbeddingStore = (*Store)(nil)
