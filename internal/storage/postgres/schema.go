// Package postgres provides a PostgreSQL implementation of the embedding store.
package postgres

// Schema contains the SQL statements to create the database schema for PostgreSQL.
// One row per (entity, dimension) slot; the fingerprint column records which
// source text the stored vector was computed from.
const Schema = `
-- Embeddings table: one cached vector per (entity, dimension) slot
CREATE TABLE IF NOT EXISTS embeddings (
    entity_id TEXT NOT NULL,
    dimension TEXT NOT NULL,
    fingerprint TEXT NOT NULL,

    -- Vector payload
    vector BYTEA NOT NULL, -- Stored as binary packed float64 array
    vector_dim INTEGER NOT NULL,
    model TEXT NOT NULL,

    -- Timestamps
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,

    PRIMARY KEY (entity_id, dimension)
);

-- Fingerprint lookups (cache audits, invalidation sweeps)
CREATE INDEX IF NOT EXISTS idx_embeddings_fingerprint ON embeddings(fingerprint);

-- Embedding model lookups
CREATE INDEX IF NOT EXISTS idx_embeddings_model ON embeddings(model);
`

// MigrationPgvector contains SQL to add pgvector support to the embeddings table.
// This migration is only applied when the vector extension is available.
// Safe to run multiple times (uses IF NOT EXISTS / conditional checks).
const MigrationPgvector = `
-- Add embedding_vec column if it doesn't already exist.
DO $$
BEGIN
    IF NOT EXISTS (
        SELECT 1 FROM information_schema.columns
        WHERE table_name = 'embeddings' AND column_name = 'embedding_vec'
    ) THEN
        ALTER TABLE embeddings ADD COLUMN embedding_vec vector;
    END IF;
END
$$;

-- Create ivfflat index for approximate nearest-neighbor vector search.
-- Lists = 100 is a good default for up to ~1M vectors; tune upward for larger datasets.
-- IMPORTANT: ivfflat requires at least one row to exist; we guard with a DO block.
DO $$
BEGIN
  IF NOT EXISTS (
    SELECT 1 FROM pg_indexes WHERE indexname = 'idx_embeddings_vec_cosine'
  ) THEN
    IF EXISTS (SELECT 1 FROM embeddings LIMIT 1) THEN
      EXECUTE 'CREATE INDEX idx_embeddings_vec_cosine ON embeddings USING ivfflat (embedding_vec vector_cosine_ops) WITH (lists = 100)';
    END IF;
  END IF;
END$$;
`
