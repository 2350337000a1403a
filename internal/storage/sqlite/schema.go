package sqlite

// Schema contains the SQL statements to create the embedding cache schema.
// One row per (entity, dimension) slot; the fingerprint column records which
// source text the stored vector was computed from, so a stale row simply
// misses and is replaced on the next write.
const Schema = `
CREATE TABLE IF NOT EXISTS embeddings (
    entity_id   TEXT NOT NULL,
    dimension   TEXT NOT NULL,
    fingerprint TEXT NOT NULL,
    vector      BLOB NOT NULL,
    vector_dim  INTEGER NOT NULL,
    model       TEXT NOT NULL,
    created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (entity_id, dimension)
);

CREATE INDEX IF NOT EXISTS idx_embeddings_fingerprint ON embeddings(fingerprint);
CREATE INDEX IF NOT EXISTS idx_embeddings_model ON embeddings(model);
`
