package store

import "fmt"

// schemaSQL returns the DDL for all tables. embeddingDim controls the
// vec0 virtual table dimension.
func schemaSQL(embeddingDim int) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER NOT NULL
);

-- Document registry with hash-based change detection.
CREATE TABLE IF NOT EXISTS documents (
    doc_id TEXT PRIMARY KEY,
    source_path TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    num_pages INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'pending',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Per-page raw and cleaned text, produced by the external parser and the
-- cleaner respectively.
CREATE TABLE IF NOT EXISTS pages (
    doc_id TEXT NOT NULL REFERENCES documents(doc_id) ON DELETE CASCADE,
    page_number INTEGER NOT NULL,
    raw_text TEXT NOT NULL,
    clean_text TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (doc_id, page_number)
);

-- Chunk store: one row per chunk, keyed by the contiguous integer
-- vector_id assigned when the embedding store is built (spec invariant:
-- vector_id[i] == i).
CREATE TABLE IF NOT EXISTS chunk_store (
    vector_id INTEGER PRIMARY KEY,
    chunk_id TEXT NOT NULL UNIQUE,
    doc_id TEXT NOT NULL REFERENCES documents(doc_id) ON DELETE CASCADE,
    start_page INTEGER NOT NULL,
    end_page INTEGER NOT NULL,
    text TEXT NOT NULL,
    char_len INTEGER NOT NULL,
    token_count INTEGER NOT NULL
);

-- Vector embeddings via sqlite-vec. Row-aligned with chunk_store by
-- vector_id.
CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(
    vector_id INTEGER PRIMARY KEY,
    embedding float[%d]
);

-- Embedding manifest: one row, (model_name, n_vectors, dim, normalized).
CREATE TABLE IF NOT EXISTS embedding_manifest (
    model_name TEXT NOT NULL,
    n_vectors INTEGER NOT NULL,
    dim INTEGER NOT NULL,
    normalized INTEGER NOT NULL DEFAULT 1
);

-- Query audit log, one row per Ask/RunAgent call.
CREATE TABLE IF NOT EXISTS query_log (
    id INTEGER PRIMARY KEY,
    question TEXT NOT NULL,
    answer TEXT,
    is_refusal INTEGER NOT NULL DEFAULT 0,
    refusal_reason TEXT,
    citation_count INTEGER DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_chunk_store_doc ON chunk_store(doc_id);
CREATE INDEX IF NOT EXISTS idx_pages_doc ON pages(doc_id);
`, embeddingDim)
}
