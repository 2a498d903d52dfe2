// Package store persists the read-only artifacts the retrieval engine
// searches: documents, cleaned pages, the chunk store, the embedding
// matrix (via sqlite-vec), and the BM25 artifact. Everything here is
// built once at ingest time and shared, unlocked, across concurrent
// queries (spec §5).
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// Document is a row in the documents table.
type Document struct {
	DocID       string
	SourcePath  string
	ContentHash string
	NumPages    int
	Status      string
}

// Page is a row in the pages table.
type Page struct {
	DocID      string
	PageNumber int
	RawText    string
	CleanText  string
}

// Store wraps the SQLite database backing a stdreason index.
type Store struct {
	db           *sql.DB
	embeddingDim int
}

// New opens (or creates) a SQLite database at dbPath and applies the
// schema and any pending migrations.
func New(dbPath string, embeddingDim int) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if _, err := db.Exec(schemaSQL(embeddingDim)); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying migrations: %w", err)
	}

	return &Store{db: db, embeddingDim: embeddingDim}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertDocument inserts or replaces a document row.
func (s *Store) UpsertDocument(ctx context.Context, d Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (doc_id, source_path, content_hash, num_pages, status)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			source_path = excluded.source_path,
			content_hash = excluded.content_hash,
			num_pages = excluded.num_pages,
			status = excluded.status,
			updated_at = CURRENT_TIMESTAMP
	`, d.DocID, d.SourcePath, d.ContentHash, d.NumPages, d.Status)
	if err != nil {
		return fmt.Errorf("upserting document: %w", err)
	}
	return nil
}

// GetDocument returns a document by ID.
func (s *Store) GetDocument(ctx context.Context, docID string) (Document, error) {
	var d Document
	row := s.db.QueryRowContext(ctx, `
		SELECT doc_id, source_path, content_hash, num_pages, status
		FROM documents WHERE doc_id = ?
	`, docID)
	if err := row.Scan(&d.DocID, &d.SourcePath, &d.ContentHash, &d.NumPages, &d.Status); err != nil {
		return Document{}, fmt.Errorf("getting document %s: %w", docID, err)
	}
	return d, nil
}

// ListDocuments returns all ingested documents.
func (s *Store) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, source_path, content_hash, num_pages, status FROM documents
		ORDER BY doc_id
	`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.DocID, &d.SourcePath, &d.ContentHash, &d.NumPages, &d.Status); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document and all associated pages, chunks,
// and embeddings.
func (s *Store) DeleteDocument(ctx context.Context, docID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM vec_chunks WHERE vector_id IN (SELECT vector_id FROM chunk_store WHERE doc_id = ?)
	`, docID); err != nil {
		return fmt.Errorf("deleting embeddings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunk_store WHERE doc_id = ?`, docID); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE doc_id = ?`, docID); err != nil {
		return fmt.Errorf("deleting pages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE doc_id = ?`, docID); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return tx.Commit()
}

// InsertPages replaces all pages for a document.
func (s *Store) InsertPages(ctx context.Context, docID string, pages []Page) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning page insert: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE doc_id = ?`, docID); err != nil {
		return fmt.Errorf("clearing old pages: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pages (doc_id, page_number, raw_text, clean_text) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing page insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range pages {
		if _, err := stmt.ExecContext(ctx, docID, p.PageNumber, p.RawText, p.CleanText); err != nil {
			return fmt.Errorf("inserting page %d: %w", p.PageNumber, err)
		}
	}
	return tx.Commit()
}

// GetPages returns all pages for a document ordered by page number.
func (s *Store) GetPages(ctx context.Context, docID string) ([]Page, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, page_number, raw_text, clean_text FROM pages
		WHERE doc_id = ? ORDER BY page_number
	`, docID)
	if err != nil {
		return nil, fmt.Errorf("listing pages: %w", err)
	}
	defer rows.Close()

	var pages []Page
	for rows.Next() {
		var p Page
		if err := rows.Scan(&p.DocID, &p.PageNumber, &p.RawText, &p.CleanText); err != nil {
			return nil, fmt.Errorf("scanning page: %w", err)
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// LogQuery records a question/answer pair for audit purposes.
func (s *Store) LogQuery(ctx context.Context, question, answer string, isRefusal bool, refusalReason string, citationCount int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO query_log (question, answer, is_refusal, refusal_reason, citation_count)
		VALUES (?, ?, ?, ?, ?)
	`, question, answer, boolToInt(isRefusal), refusalReason, citationCount)
	if err != nil {
		return fmt.Errorf("logging query: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
