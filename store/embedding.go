package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/bbiangul/stdreason/chunker"
)

// serializeFloat32 packs a float32 vector into the little-endian byte
// layout sqlite-vec's vec0 virtual table expects for a float[N] column.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// EmbeddingRow is one row of the embedding store: a chunk's metadata
// aligned with its unit-normalized embedding vector by contiguous
// VectorID.
type EmbeddingRow struct {
	VectorID  int64
	ChunkID   string
	DocID     string
	StartPage int
	EndPage   int
	Text      string
	CharLen   int
}

// Manifest describes the persisted embedding matrix.
type Manifest struct {
	ModelName  string
	NVectors   int
	Dim        int
	Normalized bool
}

// ErrRowMisalignment is an integrity error: the number of chunks with
// non-empty text did not match the number of vectors returned by the
// embedder. This must never be masked (spec §7): it aborts the build.
// A non-contiguous vector_id is reported by PersistEmbeddings as a
// separate error that aborts the build the same way.
type ErrRowMisalignment struct {
	NChunks, NVectors int
}

func (e *ErrRowMisalignment) Error() string {
	return fmt.Sprintf("store: embedding row misalignment: %d chunks, %d vectors", e.NChunks, e.NVectors)
}

// BuildEmbeddingStore builds the row-aligned texts and store rows for
// chunks, skipping chunks whose trimmed text is empty and assigning
// contiguous vector_ids starting at 0 in input order (spec §4.3). It
// writes nothing to the database: callers embed the returned texts with
// the external embedder, so that vectors[i] corresponds to texts[i], and
// pass rows and vectors to PersistEmbeddings.
func BuildEmbeddingStore(chunks []chunker.Chunk) (texts []string, rows []EmbeddingRow) {
	var vectorID int64
	for _, c := range chunks {
		trimmed := c.Text
		if len(trimmedNonSpace(trimmed)) == 0 {
			continue
		}
		rows = append(rows, EmbeddingRow{
			VectorID:  vectorID,
			ChunkID:   c.ChunkID,
			DocID:     c.DocID,
			StartPage: c.StartPage,
			EndPage:   c.EndPage,
			Text:      c.Text,
			CharLen:   c.CharLen,
		})
		texts = append(texts, c.Text)
		vectorID++
	}
	return texts, rows
}

func trimmedNonSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpaceByte(s[start]) {
		start++
	}
	for end > start && isSpaceByte(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// PersistEmbeddings writes rows and their row-aligned unit-normalized
// vectors into chunk_store and vec_chunks, plus the manifest. It fails
// fast with ErrRowMisalignment if len(rows) != len(vectors), and with a
// non-contiguous vector_id error if any vector_id is not contiguous from
// 0 — these are integrity violations that must abort ingestion rather
// than silently degrade retrieval.
func (s *Store) PersistEmbeddings(ctx context.Context, rows []EmbeddingRow, vectors [][]float32, modelName string) error {
	if len(rows) != len(vectors) {
		return &ErrRowMisalignment{NChunks: len(rows), NVectors: len(vectors)}
	}
	for i, r := range rows {
		if r.VectorID != int64(i) {
			return fmt.Errorf("store: non-contiguous vector_id at index %d: got %d", i, r.VectorID)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning embedding persist: %w", err)
	}
	defer tx.Rollback()

	chunkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunk_store (vector_id, chunk_id, doc_id, start_page, end_page, text, char_len, token_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing chunk_store insert: %w", err)
	}
	defer chunkStmt.Close()

	vecStmt, err := tx.PrepareContext(ctx, `INSERT INTO vec_chunks (vector_id, embedding) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing vec_chunks insert: %w", err)
	}
	defer vecStmt.Close()

	for i, r := range rows {
		vec := normalizeL2(vectors[i])
		if len(vec) != s.embeddingDim {
			return fmt.Errorf("store: embedding dim mismatch for chunk %s: got %d, want %d", r.ChunkID, len(vec), s.embeddingDim)
		}
		tokenCount := estimateTokenCount(r.Text)
		if _, err := chunkStmt.ExecContext(ctx, r.VectorID, r.ChunkID, r.DocID, r.StartPage, r.EndPage, r.Text, r.CharLen, tokenCount); err != nil {
			return fmt.Errorf("inserting chunk_store row %d: %w", r.VectorID, err)
		}
		blob := serializeFloat32(vec)
		if _, err := vecStmt.ExecContext(ctx, r.VectorID, blob); err != nil {
			return fmt.Errorf("inserting vec_chunks row %d: %w", r.VectorID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM embedding_manifest`); err != nil {
		return fmt.Errorf("clearing manifest: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO embedding_manifest (model_name, n_vectors, dim, normalized) VALUES (?, ?, ?, 1)
	`, modelName, len(rows), s.embeddingDim); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}

	return tx.Commit()
}

func estimateTokenCount(text string) int {
	words := 0
	inWord := false
	for _, r := range text {
		if r == ' ' || r == '\n' || r == '\t' || r == '\r' {
			inWord = false
			continue
		}
		if !inWord {
			words++
			inWord = true
		}
	}
	return int(math.Ceil(float64(words) * 1.3))
}

// normalizeL2 returns a unit-L2-normalized copy of v. A zero vector is
// returned unchanged (its norm is already 0, so no direction exists).
func normalizeL2(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	norm := float32(math.Sqrt(sumSq))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

// GetManifest returns the embedding manifest, or an error if no
// embedding store has been built yet.
func (s *Store) GetManifest(ctx context.Context) (Manifest, error) {
	var m Manifest
	var normalized int
	row := s.db.QueryRowContext(ctx, `SELECT model_name, n_vectors, dim, normalized FROM embedding_manifest LIMIT 1`)
	if err := row.Scan(&m.ModelName, &m.NVectors, &m.Dim, &normalized); err != nil {
		return Manifest{}, fmt.Errorf("reading embedding manifest: %w", err)
	}
	m.Normalized = normalized != 0
	return m, nil
}

// VectorSearch runs an inner-product-equivalent ANN search over
// unit-normalized vectors: for unit vectors, cosine similarity relates to
// squared L2 distance by cos = 1 - d²/2, so ordering by ascending L2
// distance is equivalent to ordering by descending cosine similarity.
func (s *Store) VectorSearch(ctx context.Context, queryVec []float32, k int) ([]ChunkHit, error) {
	if k <= 0 {
		return nil, nil
	}
	blob := serializeFloat32(normalizeL2(queryVec))

	rows, err := s.db.QueryContext(ctx, `
		SELECT v.vector_id, v.distance, c.chunk_id, c.doc_id, c.start_page, c.end_page, c.text
		FROM vec_chunks v
		JOIN chunk_store c ON c.vector_id = v.vector_id
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance
	`, blob, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var hits []ChunkHit
	for rows.Next() {
		var vectorID int64
		var distance float64
		var h ChunkHit
		if err := rows.Scan(&vectorID, &distance, &h.ChunkID, &h.DocID, &h.StartPage, &h.EndPage, &h.Text); err != nil {
			return nil, fmt.Errorf("scanning vector search row: %w", err)
		}
		h.VectorID = vectorID
		h.Score = 1 - (distance*distance)/2
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// ChunkHit is a transient retrieval result.
type ChunkHit struct {
	Score     float64
	ChunkID   string
	DocID     string
	StartPage int
	EndPage   int
	Text      string
	VectorID  int64
}

// GetChunkByID returns a chunk_store row by chunk_id.
func (s *Store) GetChunkByID(ctx context.Context, chunkID string) (EmbeddingRow, error) {
	var r EmbeddingRow
	row := s.db.QueryRowContext(ctx, `
		SELECT vector_id, chunk_id, doc_id, start_page, end_page, text, char_len
		FROM chunk_store WHERE chunk_id = ?
	`, chunkID)
	if err := row.Scan(&r.VectorID, &r.ChunkID, &r.DocID, &r.StartPage, &r.EndPage, &r.Text, &r.CharLen); err != nil {
		return EmbeddingRow{}, fmt.Errorf("getting chunk %s: %w", chunkID, err)
	}
	return r, nil
}

// GetNeighborChunks returns the chunk_store rows of docID whose vector_id
// lies within ±window of vectorID, excluding that row itself, ordered by
// vector_id (used by the citation enforcer's neighbor expansion, spec
// §4.7).
func (s *Store) GetNeighborChunks(ctx context.Context, docID string, vectorID int64, window int) ([]EmbeddingRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT vector_id, chunk_id, doc_id, start_page, end_page, text, char_len
		FROM chunk_store
		WHERE doc_id = ? AND vector_id BETWEEN ? AND ? AND vector_id != ?
		ORDER BY vector_id
	`, docID, vectorID-int64(window), vectorID+int64(window), vectorID)
	if err != nil {
		return nil, fmt.Errorf("getting neighbor chunks: %w", err)
	}
	defer rows.Close()

	var out []EmbeddingRow
	for rows.Next() {
		var r EmbeddingRow
		if err := rows.Scan(&r.VectorID, &r.ChunkID, &r.DocID, &r.StartPage, &r.EndPage, &r.Text, &r.CharLen); err != nil {
			return nil, fmt.Errorf("scanning neighbor chunk: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AllChunks returns every chunk_store row ordered by vector_id — the
// deterministic base for building a BM25 artifact (spec §3, docs sorted
// by vector_id).
func (s *Store) AllChunks(ctx context.Context) ([]EmbeddingRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT vector_id, chunk_id, doc_id, start_page, end_page, text, char_len
		FROM chunk_store ORDER BY vector_id
	`)
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}
	defer rows.Close()

	var out []EmbeddingRow
	for rows.Next() {
		var r EmbeddingRow
		if err := rows.Scan(&r.VectorID, &r.ChunkID, &r.DocID, &r.StartPage, &r.EndPage, &r.Text, &r.CharLen); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
