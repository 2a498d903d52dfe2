package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// BM25Posting is one (docIdx, termFrequency) pair for a term.
type BM25Posting struct {
	DocIdx int     `json:"doc_idx"`
	Freq   float64 `json:"freq"`
}

// BM25Doc is one document record in a BM25 artifact, carried alongside
// the postings so the retriever can reconstruct chunk identity without a
// second round trip to chunk_store.
type BM25Doc struct {
	ChunkID   string `json:"chunk_id"`
	DocID     string `json:"doc_id"`
	StartPage int    `json:"start_page"`
	EndPage   int    `json:"end_page"`
	Text      string `json:"text"`
	VectorID  int64  `json:"vector_id"`
}

// BM25Artifact is the persisted Okapi BM25 lexical index: one document
// per chunk, sorted by vector_id, with term postings and inverse document
// frequencies precomputed at build time (spec §3, §4.5).
type BM25Artifact struct {
	Version   int                      `json:"version"`
	Tokenizer string                   `json:"tokenizer"`
	K1        float64                  `json:"k1"`
	B         float64                  `json:"b"`
	NDocs     int                      `json:"n_docs"`
	AvgDL     float64                  `json:"avgdl"`
	DocLens   []int                    `json:"doc_lens"`
	IDF       map[string]float64       `json:"idf"`
	Postings  map[string][]BM25Posting `json:"postings"`
	Docs      []BM25Doc                `json:"docs"`
}

// Save writes the artifact as indented JSON.
func (a *BM25Artifact) Save(path string) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating bm25 artifact directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling bm25 artifact: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing bm25 artifact: %w", err)
	}
	return nil
}

// LoadBM25Artifact reads a previously saved artifact.
func LoadBM25Artifact(path string) (*BM25Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading bm25 artifact: %w", err)
	}
	var a BM25Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("unmarshaling bm25 artifact: %w", err)
	}
	return &a, nil
}
