package retrieval

import (
	"testing"

	"github.com/bbiangul/stdreason/store"
)

func sampleRows() []store.EmbeddingRow {
	return []store.EmbeddingRow{
		{VectorID: 0, ChunkID: "c0", DocID: "D", StartPage: 1, EndPage: 1, Text: "ML-KEM.KeyGen generates a public and private key pair for key encapsulation."},
		{VectorID: 1, ChunkID: "c1", DocID: "D", StartPage: 2, EndPage: 2, Text: "ML-DSA.Sign produces a digital signature over the message using the private key."},
		{VectorID: 2, ChunkID: "c2", DocID: "D", StartPage: 3, EndPage: 3, Text: "The hash function SHA3-256 is used throughout this standard for domain separation."},
	}
}

func TestBM25SearchRanksRelevantDocHigher(t *testing.T) {
	rows := sampleRows()
	artifact := BuildBM25Artifact(rows, DefaultBM25Config())
	idx := NewBM25Index(artifact)

	hits := idx.Search("key generation keygen", 3)
	if len(hits) == 0 {
		t.Fatal("expected hits")
	}
	if hits[0].ChunkID != "c0" {
		t.Errorf("expected c0 (KeyGen chunk) ranked first, got %s", hits[0].ChunkID)
	}
}

func TestBM25SearchTiesBreakByDocIdx(t *testing.T) {
	rows := []store.EmbeddingRow{
		{VectorID: 0, ChunkID: "c0", DocID: "D", Text: "alpha"},
		{VectorID: 1, ChunkID: "c1", DocID: "D", Text: "alpha"},
	}
	artifact := BuildBM25Artifact(rows, DefaultBM25Config())
	idx := NewBM25Index(artifact)

	hits := idx.Search("alpha", 2)
	if len(hits) != 2 || hits[0].ChunkID != "c0" || hits[1].ChunkID != "c1" {
		t.Errorf("expected tie broken by ascending doc_idx, got %+v", hits)
	}
}

func TestBM25SearchNoMatchReturnsEmpty(t *testing.T) {
	rows := sampleRows()
	artifact := BuildBM25Artifact(rows, DefaultBM25Config())
	idx := NewBM25Index(artifact)

	hits := idx.Search("nonexistent term zzz", 3)
	if len(hits) != 0 {
		t.Errorf("expected no hits for unmatched query, got %d", len(hits))
	}
}

func TestScoreTextAgainstArbitraryText(t *testing.T) {
	rows := sampleRows()
	artifact := BuildBM25Artifact(rows, DefaultBM25Config())
	idx := NewBM25Index(artifact)

	s1 := idx.ScoreText("digital signature", "ML-DSA.Sign produces a digital signature")
	s2 := idx.ScoreText("digital signature", "unrelated text about hashing")
	if s1 <= s2 {
		t.Errorf("expected relevant text to score higher: %f vs %f", s1, s2)
	}
}

func TestBuildBM25ArtifactSortsDocsByVectorID(t *testing.T) {
	rows := sampleRows()
	artifact := BuildBM25Artifact(rows, DefaultBM25Config())
	for i, d := range artifact.Docs {
		if d.VectorID != int64(i) {
			t.Errorf("doc %d has vector_id %d, want %d", i, d.VectorID, i)
		}
	}
}
