package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/bbiangul/stdreason/llm"
	"github.com/bbiangul/stdreason/store"
)

// pageKey identifies a page span within a document for per-page dedup.
type pageKey struct {
	docID     string
	startPage int
	endPage   int
}

// VectorSearch encodes query via embedder and searches the store's ANN
// index, deduplicating by (doc_id, start_page, end_page) to at most
// maxHitsPerPage hits each, and stopping once k are kept (spec §4.4).
func VectorSearch(ctx context.Context, embedder llm.Provider, s *store.Store, query string, k, candidatesK, maxHitsPerPage int) ([]ChunkHit, error) {
	if maxHitsPerPage <= 0 {
		maxHitsPerPage = 1
	}
	want := k
	if candidatesK > want {
		want = candidatesK
	}

	vecs, err := embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embedder returned no vector for query")
	}

	raw, err := s.VectorSearch(ctx, vecs[0], want)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	sortHitsByScoreDesc(raw)

	pageCounts := make(map[pageKey]int)
	kept := make([]ChunkHit, 0, k)
	for _, h := range raw {
		if len(kept) >= k {
			break
		}
		key := pageKey{docID: h.DocID, startPage: h.StartPage, endPage: h.EndPage}
		if pageCounts[key] >= maxHitsPerPage {
			continue
		}
		pageCounts[key]++
		kept = append(kept, h)
	}
	return kept, nil
}

// sortHitsByScoreDesc sorts by descending score, ties broken by ascending
// (doc_id, start_page, chunk_id).
func sortHitsByScoreDesc(hits []ChunkHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].DocID != hits[j].DocID {
			return hits[i].DocID < hits[j].DocID
		}
		if hits[i].StartPage != hits[j].StartPage {
			return hits[i].StartPage < hits[j].StartPage
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
}
