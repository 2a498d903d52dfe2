package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/bbiangul/stdreason/llm"
	"github.com/bbiangul/stdreason/store"
)

// ErrNotIndexed is returned by Search when the store has no built chunk
// store / vector index / BM25 artifact to query — e.g. a freshly opened
// database before any document has been ingested. Callers map this to
// the missing-artifact error kind (spec §7).
var ErrNotIndexed = errors.New("retrieval: no chunks indexed")

// HybridConfig configures hybrid_search (spec §4.6).
type HybridConfig struct {
	TopK                int
	CandidateMultiplier int
	K0                  float64
	FusionEnabled       bool
	RerankEnabled       bool
	RerankPool          int
	MaxHitsPerPage      int
	DomainRewrites      []domainRewrite
	// Mode is "hybrid" (vector + BM25 fused per variant) or "base" (the
	// single chosen backend only, still fused across variants by RRF).
	Mode string
}

// DefaultHybridConfig returns sensible defaults.
func DefaultHybridConfig() HybridConfig {
	return HybridConfig{
		TopK:                10,
		CandidateMultiplier: 4,
		K0:                  60,
		FusionEnabled:       true,
		RerankEnabled:       true,
		RerankPool:          30,
		MaxHitsPerPage:      1,
		Mode:                "hybrid",
	}
}

// Engine performs hybrid retrieval combining the vector and BM25 backends
// across query variants, fused with RRF and optionally lexically
// reranked (spec §4.4-§4.6).
type Engine struct {
	store    *store.Store
	embedder llm.Provider
	bm25     *BM25Index
	cfg      HybridConfig
}

// NewEngine constructs a hybrid retrieval engine. bm25 must be built from
// the same chunk store via BuildBM25Artifact/NewBM25Index.
func NewEngine(s *store.Store, embedder llm.Provider, bm25 *BM25Index, cfg HybridConfig) *Engine {
	if cfg.TopK <= 0 {
		cfg.TopK = 10
	}
	if cfg.K0 <= 0 {
		cfg.K0 = 60
	}
	if cfg.CandidateMultiplier <= 0 {
		cfg.CandidateMultiplier = 4
	}
	if cfg.MaxHitsPerPage <= 0 {
		cfg.MaxHitsPerPage = 1
	}
	if cfg.Mode != "base" {
		cfg.Mode = "hybrid"
	}
	return &Engine{store: s, embedder: embedder, bm25: bm25, cfg: cfg}
}

// CheckReady reports ErrNotIndexed if the store has no ingested chunks, or
// if hybrid mode is configured but no BM25 artifact has been built yet.
// Callers use this to fail fast with a missing-artifact error instead of
// reaching into Search's internals (spec §7).
func (e *Engine) CheckReady(ctx context.Context) error {
	if _, err := e.store.GetManifest(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrNotIndexed, err)
	}
	if e.cfg.Mode != "base" && e.bm25 == nil {
		return ErrNotIndexed
	}
	return nil
}

// Search runs hybrid_search per spec §4.6, or the base (single-backend)
// path when cfg.Mode == "base" (spec §4.6 "Base (non-hybrid) path").
func (e *Engine) Search(ctx context.Context, query string) ([]ChunkHit, error) {
	if err := e.CheckReady(ctx); err != nil {
		return nil, err
	}

	useBM25 := e.cfg.Mode != "base"

	variants := []string{strings.TrimSpace(query)}
	if e.cfg.FusionEnabled {
		variants = QueryVariants(query, e.cfg.DomainRewrites)
	}

	candidateK := e.cfg.TopK * e.cfg.CandidateMultiplier
	if candidateK < e.cfg.TopK {
		candidateK = e.cfg.TopK
	}

	var rankings []ranking
	for _, v := range variants {
		vecHits, err := VectorSearch(ctx, e.embedder, e.store, v, candidateK, candidateK*2, e.cfg.MaxHitsPerPage)
		if err != nil {
			slog.Warn("retrieval: vector search failed for variant", "variant", v, "error", err)
		} else if len(vecHits) > 0 {
			rankings = append(rankings, ranking(vecHits))
		}

		if useBM25 {
			bm25Hits := e.bm25.Search(v, candidateK)
			if len(bm25Hits) > 0 {
				rankings = append(rankings, ranking(bm25Hits))
			}
		}
	}

	if len(rankings) == 0 {
		return nil, fmt.Errorf("retrieval: no results from any backend or variant")
	}

	poolSize := e.cfg.TopK
	if e.cfg.RerankEnabled && e.cfg.RerankPool > poolSize {
		poolSize = e.cfg.RerankPool
	}
	pool := fuseRRF(rankings, e.cfg.K0, poolSize)

	if !e.cfg.RerankEnabled {
		if len(pool) > e.cfg.TopK {
			pool = pool[:e.cfg.TopK]
		}
		return pool, nil
	}

	return lexicalRerank(pool, query, e.bm25, e.cfg.TopK), nil
}

// lexicalRerank ranks the fused pool by
// (-has_exact_technical_token, -bm25_score_of_text_against_query, doc_id,
// start_page, chunk_id), truncating to topK (spec §4.6).
func lexicalRerank(pool []ChunkHit, query string, bm25 *BM25Index, topK int) []ChunkHit {
	techToks := technicalTokens(query)

	type scored struct {
		hit       ChunkHit
		hasExact  bool
		bm25Score float64
	}
	scoredPool := make([]scored, len(pool))
	for i, h := range pool {
		lowerText := strings.ToLower(h.Text)
		hasExact := false
		for _, t := range techToks {
			if strings.Contains(lowerText, strings.ToLower(t)) {
				hasExact = true
				break
			}
		}
		var bm25Score float64
		if bm25 != nil {
			bm25Score = bm25.ScoreText(query, h.Text)
		}
		scoredPool[i] = scored{
			hit:       h,
			hasExact:  hasExact,
			bm25Score: bm25Score,
		}
	}

	sort.Slice(scoredPool, func(i, j int) bool {
		a, b := scoredPool[i], scoredPool[j]
		if a.hasExact != b.hasExact {
			return a.hasExact
		}
		if a.bm25Score != b.bm25Score {
			return a.bm25Score > b.bm25Score
		}
		return lessTieBreak(a.hit, b.hit)
	})

	if len(scoredPool) > topK {
		scoredPool = scoredPool[:topK]
	}
	out := make([]ChunkHit, len(scoredPool))
	for i, s := range scoredPool {
		out[i] = s.hit
	}
	return out
}
