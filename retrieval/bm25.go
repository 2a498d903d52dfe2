package retrieval

import (
	"math"
	"sort"

	"github.com/bbiangul/stdreason/store"
)

// ChunkHit is a retrieval result shared by the vector, BM25, and fusion
// stages.
type ChunkHit = store.ChunkHit

// BM25Config holds the Okapi BM25 scoring constants.
type BM25Config struct {
	K1 float64
	B  float64
}

// DefaultBM25Config returns the standard Okapi BM25 defaults.
func DefaultBM25Config() BM25Config {
	return BM25Config{K1: 1.5, B: 0.75}
}

// BM25Index is an in-memory inverted index built from a store.BM25Artifact,
// ready for scoring and ad-hoc text scoring (spec §4.5).
type BM25Index struct {
	cfg      BM25Config
	docs     []store.BM25Doc
	docLens  []int
	idf      map[string]float64
	postings map[string][]store.BM25Posting
	avgdl    float64
}

// NewBM25Index loads a persisted artifact into a queryable index.
func NewBM25Index(a *store.BM25Artifact) *BM25Index {
	return &BM25Index{
		cfg:      BM25Config{K1: a.K1, B: a.B},
		docs:     a.Docs,
		docLens:  a.DocLens,
		idf:      a.IDF,
		postings: a.Postings,
		avgdl:    a.AvgDL,
	}
}

// BuildBM25Artifact constructs a persistable BM25Artifact from chunk rows,
// ordering its docs by vector_id (spec §3: "docs sorted by vector_id").
func BuildBM25Artifact(rows []store.EmbeddingRow, cfg BM25Config) *store.BM25Artifact {
	rows = append([]store.EmbeddingRow(nil), rows...)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].VectorID < rows[j].VectorID })

	docFreq := make(map[string]int)
	postings := make(map[string][]store.BM25Posting)
	docLens := make([]int, len(rows))
	docs := make([]store.BM25Doc, len(rows))

	for i, r := range rows {
		tokens := tokenize(r.Text)
		tf := make(map[string]int, len(tokens))
		for _, t := range tokens {
			tf[t]++
		}
		docLens[i] = len(tokens)
		docs[i] = store.BM25Doc{
			ChunkID:   r.ChunkID,
			DocID:     r.DocID,
			StartPage: r.StartPage,
			EndPage:   r.EndPage,
			Text:      r.Text,
			VectorID:  r.VectorID,
		}
		for term, freq := range tf {
			docFreq[term]++
			postings[term] = append(postings[term], store.BM25Posting{DocIdx: i, Freq: float64(freq)})
		}
	}

	nDocs := len(docs)
	var sumLens int
	for _, l := range docLens {
		sumLens += l
	}
	avgdl := 0.0
	if nDocs > 0 {
		avgdl = float64(sumLens) / float64(nDocs)
	}

	idf := make(map[string]float64, len(docFreq))
	for term, df := range docFreq {
		idf[term] = math.Log(1.0 + (float64(nDocs)-float64(df)+0.5)/(float64(df)+0.5))
	}

	return &store.BM25Artifact{
		Version:   1,
		Tokenizer: "regex_compound_v1",
		K1:        cfg.K1,
		B:         cfg.B,
		NDocs:     nDocs,
		AvgDL:     avgdl,
		DocLens:   docLens,
		IDF:       idf,
		Postings:  postings,
		Docs:      docs,
	}
}

// Search ranks documents by Okapi BM25 score against query, returning the
// top k hits sorted by descending score with ties broken by ascending
// doc_idx (spec §4.5).
func (idx *BM25Index) Search(query string, k int) []ChunkHit {
	if k <= 0 || len(idx.docs) == 0 {
		return nil
	}
	qTokens := tokenize(query)
	qTF := make(map[string]int, len(qTokens))
	for _, t := range qTokens {
		qTF[t]++
	}

	scores := make(map[int]float64)
	for term, qtf := range qTF {
		idfVal, ok := idx.idf[term]
		if !ok {
			continue
		}
		for _, p := range idx.postings[term] {
			dl := float64(idx.docLens[p.DocIdx])
			denom := p.Freq + idx.cfg.K1*(1-idx.cfg.B+idx.cfg.B*dl/idx.avgdl)
			score := idfVal * (p.Freq * (idx.cfg.K1 + 1)) / denom * float64(qtf)
			scores[p.DocIdx] += score
		}
	}

	type scored struct {
		docIdx int
		score  float64
	}
	ranked := make([]scored, 0, len(scores))
	for docIdx, s := range scores {
		ranked = append(ranked, scored{docIdx, s})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].docIdx < ranked[j].docIdx
	})
	if len(ranked) > k {
		ranked = ranked[:k]
	}

	hits := make([]ChunkHit, len(ranked))
	for i, r := range ranked {
		d := idx.docs[r.docIdx]
		hits[i] = ChunkHit{
			Score:     r.score,
			ChunkID:   d.ChunkID,
			DocID:     d.DocID,
			StartPage: d.StartPage,
			EndPage:   d.EndPage,
			Text:      d.Text,
			VectorID:  d.VectorID,
		}
	}
	return hits
}

// ScoreText computes the BM25 score of query against an arbitrary text
// using the index's idf/avgdl/k1/b, independent of whether text is in the
// index. Used by the lexical reranker (spec §4.6).
func (idx *BM25Index) ScoreText(query, text string) float64 {
	qTokens := tokenize(query)
	qTF := make(map[string]int, len(qTokens))
	for _, t := range qTokens {
		qTF[t]++
	}

	dTokens := tokenize(text)
	dTF := make(map[string]int, len(dTokens))
	for _, t := range dTokens {
		dTF[t]++
	}
	dl := float64(len(dTokens))

	var score float64
	for term, qtf := range qTF {
		idfVal, ok := idx.idf[term]
		if !ok {
			continue
		}
		tf := float64(dTF[term])
		if tf == 0 {
			continue
		}
		denom := tf + idx.cfg.K1*(1-idx.cfg.B+idx.cfg.B*dl/idx.avgdl)
		score += idfVal * (tf * (idx.cfg.K1 + 1)) / denom * float64(qtf)
	}
	return score
}
