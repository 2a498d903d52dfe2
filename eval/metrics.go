package eval

import (
	"math"

	"github.com/bbiangul/stdreason/retrieval"
)

// spansOverlap reports whether two inclusive page ranges overlap.
func spansOverlap(aStart, aEnd, bStart, bEnd int) bool {
	return aStart <= bEnd && bStart <= aEnd
}

// matchesGold reports whether hit matches span: doc_id equal and page
// ranges overlap inclusively (spec §4.9 relevance rule).
func matchesGold(hit retrieval.ChunkHit, span GoldSpan) bool {
	return hit.DocID == span.DocID && spansOverlap(hit.StartPage, hit.EndPage, span.StartPage, span.EndPage)
}

// matchesGoldDocOnly ignores page ranges.
func matchesGoldDocOnly(hit retrieval.ChunkHit, span GoldSpan) bool {
	return hit.DocID == span.DocID
}

// matchesGoldNearPage extends the gold span by ±tolerance before the
// overlap check.
func matchesGoldNearPage(hit retrieval.ChunkHit, span GoldSpan, tolerance int) bool {
	return hit.DocID == span.DocID && spansOverlap(hit.StartPage, hit.EndPage, span.StartPage-tolerance, span.EndPage+tolerance)
}

type matchFn func(retrieval.ChunkHit, GoldSpan) bool

// recallAtK computes the fraction of gold spans matched by at least one
// of the top-k hits, each gold counted at most once.
func recallAtK(hits []retrieval.ChunkHit, gold []GoldSpan, k int, match matchFn) float64 {
	if len(gold) == 0 {
		return 0
	}
	top := truncate(hits, k)
	matched := make([]bool, len(gold))
	var n int
	for _, h := range top {
		for gi, g := range gold {
			if matched[gi] {
				continue
			}
			if match(h, g) {
				matched[gi] = true
				n++
			}
		}
	}
	return float64(n) / float64(len(gold))
}

// mrrAtK computes 1/rank of the first top-k hit matching any gold span, 0
// if none.
func mrrAtK(hits []retrieval.ChunkHit, gold []GoldSpan, k int, match matchFn) float64 {
	top := truncate(hits, k)
	for i, h := range top {
		for _, g := range gold {
			if match(h, g) {
				return 1.0 / float64(i+1)
			}
		}
	}
	return 0
}

// ndcgAtK computes binary-gain nDCG with unique-gold accounting: each hit
// earns gain 1 iff it is the first to match some previously unmatched
// gold span.
func ndcgAtK(hits []retrieval.ChunkHit, gold []GoldSpan, k int, match matchFn) float64 {
	if len(gold) == 0 {
		return 0
	}
	top := truncate(hits, k)
	matched := make([]bool, len(gold))

	var dcg float64
	for i, h := range top {
		gain := 0.0
		for gi, g := range gold {
			if matched[gi] {
				continue
			}
			if match(h, g) {
				matched[gi] = true
				gain = 1
				break
			}
		}
		if gain > 0 {
			dcg += gain / math.Log2(float64(i+2))
		}
	}

	idealHits := len(gold)
	if idealHits > k {
		idealHits = k
	}
	var idcg float64
	for i := 0; i < idealHits; i++ {
		idcg += 1.0 / math.Log2(float64(i+2))
	}
	if idcg == 0 {
		return 0
	}
	return dcg / idcg
}

func truncate(hits []retrieval.ChunkHit, k int) []retrieval.ChunkHit {
	if k <= 0 || k >= len(hits) {
		return hits
	}
	return hits[:k]
}
