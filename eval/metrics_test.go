package eval

import (
	"testing"

	"github.com/bbiangul/stdreason/retrieval"
)

func sampleGold() []GoldSpan {
	return []GoldSpan{{DocID: "D1", StartPage: 3, EndPage: 3}, {DocID: "D2", StartPage: 5, EndPage: 6}}
}

func TestRecallAtKCountsEachGoldAtMostOnce(t *testing.T) {
	hits := []retrieval.ChunkHit{
		{DocID: "D1", StartPage: 3, EndPage: 3},
		{DocID: "D1", StartPage: 3, EndPage: 3}, // duplicate match, must not double count
		{DocID: "D2", StartPage: 5, EndPage: 5},
	}
	recall := recallAtK(hits, sampleGold(), 10, matchesGold)
	if recall != 1.0 {
		t.Errorf("expected full recall, got %f", recall)
	}
}

func TestRecallAtKPartialMatch(t *testing.T) {
	hits := []retrieval.ChunkHit{{DocID: "D1", StartPage: 3, EndPage: 3}}
	recall := recallAtK(hits, sampleGold(), 10, matchesGold)
	if recall != 0.5 {
		t.Errorf("expected 0.5 recall, got %f", recall)
	}
}

func TestMRRAtKReturnsInverseRankOfFirstMatch(t *testing.T) {
	hits := []retrieval.ChunkHit{
		{DocID: "X", StartPage: 1, EndPage: 1},
		{DocID: "D1", StartPage: 3, EndPage: 3},
	}
	mrr := mrrAtK(hits, sampleGold(), 10, matchesGold)
	if mrr != 0.5 {
		t.Errorf("expected mrr 0.5 for a match at rank 2, got %f", mrr)
	}
}

func TestMRRAtKZeroWhenNoMatch(t *testing.T) {
	hits := []retrieval.ChunkHit{{DocID: "X", StartPage: 1, EndPage: 1}}
	mrr := mrrAtK(hits, sampleGold(), 10, matchesGold)
	if mrr != 0 {
		t.Errorf("expected mrr 0, got %f", mrr)
	}
}

func TestNDCGAtKPerfectOrderingScoresOne(t *testing.T) {
	hits := []retrieval.ChunkHit{
		{DocID: "D1", StartPage: 3, EndPage: 3},
		{DocID: "D2", StartPage: 5, EndPage: 6},
	}
	ndcg := ndcgAtK(hits, sampleGold(), 10, matchesGold)
	if ndcg != 1.0 {
		t.Errorf("expected ndcg 1.0 for ideal ordering, got %f", ndcg)
	}
}

func TestNDCGAtKPenalizesLateMatch(t *testing.T) {
	hits := []retrieval.ChunkHit{
		{DocID: "X", StartPage: 1, EndPage: 1},
		{DocID: "D1", StartPage: 3, EndPage: 3},
		{DocID: "D2", StartPage: 5, EndPage: 6},
	}
	ndcg := ndcgAtK(hits, sampleGold(), 3, matchesGold)
	if ndcg <= 0 || ndcg >= 1.0 {
		t.Errorf("expected ndcg strictly between 0 and 1 for a delayed match, got %f", ndcg)
	}
}

func TestMatchesGoldDocOnlyIgnoresPages(t *testing.T) {
	hit := retrieval.ChunkHit{DocID: "D1", StartPage: 99, EndPage: 99}
	if !matchesGoldDocOnly(hit, GoldSpan{DocID: "D1", StartPage: 3, EndPage: 3}) {
		t.Error("expected doc-only match to ignore page mismatch")
	}
}

func TestMatchesGoldNearPageExtendsTolerance(t *testing.T) {
	hit := retrieval.ChunkHit{DocID: "D1", StartPage: 4, EndPage: 4}
	if matchesGold(hit, GoldSpan{DocID: "D1", StartPage: 1, EndPage: 2}) {
		t.Fatal("exact match should not match a disjoint page")
	}
	if !matchesGoldNearPage(hit, GoldSpan{DocID: "D1", StartPage: 1, EndPage: 2}, 2) {
		t.Error("expected near-page match within tolerance")
	}
}
