package agent

import (
	"testing"

	"github.com/bbiangul/stdreason/retrieval"
)

func TestAssessInsufficientHitsTakesPriority(t *testing.T) {
	ok, reason := assess("What is Algorithm 13?", Plan{}, nil, 1)
	if ok || reason != StopInsufficientHits {
		t.Errorf("got ok=%v reason=%q, want insufficient_hits", ok, reason)
	}
}

func TestAssessAnchorMissing(t *testing.T) {
	evidence := []retrieval.ChunkHit{{ChunkID: "c1", DocID: "D1", Text: "unrelated prose with no anchors"}}
	ok, reason := assess("What does Algorithm 13 compute?", Plan{}, evidence, 1)
	if ok || reason != StopAnchorMissing {
		t.Errorf("got ok=%v reason=%q, want anchor_missing", ok, reason)
	}
}

func TestAssessAnchorPresentSatisfiesRule(t *testing.T) {
	evidence := []retrieval.ChunkHit{{ChunkID: "c1", DocID: "D1", Text: "Algorithm 13 KeyGen proceeds as follows"}}
	ok, reason := assess("What does Algorithm 13 compute?", Plan{}, evidence, 1)
	if !ok || reason != StopSufficientEvidence {
		t.Errorf("got ok=%v reason=%q, want sufficient_evidence", ok, reason)
	}
}

func TestAssessCompareDocDiversityMissing(t *testing.T) {
	evidence := []retrieval.ChunkHit{
		{ChunkID: "c1", DocID: "D1", Text: "ML-KEM details"},
		{ChunkID: "c2", DocID: "D1", Text: "more ML-KEM details"},
	}
	plan := Plan{Action: ActionRetrieveCompare}
	ok, reason := assess("ML-KEM vs ML-DSA", plan, evidence, 1)
	if ok || reason != StopCompareDocDiversityMiss {
		t.Errorf("got ok=%v reason=%q, want compare_doc_diversity_missing", ok, reason)
	}
}

func TestAssessCompareSatisfiedWithTwoDocs(t *testing.T) {
	evidence := []retrieval.ChunkHit{
		{ChunkID: "c1", DocID: "D1", Text: "ML-KEM details"},
		{ChunkID: "c2", DocID: "D2", Text: "ML-DSA details"},
	}
	plan := Plan{Action: ActionRetrieveCompare}
	ok, reason := assess("ML-KEM vs ML-DSA", plan, evidence, 1)
	if !ok || reason != StopSufficientEvidence {
		t.Errorf("got ok=%v reason=%q, want sufficient_evidence", ok, reason)
	}
}

func TestMergeEvidencePreservesFirstOccurrence(t *testing.T) {
	round1 := []retrieval.ChunkHit{{ChunkID: "c1", Score: 0.9}}
	round2 := []retrieval.ChunkHit{{ChunkID: "c1", Score: 0.1}, {ChunkID: "c2", Score: 0.5}}
	merged := mergeEvidence(round1, round2)
	if len(merged) != 2 {
		t.Fatalf("expected 2 merged entries, got %d", len(merged))
	}
	if merged[0].Score != 0.9 {
		t.Errorf("expected first-seen score retained, got %v", merged[0].Score)
	}
}
