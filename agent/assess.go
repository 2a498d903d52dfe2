package agent

import (
	"regexp"
	"strings"

	"github.com/bbiangul/stdreason/retrieval"
)

var anchorRe = regexp.MustCompile(`(?i)\bAlgorithm \d+\b|\bTable \d+\b|\bSection \d+(\.\d+)*\b`)

var anchorKeywords = []string{"keygen", "encaps", "decaps", "shake128", "shake256", "xof"}

// questionAnchors returns the anchor substrings present in the question,
// in the order they appear: regex anchors first, then keyword anchors.
func questionAnchors(question string) []string {
	var anchors []string
	for _, m := range anchorRe.FindAllString(question, -1) {
		anchors = append(anchors, m)
	}
	lower := strings.ToLower(question)
	for _, kw := range anchorKeywords {
		if strings.Contains(lower, kw) {
			anchors = append(anchors, kw)
		}
	}
	return anchors
}

func evidenceContainsAnchor(evidence []retrieval.ChunkHit, anchors []string) bool {
	for _, h := range evidence {
		lowerText := strings.ToLower(h.Text)
		for _, a := range anchors {
			if strings.Contains(lowerText, strings.ToLower(a)) {
				return true
			}
		}
	}
	return false
}

func distinctDocCount(evidence []retrieval.ChunkHit) int {
	docs := make(map[string]bool)
	for _, h := range evidence {
		docs[h.DocID] = true
	}
	return len(docs)
}

// assess computes evidence sufficiency per the three rules of §4.8,
// returning (sufficient, primaryStopReason). Rule priority on failure:
// insufficient_hits > anchor_missing > compare_doc_diversity_missing.
func assess(question string, plan Plan, evidence []retrieval.ChunkHit, minEvidenceHits int) (bool, StopReason) {
	if len(evidence) < minEvidenceHits {
		return false, StopInsufficientHits
	}

	if anchors := questionAnchors(question); len(anchors) > 0 {
		if !evidenceContainsAnchor(evidence, anchors) {
			return false, StopAnchorMissing
		}
	}

	if plan.Action == ActionRetrieveCompare {
		if distinctDocCount(evidence) < 2 {
			return false, StopCompareDocDiversityMiss
		}
	}

	return true, StopSufficientEvidence
}
