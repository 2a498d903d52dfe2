package eval

import (
	"sort"
	"strconv"
	"strings"
)

// sortQuestionsByQID orders questions in deterministic qid order,
// numeric-aware so that "q2" sorts before "q10" (spec §4.9).
func sortQuestionsByQID(questions []LabeledQuestion) {
	sort.SliceStable(questions, func(i, j int) bool {
		return lessQID(questions[i].QID, questions[j].QID)
	})
}

// lessQID compares two qid strings by splitting into alternating
// non-digit/digit runs and comparing digit runs numerically.
func lessQID(a, b string) bool {
	aParts := splitQIDRuns(a)
	bParts := splitQIDRuns(b)
	for i := 0; i < len(aParts) && i < len(bParts); i++ {
		ap, bp := aParts[i], bParts[i]
		an, aErr := strconv.Atoi(ap)
		bn, bErr := strconv.Atoi(bp)
		if aErr == nil && bErr == nil {
			if an != bn {
				return an < bn
			}
			continue
		}
		if ap != bp {
			return ap < bp
		}
	}
	return len(aParts) < len(bParts)
}

func splitQIDRuns(s string) []string {
	var parts []string
	var cur strings.Builder
	var curIsDigit bool
	for i, r := range s {
		isDigit := r >= '0' && r <= '9'
		if i > 0 && isDigit != curIsDigit {
			parts = append(parts, cur.String())
			cur.Reset()
		}
		cur.WriteRune(r)
		curIsDigit = isDigit
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}
