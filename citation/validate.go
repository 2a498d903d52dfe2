package citation

import (
	"regexp"
	"strconv"
	"strings"
)

var refusalVariants = []string{
	CanonicalRefusal,
	"not found",
	"not found in documents",
}

func isRefusalText(text string) bool {
	lowered := strings.ToLower(strings.TrimSpace(text))
	for _, v := range refusalVariants {
		if lowered == v {
			return true
		}
	}
	return false
}

// bracketGroupRe matches a full [...] bracket group.
var bracketGroupRe = regexp.MustCompile(`\[([^\[\]]*)\]`)

// citationKeyRe matches a "c<digits>" token, case-insensitive.
var citationKeyRe = regexp.MustCompile(`(?i)c(\d+)`)

// extractCitationKeys returns the lowercase "c<N>" keys found in text,
// from bracketed groups like [c1], [c1][c2], [c1, c2], [C3].
func extractCitationKeys(text string) []string {
	var keys []string
	for _, group := range bracketGroupRe.FindAllStringSubmatch(text, -1) {
		for _, m := range citationKeyRe.FindAllStringSubmatch(group[1], -1) {
			keys = append(keys, "c"+m[1])
		}
	}
	return keys
}

// sentenceBoundaryRe segments sentences on [.?!] followed by whitespace.
var sentenceBoundaryRe = regexp.MustCompile(`[.?!]\s+`)

func splitSentences(text string) []string {
	parts := sentenceBoundaryRe.Split(strings.TrimSpace(text), -1)
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// validateAndAssemble implements the validation rules of §4.7: reject to
// canonical refusal if no keys are used, any used key is unassigned, or
// any sentence has zero recognized keys. On acceptance, citations are
// filtered to keys appearing in the text, ordered by ascending numeric
// suffix.
func validateAndAssemble(draft string, assigned []Citation) (AnswerResult, bool) {
	trimmed := strings.TrimSpace(draft)
	if isRefusalText(trimmed) {
		return refusal(), true
	}

	assignedKeys := make(map[string]Citation, len(assigned))
	for _, c := range assigned {
		assignedKeys[c.Key] = c
	}

	usedKeys := extractCitationKeys(trimmed)
	if len(usedKeys) == 0 {
		return AnswerResult{}, false
	}
	for _, k := range usedKeys {
		if _, ok := assignedKeys[k]; !ok {
			return AnswerResult{}, false
		}
	}

	for _, sentence := range splitSentences(trimmed) {
		if len(extractCitationKeys(sentence)) == 0 {
			return AnswerResult{}, false
		}
	}

	usedSet := make(map[string]bool, len(usedKeys))
	for _, k := range usedKeys {
		usedSet[k] = true
	}
	var finalCitations []Citation
	for _, c := range assigned {
		if usedSet[c.Key] {
			finalCitations = append(finalCitations, c)
		}
	}
	sortCitationsByNumericKey(finalCitations)

	return AnswerResult{AnswerText: trimmed, Citations: finalCitations, IsRefusal: false}, true
}

func sortCitationsByNumericKey(cs []Citation) {
	for i := 1; i < len(cs); i++ {
		for j := i; j > 0 && citationKeyNum(cs[j-1].Key) > citationKeyNum(cs[j].Key); j-- {
			cs[j-1], cs[j] = cs[j], cs[j-1]
		}
	}
}

func citationKeyNum(key string) int {
	n, _ := strconv.Atoi(strings.TrimPrefix(strings.ToLower(key), "c"))
	return n
}
