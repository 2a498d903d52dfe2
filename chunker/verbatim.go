package chunker

import (
	"regexp"
	"strings"
)

var (
	algoStepRe  = regexp.MustCompile(`^\s*\d+\s*[.):]`)
	parenStepRe = regexp.MustCompile(`^\s*\(\d+\)`)
	stepWordRe  = regexp.MustCompile(`(?i)^\s*(?:Step\s+\d+:|Algorithm\s+\d+:|Input|Output|Require|Ensure|Given)\s*:?`)

	mathSymbols = "=<>±×÷∑∏∈∉≈≡≤≥⊕⊗"
)

// isVerbatimish classifies a line as table-like, code/algorithm-like, or
// math-like structure that must not be merged with surrounding prose.
// This mirrors the classification the cleaner package applies while
// smart-joining wrapped prose (spec §4.1), reapplied here at the block
// level so a chunk boundary never collapses a table or algorithm into a
// single-spaced run.
func isVerbatimish(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}

	pipeCount := strings.Count(trimmed, "|")
	if strings.HasPrefix(trimmed, "|") || pipeCount >= 2 {
		return true
	}
	spaceRuns, tabRuns := 0, 0
	for i := 0; i < len(line); {
		j := i
		for j < len(line) && line[j] == line[i] {
			j++
		}
		if line[i] == ' ' && j-i >= 2 {
			spaceRuns++
		} else if line[i] == '\t' {
			tabRuns++
		}
		i = j
	}
	if spaceRuns >= 2 || tabRuns >= 2 {
		return true
	}

	for _, tok := range []string{"::=", ":=", "->", "<-", "{", "}", "[", "]"} {
		if strings.Contains(trimmed, tok) {
			return true
		}
	}
	if algoStepRe.MatchString(trimmed) || parenStepRe.MatchString(trimmed) || stepWordRe.MatchString(trimmed) {
		return true
	}
	if strings.HasPrefix(line, "\t") || strings.HasPrefix(line, "    ") {
		return true
	}

	for _, tok := range []string{"$", "\\(", "\\)", "\\[", "\\]"} {
		if strings.Contains(trimmed, tok) {
			return true
		}
	}
	for _, r := range mathSymbols {
		if strings.ContainsRune(trimmed, r) {
			return true
		}
	}
	return false
}
