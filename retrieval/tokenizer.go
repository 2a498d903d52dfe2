package retrieval

import (
	"regexp"
	"strings"
)

// tokenRe matches either a compound technical token (hyphen/underscore/dot
// joined segments, e.g. "ml-kem.keygen") or a plain alphanumeric run.
// Compound must be tried first since it's the more specific alternative.
var tokenRe = regexp.MustCompile(`[a-z0-9]+(?:[-._][a-z0-9]+)+|[a-z0-9]+`)

// compoundRe recognizes a full match as a compound token, used to decide
// whether to additionally emit its sub-parts.
var compoundRe = regexp.MustCompile(`^[a-z0-9]+(?:[-._][a-z0-9]+)+$`)

var compoundSplitRe = regexp.MustCompile(`[-._]`)

// tokenize lowercases text and extracts tokens, preserving technical
// compounds like "ML-KEM.KeyGen" as single tokens while also emitting
// their sub-parts so plain-word queries still match. Order follows
// encounter order; duplicates are kept since term frequency matters.
func tokenize(text string) []string {
	lowered := strings.ToLower(text)
	matches := tokenRe.FindAllString(lowered, -1)

	tokens := make([]string, 0, len(matches))
	for _, tok := range matches {
		tokens = append(tokens, tok)
		if compoundRe.MatchString(tok) {
			for _, part := range compoundSplitRe.Split(tok, -1) {
				if part != "" {
					tokens = append(tokens, part)
				}
			}
		}
	}
	return tokens
}

// technicalTokens returns the distinct compound technical tokens found in
// text, preserving original case, used for query-variant expansion and
// lexical rerank (spec §4.6).
var technicalTokenRe = regexp.MustCompile(`[A-Za-z0-9]+(?:[-._][A-Za-z0-9]+)+`)

func technicalTokens(text string) []string {
	matches := technicalTokenRe.FindAllString(text, -1)
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}
