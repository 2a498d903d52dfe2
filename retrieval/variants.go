package retrieval

import (
	"fmt"
	"regexp"
	"strings"
)

// domainRewrite appends a fixed alternate phrasing when its trigger
// substring is present in the lowercased query. Each rule has a unique
// trigger and unique output (spec §4.6 step 3).
type domainRewrite struct {
	trigger string
	output  string
}

// defaultDomainRewrites is configuration data for the NIST PQC domain this
// engine was built for; callers needing a different technical vocabulary
// supply their own via HybridConfig.DomainRewrites.
var defaultDomainRewrites = []domainRewrite{
	{trigger: "key generation", output: "KeyGen"},
	{trigger: "signing", output: "Sign"},
	{trigger: "verify", output: "Verify"},
	{trigger: "keygen", output: "KeyGen"},
	{trigger: "decapsulation", output: "Decaps"},
	{trigger: "encapsulation", output: "Encaps"},
}

var algorithmRe = regexp.MustCompile(`(?i)Algorithm\s+(\d+)`)

// QueryVariants returns an ordered, deduplicated list of query
// reformulations per spec §4.6: the original query, a compound-token-only
// variant, domain rewrites, and algorithm-number variants.
func QueryVariants(query string, rewrites []domainRewrite) []string {
	if rewrites == nil {
		rewrites = defaultDomainRewrites
	}
	trimmed := strings.TrimSpace(query)
	variants := []string{trimmed}

	if toks := technicalTokens(trimmed); len(toks) > 0 {
		variants = append(variants, strings.Join(toks, " "))
	}

	lowered := strings.ToLower(trimmed)
	for _, rw := range rewrites {
		if strings.Contains(lowered, rw.trigger) {
			variants = append(variants, rw.output)
		}
	}

	if m := algorithmRe.FindStringSubmatch(trimmed); m != nil {
		num := m[1]
		variants = append(variants, fmt.Sprintf("Algorithm %s", num))
		if toks := technicalTokens(trimmed); len(toks) > 0 {
			variants = append(variants, fmt.Sprintf("Algorithm %s %s", num, toks[0]))
		}
	}

	return dedupPreserveOrder(variants)
}

func dedupPreserveOrder(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it == "" || seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}
