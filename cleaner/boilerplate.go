package cleaner

import "strings"

// DetectBoilerplate scans the first and last N lines of each page's raw
// text (N = cfg.BoilerplateScanLines) and returns the set of canonical
// line forms that recur on enough pages to be treated as running
// headers/footers. Only pages with non-empty text are considered.
func (c *Cleaner) DetectBoilerplate(rawPages []string) map[string]bool {
	nonEmpty := 0
	pageCount := make(map[string]int)

	for _, raw := range rawPages {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		nonEmpty++
		seenOnPage := make(map[string]bool)
		for _, ln := range candidateLines(raw, c.cfg.BoilerplateScanLines) {
			form := canonicalLine(ln)
			if len(form) < c.cfg.MinLineLen || len(form) > c.cfg.MaxBoilerplateLen {
				continue
			}
			if seenOnPage[form] {
				continue
			}
			seenOnPage[form] = true
			pageCount[form]++
		}
	}

	threshold := float64(nonEmpty) * c.cfg.BoilerplateRatio
	if threshold < 2 {
		threshold = 2
	}

	result := make(map[string]bool)
	for form, n := range pageCount {
		if float64(n) >= threshold {
			result[form] = true
		}
	}
	return result
}

// candidateLines returns the first n and last n non-blank lines of text in
// page order. Repeated lines are not removed here; DetectBoilerplate counts
// each canonical form at most once per page.
func candidateLines(text string, n int) []string {
	var lines []string
	for _, ln := range strings.Split(text, "\n") {
		if strings.TrimSpace(ln) != "" {
			lines = append(lines, ln)
		}
	}
	if len(lines) <= 2*n {
		return lines
	}

	out := make([]string, 0, 2*n)
	out = append(out, lines[:n]...)
	out = append(out, lines[len(lines)-n:]...)
	return out
}
