// Package cleaner normalizes raw page text into clean prose while
// preserving verbatim structure (tables, algorithm steps, math) that must
// never be joined with surrounding prose lines.
package cleaner

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Config controls cleaning behavior. Zero-value fields fall back to
// DefaultConfig's values via New.
type Config struct {
	// MinLineLen and MaxBoilerplateLen bound the canonical-form length a
	// line must have to be eligible for boilerplate detection.
	MinLineLen        int
	MaxBoilerplateLen int
	// BoilerplateScanLines is how many lines from the top and bottom of
	// each page are scanned for candidate boilerplate.
	BoilerplateScanLines int
	// BoilerplateRatio is the fraction of pages a candidate line must
	// appear on (canonicalized) to be treated as boilerplate.
	BoilerplateRatio float64
}

// DefaultConfig returns the cleaner defaults used throughout stdreason.
func DefaultConfig() Config {
	return Config{
		MinLineLen:           3,
		MaxBoilerplateLen:    80,
		BoilerplateScanLines: 3,
		BoilerplateRatio:     0.6,
	}
}

// Cleaner applies normalization and boilerplate removal to raw page text.
type Cleaner struct {
	cfg Config
}

// New returns a Cleaner with the given configuration, filling zero-value
// fields with DefaultConfig's values.
func New(cfg Config) *Cleaner {
	d := DefaultConfig()
	if cfg.MinLineLen == 0 {
		cfg.MinLineLen = d.MinLineLen
	}
	if cfg.MaxBoilerplateLen == 0 {
		cfg.MaxBoilerplateLen = d.MaxBoilerplateLen
	}
	if cfg.BoilerplateScanLines == 0 {
		cfg.BoilerplateScanLines = d.BoilerplateScanLines
	}
	if cfg.BoilerplateRatio == 0 {
		cfg.BoilerplateRatio = d.BoilerplateRatio
	}
	return &Cleaner{cfg: cfg}
}

var (
	softHyphen     = "­"
	zeroWidthChars = []rune{'​', '‌', '‍', 0xFEFF}

	ligatureReplacer = strings.NewReplacer(
		"ﬀ", "ff",
		"ﬁ", "fi",
		"ﬂ", "fl",
		"ﬃ", "ffi",
		"ﬄ", "ffl",
		"ﬅ", "st",
		"ﬆ", "st",
	)

	dehyphenateRe = regexp.MustCompile(`([A-Za-z])-\r?\n([a-z])`)
	pageNumberRe  = regexp.MustCompile(`^\s*(?:[-–—]\s*)?\d{1,4}(?:\s*[-–—]\s*)?\s*$|^\s*Page\s+\d+(?:\s+of\s+\d+)?\s*$`)
	multiSpaceRe  = regexp.MustCompile(`[ \t]{2,}`)
	blankRunsRe   = regexp.MustCompile(`\n{3,}`)

	algoStepRe  = regexp.MustCompile(`^\s*\d+\s*[.):]`)
	parenStepRe = regexp.MustCompile(`^\s*\(\d+\)`)
	stepWordRe  = regexp.MustCompile(`(?i)^\s*(?:Step\s+\d+:|Algorithm\s+\d+:|Input|Output|Require|Ensure|Given)\s*:?`)

	mathSymbols = "=<>±×÷∑∏∈∉≈≡≤≥⊕⊗"
)

// CleanPage normalizes a single page's raw text given its document's
// boilerplate set (see DetectBoilerplate).
func (c *Cleaner) CleanPage(rawText string, boilerplate map[string]bool) string {
	text := norm.NFKC.String(rawText)
	text = strings.ReplaceAll(text, softHyphen, "")
	for _, zw := range zeroWidthChars {
		text = strings.ReplaceAll(text, string(zw), "")
	}
	text = ligatureReplacer.Replace(text)

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	text = dehyphenateRe.ReplaceAllString(text, "$1$2")

	lines := strings.Split(text, "\n")
	trimmed := make([]string, 0, len(lines))
	for _, ln := range lines {
		ln = strings.TrimRight(ln, " \t")
		if pageNumberRe.MatchString(ln) {
			continue
		}
		if boilerplate != nil && boilerplate[canonicalLine(ln)] {
			continue
		}
		// Whitespace-aligned tables carry their structure in repeated
		// column gaps; collapsing those runs here would erase the same
		// signal isVerbatimish looks for below, so leave such lines
		// untouched and only tidy ordinary prose spacing.
		if !hasAlignedColumns(ln) {
			ln = multiSpaceRe.ReplaceAllString(ln, " ")
		}
		trimmed = append(trimmed, ln)
	}

	joined := joinGroups(trimmed)
	joined = blankRunsRe.ReplaceAllString(joined, "\n\n")
	return strings.TrimSpace(joined)
}

// canonicalLine returns the lowercased, digit-stripped, whitespace-
// collapsed form of a line used to match boilerplate across pages.
func canonicalLine(line string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range strings.ToLower(line) {
		if unicode.IsDigit(r) {
			continue
		}
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimSpace(b.String())
}

// joinGroups splits lines into blank-line-delimited groups and applies
// smart prose joining within each group, preserving verbatim-ish lines.
func joinGroups(lines []string) string {
	var groups [][]string
	var cur []string
	for _, ln := range lines {
		if strings.TrimSpace(ln) == "" {
			if len(cur) > 0 {
				groups = append(groups, cur)
				cur = nil
			}
			groups = append(groups, nil) // blank separator marker
			continue
		}
		cur = append(cur, ln)
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}

	var out strings.Builder
	for _, g := range groups {
		if g == nil {
			out.WriteString("\n")
			continue
		}
		out.WriteString(joinGroup(g))
		out.WriteString("\n")
	}
	return out.String()
}

// joinGroup joins a single group of consecutive non-blank lines,
// preserving verbatim-ish lines and merging wrapped prose.
func joinGroup(lines []string) string {
	var b strings.Builder
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		b.WriteString(line)
		if i == len(lines)-1 {
			break
		}
		next := lines[i+1]
		if isVerbatimish(line) || isVerbatimish(next) {
			b.WriteString("\n")
			continue
		}
		if shouldJoin(line, next) {
			b.WriteString(" ")
		} else {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// isVerbatimish classifies a line as table-like, code/algorithm-like, or
// math-like structure that must never be merged with adjacent prose.
func isVerbatimish(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}

	pipeCount := strings.Count(trimmed, "|")
	if strings.HasPrefix(trimmed, "|") || pipeCount >= 2 {
		return true
	}
	if hasAlignedColumns(line) {
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

// hasAlignedColumns reports whether line has at least two runs of two or
// more whitespace characters or a tab run, the signature of a
// whitespace-aligned table column gap.
func hasAlignedColumns(line string) bool {
	return countRuns(line, "  ") >= 2 || countRuns(line, "\t") >= 2
}

// countRuns counts the number of occurrences of consecutive-whitespace
// runs of at least len(sep) matching sep's character class (space or tab).
func countRuns(line, sep string) int {
	count := 0
	i := 0
	for i < len(line) {
		if strings.HasPrefix(line[i:], sep) {
			count++
			for i < len(line) && (line[i] == sep[0]) {
				i++
			}
			continue
		}
		i++
	}
	return count
}

// shouldJoin decides whether two consecutive prose lines should be merged
// with a single space rather than kept on separate lines.
func shouldJoin(cur, next string) bool {
	curTrim := strings.TrimSpace(cur)
	nextTrim := strings.TrimSpace(next)
	if curTrim == "" || nextTrim == "" {
		return false
	}
	if endsInTerminal(curTrim) {
		return false
	}
	firstRune := []rune(nextTrim)[0]
	if unicode.IsLower(firstRune) {
		return true
	}
	if len(curTrim) >= 60 && unicode.IsLetter(firstRune) {
		return true
	}
	return false
}

func endsInTerminal(s string) bool {
	if s == "" {
		return false
	}
	last := s[len(s)-1]
	return last == '.' || last == '?' || last == '!' || last == ':'
}
