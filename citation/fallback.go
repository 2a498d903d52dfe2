package citation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bbiangul/stdreason/retrieval"
)

var algorithmNumRe = regexp.MustCompile(`(?i)Algorithm\s+(\d+)`)
var stepLineRe = regexp.MustCompile(`(?m)^\s*(\d+)\s*:\s*(.+)$`)

// algorithmStepsFallback implements the deterministic "algorithm steps"
// fallback of §4.7: if the question names an Algorithm N and an accepted
// chunk contains both that reference and numbered step lines, emit one
// bullet per step.
func algorithmStepsFallback(question string, accepted []retrieval.ChunkHit, citations []Citation) (AnswerResult, bool) {
	m := algorithmNumRe.FindStringSubmatch(question)
	if m == nil {
		return AnswerResult{}, false
	}
	algoRef := "Algorithm " + m[1]

	keyByChunkID := make(map[string]string, len(citations))
	for _, c := range citations {
		keyByChunkID[c.ChunkID] = c.Key
	}

	for i, h := range accepted {
		if !strings.Contains(h.Text, algoRef) {
			continue
		}
		steps := stepLineRe.FindAllStringSubmatch(h.Text, -1)
		if len(steps) == 0 {
			continue
		}
		key, ok := keyByChunkID[h.ChunkID]
		if !ok {
			key = citations[minInt(i, len(citations)-1)].Key
		}

		var sb strings.Builder
		for _, s := range steps {
			sb.WriteString(fmt.Sprintf("- %s: %s [%s].\n", s[1], strings.TrimSpace(s[2]), key))
		}
		draft := strings.TrimRight(sb.String(), "\n")

		result, ok := validateAndAssemble(draft, citations)
		if ok && !result.IsRefusal {
			return result, true
		}
	}
	return AnswerResult{}, false
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

var comparisonPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)differences?\s+between\s+(.+?)\s+and\s+(.+?)[\?.]?$`),
	regexp.MustCompile(`(?i)compare\s+(.+?)\s+and\s+(.+?)[\?.]?$`),
	regexp.MustCompile(`(?i)^\s*(.+?)\s+vs\.?\s+(.+?)[\?.]?$`),
}

// roleByPhrase lists the known role phrases. A phrase found in a topic's
// evidence text is used verbatim as that topic's role in comparison bullets.
var roleByPhrase = []string{
	"key-encapsulation mechanism",
	"digital signature scheme",
	"key establishment scheme",
}

// ParseComparisonTopics extracts the two compared topics from a question,
// if it matches a known comparison pattern.
func ParseComparisonTopics(question string) (string, string, bool) {
	for _, p := range comparisonPatterns {
		if m := p.FindStringSubmatch(question); m != nil {
			return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), true
		}
	}
	return "", "", false
}

// comparisonFallback implements the deterministic "comparison" fallback of
// §4.7.
func comparisonFallback(question string, hits []retrieval.ChunkHit, citations []Citation) (AnswerResult, bool) {
	topicA, topicB, ok := ParseComparisonTopics(question)
	if !ok {
		return AnswerResult{}, false
	}

	keyByChunkID := make(map[string]string, len(citations))
	for _, c := range citations {
		keyByChunkID[c.ChunkID] = c.Key
	}

	keyA, roleA, textA, foundA := findTopicHit(hits, topicA, keyByChunkID)
	keyB, roleB, textB, foundB := findTopicHit(hits, topicB, keyByChunkID)
	if !foundA || !foundB {
		return AnswerResult{}, false
	}

	var sb strings.Builder
	if roleA != "" && roleB != "" {
		sb.WriteString(fmt.Sprintf("- %s is a %s [%s].\n", topicA, roleA, keyA))
		sb.WriteString(fmt.Sprintf("- %s is a %s [%s].\n", topicB, roleB, keyB))
		sb.WriteString(fmt.Sprintf("- %s and %s serve different roles [%s][%s].\n", topicA, topicB, keyA, keyB))
	} else {
		sentA := firstSubstantiveSentence(textA)
		sentB := firstSubstantiveSentence(textB)
		if sentA == "" || sentB == "" {
			return AnswerResult{}, false
		}
		sb.WriteString(fmt.Sprintf("- %s [%s].\n", sentA, keyA))
		sb.WriteString(fmt.Sprintf("- %s [%s].\n", sentB, keyB))
		sb.WriteString(fmt.Sprintf("- %s and %s are compared above [%s][%s].\n", topicA, topicB, keyA, keyB))
	}

	draft := strings.TrimRight(sb.String(), "\n")
	result, ok := validateAndAssemble(draft, citations)
	if ok && !result.IsRefusal {
		return result, true
	}
	return AnswerResult{}, false
}

func findTopicHit(hits []retrieval.ChunkHit, topic string, keyByChunkID map[string]string) (key, role, text string, found bool) {
	normalized := strings.ToLower(strings.TrimSpace(topic))
	for _, h := range hits {
		k, ok := keyByChunkID[h.ChunkID]
		if !ok {
			continue
		}
		lowerText := strings.ToLower(h.Text)
		if !strings.Contains(lowerText, normalized) {
			continue
		}
		for _, phrase := range roleByPhrase {
			if strings.Contains(lowerText, phrase) {
				return k, phrase, h.Text, true
			}
		}
		if !found {
			key, text, found = k, h.Text, true
		}
	}
	return key, role, text, found
}

var substantiveSentenceMinChars = 25
var substantiveSentenceMinAlpha = 12

func firstSubstantiveSentence(text string) string {
	for _, s := range splitSentences(text) {
		if len(s) < substantiveSentenceMinChars {
			continue
		}
		var alpha int
		for _, r := range s {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				alpha++
			}
		}
		if alpha >= substantiveSentenceMinAlpha {
			return s
		}
	}
	return ""
}
