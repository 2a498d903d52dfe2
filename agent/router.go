package agent

import (
	"regexp"
	"strings"

	"github.com/bbiangul/stdreason/citation"
)

var definitionPrefixRe = regexp.MustCompile(`(?i)^\s*(?:what\s+is|define|explain)\s+(.+?)\s*[\?]?\s*$`)

// route classifies the question into a Plan (spec §4.8). It never emits
// "answer" itself; that action is reserved for future router extensions
// and is otherwise unreachable from this heuristic classifier.
func route(question string) Plan {
	trimmed := strings.TrimSpace(question)

	if topicA, topicB, ok := citation.ParseComparisonTopics(trimmed); ok {
		return Plan{
			Action: ActionRetrieveCompare,
			Reason: "question matches a comparison pattern",
			Args:   map[string]string{"topic_a": topicA, "topic_b": topicB},
		}
	}

	if m := definitionPrefixRe.FindStringSubmatch(trimmed); m != nil {
		term := strings.TrimSpace(m[1])
		if term != "" {
			return Plan{
				Action: ActionRetrieveDefinition,
				Reason: "question matches a definition prefix",
				Args:   map[string]string{"term": term},
			}
		}
	}

	return Plan{
		Action: ActionRetrieve,
		Reason: "default classification",
		Query:  trimmed,
	}
}
