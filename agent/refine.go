package agent

import (
	"fmt"
	"strings"
)

// refineQuery produces the next round's query per the stop_reason-driven
// rules of §4.8.
func refineQuery(plan Plan, stopReason StopReason, question string) Plan {
	switch stopReason {
	case StopAnchorMissing:
		anchors := questionAnchors(question)
		base := plan.Query
		if base == "" {
			base = question
		}
		return Plan{
			Action: plan.Action,
			Reason: "appending missing anchor tokens",
			Query:  strings.TrimSpace(base + " " + strings.Join(anchors, " ")),
			Args:   plan.Args,
		}

	case StopCompareDocDiversityMiss:
		topicA, topicB := plan.Args["topic_a"], plan.Args["topic_b"]
		return Plan{
			Action: plan.Action,
			Reason: "appending both compare topics plus canonical hints",
			Query: fmt.Sprintf("%s %s %s intended use-cases; definition; key properties %s intended use-cases; definition; key properties",
				plan.Query, topicA, topicB, topicA),
			Args: plan.Args,
		}

	case StopInsufficientHits:
		if plan.Action == ActionRetrieveDefinition {
			term := plan.Args["term"]
			return Plan{
				Action: plan.Action,
				Reason: "insufficient hits for a definition plan",
				Query:  fmt.Sprintf("definition of %s; notation; section", term),
				Args:   plan.Args,
			}
		}
		base := plan.Query
		if base == "" {
			base = question
		}
		return Plan{
			Action: plan.Action,
			Reason: "appending generic coverage terms",
			Query:  strings.TrimSpace(base + " section algorithm definition"),
			Args:   plan.Args,
		}
	}

	return plan
}
