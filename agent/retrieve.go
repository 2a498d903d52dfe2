package agent

import (
	"context"
	"fmt"

	"github.com/bbiangul/stdreason/retrieval"
)

// retrieveHits shapes the query by the plan's action and invokes the
// hybrid retriever, merging results with any prior evidence (spec §4.8).
func (a *Agent) retrieveHits(ctx context.Context, plan Plan, prior []retrieval.ChunkHit) ([]retrieval.ChunkHit, error) {
	var fresh []retrieval.ChunkHit

	switch plan.Action {
	case ActionRetrieveDefinition:
		term := plan.Args["term"]
		q := fmt.Sprintf("definition of %s; notation; definitions", term)
		hits, err := a.engine.Search(ctx, q)
		if err != nil {
			return nil, err
		}
		fresh = hits

	case ActionRetrieveCompare:
		topicA, topicB := plan.Args["topic_a"], plan.Args["topic_b"]
		qA := fmt.Sprintf("%s intended use-cases; definition; key properties", topicA)
		qB := fmt.Sprintf("%s intended use-cases; definition; key properties", topicB)
		hitsA, err := a.engine.Search(ctx, qA)
		if err != nil {
			return nil, err
		}
		hitsB, err := a.engine.Search(ctx, qB)
		if err != nil {
			return nil, err
		}
		fresh = mergeEvidence(hitsA, hitsB)

	default:
		hits, err := a.engine.Search(ctx, plan.Query)
		if err != nil {
			return nil, err
		}
		fresh = hits
	}

	return mergeEvidence(prior, fresh), nil
}

// mergeEvidence dedups by chunk_id across rounds, preserving first
// occurrence (which tracks highest score since later rounds are appended).
func mergeEvidence(rounds ...[]retrieval.ChunkHit) []retrieval.ChunkHit {
	seen := make(map[string]bool)
	var out []retrieval.ChunkHit
	for _, round := range rounds {
		for _, h := range round {
			if seen[h.ChunkID] {
				continue
			}
			seen[h.ChunkID] = true
			out = append(out, h)
		}
	}
	return out
}
