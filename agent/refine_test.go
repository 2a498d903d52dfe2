package agent

import "testing"

func TestRefineQueryAppendsAnchorsOnAnchorMissing(t *testing.T) {
	plan := Plan{Query: "What does it compute"}
	refined := refineQuery(plan, StopAnchorMissing, "What does Algorithm 13 compute?")
	if refined.Query == plan.Query {
		t.Errorf("expected query to change, got %q", refined.Query)
	}
}

func TestRefineQueryDefinitionUsesCanonicalTemplate(t *testing.T) {
	plan := Plan{Action: ActionRetrieveDefinition, Args: map[string]string{"term": "keygen"}}
	refined := refineQuery(plan, StopInsufficientHits, "what is keygen")
	want := "definition of keygen; notation; section"
	if refined.Query != want {
		t.Errorf("got %q, want %q", refined.Query, want)
	}
}

func TestRefineQueryGenericInsufficientHitsAppendsCoverageTerms(t *testing.T) {
	plan := Plan{Action: ActionRetrieve, Query: "keygen"}
	refined := refineQuery(plan, StopInsufficientHits, "keygen")
	want := "keygen section algorithm definition"
	if refined.Query != want {
		t.Errorf("got %q, want %q", refined.Query, want)
	}
}

func TestRefineQueryCompareAppendsBothTopics(t *testing.T) {
	plan := Plan{Action: ActionRetrieveCompare, Query: "", Args: map[string]string{"topic_a": "ML-KEM", "topic_b": "ML-DSA"}}
	refined := refineQuery(plan, StopCompareDocDiversityMiss, "ML-KEM vs ML-DSA")
	if refined.Query == "" {
		t.Error("expected a non-empty refined query")
	}
}
