package citation

import "testing"

func TestIsRefusalTextCaseInsensitive(t *testing.T) {
	if !isRefusalText("Not Found In Provided Docs") {
		t.Error("expected canonical refusal to match case-insensitively")
	}
	if isRefusalText("ML-KEM.KeyGen produces a key pair [c1].") {
		t.Error("did not expect a normal sentence to match as refusal")
	}
}

func TestExtractCitationKeysHandlesGroupedBrackets(t *testing.T) {
	keys := extractCitationKeys("This is true [c1][c2] and also [c1, c3].")
	want := map[string]int{"c1": 2, "c2": 1, "c3": 1}
	got := map[string]int{}
	for _, k := range keys {
		got[k]++
	}
	for k, n := range want {
		if got[k] != n {
			t.Errorf("key %q count = %d, want %d", k, got[k], n)
		}
	}
}

func TestSplitSentencesOnPunctuationAndWhitespace(t *testing.T) {
	sentences := splitSentences("First sentence. Second sentence! Third one?")
	if len(sentences) != 3 {
		t.Fatalf("expected 3 sentences, got %d: %v", len(sentences), sentences)
	}
}

func TestValidateAndAssembleRejectsUnassignedKey(t *testing.T) {
	assigned := []Citation{{Key: "c1", ChunkID: "x"}}
	_, ok := validateAndAssemble("A claim [c2].", assigned)
	if ok {
		t.Error("expected rejection of an unassigned citation key")
	}
}

func TestValidateAndAssembleRejectsSentenceMissingCitation(t *testing.T) {
	assigned := []Citation{{Key: "c1", ChunkID: "x"}}
	_, ok := validateAndAssemble("A cited claim [c1]. An uncited claim.", assigned)
	if ok {
		t.Error("expected rejection when a sentence carries no citation")
	}
}

func TestValidateAndAssembleAcceptsFullyCitedDraft(t *testing.T) {
	assigned := []Citation{
		{Key: "c1", ChunkID: "x", DocID: "D1", StartPage: 1, EndPage: 1},
		{Key: "c2", ChunkID: "y", DocID: "D1", StartPage: 2, EndPage: 2},
	}
	result, ok := validateAndAssemble("First claim [c1]. Second claim [c2].", assigned)
	if !ok {
		t.Fatal("expected acceptance of a fully cited draft")
	}
	if result.IsRefusal {
		t.Error("did not expect a refusal result")
	}
	if len(result.Citations) != 2 {
		t.Fatalf("expected 2 citations retained, got %d", len(result.Citations))
	}
}

func TestValidateAndAssembleFiltersUnusedCitations(t *testing.T) {
	assigned := []Citation{
		{Key: "c1", ChunkID: "x"},
		{Key: "c2", ChunkID: "y"},
	}
	result, ok := validateAndAssemble("Only the first is used [c1].", assigned)
	if !ok {
		t.Fatal("expected acceptance")
	}
	if len(result.Citations) != 1 || result.Citations[0].Key != "c1" {
		t.Errorf("expected only c1 retained, got %v", result.Citations)
	}
}

func TestValidateAndAssembleRefusesCanonicalDraft(t *testing.T) {
	result, ok := validateAndAssemble(CanonicalRefusal, nil)
	if !ok || !result.IsRefusal {
		t.Error("expected canonical refusal draft to pass through as a refusal")
	}
}

func TestSortCitationsByNumericKeyOrdersNumerically(t *testing.T) {
	cs := []Citation{{Key: "c10"}, {Key: "c2"}, {Key: "c1"}}
	sortCitationsByNumericKey(cs)
	want := []string{"c1", "c2", "c10"}
	for i, w := range want {
		if cs[i].Key != w {
			t.Errorf("position %d = %q, want %q", i, cs[i].Key, w)
		}
	}
}
