package citation

import (
	"context"
	"testing"

	"github.com/bbiangul/stdreason/retrieval"
)

func sampleHits() []retrieval.ChunkHit {
	return []retrieval.ChunkHit{
		{Score: 0.9, ChunkID: "D1::p0001::c000", DocID: "D1", StartPage: 1, EndPage: 1, Text: "ML-KEM.KeyGen produces a key pair."},
		{Score: 0.8, ChunkID: "D1::p0002::c000", DocID: "D1", StartPage: 2, EndPage: 2, Text: "ML-DSA.Sign produces a digital signature."},
	}
}

func TestBuildCitedAnswerReturnsRefusalOnInsufficientEvidence(t *testing.T) {
	e := New(nil, DefaultConfig())
	result, err := e.BuildCitedAnswer(context.Background(), "what is keygen", nil, func(ctx context.Context, prompt string) (string, error) {
		t.Fatal("generate should not be called with no evidence")
		return "", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsRefusal || result.AnswerText != CanonicalRefusal {
		t.Errorf("expected canonical refusal, got %+v", result)
	}
}

func TestBuildCitedAnswerAcceptsWellCitedDraft(t *testing.T) {
	e := New(nil, DefaultConfig())
	hits := sampleHits()
	generate := func(ctx context.Context, prompt string) (string, error) {
		return "ML-KEM.KeyGen produces a key pair [c1]. ML-DSA.Sign produces a signature [c2].", nil
	}
	result, err := e.BuildCitedAnswer(context.Background(), "describe these algorithms", hits, generate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsRefusal {
		t.Fatalf("expected an accepted answer, got refusal")
	}
	if len(result.Citations) != 2 {
		t.Errorf("expected 2 citations, got %d", len(result.Citations))
	}
}

func TestBuildCitedAnswerRefusesWhenGeneratorUsesUnknownKey(t *testing.T) {
	e := New(nil, DefaultConfig())
	hits := sampleHits()
	generate := func(ctx context.Context, prompt string) (string, error) {
		return "A claim with a fabricated source [c99].", nil
	}
	result, err := e.BuildCitedAnswer(context.Background(), "what is keygen", hits, generate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsRefusal {
		t.Errorf("expected refusal when generator cites an unassigned key, got %+v", result)
	}
}

func TestBuildCitedAnswerFallsBackOnAlgorithmSteps(t *testing.T) {
	e := New(nil, DefaultConfig())
	hits := []retrieval.ChunkHit{
		{Score: 0.9, ChunkID: "D1::p0001::c000", DocID: "D1", StartPage: 1, EndPage: 1,
			Text: "Algorithm 13 KeyGen\n1: seed random bytes\n2: derive key pair\n3: return keys"},
	}
	generate := func(ctx context.Context, prompt string) (string, error) {
		return "An uncited draft that fails validation.", nil
	}
	result, err := e.BuildCitedAnswer(context.Background(), "What does Algorithm 13 compute?", hits, generate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsRefusal {
		t.Fatalf("expected the algorithm-steps fallback to produce an answer, got refusal")
	}
	if len(result.Citations) == 0 {
		t.Error("expected fallback answer to carry citations")
	}
}

func TestSelectEvidenceDedupesAndOrdersDeterministically(t *testing.T) {
	e := New(nil, DefaultConfig())
	hits := []retrieval.ChunkHit{
		{Score: 0.5, ChunkID: "A", DocID: "D2", StartPage: 1, EndPage: 1, Text: "x"},
		{Score: 0.5, ChunkID: "A", DocID: "D2", StartPage: 1, EndPage: 1, Text: "x"},
		{Score: 0.9, ChunkID: "B", DocID: "D1", StartPage: 1, EndPage: 1, Text: "y"},
	}
	accepted := e.selectEvidence(context.Background(), hits)
	if len(accepted) != 2 {
		t.Fatalf("expected duplicate chunk_id collapsed, got %d chunks", len(accepted))
	}
	if accepted[0].ChunkID != "B" {
		t.Errorf("expected highest-score chunk first, got %q", accepted[0].ChunkID)
	}
}

func TestBuildPromptAssignsStableSequentialKeys(t *testing.T) {
	hits := sampleHits()
	prompt, citations := buildPrompt("q", hits)
	if len(citations) != 2 || citations[0].Key != "c1" || citations[1].Key != "c2" {
		t.Errorf("expected sequential c1, c2 keys, got %v", citations)
	}
	if len(prompt) == 0 {
		t.Error("expected a non-empty prompt")
	}
}
