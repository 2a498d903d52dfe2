package eval

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bbiangul/stdreason/retrieval"
)

func fakeRetrieve(byQuestion map[string][]retrieval.ChunkHit) RetrieveFn {
	return func(ctx context.Context, question string, k int) ([]retrieval.ChunkHit, error) {
		hits, ok := byQuestion[question]
		if !ok {
			return nil, errors.New("no fixture for question")
		}
		return hits, nil
	}
}

func TestEvaluatorRunComputesAggregateMetrics(t *testing.T) {
	questions := []LabeledQuestion{
		{QID: "q1", Question: "what is keygen", Gold: []GoldSpan{{DocID: "D1", StartPage: 1, EndPage: 1}}},
		{QID: "q2", Question: "what is encaps", Gold: []GoldSpan{{DocID: "D2", StartPage: 2, EndPage: 2}}},
	}
	byQuestion := map[string][]retrieval.ChunkHit{
		"what is keygen": {{DocID: "D1", StartPage: 1, EndPage: 1}},
		"what is encaps": {{DocID: "X", StartPage: 9, EndPage: 9}},
	}
	e := New(fakeRetrieve(byQuestion), DefaultConfig())
	results, summary := e.Run(context.Background(), questions)

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if summary.NumQuestions != 2 || summary.NumErrors != 0 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if summary.AvgRecallAtK != 0.5 {
		t.Errorf("expected average recall 0.5, got %f", summary.AvgRecallAtK)
	}
}

func TestEvaluatorRunOrdersResultsByQID(t *testing.T) {
	questions := []LabeledQuestion{
		{QID: "q10", Question: "b"},
		{QID: "q2", Question: "a"},
	}
	byQuestion := map[string][]retrieval.ChunkHit{"a": {}, "b": {}}
	e := New(fakeRetrieve(byQuestion), DefaultConfig())
	results, _ := e.Run(context.Background(), questions)
	if results[0].QID != "q2" || results[1].QID != "q10" {
		t.Errorf("expected numeric-aware qid order, got %v, %v", results[0].QID, results[1].QID)
	}
}

func TestEvaluatorRunRecordsErrorsWithoutPanicking(t *testing.T) {
	questions := []LabeledQuestion{{QID: "q1", Question: "missing"}}
	e := New(fakeRetrieve(map[string][]retrieval.ChunkHit{}), DefaultConfig())
	results, summary := e.Run(context.Background(), questions)
	if results[0].Error == "" {
		t.Error("expected an error to be recorded")
	}
	if summary.NumErrors != 1 {
		t.Errorf("expected 1 error in summary, got %d", summary.NumErrors)
	}
}

func TestWriteArtifactsProducesAllThreeFiles(t *testing.T) {
	dir := t.TempDir()
	results := []QuestionResult{{QID: "q1", RecallAtK: 1}}
	summary := Summary{NumQuestions: 1, K: 10, AvgRecallAtK: 1}
	if err := WriteArtifacts(dir, results, summary); err != nil {
		t.Fatalf("WriteArtifacts: %v", err)
	}
	for _, name := range []string{"results.jsonl", "summary.json", "summary.md"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}
}
