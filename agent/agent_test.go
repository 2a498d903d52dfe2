//go:build cgo

package agent

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/bbiangul/stdreason/chunker"
	"github.com/bbiangul/stdreason/citation"
	"github.com/bbiangul/stdreason/llm"
	"github.com/bbiangul/stdreason/retrieval"
	"github.com/bbiangul/stdreason/store"
)

type fakeProvider struct{}

func (fakeProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	return &llm.ChatResponse{Content: "not found in provided docs"}, nil
}

func (fakeProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, 4)
		for j, r := range t {
			v[j%4] += float32(r % 7)
		}
		out[i] = v
	}
	return out, nil
}

func newTestAgent(t *testing.T, generate citation.GenerateFn) *Agent {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"), 4)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	if err := s.UpsertDocument(ctx, store.Document{DocID: "D1", SourcePath: "/d1.pdf", NumPages: 1, Status: "ready"}); err != nil {
		t.Fatalf("upsert doc: %v", err)
	}

	chunks := []chunker.Chunk{
		{ChunkID: "D1::p0001::c000", DocID: "D1", StartPage: 1, EndPage: 1, Text: "Algorithm 13 KeyGen\n1: seed random bytes\n2: derive key pair\n3: return keys"},
	}
	_, rows := store.BuildEmbeddingStore(chunks)
	vectors := [][]float32{{1, 0, 0, 0}}
	if err := s.PersistEmbeddings(ctx, rows, vectors, "test"); err != nil {
		t.Fatalf("persist embeddings: %v", err)
	}

	all, err := s.AllChunks(ctx)
	if err != nil {
		t.Fatalf("all chunks: %v", err)
	}
	artifact := retrieval.BuildBM25Artifact(all, retrieval.DefaultBM25Config())
	bm25 := retrieval.NewBM25Index(artifact)

	engine := retrieval.NewEngine(s, fakeProvider{}, bm25, retrieval.DefaultHybridConfig())
	enforcer := citation.New(s, citation.DefaultConfig())
	return New(engine, enforcer, generate, DefaultConfig())
}

func TestAgentRunAnswersWithCitationsWhenEvidenceSufficient(t *testing.T) {
	generate := func(ctx context.Context, prompt string) (string, error) {
		return "Algorithm 13 KeyGen derives a key pair [c1].", nil
	}
	a := newTestAgent(t, generate)

	state, err := a.Run(context.Background(), "What does Algorithm 13 compute?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.RefusalReason != "" {
		t.Fatalf("expected an answer, got refusal %q", state.RefusalReason)
	}
	if len(state.Citations) == 0 {
		t.Error("expected citations on a successful answer")
	}
	if state.Counters.Steps == 0 {
		t.Error("expected steps counter to increase")
	}
}

func TestAgentRunRefusesWhenQuestionHasNoSupportingEvidence(t *testing.T) {
	generate := func(ctx context.Context, prompt string) (string, error) {
		return citation.CanonicalRefusal, nil
	}
	a := newTestAgent(t, generate)

	state, err := a.Run(context.Background(), "What does Algorithm 99 compute?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.RefusalReason == "" {
		t.Fatal("expected a refusal for an unsupported algorithm reference")
	}
	if state.FinalAnswer != citation.CanonicalRefusal {
		t.Errorf("expected canonical refusal text, got %q", state.FinalAnswer)
	}
	if len(state.Citations) != 0 {
		t.Error("expected no citations on refusal")
	}
}

func TestAgentRunRespectsToolCallBudget(t *testing.T) {
	generate := func(ctx context.Context, prompt string) (string, error) {
		return citation.CanonicalRefusal, nil
	}
	a := newTestAgent(t, generate)
	a.cfg.MaxToolCalls = 1
	a.cfg.MinEvidenceHits = 99

	state, err := a.Run(context.Background(), "What does Algorithm 13 compute?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Counters.ToolCalls != 1 {
		t.Errorf("expected exactly 1 tool call, got %d", state.Counters.ToolCalls)
	}
	if state.RefusalReason != RefusalReason(StopToolBudgetExhausted) {
		t.Errorf("expected tool_budget_exhausted refusal, got %q", state.RefusalReason)
	}
}
