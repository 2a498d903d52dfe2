// Package citation enforces citation-grounded answers: it selects and
// budgets evidence, builds the generation prompt, validates the
// generator's output for full citation coverage, and falls back to
// deterministic answer templates when the generator refuses or fails
// validation (spec §4.7).
package citation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bbiangul/stdreason/llm"
	"github.com/bbiangul/stdreason/retrieval"
	"github.com/bbiangul/stdreason/store"
)

// CanonicalRefusal is emitted verbatim, in lowercase, whenever evidence is
// insufficient or the generator's output fails validation.
const CanonicalRefusal = "not found in provided docs"

// Citation is an assigned evidence key, resolvable back to its chunk.
type Citation struct {
	Key       string `json:"key"` // "c<N>", N >= 1
	DocID     string `json:"doc_id"`
	StartPage int    `json:"start_page"`
	EndPage   int    `json:"end_page"`
	ChunkID   string `json:"chunk_id"`
}

// AnswerResult is the final output of build_cited_answer.
type AnswerResult struct {
	AnswerText string     `json:"answer_text"`
	Citations  []Citation `json:"citations"`
	IsRefusal  bool       `json:"is_refusal"`
}

func refusal() AnswerResult {
	return AnswerResult{AnswerText: CanonicalRefusal, Citations: nil, IsRefusal: true}
}

// Config holds the tunables of C7 (spec §6).
type Config struct {
	MaxContextChunks int
	MaxContextChars  int
	IncludeNeighbors bool
	NeighborWindow   int
	MinEvidenceHits  int
	LLMTemperature   float64
}

// DefaultConfig returns the spec's suggested defaults.
func DefaultConfig() Config {
	return Config{
		MaxContextChunks: 8,
		MaxContextChars:  12000,
		IncludeNeighbors: true,
		NeighborWindow:   1,
		MinEvidenceHits:  1,
		LLMTemperature:   0,
	}
}

// GenerateFn is the external generator: a pure function from a prompt to
// generated text.
type GenerateFn func(ctx context.Context, prompt string) (string, error)

// ChatGenerateFn adapts an llm.Provider into a GenerateFn.
func ChatGenerateFn(p llm.Provider, model string, temperature float64) GenerateFn {
	return func(ctx context.Context, prompt string) (string, error) {
		resp, err := p.Chat(ctx, llm.ChatRequest{
			Model:       model,
			Temperature: temperature,
			Messages: []llm.Message{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: prompt},
			},
		})
		if err != nil {
			return "", err
		}
		return resp.Content, nil
	}
}

const systemPrompt = `You answer strictly from the evidence provided. Every sentence you write must end with at least one citation marker like [c1] or [c1][c2]. Never invent a citation key that was not given to you. If the evidence does not answer the question, reply with exactly: not found in provided docs`

// Enforcer orchestrates evidence selection, prompting, validation, and
// fallback for one question.
type Enforcer struct {
	store *store.Store
	cfg   Config
}

// New constructs an Enforcer. s is used for same-document neighbor lookups
// during evidence expansion.
func New(s *store.Store, cfg Config) *Enforcer {
	if cfg.MaxContextChunks <= 0 {
		cfg.MaxContextChunks = 8
	}
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = 12000
	}
	if cfg.MinEvidenceHits <= 0 {
		cfg.MinEvidenceHits = 1
	}
	return &Enforcer{store: s, cfg: cfg}
}

// BuildCitedAnswer implements build_cited_answer(question, hits, generate_fn)
// (spec §4.7).
func (e *Enforcer) BuildCitedAnswer(ctx context.Context, question string, hits []retrieval.ChunkHit, generate GenerateFn) (AnswerResult, error) {
	accepted := e.selectEvidence(ctx, hits)
	if len(accepted) < e.cfg.MinEvidenceHits {
		return refusal(), nil
	}

	prompt, citations := buildPrompt(question, accepted)

	draft, err := generate(ctx, prompt)
	if err != nil {
		return refusal(), fmt.Errorf("generating answer: %w", err)
	}

	result, ok := validateAndAssemble(draft, citations)
	if ok && !result.IsRefusal {
		return result, nil
	}

	if fb, ok := algorithmStepsFallback(question, accepted, citations); ok {
		return fb, nil
	}
	if fb, ok := comparisonFallback(question, hits, citations); ok {
		return fb, nil
	}

	return refusal(), nil
}

// selectEvidence implements evidence selection steps 1-5 of §4.7.
func (e *Enforcer) selectEvidence(ctx context.Context, hits []retrieval.ChunkHit) []retrieval.ChunkHit {
	byChunk := make(map[string]retrieval.ChunkHit, len(hits))
	for _, h := range hits {
		if existing, ok := byChunk[h.ChunkID]; !ok || h.Score > existing.Score {
			byChunk[h.ChunkID] = h
		}
	}
	deduped := make([]retrieval.ChunkHit, 0, len(byChunk))
	for _, h := range byChunk {
		deduped = append(deduped, h)
	}
	sort.Slice(deduped, func(i, j int) bool {
		a, b := deduped[i], deduped[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.DocID != b.DocID {
			return a.DocID < b.DocID
		}
		if a.StartPage != b.StartPage {
			return a.StartPage < b.StartPage
		}
		if a.EndPage != b.EndPage {
			return a.EndPage < b.EndPage
		}
		return a.ChunkID < b.ChunkID
	})

	primaryCount := e.cfg.MaxContextChunks
	if primaryCount > len(deduped) {
		primaryCount = len(deduped)
	}
	primary := deduped[:primaryCount]

	expanded := make([]retrieval.ChunkHit, 0, len(primary))
	seen := make(map[string]bool, len(primary))
	for _, h := range primary {
		if !seen[h.ChunkID] {
			seen[h.ChunkID] = true
			expanded = append(expanded, h)
		}
	}

	if e.cfg.IncludeNeighbors && e.store != nil {
		for _, h := range primary {
			neighbors, err := e.store.GetNeighborChunks(ctx, h.DocID, h.VectorID, e.cfg.NeighborWindow)
			if err != nil {
				continue
			}
			for _, n := range neighbors {
				if seen[n.ChunkID] {
					continue
				}
				seen[n.ChunkID] = true
				expanded = append(expanded, retrieval.ChunkHit{
					Score:     h.Score * 0.999,
					ChunkID:   n.ChunkID,
					DocID:     n.DocID,
					StartPage: n.StartPage,
					EndPage:   n.EndPage,
					Text:      n.Text,
					VectorID:  n.VectorID,
				})
			}
		}
	}

	var accepted []retrieval.ChunkHit
	var charSum int
	for _, h := range expanded {
		if len(accepted) == 0 {
			accepted = append(accepted, h)
			charSum += len(h.Text)
			continue
		}
		if charSum+len(h.Text) > e.cfg.MaxContextChars || len(accepted) >= e.cfg.MaxContextChunks {
			continue
		}
		accepted = append(accepted, h)
		charSum += len(h.Text)
	}
	return accepted
}

// buildPrompt assigns stable c1..cN keys in acceptance order and builds
// the evidence block and instruction prompt.
func buildPrompt(question string, accepted []retrieval.ChunkHit) (string, []Citation) {
	citations := make([]Citation, len(accepted))
	var sb strings.Builder
	sb.WriteString("Question: ")
	sb.WriteString(question)
	sb.WriteString("\n\nEvidence:\n")

	for i, h := range accepted {
		key := fmt.Sprintf("c%d", i+1)
		citations[i] = Citation{Key: key, DocID: h.DocID, StartPage: h.StartPage, EndPage: h.EndPage, ChunkID: h.ChunkID}
		sb.WriteString(fmt.Sprintf("[%s] %s p%d-p%d chunk_id=%s\n", key, h.DocID, h.StartPage, h.EndPage, h.ChunkID))
		sb.WriteString(h.Text)
		sb.WriteString("\n---\n")
	}

	sb.WriteString("\nAnswer the question using only the evidence above. Every sentence must end with at least one [c<i>] marker. Only use the keys listed above. If the evidence does not answer the question, reply with exactly: ")
	sb.WriteString(CanonicalRefusal)

	return sb.String(), citations
}
