package stdreason

import (
	"fmt"

	"github.com/bbiangul/stdreason/agent"
	"github.com/bbiangul/stdreason/citation"
	"github.com/bbiangul/stdreason/eval"
	"github.com/bbiangul/stdreason/retrieval"
)

// Config holds every behavior-affecting knob of the engine, each named
// per spec §6.
type Config struct {
	// DBPath is the SQLite database file backing the chunk store and
	// vector index. Defaults to "stdreason.db" in the working directory.
	DBPath string `json:"db_path" yaml:"db_path"`

	// EmbeddingDim is the embedding vector dimension; must match the
	// configured embedder and the vec0 virtual table schema.
	EmbeddingDim int `json:"embedding_dim" yaml:"embedding_dim"`

	// VectorBackend names the dense retriever used in base mode.
	// Currently only "sqlite_vec" is supported.
	VectorBackend string `json:"vector_backend" yaml:"vector_backend"`

	// TopK is the final result count returned by retrieve/ask/agent.
	TopK int `json:"top_k" yaml:"top_k"`

	// RetrievalMode is "base" (vector only) or "hybrid" (vector + BM25 +
	// RRF fusion).
	RetrievalMode string `json:"retrieval_mode" yaml:"retrieval_mode"`

	// QueryFusion enables query-variant expansion (spec §4.6).
	QueryFusion bool `json:"query_fusion" yaml:"query_fusion"`

	// RRFK0 is the RRF constant; must be > 0.
	RRFK0 float64 `json:"rrf_k0" yaml:"rrf_k0"`

	// CandidateMultiplier scales top_k into the per-variant candidate
	// depth before fusion.
	CandidateMultiplier int `json:"candidate_multiplier" yaml:"candidate_multiplier"`

	// EnableRerank applies the lexical rerank pass after fusion.
	EnableRerank bool `json:"enable_rerank" yaml:"enable_rerank"`

	// RerankPool is the pool size considered for lexical reranking.
	RerankPool int `json:"rerank_pool" yaml:"rerank_pool"`

	// MinEvidenceHits is the acceptance threshold below which the
	// citation enforcer and agent loop refuse.
	MinEvidenceHits int `json:"min_evidence_hits" yaml:"min_evidence_hits"`

	// MaxContextChunks and MaxContextChars bound the evidence budget
	// passed to the generator.
	MaxContextChunks int `json:"max_context_chunks" yaml:"max_context_chunks"`
	MaxContextChars  int `json:"max_context_chars" yaml:"max_context_chars"`

	// NeighborWindow and IncludeNeighbors control same-document chunk
	// context expansion during evidence selection.
	NeighborWindow   int  `json:"neighbor_window" yaml:"neighbor_window"`
	IncludeNeighbors bool `json:"include_neighbors" yaml:"include_neighbors"`

	// LLMTemperature is the generator's sampling temperature; 0 is
	// recommended for determinism.
	LLMTemperature float64 `json:"llm_temperature" yaml:"llm_temperature"`

	// Agent bounds (spec §4.8).
	AgentMaxSteps           int `json:"agent_max_steps" yaml:"agent_max_steps"`
	AgentMaxToolCalls       int `json:"agent_max_tool_calls" yaml:"agent_max_tool_calls"`
	AgentMaxRetrievalRounds int `json:"agent_max_retrieval_rounds" yaml:"agent_max_retrieval_rounds"`

	// GeneratorModel and EmbedderModel name the models used by the
	// external, opaque LLM provider.
	GeneratorModel string `json:"generator_model" yaml:"generator_model"`
	EmbedderModel  string `json:"embedder_model" yaml:"embedder_model"`

	// EvalK and EvalNearPageTolerance configure the offline evaluator (C9).
	EvalK                int `json:"eval_k" yaml:"eval_k"`
	EvalNearPageTolerance int `json:"eval_near_page_tolerance" yaml:"eval_near_page_tolerance"`
}

// DefaultConfig returns the spec's suggested defaults.
func DefaultConfig() Config {
	return Config{
		DBPath:                  "stdreason.db",
		EmbeddingDim:            768,
		VectorBackend:           "sqlite_vec",
		TopK:                    10,
		RetrievalMode:           "hybrid",
		QueryFusion:             true,
		RRFK0:                   60,
		CandidateMultiplier:     4,
		EnableRerank:            true,
		RerankPool:              30,
		MinEvidenceHits:         1,
		MaxContextChunks:        8,
		MaxContextChars:         12000,
		NeighborWindow:          1,
		IncludeNeighbors:        true,
		LLMTemperature:          0,
		AgentMaxSteps:           12,
		AgentMaxToolCalls:       4,
		AgentMaxRetrievalRounds: 3,
		EvalK:                   10,
		EvalNearPageTolerance:   1,
	}
}

// Validate enforces the invalid-configuration error kind of spec §7:
// invalid backend name or non-positive numeric setting where the
// semantics require strictly positive.
func (c Config) Validate() error {
	if c.VectorBackend != "sqlite_vec" {
		return fmt.Errorf("%w: unknown vector_backend %q", ErrInvalidConfig, c.VectorBackend)
	}
	if c.RetrievalMode != "base" && c.RetrievalMode != "hybrid" {
		return fmt.Errorf("%w: unknown retrieval_mode %q", ErrInvalidConfig, c.RetrievalMode)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be > 0", ErrInvalidConfig)
	}
	if c.RRFK0 <= 0 {
		return fmt.Errorf("%w: rrf_k0 must be > 0", ErrInvalidConfig)
	}
	if c.CandidateMultiplier <= 0 {
		return fmt.Errorf("%w: candidate_multiplier must be > 0", ErrInvalidConfig)
	}
	if c.MinEvidenceHits <= 0 {
		return fmt.Errorf("%w: min_evidence_hits must be > 0", ErrInvalidConfig)
	}
	if c.EmbeddingDim <= 0 {
		return fmt.Errorf("%w: embedding_dim must be > 0", ErrInvalidConfig)
	}
	return nil
}

func (c Config) hybridConfig() retrieval.HybridConfig {
	cfg := retrieval.DefaultHybridConfig()
	cfg.TopK = c.TopK
	cfg.CandidateMultiplier = c.CandidateMultiplier
	cfg.K0 = c.RRFK0
	cfg.FusionEnabled = c.QueryFusion
	cfg.RerankEnabled = c.EnableRerank
	cfg.RerankPool = c.RerankPool
	cfg.Mode = c.RetrievalMode
	return cfg
}

func (c Config) citationConfig() citation.Config {
	return citation.Config{
		MaxContextChunks: c.MaxContextChunks,
		MaxContextChars:  c.MaxContextChars,
		IncludeNeighbors: c.IncludeNeighbors,
		NeighborWindow:   c.NeighborWindow,
		MinEvidenceHits:  c.MinEvidenceHits,
		LLMTemperature:   c.LLMTemperature,
	}
}

func (c Config) agentConfig() agent.Config {
	return agent.Config{
		MaxSteps:           c.AgentMaxSteps,
		MaxToolCalls:       c.AgentMaxToolCalls,
		MaxRetrievalRounds: c.AgentMaxRetrievalRounds,
		MinEvidenceHits:    c.MinEvidenceHits,
	}
}

func (c Config) evalConfig() eval.Config {
	return eval.Config{K: c.EvalK, NearPageTol: c.EvalNearPageTolerance}
}
