package stdreason

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/bbiangul/stdreason/agent"
	"github.com/bbiangul/stdreason/chunker"
	"github.com/bbiangul/stdreason/citation"
	"github.com/bbiangul/stdreason/cleaner"
	"github.com/bbiangul/stdreason/eval"
	"github.com/bbiangul/stdreason/llm"
	"github.com/bbiangul/stdreason/parser"
	"github.com/bbiangul/stdreason/retrieval"
	"github.com/bbiangul/stdreason/store"
)

// Engine wires the full pipeline: parsing, cleaning, chunking, storage,
// hybrid retrieval, citation-enforced answering, the bounded agent loop,
// and offline evaluation.
type Engine struct {
	cfg        Config
	store      *store.Store
	embedder   llm.Provider
	generateFn citation.GenerateFn
	provider   parser.PageProvider
	cleaner    *cleaner.Cleaner
	chunker    *chunker.Chunker
	bm25       *retrieval.BM25Index
	retrieve   *retrieval.Engine
	enforcer   *citation.Enforcer
	agent      *agent.Agent
}

// Open validates cfg, opens (or creates) the backing SQLite store, and
// wires every subsystem. embedder and generator are the external,
// opaque LLM collaborators (spec treats both as pure functions); the
// same provider may back both.
func Open(cfg Config, embedder, generator llm.Provider) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s, err := store.New(cfg.DBPath, cfg.EmbeddingDim)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	var bm25 *retrieval.BM25Index
	if manifest, err := s.GetManifest(context.Background()); err == nil && manifest.NVectors > 0 {
		bm25 = loadBM25FromStore(context.Background(), s)
	}

	retrieveEngine := retrieval.NewEngine(s, embedder, bm25, cfg.hybridConfig())
	enforcer := citation.New(s, cfg.citationConfig())
	generateFn := citation.ChatGenerateFn(generator, cfg.GeneratorModel, cfg.LLMTemperature)
	agentEngine := agent.New(retrieveEngine, enforcer, generateFn, cfg.agentConfig())

	return &Engine{
		cfg:        cfg,
		store:      s,
		embedder:   embedder,
		generateFn: generateFn,
		provider:   &parser.PDFProvider{},
		cleaner:    cleaner.New(cleaner.Config{}),
		chunker:    chunker.New(chunker.Config{}),
		bm25:       bm25,
		retrieve:   retrieveEngine,
		enforcer:   enforcer,
		agent:      agentEngine,
	}, nil
}

// Close releases the underlying store.
func (e *Engine) Close() error {
	return e.store.Close()
}

// loadBM25FromStore rebuilds the in-memory lexical index from every
// persisted chunk. It is cheap enough to redo on open rather than persist
// a second artifact format that could drift from chunk_store.
func loadBM25FromStore(ctx context.Context, s *store.Store) *retrieval.BM25Index {
	rows, err := s.AllChunks(ctx)
	if err != nil || len(rows) == 0 {
		return nil
	}
	artifact := retrieval.BuildBM25Artifact(rows, retrieval.DefaultBM25Config())
	return retrieval.NewBM25Index(artifact)
}

// Ingest parses, cleans, chunks, embeds, and indexes a single source
// document under docID. Re-ingesting the same docID replaces its pages,
// chunks, and embeddings.
func (e *Engine) Ingest(ctx context.Context, docID, sourcePath string) error {
	pages, err := e.provider.Pages(ctx, sourcePath)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", sourcePath, err)
	}

	hash, err := hashFile(sourcePath)
	if err != nil {
		return fmt.Errorf("hashing %s: %w", sourcePath, err)
	}

	rawTexts := make([]string, len(pages))
	for i, p := range pages {
		rawTexts[i] = p.Text
	}
	boilerplate := e.cleaner.DetectBoilerplate(rawTexts)

	storePages := make([]store.Page, 0, len(pages))
	cleanPages := make([]chunker.CleanPage, 0, len(pages))
	for _, p := range pages {
		clean := e.cleaner.CleanPage(p.Text, boilerplate)
		storePages = append(storePages, store.Page{
			DocID:      docID,
			PageNumber: p.PageNumber,
			RawText:    p.Text,
			CleanText:  clean,
		})
		cleanPages = append(cleanPages, chunker.CleanPage{
			DocID:      docID,
			PageNumber: p.PageNumber,
			CleanText:  clean,
		})
	}

	if err := e.store.DeleteDocument(ctx, docID); err != nil {
		return fmt.Errorf("clearing previous ingest of %s: %w", docID, err)
	}
	if err := e.store.UpsertDocument(ctx, store.Document{
		DocID:       docID,
		SourcePath:  sourcePath,
		ContentHash: hash,
		NumPages:    len(pages),
		Status:      "ingested",
	}); err != nil {
		return fmt.Errorf("upserting document: %w", err)
	}
	if err := e.store.InsertPages(ctx, docID, storePages); err != nil {
		return fmt.Errorf("inserting pages: %w", err)
	}

	chunks := e.chunker.Chunk(cleanPages)
	texts, rows := store.BuildEmbeddingStore(chunks)
	if len(texts) == 0 {
		return nil
	}

	vectors, err := e.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding chunks: %w", err)
	}
	if err := e.store.PersistEmbeddings(ctx, rows, vectors, e.cfg.EmbedderModel); err != nil {
		return fmt.Errorf("persisting embeddings: %w", err)
	}

	allRows, err := e.store.AllChunks(ctx)
	if err != nil {
		return fmt.Errorf("reloading chunk store: %w", err)
	}
	artifact := retrieval.BuildBM25Artifact(allRows, retrieval.DefaultBM25Config())
	e.bm25 = retrieval.NewBM25Index(artifact)
	e.retrieve = retrieval.NewEngine(e.store, e.embedder, e.bm25, e.cfg.hybridConfig())
	e.agent = agent.New(e.retrieve, e.enforcer, e.generateFn, e.cfg.agentConfig())

	return nil
}

func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Search runs hybrid (or base) retrieval for a raw query and returns the
// ranked chunk hits, without generation or citation enforcement.
func (e *Engine) Search(ctx context.Context, query string) ([]retrieval.ChunkHit, error) {
	if isBlank(query) {
		return nil, ErrEmptyQuestion
	}
	if err := e.retrieve.CheckReady(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingArtifact, err)
	}
	return e.retrieve.Search(ctx, query)
}

// Ask retrieves evidence for a question and returns a citation-enforced
// answer, refusing when the evidence does not fully ground a response.
func (e *Engine) Ask(ctx context.Context, question string) (citation.AnswerResult, error) {
	if isBlank(question) {
		return citation.AnswerResult{}, ErrEmptyQuestion
	}
	if err := e.retrieve.CheckReady(ctx); err != nil {
		return citation.AnswerResult{}, fmt.Errorf("%w: %v", ErrMissingArtifact, err)
	}
	hits, err := e.retrieve.Search(ctx, question)
	if err != nil {
		return citation.AnswerResult{}, fmt.Errorf("searching: %w", err)
	}
	result, err := e.enforcer.BuildCitedAnswer(ctx, question, hits, e.generateFn)
	if err != nil {
		return citation.AnswerResult{}, fmt.Errorf("building answer: %w", err)
	}
	refusalReason := ""
	if result.IsRefusal {
		refusalReason = citation.CanonicalRefusal
	}
	_ = e.store.LogQuery(ctx, question, result.AnswerText, result.IsRefusal, refusalReason, len(result.Citations))
	return result, nil
}

// RunAgent drives the bounded retrieve-assess-refine loop (spec §4.8) for
// a question and returns the final agent state, including its trace.
func (e *Engine) RunAgent(ctx context.Context, question string) (*agent.AgentState, error) {
	if isBlank(question) {
		return nil, ErrEmptyQuestion
	}
	if err := e.retrieve.CheckReady(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingArtifact, err)
	}
	state, err := e.agent.Run(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("running agent: %w", err)
	}
	_ = e.store.LogQuery(ctx, question, state.FinalAnswer, state.RefusalReason != "", string(state.RefusalReason), len(state.Citations))
	return state, nil
}

// Evaluate runs the offline evaluator (C9) over a labeled question set
// using this engine's retrieval as the system under test.
func (e *Engine) Evaluate(ctx context.Context, questions []eval.LabeledQuestion) ([]eval.QuestionResult, eval.Summary) {
	retrieveFn := func(ctx context.Context, question string, k int) ([]retrieval.ChunkHit, error) {
		hits, err := e.retrieve.Search(ctx, question)
		if err != nil {
			return nil, err
		}
		if len(hits) > k {
			hits = hits[:k]
		}
		return hits, nil
	}
	evaluator := eval.New(retrieveFn, e.cfg.evalConfig())
	return evaluator.Run(ctx, questions)
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
