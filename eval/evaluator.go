package eval

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bbiangul/stdreason/retrieval"
)

// RetrieveFn runs the retrieval pipeline under evaluation for one
// question, returning up to k hits. Kept as a function type so the
// evaluator is decoupled from any concrete engine.
type RetrieveFn func(ctx context.Context, question string, k int) ([]retrieval.ChunkHit, error)

// Evaluator runs a labeled question set against a RetrieveFn.
type Evaluator struct {
	retrieve RetrieveFn
	cfg      Config
}

// New constructs an Evaluator.
func New(retrieve RetrieveFn, cfg Config) *Evaluator {
	if cfg.K <= 0 {
		cfg.K = 10
	}
	if cfg.NearPageTol < 0 {
		cfg.NearPageTol = 1
	}
	return &Evaluator{retrieve: retrieve, cfg: cfg}
}

// Run evaluates every question, in deterministic qid order, and returns
// per-question results plus the aggregate summary.
func (e *Evaluator) Run(ctx context.Context, questions []LabeledQuestion) ([]QuestionResult, Summary) {
	ordered := make([]LabeledQuestion, len(questions))
	copy(ordered, questions)
	sortQuestionsByQID(ordered)

	results := make([]QuestionResult, 0, len(ordered))
	var sumRecall, sumMRR, sumNDCG, sumDocOnly, sumNearPage float64
	var numErrors int

	for _, q := range ordered {
		res := e.runQuestion(ctx, q)
		results = append(results, res)
		if res.Error != "" {
			numErrors++
			slog.Warn("eval: question failed", "qid", q.QID, "error", res.Error)
			continue
		}
		sumRecall += res.RecallAtK
		sumMRR += res.MRRAtK
		sumNDCG += res.NDCGAtK
		sumDocOnly += res.DocOnlyRecall
		sumNearPage += res.NearPageRecall
	}

	n := float64(len(ordered) - numErrors)
	summary := Summary{
		NumQuestions: len(ordered),
		K:            e.cfg.K,
		NumErrors:    numErrors,
	}
	if n > 0 {
		summary.AvgRecallAtK = sumRecall / n
		summary.AvgMRRAtK = sumMRR / n
		summary.AvgNDCGAtK = sumNDCG / n
		summary.AvgDocOnlyRecall = sumDocOnly / n
		summary.AvgNearPageRecall = sumNearPage / n
	}

	return results, summary
}

func (e *Evaluator) runQuestion(ctx context.Context, q LabeledQuestion) QuestionResult {
	res := QuestionResult{
		QID:        q.QID,
		Question:   q.Question,
		Answerable: q.Answerable,
		NumGold:    len(q.Gold),
	}

	hits, err := e.retrieve(ctx, q.Question, e.cfg.K)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.NumHits = len(hits)

	res.RecallAtK = recallAtK(hits, q.Gold, e.cfg.K, matchesGold)
	res.MRRAtK = mrrAtK(hits, q.Gold, e.cfg.K, matchesGold)
	res.NDCGAtK = ndcgAtK(hits, q.Gold, e.cfg.K, matchesGold)
	res.DocOnlyRecall = recallAtK(hits, q.Gold, e.cfg.K, matchesGoldDocOnly)
	res.NearPageRecall = recallAtK(hits, q.Gold, e.cfg.K, func(h retrieval.ChunkHit, g GoldSpan) bool {
		return matchesGoldNearPage(h, g, e.cfg.NearPageTol)
	})

	return res
}

// WriteArtifacts emits the per-question JSONL, the summary JSON, and a
// Markdown report into dir (spec §4.9).
func WriteArtifacts(dir string, results []QuestionResult, summary Summary) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("eval: creating output dir: %w", err)
	}

	if err := writeJSONL(filepath.Join(dir, "results.jsonl"), results); err != nil {
		return err
	}
	if err := writeSummaryJSON(filepath.Join(dir, "summary.json"), summary); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "summary.md"), []byte(FormatSummary(summary, results)), 0o644); err != nil {
		return fmt.Errorf("eval: writing summary.md: %w", err)
	}
	return nil
}

func writeJSONL(path string, results []QuestionResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("eval: creating %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("eval: encoding result for %s: %w", r.QID, err)
		}
	}
	return w.Flush()
}

func writeSummaryJSON(path string, summary Summary) error {
	b, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("eval: marshaling summary: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("eval: writing %s: %w", path, err)
	}
	return nil
}

// FormatSummary produces a human-readable Markdown report.
func FormatSummary(summary Summary, results []QuestionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Retrieval Evaluation Summary\n\n")
	fmt.Fprintf(&b, "- Questions: %d (errors: %d)\n", summary.NumQuestions, summary.NumErrors)
	fmt.Fprintf(&b, "- K: %d\n", summary.K)
	fmt.Fprintf(&b, "- Recall@%d: %.3f\n", summary.K, summary.AvgRecallAtK)
	fmt.Fprintf(&b, "- MRR@%d: %.3f\n", summary.K, summary.AvgMRRAtK)
	fmt.Fprintf(&b, "- nDCG@%d: %.3f\n", summary.K, summary.AvgNDCGAtK)
	fmt.Fprintf(&b, "- Doc-only Recall@%d: %.3f\n", summary.K, summary.AvgDocOnlyRecall)
	fmt.Fprintf(&b, "- Near-page Recall@%d: %.3f\n\n", summary.K, summary.AvgNearPageRecall)

	fmt.Fprintf(&b, "## Per-question\n\n")
	fmt.Fprintf(&b, "| qid | recall | mrr | ndcg | hits | gold | error |\n")
	fmt.Fprintf(&b, "|---|---|---|---|---|---|---|\n")
	for _, r := range results {
		fmt.Fprintf(&b, "| %s | %.3f | %.3f | %.3f | %d | %d | %s |\n",
			r.QID, r.RecallAtK, r.MRRAtK, r.NDCGAtK, r.NumHits, r.NumGold, r.Error)
	}
	return b.String()
}
