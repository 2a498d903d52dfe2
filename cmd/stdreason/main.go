// Command stdreason is the CLI surface for the retrieval-and-citation
// engine: ingest, search, ask, agent, eval (spec §6).
//
//	stdreason ingest --db stdreason.db --doc-id ML-KEM --pdf ./fips203.pdf
//	stdreason search --db stdreason.db "Algorithm 19 ML-KEM.KeyGen"
//	stdreason ask --db stdreason.db "what is the difference between ML-KEM and ML-DSA?"
//	stdreason agent --db stdreason.db "explain SHAKE128 in ML-KEM.KeyGen"
//	stdreason eval --db stdreason.db --questions ./questions.jsonl --out ./eval-results
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	stdreason "github.com/bbiangul/stdreason"
	"github.com/bbiangul/stdreason/eval"
	"github.com/bbiangul/stdreason/llm"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: stdreason <ingest|search|ask|agent|eval> [flags]")
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "ingest":
		err = runIngest(os.Args[2:])
	case "search":
		err = runSearch(os.Args[2:])
	case "ask":
		err = runAsk(os.Args[2:])
	case "agent":
		err = runAgent(os.Args[2:])
	case "eval":
		err = runEval(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		os.Exit(2)
	}

	os.Exit(exitCode(err))
}

// exitCode maps an error to the CLI exit codes of spec §6/§7: 0 success,
// 1 empty input, 2 invalid configuration, 3 missing artifacts.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, stdreason.ErrEmptyQuestion):
		slog.Error("empty input", "error", err)
		return 1
	case errors.Is(err, stdreason.ErrInvalidConfig):
		slog.Error("invalid configuration", "error", err)
		return 2
	case errors.Is(err, stdreason.ErrMissingArtifact):
		slog.Error("missing artifact", "error", err)
		return 3
	default:
		slog.Error("command failed", "error", err)
		return 1
	}
}

// sharedFlags are the flags every subcommand accepts to build a Config
// and a pair of LLM providers. STDREASON_* environment variables
// override the base URLs and API keys, matching cmd/server's
// GOREASON_*-prefixed override convention.
type sharedFlags struct {
	dbPath        string
	configPath    string
	chatBaseURL   string
	chatAPIKey    string
	chatModel     string
	embedBaseURL  string
	embedAPIKey   string
	embedModel    string
	topK          int
	retrievalMode string
}

func registerSharedFlags(fs *flag.FlagSet) *sharedFlags {
	f := &sharedFlags{}
	fs.StringVar(&f.dbPath, "db", "stdreason.db", "path to the SQLite chunk store")
	fs.StringVar(&f.configPath, "config", "", "path to a JSON or YAML config file")
	fs.StringVar(&f.chatBaseURL, "chat-base-url", os.Getenv("STDREASON_CHAT_BASE_URL"), "chat/generator API base URL")
	fs.StringVar(&f.chatAPIKey, "chat-api-key", os.Getenv("STDREASON_CHAT_API_KEY"), "chat/generator API key")
	fs.StringVar(&f.chatModel, "chat-model", os.Getenv("STDREASON_CHAT_MODEL"), "chat/generator model name")
	fs.StringVar(&f.embedBaseURL, "embed-base-url", os.Getenv("STDREASON_EMBED_BASE_URL"), "embedding API base URL")
	fs.StringVar(&f.embedAPIKey, "embed-api-key", os.Getenv("STDREASON_EMBED_API_KEY"), "embedding API key")
	fs.StringVar(&f.embedModel, "embed-model", os.Getenv("STDREASON_EMBED_MODEL"), "embedding model name")
	fs.IntVar(&f.topK, "top-k", 0, "override top_k (0 keeps the config default)")
	fs.StringVar(&f.retrievalMode, "retrieval-mode", "", "override retrieval_mode: base or hybrid")
	return f
}

func (f *sharedFlags) loadConfig() (stdreason.Config, error) {
	cfg := stdreason.DefaultConfig()
	if f.configPath != "" {
		data, err := os.ReadFile(f.configPath)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		switch filepath.Ext(f.configPath) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(data, &cfg)
		default:
			err = json.Unmarshal(data, &cfg)
		}
		if err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	}
	if f.dbPath != "" {
		cfg.DBPath = f.dbPath
	}
	if f.chatModel != "" {
		cfg.GeneratorModel = f.chatModel
	}
	if f.embedModel != "" {
		cfg.EmbedderModel = f.embedModel
	}
	if f.topK > 0 {
		cfg.TopK = f.topK
	}
	if f.retrievalMode != "" {
		cfg.RetrievalMode = f.retrievalMode
	}
	return cfg, cfg.Validate()
}

func (f *sharedFlags) openEngine(cfg stdreason.Config) (*stdreason.Engine, error) {
	embedder := llm.New(llm.Config{BaseURL: f.embedBaseURL, APIKey: f.embedAPIKey, Model: f.embedModel})
	generator := llm.New(llm.Config{BaseURL: f.chatBaseURL, APIKey: f.chatAPIKey, Model: f.chatModel})
	return stdreason.Open(cfg, embedder, generator)
}

func runIngest(args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	shared := registerSharedFlags(fs)
	docID := fs.String("doc-id", "", "document identifier")
	pdfPath := fs.String("pdf", "", "path to the source PDF")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *docID == "" || *pdfPath == "" {
		return fmt.Errorf("%w: --doc-id and --pdf are required", stdreason.ErrInvalidConfig)
	}

	cfg, err := shared.loadConfig()
	if err != nil {
		return err
	}
	engine, err := shared.openEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	slog.Info("ingest: parsing document", "doc_id", *docID, "file", *pdfPath)
	if err := engine.Ingest(context.Background(), *docID, *pdfPath); err != nil {
		return fmt.Errorf("ingesting %s: %w", *docID, err)
	}
	slog.Info("ingest: complete", "doc_id", *docID)
	return nil
}

func runSearch(args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	shared := registerSharedFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	question := fs.Arg(0)

	cfg, err := shared.loadConfig()
	if err != nil {
		return err
	}
	engine, err := shared.openEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	hits, err := engine.Search(context.Background(), question)
	if err != nil {
		return err
	}
	return printJSON(hits)
}

func runAsk(args []string) error {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	shared := registerSharedFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	question := fs.Arg(0)

	cfg, err := shared.loadConfig()
	if err != nil {
		return err
	}
	engine, err := shared.openEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	result, err := engine.Ask(context.Background(), question)
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runAgent(args []string) error {
	fs := flag.NewFlagSet("agent", flag.ExitOnError)
	shared := registerSharedFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	question := fs.Arg(0)

	cfg, err := shared.loadConfig()
	if err != nil {
		return err
	}
	engine, err := shared.openEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	state, err := engine.RunAgent(context.Background(), question)
	if err != nil {
		return err
	}
	return printJSON(state)
}

func runEval(args []string) error {
	fs := flag.NewFlagSet("eval", flag.ExitOnError)
	shared := registerSharedFlags(fs)
	questionsPath := fs.String("questions", "", "path to a JSONL file of labeled questions")
	outDir := fs.String("out", "./eval-out", "directory to write results.jsonl/summary.json/summary.md")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *questionsPath == "" {
		return fmt.Errorf("%w: --questions is required", stdreason.ErrInvalidConfig)
	}

	questions, err := loadLabeledQuestions(*questionsPath)
	if err != nil {
		return fmt.Errorf("loading questions: %w", err)
	}

	cfg, err := shared.loadConfig()
	if err != nil {
		return err
	}
	engine, err := shared.openEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	results, summary := engine.Evaluate(context.Background(), questions)
	if err := eval.WriteArtifacts(*outDir, results, summary); err != nil {
		return fmt.Errorf("writing eval artifacts: %w", err)
	}
	fmt.Println(eval.FormatSummary(summary, results))
	return nil
}

func loadLabeledQuestions(path string) ([]eval.LabeledQuestion, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	var out []eval.LabeledQuestion
	for {
		var q eval.LabeledQuestion
		if err := dec.Decode(&q); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
