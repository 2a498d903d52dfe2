// Package llm wraps the two external collaborators the retrieval engine
// treats as pure functions: an embedder (texts -> unit vectors) and a
// generator (prompt -> text). Both are backed by an OpenAI-compatible HTTP
// API so the same client serves local runtimes (Ollama, LM Studio) and
// hosted providers (OpenAI, OpenRouter, Groq, and friends) interchangeably.
package llm

import "context"

// Provider is the interface for LLM interactions: chat completion and
// embedding generation.
type Provider interface {
	// Chat sends a chat completion request and returns the generated text.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// Embed generates L2-normalized embeddings for a batch of texts, one
	// row per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ChatRequest is a chat completion request.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	// ResponseFormat can be set to "json_object" for JSON mode.
	ResponseFormat string `json:"response_format,omitempty"`
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is the response from a chat completion.
type ChatResponse struct {
	Content          string `json:"content"`
	Model            string `json:"model"`
	FinishReason     string `json:"finish_reason"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
}

// Config configures an OpenAI-compatible provider.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}

// New creates an OpenAI-compatible provider for the given base URL, e.g.
// "https://api.openai.com" or "http://localhost:11434" for an
// Ollama-compatible local runtime.
func New(cfg Config) Provider {
	return &openAICompatProvider{base: newOpenAICompatClient(cfg)}
}
