package llm

import (
	"context"
	"net/http"
)

// DefaultOllamaBaseURL is the local Ollama daemon.
const DefaultOllamaBaseURL = "http://localhost:11434"

type ollamaRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
}

type ollamaResponse struct {
	Model   string      `json:"model"`
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

// Ollama calls a local Ollama /api/chat endpoint.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllama creates an Ollama generator.
func NewOllama(baseURL, model string, client *http.Client) *Ollama {
	if baseURL == "" {
		baseURL = DefaultOllamaBaseURL
	}
	if model == "" {
		model = "llama3.1"
	}
	if client == nil {
		client = defaultHTTPClient
	}
	return &Ollama{baseURL: baseURL, model: model, client: client}
}

// Name implements Generator.
func (o *Ollama) Name() string { return "ollama" }

// Generate implements Generator.
func (o *Ollama) Generate(ctx context.Context, req Request) (string, error) {
	body := ollamaRequest{
		Model:    o.model,
		Messages: []chatMessage{{Role: "user", Content: req.Prompt}},
	}
	if req.JSON {
		body.Format = "json"
	}

	var resp ollamaResponse
	if err := postJSON(ctx, o.client, joinURL(o.baseURL, "/api/chat"), nil, body, &resp); err != nil {
		return "", err
	}
	if resp.Message.Content == "" {
		return "", ErrEmpty
	}
	return resp.Message.Content, nil
}
