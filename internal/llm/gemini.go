package llm

import (
	"context"
	"net/http"
	"strings"
)

// DefaultGeminiBaseURL is the public Generative Language API.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	ResponseMIMEType string `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

// Gemini calls the generateContent REST endpoint.
type Gemini struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

// NewGemini creates a Gemini generator.
func NewGemini(baseURL, model, apiKey string, client *http.Client) *Gemini {
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if client == nil {
		client = defaultHTTPClient
	}
	return &Gemini{baseURL: baseURL, model: model, apiKey: apiKey, client: client}
}

// Name implements Generator.
func (g *Gemini) Name() string { return "gemini" }

// Generate implements Generator.
func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	body := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}}},
	}
	mime := "text/plain"
	if req.JSON {
		mime = "application/json"
	}
	body.GenerationConfig = &geminiGenerationConfig{ResponseMIMEType: mime}

	var resp geminiResponse
	url := joinURL(g.baseURL, "/v1beta/models/"+g.model+":generateContent")
	if err := postJSON(ctx, g.client, url, map[string]string{"x-goog-api-key": g.apiKey}, body, &resp); err != nil {
		return "", err
	}
	for _, c := range resp.Candidates {
		var b strings.Builder
		for _, p := range c.Content.Parts {
			b.WriteString(p.Text)
		}
		if b.Len() > 0 {
			return b.String(), nil
		}
	}
	return "", ErrEmpty
}
