package llm

import (
	"context"
	"net/http"
)

// DefaultOpenAIBaseURL is the OpenAI API root. Compatible servers work by
// overriding it.
const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []chatMessage         `json:"messages"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Index        int         `json:"index"`
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// OpenAI calls an OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

// NewOpenAI creates an OpenAI-compatible generator.
func NewOpenAI(baseURL, model, apiKey string, client *http.Client) *OpenAI {
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if client == nil {
		client = defaultHTTPClient
	}
	return &OpenAI{baseURL: baseURL, model: model, apiKey: apiKey, client: client}
}

// Name implements Generator.
func (o *OpenAI) Name() string { return "openai" }

// Generate implements Generator.
func (o *OpenAI) Generate(ctx context.Context, req Request) (string, error) {
	body := openAIRequest{
		Model:    o.model,
		Messages: []chatMessage{{Role: "user", Content: req.Prompt}},
	}
	if req.JSON {
		body.ResponseFormat = &openAIResponseFormat{Type: "json_object"}
	}

	headers := map[string]string{}
	if o.apiKey != "" {
		headers["Authorization"] = "Bearer " + o.apiKey
	}

	var resp openAIResponse
	if err := postJSON(ctx, o.client, joinURL(o.baseURL, "/chat/completions"), headers, body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmpty
	}
	return resp.Choices[0].Message.Content, nil
}
