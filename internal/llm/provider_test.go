package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOllamaGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Stream || req.Format != "json" || req.Messages[0].Content != "olá" {
			t.Errorf("unexpected request: %+v", req)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":   "llama3.1",
			"message": map[string]string{"role": "assistant", "content": `{"ok":true}`},
			"done":    true,
		})
	}))
	defer srv.Close()

	got, err := NewOllama(srv.URL, "", srv.Client()).Generate(context.Background(), Request{Prompt: "olá", JSON: true})
	if err != nil || got != `{"ok":true}` {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestOpenAIGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer token")
		}
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"texto"}}]}`))
	}))
	defer srv.Close()

	got, err := NewOpenAI(srv.URL+"/v1/", "m", "sk-test", srv.Client()).Generate(context.Background(), Request{Prompt: "p"})
	if err != nil || got != "texto" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestGeminiGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "key" {
			t.Errorf("missing api key header")
		}
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-2.5-flash:generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"par"},{"text":"tes"}]}}]}`))
	}))
	defer srv.Close()

	got, err := NewGemini(srv.URL, "", "key", srv.Client()).Generate(context.Background(), Request{Prompt: "p", JSON: true})
	if err != nil || got != "partes" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestProviderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, strings.Repeat("e", 2000), http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewOllama(srv.URL, "", srv.Client()).Generate(context.Background(), Request{Prompt: "p"})
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("expected status error, got %v", err)
	}
	if len(err.Error()) > maxErrorBody+100 {
		t.Fatalf("error body not truncated: %d bytes", len(err.Error()))
	}
}

func TestNewGeneratorSelection(t *testing.T) {
	cases := []struct {
		cfg  ProviderConfig
		name string
	}{
		{ProviderConfig{}, ""},
		{ProviderConfig{Provider: "none"}, ""},
		{ProviderConfig{Provider: "gemini"}, ""},
		{ProviderConfig{Provider: "gemini", APIKey: "k"}, "gemini"},
		{ProviderConfig{Provider: "OpenAI", APIKey: "k"}, "openai"},
		{ProviderConfig{Provider: "ollama"}, "ollama"},
	}
	for _, tc := range cases {
		gen, closer, err := NewGenerator(tc.cfg, nil)
		if err != nil {
			t.Fatalf("%+v: %v", tc.cfg, err)
		}
		if closer == nil {
			t.Fatal("closer must not be nil")
		}
		name := ""
		if gen != nil {
			name = gen.Name()
		}
		if name != tc.name {
			t.Errorf("%+v: got %q, want %q", tc.cfg, name, tc.name)
		}
	}

	if _, _, err := NewGenerator(ProviderConfig{Provider: "bard"}, nil); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
