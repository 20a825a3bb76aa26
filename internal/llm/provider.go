package llm

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// ProviderConfig selects and configures a Generator.
type ProviderConfig struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	GRPCAddr string
}

// NewGenerator builds the configured generator. It returns a nil Generator
// for provider "" or "none", and for HTTP providers that need a key but have
// none. The returned closer is never nil.
func NewGenerator(cfg ProviderConfig, logger *slog.Logger) (Generator, io.Closer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client := &http.Client{}

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "none":
		logger.Warn("no llm provider configured, using safe defaults only")
		return nil, nopCloser{}, nil
	case "gemini":
		if cfg.APIKey == "" {
			logger.Warn("gemini api key missing, using safe defaults only")
			return nil, nopCloser{}, nil
		}
		return NewGemini(cfg.BaseURL, cfg.Model, cfg.APIKey, client), nopCloser{}, nil
	case "openai":
		if cfg.APIKey == "" && cfg.BaseURL == "" {
			logger.Warn("openai api key missing, using safe defaults only")
			return nil, nopCloser{}, nil
		}
		return NewOpenAI(cfg.BaseURL, cfg.Model, cfg.APIKey, client), nopCloser{}, nil
	case "ollama":
		return NewOllama(cfg.BaseURL, cfg.Model, client), nopCloser{}, nil
	case "grpc":
		g, err := NewGRPC(DefaultGRPCConfig(cfg.GRPCAddr), logger)
		if err != nil {
			return nil, nopCloser{}, err
		}
		return g, g, nil
	default:
		return nil, nopCloser{}, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
