package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/psicoflow/internal/store"
)

const defaultHealthTimeout = 5 * time.Second

// SessionCounter reports the number of live sessions.
type SessionCounter interface {
	Len() int
}

// ModelStatus reports the configured language model and probes it.
type ModelStatus interface {
	Provider() string
	Health(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	sessions SessionCounter
	journal  store.Journal
	model    ModelStatus
	timeout  time.Duration
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(sessions SessionCounter, journal store.Journal, model ModelStatus) *HealthHandler {
	if journal == nil {
		journal = store.NopJournal{}
	}
	return &HealthHandler{
		sessions: sessions,
		journal:  journal,
		model:    model,
		timeout:  defaultHealthTimeout,
	}
}

// Health returns the health status of the API and its dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := map[string]interface{}{
		"status":       "healthy",
		"checks":       checks,
		"sessions":     h.sessions.Len(),
		"llm_provider": h.model.Provider(),
	}
	statusCode := http.StatusOK

	// The flow degrades to safe defaults without a model, so this never
	// fails the endpoint on its own.
	if err := h.model.Health(ctx); err != nil {
		slog.Warn("LLM health check failed", "provider", h.model.Provider(), "error", err)
		status["status"] = "degraded"
		checks["llm"] = "unreachable"
	} else {
		checks["llm"] = "ok"
	}

	if err := h.journal.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		status["status"] = "degraded"
		checks["journal"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["journal"] = "ok"
		if stats, err := h.journal.Stats(ctx); err != nil {
			slog.Warn("Failed to read delivery stats", "error", err)
		} else {
			status["deliveries"] = stats
		}
	}

	JSON(w, statusCode, status)
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/api/health", h.Health)
}
