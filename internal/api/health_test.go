package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/psicoflow/internal/domain"
	"github.com/ashureev/psicoflow/internal/store"
)

type fakeJournal struct {
	store.NopJournal
	pingErr error
	stats   domain.DeliveryStats
}

func (f fakeJournal) Ping(context.Context) error { return f.pingErr }

func (f fakeJournal) Stats(context.Context) (domain.DeliveryStats, error) { return f.stats, nil }

type fakeModel struct {
	name string
	err  error
}

func (m fakeModel) Provider() string { return m.name }

func (m fakeModel) Health(context.Context) error { return m.err }

type fixedCounter int

func (c fixedCounter) Len() int { return int(c) }

func getHealth(t *testing.T, h *HealthHandler) (int, map[string]interface{}) {
	t.Helper()
	r := chi.NewRouter()
	h.RegisterHealth(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return rec.Code, body
}

func TestHealthReportsStats(t *testing.T) {
	journal := fakeJournal{stats: domain.DeliveryStats{Total: 3, Delivered: 2, Failed: 1}}
	code, body := getHealth(t, NewHealthHandler(fixedCounter(4), journal, fakeModel{name: "gemini"}))

	if code != http.StatusOK || body["status"] != "healthy" {
		t.Fatalf("unexpected health: %d %v", code, body)
	}
	if body["sessions"].(float64) != 4 || body["llm_provider"] != "gemini" {
		t.Fatalf("unexpected body: %v", body)
	}
	deliveries := body["deliveries"].(map[string]interface{})
	if deliveries["failed"].(float64) != 1 {
		t.Fatalf("unexpected deliveries: %v", deliveries)
	}
}

func TestHealthDegradedWhenJournalDown(t *testing.T) {
	h := NewHealthHandler(fixedCounter(0), fakeJournal{pingErr: errors.New("locked")}, fakeModel{name: "none"})
	h.timeout = time.Second
	code, body := getHealth(t, h)

	if code != http.StatusServiceUnavailable || body["status"] != "degraded" {
		t.Fatalf("unexpected health: %d %v", code, body)
	}
	if body["checks"].(map[string]interface{})["journal"] != "unreachable" {
		t.Fatalf("unexpected checks: %v", body["checks"])
	}
}

func TestHealthDegradedWhenModelUnreachable(t *testing.T) {
	model := fakeModel{name: "grpc", err: errors.New("not serving")}
	code, body := getHealth(t, NewHealthHandler(fixedCounter(1), fakeJournal{}, model))

	if code != http.StatusOK || body["status"] != "degraded" {
		t.Fatalf("unexpected health: %d %v", code, body)
	}
	checks := body["checks"].(map[string]interface{})
	if checks["llm"] != "unreachable" || checks["journal"] != "ok" {
		t.Fatalf("unexpected checks: %v", checks)
	}
}
