package intake

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ashureev/psicoflow/internal/backend"
	"github.com/ashureev/psicoflow/internal/domain"
)

func TestFinalizeCompletesAfterCallerCancel(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get(backend.SecretHeader) != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	journal := &fakeJournal{}
	h := &harness{
		t: t,
		machine: NewMachine(Deps{
			Fields:    DefaultFields(true),
			Analyzer:  newFakeAnalyzer(),
			Submitter: backend.NewClient(srv.URL, "s3cret", 2*time.Second, testLogger()),
			Journal:   journal,
			Logger:    testLogger(),
		}),
		journal: journal,
		sess:    domain.NewSession("user-1"),
		stage:   StageMenu,
	}
	h.toScheduling()
	h.send("segunda 16h")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	next, replies := h.machine.Step(ctx, h.stage, h.sess, "Nenhuma")

	if next != StageEnded {
		t.Fatalf("stage = %s, want %s", next, StageEnded)
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("backend hits = %d, want 1", got)
	}
	if len(replies) == 0 || !strings.Contains(replies[len(replies)-1].Text, "Classificação geral") {
		t.Fatalf("unexpected replies: %q", texts(replies))
	}
	if len(journal.records) != 1 || !journal.records[0].Delivered {
		t.Fatalf("journal = %+v, want one delivered record", journal.records)
	}

	again := h.machine.Finalize(context.Background(), h.sess)
	if again[0].Text != msgAlreadyClosed {
		t.Errorf("second finalize replies: %q", texts(again))
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("backend hits after retry = %d, want 1", got)
	}
}
