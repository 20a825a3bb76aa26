package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashureev/psicoflow/internal/domain"
)

func newTestJournal(t *testing.T) *SQLiteJournal {
	t.Helper()
	j, err := NewSQLite(filepath.Join(t.TempDir(), "data", "journal.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestJournalRecordAndStats(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	records := []domain.DeliveryRecord{
		{SubmissionID: "a", UserID: "1", Delivered: true, PHQ9Score: 4, GAD7Score: 3, Urgency: domain.UrgencyLow},
		{SubmissionID: "b", UserID: "2", Delivered: false, PHQ9Score: 21, GAD7Score: 16, Urgency: domain.UrgencyHigh},
		{SubmissionID: "c", UserID: "3", Delivered: true, PHQ9Score: 11, GAD7Score: 9, Urgency: domain.UrgencyMedium},
	}
	for _, rec := range records {
		if err := j.Record(ctx, rec); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	stats, err := j.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := domain.DeliveryStats{Total: 3, Delivered: 2, Failed: 1}
	if stats != want {
		t.Fatalf("got %+v, want %+v", stats, want)
	}
	if err := j.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestJournalPrune(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	old := domain.DeliveryRecord{SubmissionID: "old", UserID: "1", Urgency: domain.UrgencyLow, CreatedAt: time.Now().Add(-48 * time.Hour)}
	recent := domain.DeliveryRecord{SubmissionID: "new", UserID: "1", Urgency: domain.UrgencyLow}
	for _, rec := range []domain.DeliveryRecord{old, recent} {
		if err := j.Record(ctx, rec); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	deleted, err := j.Prune(ctx, 24*time.Hour)
	if err != nil || deleted != 1 {
		t.Fatalf("Prune = %d, %v", deleted, err)
	}
	stats, _ := j.Stats(ctx)
	if stats.Total != 1 {
		t.Fatalf("expected 1 remaining record, got %d", stats.Total)
	}
}

func TestSweepOnceEvictsAndPrunes(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()
	_ = j.Record(ctx, domain.DeliveryRecord{SubmissionID: "x", UserID: "1", Urgency: domain.UrgencyLow, CreatedAt: time.Now().Add(-time.Hour)})

	s := NewSessions()
	s.Get("gone").UpdatedAt = time.Now().Add(-time.Hour)

	var evicted []string
	sweepOnce(ctx, s, j, SweeperConfig{Interval: time.Minute, SessionTTL: time.Minute, JournalRetention: time.Minute},
		func(userID string) { evicted = append(evicted, userID) })

	if len(evicted) != 1 || evicted[0] != "gone" {
		t.Fatalf("unexpected evictions: %v", evicted)
	}
	if stats, _ := j.Stats(ctx); stats.Total != 0 {
		t.Fatalf("expected journal to be pruned, got %d", stats.Total)
	}
}
