package store

import (
	"sync"
	"testing"
	"time"
)

func TestGetCreatesOnceAndResetKeepsIdentity(t *testing.T) {
	s := NewSessions()
	a := s.Get("u1")
	a.Active = true
	a.PersonalData["nome"] = "Ana"

	if b := s.Get("u1"); b != a {
		t.Fatal("expected the same session on second access")
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", s.Len())
	}

	r := s.Reset("u1")
	if r != a || r.Active || len(r.PersonalData) != 0 || r.UserID != "u1" {
		t.Fatalf("unexpected reset session: %+v", r)
	}
}

func TestLockSerializesPerUser(t *testing.T) {
	t.Parallel()
	s := NewSessions()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := s.Lock("u1")
			defer unlock()
			sess := s.Get("u1")
			sess.PHQ9 = append(sess.PHQ9, 1)
		}()
	}
	wg.Wait()

	if got := len(s.Get("u1").PHQ9); got != 50 {
		t.Fatalf("expected 50 appends, got %d", got)
	}
}

func TestSweepEvictsIdleUnlockedSessions(t *testing.T) {
	s := NewSessions()
	s.Get("idle").UpdatedAt = time.Now().Add(-2 * time.Hour)
	s.Get("fresh")
	s.Get("busy").UpdatedAt = time.Now().Add(-2 * time.Hour)

	unlock := s.Lock("busy")
	evicted := s.Sweep(time.Hour)
	unlock()

	if len(evicted) != 1 || evicted[0] != "idle" {
		t.Fatalf("expected only idle to be evicted, got %v", evicted)
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 remaining sessions, got %d", s.Len())
	}
}

func TestLockAfterEvictionUsesFreshSession(t *testing.T) {
	s := NewSessions()
	old := s.Get("u1")
	old.UpdatedAt = time.Now().Add(-time.Hour)
	s.Sweep(time.Minute)

	unlock := s.Lock("u1")
	defer unlock()
	if s.Get("u1") == old {
		t.Fatal("expected a new session after eviction")
	}
}
