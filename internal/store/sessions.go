package store

import (
	"sync"
	"time"

	"github.com/ashureev/psicoflow/internal/domain"
)

type entry struct {
	mu      sync.Mutex
	session *domain.Session
}

// Sessions owns one mutable session per user. Callers serialize work on a
// user's session with Lock.
type Sessions struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewSessions creates an empty store.
func NewSessions() *Sessions {
	return &Sessions{entries: make(map[string]*entry)}
}

func (s *Sessions) entry(userID string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[userID]
	if !ok {
		e = &entry{session: domain.NewSession(userID)}
		s.entries[userID] = e
	}
	return e
}

// Get returns the user's session, creating it on first access.
func (s *Sessions) Get(userID string) *domain.Session {
	return s.entry(userID).session
}

// Reset clears the user's session in place and returns it.
func (s *Sessions) Reset(userID string) *domain.Session {
	sess := s.Get(userID)
	sess.Reset()
	return sess
}

// Lock blocks until the caller owns userID's session and returns the
// release function.
func (s *Sessions) Lock(userID string) func() {
	for {
		e := s.entry(userID)
		e.mu.Lock()

		s.mu.Lock()
		current := s.entries[userID]
		s.mu.Unlock()
		if current == e {
			return e.mu.Unlock
		}
		// Evicted between lookup and lock.
		e.mu.Unlock()
	}
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep evicts sessions untouched for longer than idle and returns their
// user IDs. Sessions currently locked are skipped.
func (s *Sessions) Sweep(idle time.Duration) []string {
	cutoff := time.Now().Add(-idle)

	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted []string
	for userID, e := range s.entries {
		if !e.mu.TryLock() {
			continue
		}
		if e.session.UpdatedAt.Before(cutoff) {
			delete(s.entries, userID)
			evicted = append(evicted, userID)
		}
		e.mu.Unlock()
	}
	return evicted
}
