// Package domain contains core domain types for the intake service.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// HistoryLimit is the number of recent free-text turns kept per session.
const HistoryLimit = 6

// Session holds the screening state for a single user conversation.
// A session is owned by the store and mutated only while its user lock is held.
type Session struct {
	UserID string
	// ID identifies the current conversation. It changes on every reset.
	ID string
	// Stage is the intake stage the next inbound message will be handled by.
	// It is an int so domain stays independent of the state machine package.
	Stage int

	PersonalData map[string]string

	PHQ9                 []int
	CriticalItemPositive bool
	GAD7                 []int

	Availability   string
	Observation    string
	ObservationSet bool

	History  []string
	FreeText []string

	Triage *TriageJudgment

	QuestionnaireStarted bool
	Active               bool
	Finalized            bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSession creates an empty session for userID.
func NewSession(userID string) *Session {
	now := time.Now()
	return &Session{
		UserID:       userID,
		ID:           uuid.NewString(),
		PersonalData: make(map[string]string),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Reset clears every collected field and flag and starts a new
// conversation ID. The user ID is preserved.
func (s *Session) Reset() {
	s.ID = uuid.NewString()
	s.Stage = 0
	s.PersonalData = make(map[string]string)
	s.PHQ9 = nil
	s.CriticalItemPositive = false
	s.GAD7 = nil
	s.Availability = ""
	s.Observation = ""
	s.ObservationSet = false
	s.History = nil
	s.FreeText = nil
	s.Triage = nil
	s.QuestionnaireStarted = false
	s.Active = false
	s.Finalized = false
	s.UpdatedAt = time.Now()
}

// RecordTurn appends a free-text turn to the rolling history and its
// reporting mirror. Both are bounded to HistoryLimit, oldest evicted first.
func (s *Session) RecordTurn(text string) {
	s.History = appendBounded(s.History, text, HistoryLimit)
	s.FreeText = appendBounded(s.FreeText, text, HistoryLimit)
}

// Touch marks the session as recently used.
func (s *Session) Touch() {
	s.UpdatedAt = time.Now()
}

func appendBounded(list []string, item string, limit int) []string {
	list = append(list, item)
	if len(list) > limit {
		// Copy so the evicted prefix is not retained by the backing array.
		trimmed := make([]string, limit)
		copy(trimmed, list[len(list)-limit:])
		return trimmed
	}
	return list
}
