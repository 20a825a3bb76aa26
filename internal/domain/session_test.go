package domain

import (
	"strconv"
	"testing"
)

func TestRecordTurnKeepsLastSixInOrder(t *testing.T) {
	s := NewSession("user-1")
	for i := 0; i < 9; i++ {
		s.RecordTurn("msg-" + strconv.Itoa(i))
	}

	if len(s.History) != HistoryLimit {
		t.Fatalf("expected %d history entries, got %d", HistoryLimit, len(s.History))
	}
	if s.History[0] != "msg-3" || s.History[5] != "msg-8" {
		t.Fatalf("unexpected history order: %v", s.History)
	}
	if len(s.FreeText) != HistoryLimit {
		t.Fatalf("expected free text mirror to be bounded, got %d", len(s.FreeText))
	}
}

func TestResetClearsEverythingButUser(t *testing.T) {
	s := NewSession("user-1")
	s.PersonalData["nome"] = "Maria"
	s.PHQ9 = []int{1, 2}
	s.GAD7 = []int{3}
	s.CriticalItemPositive = true
	s.Availability = "segunda 16h"
	s.ObservationSet = true
	s.RecordTurn("oi")
	s.QuestionnaireStarted = true
	s.Active = true
	s.Finalized = true
	s.Stage = 4
	firstID := s.ID

	s.Reset()

	if s.ID == "" || s.ID == firstID {
		t.Fatalf("expected a new conversation id, got %q", s.ID)
	}

	if s.UserID != "user-1" {
		t.Fatalf("user id should survive reset, got %q", s.UserID)
	}
	if len(s.PersonalData) != 0 || len(s.PHQ9) != 0 || len(s.GAD7) != 0 || len(s.History) != 0 {
		t.Fatal("expected collections to be cleared")
	}
	if s.Active || s.Finalized || s.QuestionnaireStarted || s.CriticalItemPositive || s.ObservationSet {
		t.Fatal("expected flags to be cleared")
	}
	if s.Stage != 0 || s.Availability != "" {
		t.Fatal("expected stage and availability to be cleared")
	}
}

func TestUrgencyAndEmotionValidity(t *testing.T) {
	if !UrgencyHigh.Valid() || Urgency("critica").Valid() {
		t.Fatal("unexpected urgency validity")
	}
	if !EmotionFatigue.Valid() || Emotion("desconhecida").Valid() {
		t.Fatal("unexpected emotion validity")
	}
}
