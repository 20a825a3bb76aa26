package domain

import (
	"time"
)

// Submission is the finalized screening payload delivered to the backend.
// JSON keys follow the backend's screening endpoint contract.
type Submission struct {
	ID                   string         `json:"submission_id"`
	Name                 string         `json:"nome"`
	Age                  int            `json:"idade"`
	Phone                string         `json:"telefone,omitempty"`
	RegistrationID       string         `json:"matricula"`
	Course               string         `json:"curso"`
	Term                 string         `json:"periodo"`
	PHQ9Responses        []int          `json:"phq9_respostas"`
	PHQ9Score            int            `json:"phq9_score"`
	CriticalItemPositive bool           `json:"phq9_item9_positive"`
	GAD7Responses        []int          `json:"gad7_respostas"`
	GAD7Score            int            `json:"gad7_score"`
	Availability         string         `json:"disponibilidade"`
	Observation          string         `json:"observacao"`
	Report               string         `json:"relatorio"`
	Triage               TriageJudgment `json:"analise_ia"`
	UserID               string         `json:"telegram_id"`
	SubmittedAt          time.Time      `json:"enviado_em"`
}

// DeliveryRecord is the journal entry written after a delivery attempt.
// It intentionally carries no personal data or free text.
type DeliveryRecord struct {
	SubmissionID string
	UserID       string
	Delivered    bool
	PHQ9Score    int
	GAD7Score    int
	Urgency      Urgency
	CreatedAt    time.Time
}

// DeliveryStats summarizes the delivery journal.
type DeliveryStats struct {
	Total     int64 `json:"total"`
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
}
