package intake

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ashureev/psicoflow/internal/domain"
	"github.com/ashureev/psicoflow/internal/instrument"
	"github.com/ashureev/psicoflow/internal/llm"
	"github.com/ashureev/psicoflow/internal/report"
	"github.com/ashureev/psicoflow/internal/safety"
)

type scores struct {
	phq9, gad7         int
	phq9Tier, gad7Tier instrument.Tier
}

func computeScores(sess *domain.Session) (scores, error) {
	var s scores
	var err error
	if s.phq9, err = instrument.PHQ9.Score(sess.PHQ9); err != nil {
		return s, fmt.Errorf("score PHQ-9: %w", err)
	}
	if s.phq9Tier, err = instrument.PHQ9.Bucket(s.phq9); err != nil {
		return s, fmt.Errorf("bucket PHQ-9: %w", err)
	}
	if s.gad7, err = instrument.GAD7.Score(sess.GAD7); err != nil {
		return s, fmt.Errorf("score GAD-7: %w", err)
	}
	if s.gad7Tier, err = instrument.GAD7.Bucket(s.gad7); err != nil {
		return s, fmt.Errorf("bucket GAD-7: %w", err)
	}
	return s, nil
}

// Finalize scores the session, asks the model for triage and narrative,
// submits the result once and returns the closing replies. It runs at most
// once per session: later calls only return a notice. Cancelling ctx does
// not interrupt a started finalization.
func (m *Machine) Finalize(ctx context.Context, sess *domain.Session) []Reply {
	if !sess.Active || sess.Finalized {
		m.logger.Warn("finalization_skipped",
			"event", "finalization_skipped",
			"user_id", sess.UserID,
			"active", sess.Active,
			"finalized", sess.Finalized,
		)
		return say(msgAlreadyClosed)
	}
	sess.Finalized = true
	defer func() { sess.Active = false }()
	// Once started, finalization completes even if the caller goes away.
	// Gateway and backend calls keep their own timeouts.
	ctx = context.WithoutCancel(ctx)

	sc, err := computeScores(sess)
	if err != nil {
		m.logger.Error("invariant_violation", "event", "scoring", "user_id", sess.UserID, "error", err)
		return say(msgDeliveryFailed)
	}
	overall := instrument.MoreSevere(sc.phq9Tier, sc.gad7Tier)
	if safety.AnyCrisis(sess.FreeText, sess.CriticalItemPositive) {
		m.logger.Warn("finalizing_with_risk_signals",
			"event", "crisis",
			"user_id", sess.UserID,
			"phq9_item9_positive", sess.CriticalItemPositive,
		)
	}

	triage := m.analyzer.Triage(ctx, llm.TriageInput{
		PersonalData: sess.PersonalData,
		PHQ9:         sess.PHQ9,
		GAD7:         sess.GAD7,
		FreeText:     sess.FreeText,
	}).Value
	sess.Triage = &triage

	data := sess.PersonalData
	summary := report.BuildSummary(report.Input{
		Name:         data[FieldName],
		PHQ9:         sess.PHQ9,
		PHQ9Score:    sc.phq9,
		PHQ9Tier:     sc.phq9Tier,
		GAD7:         sess.GAD7,
		GAD7Score:    sc.gad7,
		GAD7Tier:     sc.gad7Tier,
		Availability: sess.Availability,
		Observation:  sess.Observation,
		Triage:       &triage,
	})

	var topItem string
	if item, ok := report.TopItem(sess.PHQ9, sess.GAD7); ok {
		topItem = item.String()
	}
	now := m.now()
	narrative := m.analyzer.Narrative(ctx, llm.NarrativeContext{
		Name:           data[FieldName],
		RegistrationID: data[FieldRegistration],
		Course:         data[FieldCourse],
		Term:           data[FieldTerm],
		Date:           now.Format("02/01/2006 15:04"),
		Availability:   sess.Availability,
		Observation:    sess.Observation,
		PHQ9Score:      sc.phq9,
		PHQ9Tier:       sc.phq9Tier,
		GAD7Score:      sc.gad7,
		GAD7Tier:       sc.gad7Tier,
		OverallTier:    overall,
		CriticalItem:   sess.CriticalItemPositive,
		TopItem:        topItem,
		Triage:         triage,
		FreeText:       sess.FreeText,
	}).Value

	age, _ := strconv.Atoi(data[FieldAge])
	sub := domain.Submission{
		ID:                   uuid.NewString(),
		Name:                 data[FieldName],
		Age:                  age,
		Phone:                data[FieldPhone],
		RegistrationID:       data[FieldRegistration],
		Course:               data[FieldCourse],
		Term:                 data[FieldTerm],
		PHQ9Responses:        append([]int(nil), sess.PHQ9...),
		PHQ9Score:            sc.phq9,
		CriticalItemPositive: sess.CriticalItemPositive,
		GAD7Responses:        append([]int(nil), sess.GAD7...),
		GAD7Score:            sc.gad7,
		Availability:         sess.Availability,
		Observation:          sess.Observation,
		Report:               report.Compose(summary, narrative),
		Triage:               triage,
		UserID:               sess.UserID,
		SubmittedAt:          now.UTC(),
	}

	delivered := m.submitter.Submit(ctx, sub)
	m.record(ctx, sub, delivered)

	if !delivered {
		m.logger.Error("backend_post_failed",
			"event", "backend_post_failed",
			"user_id", sess.UserID,
			"submission_id", sub.ID,
		)
		return say(msgDeliveryFailed)
	}

	m.logger.Info("screening_completed",
		"event", "screening_completed",
		"user_id", sess.UserID,
		"submission_id", sub.ID,
		"phq9_tier", string(sc.phq9Tier),
		"gad7_tier", string(sc.gad7Tier),
		"urgency", string(triage.Urgency),
	)
	return say(fmt.Sprintf(msgCompleted, sc.phq9Tier, sc.gad7Tier, overall))
}

func (m *Machine) record(ctx context.Context, sub domain.Submission, delivered bool) {
	if m.completions != nil {
		m.completions.Add(ctx, 1, metric.WithAttributes(
			attribute.Bool("delivered", delivered),
			attribute.String("urgency", string(sub.Triage.Urgency)),
		))
	}
	err := m.journal.Record(ctx, domain.DeliveryRecord{
		SubmissionID: sub.ID,
		UserID:       sub.UserID,
		Delivered:    delivered,
		PHQ9Score:    sub.PHQ9Score,
		GAD7Score:    sub.GAD7Score,
		Urgency:      sub.Triage.Urgency,
		CreatedAt:    sub.SubmittedAt,
	})
	if err != nil {
		m.logger.Error("failed to record delivery", "user_id", sub.UserID, "submission_id", sub.ID, "error", err)
	}
}
