package intake

import (
	"github.com/ashureev/psicoflow/internal/domain"
	"github.com/ashureev/psicoflow/internal/instrument"
)

// InferStage returns the furthest incomplete stage of sess. A session with
// everything collected resumes at Scheduling.
func InferStage(fields []Field, sess *domain.Session) Stage {
	if _, missing := nextField(fields, sess); missing {
		return StagePersonalData
	}
	if !sess.QuestionnaireStarted {
		return StageConversation
	}
	if len(sess.PHQ9) < instrument.PHQ9.Len() {
		return StagePHQ9
	}
	if len(sess.GAD7) < instrument.GAD7.Len() {
		return StageGAD7
	}
	return StageScheduling
}

func (m *Machine) resume(sess *domain.Session) (Stage, []Reply) {
	stage := InferStage(m.fields, sess)
	replies := say(msgResume)

	switch stage {
	case StagePersonalData:
		if f, ok := nextField(m.fields, sess); ok {
			replies = append(replies, Reply{Text: f.Prompt})
		}
	case StageConversation:
		replies = append(replies, say(msgResumeConversation)...)
	case StagePHQ9:
		replies = append(replies, m.questionReply(instrument.PHQ9, len(sess.PHQ9))...)
	case StageGAD7:
		replies = append(replies, m.questionReply(instrument.GAD7, len(sess.GAD7))...)
	case StageScheduling:
		switch {
		case sess.Availability == "":
			replies = append(replies, say(msgResumeAvailability)...)
		case !sess.ObservationSet:
			replies = append(replies, say(msgObservation)...)
		}
	}

	m.logger.Info("session_resumed", "event", "session_resumed", "user_id", sess.UserID, "stage", stage.String())
	return stage, replies
}
