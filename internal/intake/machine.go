package intake

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/ashureev/psicoflow/internal/backend"
	"github.com/ashureev/psicoflow/internal/domain"
	"github.com/ashureev/psicoflow/internal/instrument"
	"github.com/ashureev/psicoflow/internal/llm"
	"github.com/ashureev/psicoflow/internal/safety"
	"github.com/ashureev/psicoflow/internal/store"
)

// Analyzer is the language-model boundary used by the machine. Every call
// returns a usable value even on failure.
type Analyzer interface {
	Classify(ctx context.Context, message string, history []string) llm.Result[domain.Classification]
	Triage(ctx context.Context, in llm.TriageInput) llm.Result[domain.TriageJudgment]
	Narrative(ctx context.Context, nc llm.NarrativeContext) llm.Result[string]
}

// Deps are the collaborators of a Machine. A missing Submitter drops every
// submission.
type Deps struct {
	Fields    []Field
	Analyzer  Analyzer
	Detector  *safety.Detector
	Submitter backend.Submitter
	Journal   store.Journal
	Logger    *slog.Logger
	Meter     metric.Meter
	Now       func() time.Time
}

// Machine is the transport independent transition function of the intake
// conversation. It mutates the session it is given; callers serialize
// access per user.
type Machine struct {
	fields    []Field
	analyzer  Analyzer
	detector  *safety.Detector
	submitter backend.Submitter
	journal   store.Journal
	logger    *slog.Logger
	now       func() time.Time

	completions metric.Int64Counter
}

// NewMachine creates a machine from deps, filling defaults for anything
// optional that is missing.
func NewMachine(deps Deps) *Machine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := &Machine{
		fields:    deps.Fields,
		analyzer:  deps.Analyzer,
		detector:  deps.Detector,
		submitter: deps.Submitter,
		journal:   deps.Journal,
		logger:    logger,
		now:       deps.Now,
	}
	if m.fields == nil {
		m.fields = DefaultFields(true)
	}
	if m.analyzer == nil {
		m.analyzer = llm.NewGateway(nil, logger)
	}
	if m.detector == nil {
		m.detector = safety.NewDetector(logger, deps.Meter)
	}
	if m.submitter == nil {
		m.submitter = backend.NewClient("", "", backend.DefaultTimeout, logger)
	}
	if m.journal == nil {
		m.journal = store.NopJournal{}
	}
	if m.now == nil {
		m.now = time.Now
	}
	if deps.Meter != nil {
		counter, err := deps.Meter.Int64Counter(
			"intake.finalizations",
			metric.WithDescription("Completed screenings by delivery outcome"),
		)
		if err != nil {
			logger.Warn("failed to create finalization counter", "error", err)
		} else {
			m.completions = counter
		}
	}
	return m
}

// Fields returns the personal data questionnaire in use.
func (m *Machine) Fields() []Field { return m.fields }

// Step handles one inbound message for a session currently at stage and
// returns the next stage with the replies to send, in order.
func (m *Machine) Step(ctx context.Context, stage Stage, sess *domain.Session, input string) (Stage, []Reply) {
	text := strings.TrimSpace(input)

	if strings.HasPrefix(text, "/") {
		return m.command(ctx, stage, sess, text)
	}

	switch stage {
	case StageMenu, StageEnded:
		return m.menu(ctx, sess, text)
	case StageConversation:
		// Gated after classification so the model's crisis flag is included.
		return m.conversation(ctx, sess, text)
	}

	crisis := m.gate(ctx, sess, text, false)
	var next Stage
	var replies []Reply
	switch stage {
	case StagePersonalData:
		next, replies = m.personalData(ctx, sess, text)
	case StagePHQ9:
		next, replies = m.phq9(ctx, sess, text)
	case StageGAD7:
		next, replies = m.gad7(ctx, sess, text)
	case StageScheduling:
		next, replies = m.scheduling(ctx, sess, text)
	default:
		m.logger.Error("invariant_violation", "event", "unknown_stage", "user_id", sess.UserID, "stage", int(stage))
		next, replies = m.restart(ctx, sess)
	}
	return next, withCrisis(crisis, replies)
}

func (m *Machine) gate(ctx context.Context, sess *domain.Session, text string, flag bool) bool {
	return m.detector.Gate(ctx, sess.UserID, text, flag)
}

func withCrisis(crisis bool, replies []Reply) []Reply {
	if !crisis {
		return replies
	}
	return append([]Reply{{Text: safety.Message, Crisis: true}}, replies...)
}

func (m *Machine) command(ctx context.Context, stage Stage, sess *domain.Session, text string) (Stage, []Reply) {
	name := strings.ToLower(strings.Fields(text)[0])
	name, _, _ = strings.Cut(name, "@")

	switch name {
	case "/start":
		return m.restart(ctx, sess)
	case "/menu":
		return StageMenu, []Reply{{Text: msgMenu, Choices: menuChoices}}
	case "/cancelar", "/cancel":
		sess.Active = false
		m.logger.Info("session_cancelled", "event", "session_cancelled", "user_id", sess.UserID, "stage", stage.String())
		return StageEnded, say(msgCancelled)
	}
	return stage, say(msgUnknownCommand)
}

func (m *Machine) restart(_ context.Context, sess *domain.Session) (Stage, []Reply) {
	sess.Reset()
	m.logger.Info("session_start", "event", "session_start", "user_id", sess.UserID)
	return StageMenu, []Reply{{Text: msgMenu, Choices: menuChoices}}
}

var greetingRegex = regexp.MustCompile(`^(?:oi|olá|ola|hello|hi|hey|bom dia|boa tarde|boa noite)(?:$|[\s,!?.])`)

func normalizeChoice(text string) string {
	return strings.Trim(strings.ToLower(strings.TrimSpace(text)), "!?.")
}

func isGreeting(text string) bool {
	return greetingRegex.MatchString(normalizeChoice(text))
}

var (
	affirmativeChoices = map[string]bool{
		"triagem": true, "sim": true, "iniciar": true, "começar": true, "comecar": true,
		"triagem + agendamento": true,
	}
	negativeChoices = map[string]bool{"sair": true, "não": true, "nao": true}
	infoChoices     = map[string]bool{"informações": true, "informacoes": true, "info": true}
)

func (m *Machine) menu(ctx context.Context, sess *domain.Session, text string) (Stage, []Reply) {
	choice := normalizeChoice(text)

	switch {
	case text == ChoiceStart || affirmativeChoices[choice]:
		sess.Reset()
		sess.Active = true
		m.logger.Info("triage_started", "event", "triage_started", "user_id", sess.UserID)
		replies := say(msgStartTriage)
		if f, ok := nextField(m.fields, sess); ok {
			replies = append(replies, Reply{Text: f.Prompt})
		}
		return StagePersonalData, replies
	case negativeChoices[choice]:
		sess.Active = false
		return StageEnded, say(msgDeclined)
	case text == ChoiceInfo || infoChoices[choice]:
		return StageEnded, say(msgInfo)
	case isGreeting(text):
		if sess.Active && !sess.Finalized {
			return m.resume(sess)
		}
		return m.restart(ctx, sess)
	}
	return StageMenu, []Reply{{Text: msgMenuRetry, Choices: menuChoices}}
}

func (m *Machine) personalData(_ context.Context, sess *domain.Session, text string) (Stage, []Reply) {
	field, ok := nextField(m.fields, sess)
	if !ok {
		return m.enterConversation()
	}
	value, valid := field.Validate(text)
	if !valid {
		return StagePersonalData, say(field.Retry)
	}
	sess.PersonalData[field.Key] = value
	sess.Active = true

	if next, ok := nextField(m.fields, sess); ok {
		return StagePersonalData, say(next.Prompt)
	}
	return m.enterConversation()
}

func (m *Machine) enterConversation() (Stage, []Reply) {
	return StageConversation, say(msgConversationIntro)
}

func (m *Machine) conversation(ctx context.Context, sess *domain.Session, text string) (Stage, []Reply) {
	classification := m.analyzer.Classify(ctx, text, sess.History).Value
	crisis := m.gate(ctx, sess, text, classification.Crisis)
	sess.RecordTurn(text)

	replies := say(empatheticChunks(classification.EmpatheticReply)...)
	if sess.QuestionnaireStarted {
		return StagePHQ9, withCrisis(crisis, append(replies, m.questionReply(instrument.PHQ9, len(sess.PHQ9))...))
	}

	sess.QuestionnaireStarted = true
	sess.PHQ9 = nil
	replies = append(replies, say(msgPHQ9Intro, msgPHQ9Instruction)...)
	replies = append(replies, m.questionReply(instrument.PHQ9, 0)...)
	return StagePHQ9, withCrisis(crisis, replies)
}

// empatheticChunks splits reply on blank lines and keeps at most two parts.
func empatheticChunks(reply string) []string {
	var chunks []string
	for _, part := range strings.Split(reply, "\n\n") {
		if p := strings.TrimSpace(part); p != "" {
			chunks = append(chunks, p)
		}
	}
	if len(chunks) == 0 {
		if r := strings.TrimSpace(reply); r != "" {
			return []string{r}
		}
		return []string{msgEmpathyFallback}
	}
	if len(chunks) > 2 {
		chunks = chunks[:2]
	}
	return chunks
}

func (m *Machine) questionReply(inst instrument.Instrument, idx int) []Reply {
	if idx >= inst.Len() {
		return nil
	}
	return []Reply{{Text: instrument.ScaleIntro + inst.Questions[idx], Choices: instrument.ScaleChoices}}
}

func (m *Machine) invalidAnswer(inst instrument.Instrument, idx int) []Reply {
	return []Reply{{Text: msgInvalidAnswer + inst.Questions[idx], Choices: instrument.ScaleChoices}}
}

func (m *Machine) phq9(ctx context.Context, sess *domain.Session, text string) (Stage, []Reply) {
	if len(sess.PHQ9) < instrument.PHQ9.Len() {
		answer, ok := instrument.ParseAnswer(text)
		if !ok {
			return StagePHQ9, m.invalidAnswer(instrument.PHQ9, len(sess.PHQ9))
		}
		sess.PHQ9 = append(sess.PHQ9, answer)
		if len(sess.PHQ9) < instrument.PHQ9.Len() {
			return StagePHQ9, m.questionReply(instrument.PHQ9, len(sess.PHQ9))
		}
	}

	flagged, err := instrument.CriticalItemFlag(sess.PHQ9)
	if err != nil {
		m.logger.Error("invariant_violation", "event", "critical_item", "user_id", sess.UserID, "error", err)
	}
	sess.CriticalItemPositive = flagged
	if flagged {
		m.logger.Warn("crisis_phq9_item9_flagged",
			"event", "crisis_phq9_item9_flagged",
			"user_id", sess.UserID,
			"score", sess.PHQ9[instrument.CriticalItemIndex],
		)
	}

	sess.GAD7 = nil
	replies := say(msgGAD7Intro)
	return StageGAD7, append(replies, m.questionReply(instrument.GAD7, 0)...)
}

func (m *Machine) gad7(_ context.Context, sess *domain.Session, text string) (Stage, []Reply) {
	if len(sess.GAD7) < instrument.GAD7.Len() {
		answer, ok := instrument.ParseAnswer(text)
		if !ok {
			return StageGAD7, m.invalidAnswer(instrument.GAD7, len(sess.GAD7))
		}
		sess.GAD7 = append(sess.GAD7, answer)
		if len(sess.GAD7) < instrument.GAD7.Len() {
			return StageGAD7, m.questionReply(instrument.GAD7, len(sess.GAD7))
		}
	}
	return StageScheduling, say(msgAvailability)
}

func (m *Machine) scheduling(ctx context.Context, sess *domain.Session, text string) (Stage, []Reply) {
	if sess.Availability == "" {
		if !ValidAvailability(text) {
			return StageScheduling, say(msgAvailabilityRetry)
		}
		sess.Availability = text
		return StageScheduling, say(msgObservation)
	}

	sess.Observation = NormalizeObservation(text)
	sess.ObservationSet = true
	return StageEnded, m.Finalize(ctx, sess)
}
