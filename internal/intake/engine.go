package intake

import (
	"context"
	"log/slog"

	"github.com/ashureev/psicoflow/internal/store"
	"github.com/ashureev/psicoflow/internal/transcript"
)

type channelKey struct{}

// WithChannel tags ctx with the transport the message arrived on.
func WithChannel(ctx context.Context, channel string) context.Context {
	return context.WithValue(ctx, channelKey{}, channel)
}

func channelFrom(ctx context.Context) string {
	if ch, ok := ctx.Value(channelKey{}).(string); ok {
		return ch
	}
	return ""
}

// Engine routes messages to per-user sessions and runs them through the
// machine one at a time per user.
type Engine struct {
	machine    *Machine
	sessions   *store.Sessions
	transcript transcript.Logger
	logger     *slog.Logger
}

// NewEngine creates an engine. tlog may be nil.
func NewEngine(machine *Machine, sessions *store.Sessions, tlog transcript.Logger, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if tlog == nil {
		tlog = transcript.NopLogger{}
	}
	return &Engine{
		machine:    machine,
		sessions:   sessions,
		transcript: tlog,
		logger:     logger,
	}
}

// Sessions returns the underlying session store.
func (e *Engine) Sessions() *store.Sessions { return e.sessions }

// Handle processes one inbound message from userID and returns the replies
// in delivery order.
func (e *Engine) Handle(ctx context.Context, userID, text string) []Reply {
	unlock := e.sessions.Lock(userID)
	defer unlock()

	sess := e.sessions.Get(userID)
	stage := Stage(sess.Stage)
	wasFinalized := sess.Finalized
	channel := channelFrom(ctx)

	e.transcript.Log(transcript.Event{
		UserID:     userID,
		SessionID:  sess.ID,
		Channel:    channel,
		Direction:  transcript.Inbound,
		EventType:  transcript.EventUserMessage,
		Stage:      stage.String(),
		ContentRaw: text,
	})

	next, replies := e.machine.Step(ctx, stage, sess, text)
	sess.Stage = int(next)
	sess.Touch()

	if next != stage {
		e.logger.Debug("stage transition", "user_id", userID, "from", stage.String(), "to", next.String())
		e.transcript.Log(transcript.Event{
			UserID:    userID,
			SessionID: sess.ID,
			Channel:   channel,
			EventType: transcript.EventStage,
			Stage:     next.String(),
			Metadata:  map[string]string{"from": stage.String()},
		})
	}
	if !wasFinalized && sess.Finalized {
		e.transcript.Log(transcript.Event{
			UserID:    userID,
			SessionID: sess.ID,
			Channel:   channel,
			EventType: transcript.EventFinalization,
			Stage:     next.String(),
		})
	}

	for _, r := range replies {
		eventType := transcript.EventBotReply
		if r.Crisis {
			eventType = transcript.EventCrisis
		}
		e.transcript.Log(transcript.Event{
			UserID:     userID,
			SessionID:  sess.ID,
			Channel:    channel,
			Direction:  transcript.Outbound,
			EventType:  eventType,
			Stage:      next.String(),
			ContentRaw: r.Text,
		})
	}
	return replies
}
