// Package intake implements the screening conversation: a transport
// independent state machine, its finalization step and the engine that
// drives it per user.
package intake

// Stage is a state of the intake conversation.
type Stage int

const (
	StageMenu Stage = iota
	StagePersonalData
	StageConversation
	StagePHQ9
	StageGAD7
	StageScheduling
	StageEnded
)

var stageNames = [...]string{
	StageMenu:         "menu",
	StagePersonalData: "personal_data",
	StageConversation: "conversation",
	StagePHQ9:         "phq9",
	StageGAD7:         "gad7",
	StageScheduling:   "scheduling",
	StageEnded:        "ended",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// Reply is one outbound message. Choices are the quick answers a client
// should offer, if any.
type Reply struct {
	Text    string   `json:"text"`
	Choices []string `json:"choices,omitempty"`
	// Crisis marks the safety message prepended by the crisis gate.
	Crisis bool `json:"crisis,omitempty"`
}

func say(texts ...string) []Reply {
	out := make([]Reply, 0, len(texts))
	for _, t := range texts {
		out = append(out, Reply{Text: t})
	}
	return out
}
