package domain

// Urgency is the urgency tier of a triage judgment.
type Urgency string

const (
	UrgencyHigh   Urgency = "alta"
	UrgencyMedium Urgency = "media"
	UrgencyLow    Urgency = "baixa"
)

// Valid reports whether u is one of the known tiers.
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyHigh, UrgencyMedium, UrgencyLow:
		return true
	}
	return false
}

// TriageJudgment is the structured, non-diagnostic analysis produced by the
// language model at finalization. Lists hold at most six short items.
type TriageJudgment struct {
	Urgency           Urgency  `json:"nivel_urgencia"`
	ProtectiveFactors []string `json:"fatores_protecao"`
	FunctionalImpact  []string `json:"impacto_funcional"`
	DepressiveSignals []string `json:"sinais_depressao"`
	AnxietySignals    []string `json:"sinais_ansiedade"`
}

// DefaultTriage is substituted whenever the triage capability fails.
func DefaultTriage() TriageJudgment {
	return TriageJudgment{
		Urgency:           UrgencyLow,
		ProtectiveFactors: []string{},
		FunctionalImpact:  []string{},
		DepressiveSignals: []string{},
		AnxietySignals:    []string{},
	}
}

// Emotion is the primary emotion label assigned to a free-text turn.
type Emotion string

const (
	EmotionSadness Emotion = "tristeza"
	EmotionAnxiety Emotion = "ansiedade"
	EmotionAnger   Emotion = "raiva"
	EmotionFatigue Emotion = "cansaco"
	EmotionJoy     Emotion = "alegria"
	EmotionNeutral Emotion = "neutra"
)

// Valid reports whether e is in the fixed label set.
func (e Emotion) Valid() bool {
	switch e {
	case EmotionSadness, EmotionAnxiety, EmotionAnger, EmotionFatigue, EmotionJoy, EmotionNeutral:
		return true
	}
	return false
}

// Classification is the per-turn analysis of a conversation message.
type Classification struct {
	Emotion         Emotion `json:"emocao_principal"`
	Intensity       int     `json:"intensidade"`
	Crisis          bool    `json:"possivel_crise"`
	EmpatheticReply string  `json:"resposta_empatica"`
}

// DefaultClassification is substituted whenever classification fails.
func DefaultClassification() Classification {
	return Classification{
		Emotion:         EmotionNeutral,
		Intensity:       0,
		Crisis:          false,
		EmpatheticReply: "Obrigado por compartilhar. Estou aqui para te acompanhar passo a passo.",
	}
}
