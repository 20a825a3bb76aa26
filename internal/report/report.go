// Package report builds the deterministic screening summary and chooses
// between it and a generated narrative.
package report

import (
	"fmt"
	"strings"

	"github.com/ashureev/psicoflow/internal/domain"
	"github.com/ashureev/psicoflow/internal/instrument"
)

const (
	// MinNarrativeLen is the trimmed length a narrative must exceed to be used.
	MinNarrativeLen = 100
	// MaxSummaryLen caps the deterministic fallback.
	MaxSummaryLen = 2000
	// Unavailable is used when both texts are empty.
	Unavailable = "Resumo indisponível."

	maxSignals = 4
)

// Input carries the values rendered into the deterministic summary. Scores
// and tiers are computed by the caller.
type Input struct {
	Name         string
	PHQ9         []int
	PHQ9Score    int
	PHQ9Tier     instrument.Tier
	GAD7         []int
	GAD7Score    int
	GAD7Tier     instrument.Tier
	Availability string
	Observation  string
	Triage       *domain.TriageJudgment
}

// Item identifies a single questionnaire response.
type Item struct {
	Instrument string `json:"instrumento"`
	Number     int    `json:"item"`
	Question   string `json:"pergunta"`
	Score      int    `json:"pontuacao"`
}

// String renders the item as used in the summary.
func (i Item) String() string {
	return fmt.Sprintf("%s Q%d: %s (pontuação %d)", i.Instrument, i.Number, i.Question, i.Score)
}

// TopItem returns the highest scored response across both instruments.
// Ties favor PHQ-9 and then the earliest item. ok is false when no
// response scored above zero.
func TopItem(phq9, gad7 []int) (Item, bool) {
	pIdx, pMax := argMax(phq9)
	gIdx, gMax := argMax(gad7)
	if pMax <= 0 && gMax <= 0 {
		return Item{}, false
	}
	if pMax >= gMax {
		return Item{
			Instrument: instrument.PHQ9.Code,
			Number:     pIdx + 1,
			Question:   instrument.PHQ9.Question(pIdx),
			Score:      pMax,
		}, true
	}
	return Item{
		Instrument: instrument.GAD7.Code,
		Number:     gIdx + 1,
		Question:   instrument.GAD7.Question(gIdx),
		Score:      gMax,
	}, true
}

func argMax(values []int) (int, int) {
	idx, best := -1, -1
	for i, v := range values {
		if v > best {
			idx, best = i, v
		}
	}
	return idx, best
}

// BuildSummary renders the deterministic report text.
func BuildSummary(in Input) string {
	top := "Nenhum item pontuou acima de 0."
	if item, ok := TopItem(in.PHQ9, in.GAD7); ok {
		top = item.String()
	}
	availability := in.Availability
	if availability == "" {
		availability = "Não informada"
	}

	parts := []string{
		fmt.Sprintf("Triagem de %s:", in.Name),
		fmt.Sprintf("PHQ-9: %d pontos (%s)", in.PHQ9Score, in.PHQ9Tier),
		fmt.Sprintf("GAD-7: %d pontos (%s)", in.GAD7Score, in.GAD7Tier),
		"Item mais preocupante: " + top,
		"Disponibilidade: " + availability,
	}
	if in.Observation != "" {
		parts = append(parts, "Observação: "+in.Observation)
	}
	if in.Triage != nil {
		parts = append(parts, triageBlock(*in.Triage)...)
	}
	return strings.Join(parts, "\n")
}

func triageBlock(t domain.TriageJudgment) []string {
	depressive := nonBlank(t.DepressiveSignals)
	anxiety := nonBlank(t.AnxietySignals)
	impact := nonBlank(t.FunctionalImpact)
	protective := nonBlank(t.ProtectiveFactors)

	parts := []string{"\nAnálise IA:"}
	if u := strings.ToLower(strings.TrimSpace(string(t.Urgency))); u != "" {
		parts = append(parts, fmt.Sprintf("  %s Nível de urgência: %s", urgencyMarker(domain.Urgency(u)), strings.ToUpper(u)))
	}
	if len(depressive) > 0 || len(anxiety) > 0 {
		parts = append(parts, "  📊 Sinais identificados:")
		if len(depressive) > 0 {
			parts = append(parts, "    • Depressão: "+strings.Join(head(depressive), ", "))
		}
		if len(anxiety) > 0 {
			parts = append(parts, "    • Ansiedade: "+strings.Join(head(anxiety), ", "))
		}
	}
	if len(impact) > 0 {
		parts = append(parts, "  ⚠️ Impacto funcional:")
		parts = append(parts, bullets(head(impact))...)
	}
	if len(protective) > 0 {
		parts = append(parts, "  💚 Fatores de proteção:")
		parts = append(parts, bullets(head(protective))...)
	}
	if len(depressive) > 0 || len(anxiety) > 0 || len(impact) > 0 {
		parts = append(parts, "  💡 Recomendação: Acolhimento próximo e acompanhamento profissional recomendado.")
	}
	return parts
}

func urgencyMarker(u domain.Urgency) string {
	switch u {
	case domain.UrgencyHigh:
		return "🔴"
	case domain.UrgencyMedium:
		return "🟡"
	default:
		return "🟢"
	}
}

func nonBlank(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func head(items []string) []string {
	if len(items) > maxSignals {
		return items[:maxSignals]
	}
	return items
}

func bullets(items []string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = "    • " + item
	}
	return out
}

// Compose picks the final report text. The narrative wins when its trimmed
// length exceeds MinNarrativeLen; otherwise the summary is used, capped at
// MaxSummaryLen characters.
func Compose(summary, narrative string) string {
	if n := strings.TrimSpace(narrative); len([]rune(n)) > MinNarrativeLen {
		return n
	}
	text := strings.TrimSpace(summary)
	if text == "" {
		return Unavailable
	}
	runes := []rune(text)
	if len(runes) > MaxSummaryLen {
		return strings.TrimRight(string(runes[:MaxSummaryLen-3]), " \t\n") + "..."
	}
	return text
}
