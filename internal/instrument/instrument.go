// Package instrument defines the PHQ-9 and GAD-7 questionnaires and scores them.
package instrument

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation is wrapped by every scoring failure.
var ErrValidation = errors.New("instrument validation")

// CriticalItemIndex is the PHQ-9 item about death or self-harm ideation.
const CriticalItemIndex = 8

// ScaleIntro precedes every questionnaire item.
const ScaleIntro = "📝 Responda usando a escala:\n" +
	"0 — Nunca | 1 — Vários dias | 2 — Mais da metade dos dias | 3 — Quase todos os dias\n\n"

// ScaleChoices are the only accepted answer tokens.
var ScaleChoices = []string{"0", "1", "2", "3"}

// Instrument is a fixed questionnaire with its severity table.
type Instrument struct {
	Code      string
	Questions []string
	Buckets   BucketTable
}

// Len returns the number of items.
func (i Instrument) Len() int { return len(i.Questions) }

// MaxScore returns the highest possible total.
func (i Instrument) MaxScore() int { return 3 * len(i.Questions) }

// Question returns the text of item idx without its leading number.
func (i Instrument) Question(idx int) string {
	q := i.Questions[idx]
	if _, rest, ok := strings.Cut(q, " "); ok {
		return rest
	}
	return q
}

// Score sums responses after checking their count and range.
func (i Instrument) Score(responses []int) (int, error) {
	return Score(responses, i.Len())
}

// Bucket maps a total to its severity tier.
func (i Instrument) Bucket(score int) (Tier, error) {
	return Bucket(score, i.Buckets)
}

// PHQ9 is the 9-item depression screen.
var PHQ9 = Instrument{
	Code: "PHQ-9",
	Questions: []string{
		"1. Pouco interesse ou prazer em fazer as coisas?",
		"2. Sentir-se para baixo, deprimido(a) ou sem esperança?",
		"3. Dificuldade para dormir, dormir demais ou dormir mal?",
		"4. Sentir-se cansado(a) ou com pouca energia?",
		"5. Falta de apetite ou comer em excesso?",
		"6. Sentir-se mal consigo mesmo(a) ou que é um fracasso?",
		"7. Dificuldade de concentração, como ao ler ou assistir TV?",
		"8. Mover-se ou falar muito devagar, ou estar muito agitado(a)?",
		"9. Pensamentos de que seria melhor estar morto(a) ou se machucar?",
	},
	Buckets: BucketTable{
		{Min: 0, Max: 5, Tier: TierMinimal},
		{Min: 5, Max: 10, Tier: TierMild},
		{Min: 10, Max: 15, Tier: TierModerate},
		{Min: 15, Max: 20, Tier: TierModeratelySevere},
		{Min: 20, Max: 28, Tier: TierSevere},
	},
}

// GAD7 is the 7-item anxiety screen.
var GAD7 = Instrument{
	Code: "GAD-7",
	Questions: []string{
		"1. Sentir-se nervoso(a), ansioso(a) ou tenso(a)?",
		"2. Não conseguir parar ou controlar a preocupação?",
		"3. Preocupar-se excessivamente com diferentes coisas?",
		"4. Dificuldade em relaxar?",
		"5. Estar tão inquieto(a) que é difícil ficar parado(a)?",
		"6. Ficar facilmente irritado(a) ou aborrecido(a)?",
		"7. Sentir medo como se algo horrível fosse acontecer?",
	},
	Buckets: BucketTable{
		{Min: 0, Max: 5, Tier: TierMinimal},
		{Min: 5, Max: 10, Tier: TierMild},
		{Min: 10, Max: 15, Tier: TierModerate},
		{Min: 15, Max: 22, Tier: TierSevere},
	},
}

// Score returns the sum of responses. It fails when the count differs from
// expected or any response is outside 0..3.
func Score(responses []int, expected int) (int, error) {
	if len(responses) != expected {
		return 0, fmt.Errorf("%w: expected %d responses, got %d", ErrValidation, expected, len(responses))
	}
	total := 0
	for i, r := range responses {
		if r < 0 || r > 3 {
			return 0, fmt.Errorf("%w: response %d out of range: %d", ErrValidation, i+1, r)
		}
		total += r
	}
	return total, nil
}

// CriticalItemFlag reports whether the PHQ-9 critical item was answered
// with 1 or more. It fails when fewer than nine responses are present.
func CriticalItemFlag(responses []int) (bool, error) {
	if len(responses) < PHQ9.Len() {
		return false, fmt.Errorf("%w: PHQ-9 incomplete (%d of %d)", ErrValidation, len(responses), PHQ9.Len())
	}
	return responses[CriticalItemIndex] >= 1, nil
}

// ParseAnswer accepts exactly one of the tokens "0", "1", "2" or "3",
// ignoring surrounding whitespace.
func ParseAnswer(text string) (int, bool) {
	switch strings.TrimSpace(text) {
	case "0":
		return 0, true
	case "1":
		return 1, true
	case "2":
		return 2, true
	case "3":
		return 3, true
	}
	return 0, false
}
