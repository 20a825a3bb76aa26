// Package safety implements the crisis detector evaluated on every free-text turn.
package safety

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Message is sent out of band whenever the gate triggers.
const Message = "⚠️ Sua segurança é prioridade.\n" +
	"Se houver risco imediato, ligue 188 (CVV) ou 192 (SAMU) agora.\n" +
	"Vou sinalizar sua mensagem para a equipe."

var riskPatterns = []string{
	`morrer`,
	`morte`,
	`me\s*matar`,
	`tirar\s*a\s*(minha\s*)?vida`,
	`sem\s*vontade\s*de\s*viver`,
	`suicid`,
	`autoagress`,
	`me\s*machucar`,
	`acabar\s*com\s*tudo`,
}

var riskRegex = regexp.MustCompile(`(?i)` + strings.Join(riskPatterns, "|"))

// HasCrisisTerms reports whether text contains any risk fragment.
func HasCrisisTerms(text string) bool {
	if text == "" {
		return false
	}
	return riskRegex.MatchString(text)
}

// AnyCrisis reports whether any message contains risk terms or flag is set.
func AnyCrisis(messages []string, flag bool) bool {
	if flag {
		return true
	}
	for _, m := range messages {
		if HasCrisisTerms(m) {
			return true
		}
	}
	return false
}

// Detector evaluates the crisis gate and reports triggers.
type Detector struct {
	logger  *slog.Logger
	counter metric.Int64Counter
}

// NewDetector creates a detector. meter may be nil.
func NewDetector(logger *slog.Logger, meter metric.Meter) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Detector{logger: logger}
	if meter != nil {
		counter, err := meter.Int64Counter(
			"intake.crisis.triggered",
			metric.WithDescription("Crisis gate activations"),
		)
		if err != nil {
			logger.Warn("failed to create crisis counter", "error", err)
		} else {
			d.counter = counter
		}
	}
	return d
}

// Gate returns true when text has risk terms or externalFlag is set. A
// trigger is logged with a redacted reference to the message, never the
// message itself. The gate is advisory: callers continue normal processing.
func (d *Detector) Gate(ctx context.Context, userID, text string, externalFlag bool) bool {
	matched := HasCrisisTerms(text)
	if !matched && !externalFlag {
		return false
	}

	d.logger.Warn("crisis_gate_triggered",
		"event", "crisis",
		"user_id", userID,
		"llm_flag", externalFlag,
		"pattern_match", matched,
		"message_ref", Redact(text),
		"message_len", len([]rune(text)),
	)
	if d.counter != nil {
		d.counter.Add(ctx, 1, metric.WithAttributes(
			attribute.Bool("llm_flag", externalFlag),
			attribute.Bool("pattern_match", matched),
		))
	}
	return true
}

// Redact returns a stable, non-reversible reference for text.
func Redact(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "sha256:" + hex.EncodeToString(sum[:6])
}
