package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/ashureev/psicoflow/internal/domain"
	"github.com/ashureev/psicoflow/internal/instrument"
)

const (
	// DefaultTimeout bounds every capability call.
	DefaultTimeout = 20 * time.Second

	maxReplyLen     = 600
	maxListItems    = 6
	maxListItemLen  = 120
	maxNarrativeLen = 3000
	historyWindow   = 6
)

// Capability names used in logs, spans and metrics.
const (
	capClassify  = "classify"
	capTriage    = "triage"
	capNarrative = "narrative"
)

// Gateway exposes the classification, triage and narrative capabilities.
type Gateway struct {
	gen      Generator
	timeout  time.Duration
	logger   *slog.Logger
	tracer   trace.Tracer
	duration metric.Float64Histogram
	failures metric.Int64Counter
}

// GatewayOption customizes a Gateway.
type GatewayOption func(*Gateway)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithTelemetry attaches a tracer and meter.
func WithTelemetry(tracer trace.Tracer, meter metric.Meter) GatewayOption {
	return func(g *Gateway) {
		if tracer != nil {
			g.tracer = tracer
		}
		if meter != nil {
			g.initInstruments(meter)
		}
	}
}

// NewGateway wraps gen. A nil gen makes every capability fail immediately
// with its default.
func NewGateway(gen Generator, logger *slog.Logger, opts ...GatewayOption) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gateway{
		gen:     gen,
		timeout: DefaultTimeout,
		logger:  logger,
		tracer:  tracenoop.NewTracerProvider().Tracer("llm"),
	}
	g.initInstruments(metricnoop.NewMeterProvider().Meter("llm"))
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) initInstruments(meter metric.Meter) {
	if h, err := meter.Float64Histogram(
		"llm.request.duration",
		metric.WithDescription("LLM request duration in milliseconds"),
		metric.WithUnit("ms"),
	); err == nil {
		g.duration = h
	}
	if c, err := meter.Int64Counter(
		"llm.failures",
		metric.WithDescription("LLM capability failures replaced by defaults"),
	); err == nil {
		g.failures = c
	}
}

// Provider returns the configured generator name, or "none".
func (g *Gateway) Provider() string {
	if g.gen == nil {
		return "none"
	}
	return g.gen.Name()
}

// Health probes the generator when it supports it. A generator without a
// probe, or no generator at all, reports healthy: the gateway falls back to
// safe defaults either way.
func (g *Gateway) Health(ctx context.Context) error {
	hc, ok := g.gen.(HealthChecker)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return hc.Health(ctx)
}

// Classify labels a conversation turn.
func (g *Gateway) Classify(ctx context.Context, message string, history []string) Result[domain.Classification] {
	def := domain.DefaultClassification()

	recent, _ := json.Marshal(lastN(history, historyWindow))
	prompt := classifyPrompt + "\n\n" +
		"Histórico recente: " + string(recent) + "\n" +
		"Mensagem atual: " + message + "\n" +
		"Responda apenas com o JSON especificado."

	raw, err := g.generate(ctx, capClassify, Request{Prompt: prompt, JSON: true})
	if err != nil {
		return failed(def, err)
	}

	out := def
	if err := json.Unmarshal([]byte(ExtractJSONBlock(raw)), &out); err != nil {
		return fail(g, ctx, capClassify, def, fmt.Errorf("%w: %v", ErrMalformed, err))
	}
	if !out.Emotion.Valid() {
		return fail(g, ctx, capClassify, def, fmt.Errorf("%w: emotion %q", ErrMalformed, out.Emotion))
	}
	if out.Intensity < 0 || out.Intensity > 10 {
		return fail(g, ctx, capClassify, def, fmt.Errorf("%w: intensity %d", ErrMalformed, out.Intensity))
	}
	out.EmpatheticReply = truncate(strings.TrimSpace(out.EmpatheticReply), maxReplyLen)
	if out.EmpatheticReply == "" {
		out.EmpatheticReply = def.EmpatheticReply
	}
	return ok(out)
}

// TriageInput is the data the triage capability analyses.
type TriageInput struct {
	PersonalData map[string]string
	PHQ9         []int
	GAD7         []int
	FreeText     []string
}

type triagePayload struct {
	Urgency           *string `json:"nivel_urgencia"`
	ProtectiveFactors []any   `json:"fatores_protecao"`
	FunctionalImpact  []any   `json:"impacto_funcional"`
	DepressiveSignals []any   `json:"sinais_depressao"`
	AnxietySignals    []any   `json:"sinais_ansiedade"`
}

// Triage produces the structured, non-diagnostic judgment.
func (g *Gateway) Triage(ctx context.Context, in TriageInput) Result[domain.TriageJudgment] {
	def := domain.DefaultTriage()

	raw, err := g.generate(ctx, capTriage, Request{Prompt: triageRequest(in), JSON: true})
	if err != nil {
		return failed(def, err)
	}

	var p triagePayload
	if err := json.Unmarshal([]byte(ExtractJSONBlock(raw)), &p); err != nil {
		return fail(g, ctx, capTriage, def, fmt.Errorf("%w: %v", ErrMalformed, err))
	}
	out := def
	if p.Urgency != nil {
		out.Urgency = domain.Urgency(strings.ToLower(strings.TrimSpace(*p.Urgency)))
		if !out.Urgency.Valid() {
			return fail(g, ctx, capTriage, def, fmt.Errorf("%w: urgency %q", ErrMalformed, *p.Urgency))
		}
	}
	out.ProtectiveFactors = cleanList(p.ProtectiveFactors, maxListItems, maxListItemLen)
	out.FunctionalImpact = cleanList(p.FunctionalImpact, maxListItems, maxListItemLen)
	out.DepressiveSignals = cleanList(p.DepressiveSignals, maxListItems, maxListItemLen)
	out.AnxietySignals = cleanList(p.AnxietySignals, maxListItems, maxListItemLen)
	return ok(out)
}

func triageRequest(in TriageInput) string {
	keys := make([]string, 0, len(in.PersonalData))
	for k := range in.PersonalData {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	personal := make([]string, 0, len(keys))
	for _, k := range keys {
		personal = append(personal, k+": "+in.PersonalData[k])
	}

	critical := "Negativo"
	if flag, err := instrument.CriticalItemFlag(in.PHQ9); err == nil && flag {
		critical = "POSITIVO (≥1) - RISCO CRÍTICO"
	}

	var b strings.Builder
	b.WriteString(triagePrompt)
	b.WriteString("\n\nDADOS PESSOAIS: " + strings.Join(personal, "; ") + "\n\n")
	b.WriteString("PHQ-9 (Depressão):\n" + describeResponses(instrument.PHQ9, in.PHQ9))
	b.WriteString("  - Item 9 (pensamentos de morte/autolesão): " + critical + "\n\n")
	b.WriteString("GAD-7 (Ansiedade):\n" + describeResponses(instrument.GAD7, in.GAD7) + "\n")
	b.WriteString("RELATOS LIVRES (últimas 6 mensagens):\n")
	for _, text := range lastN(in.FreeText, historyWindow) {
		if strings.TrimSpace(text) != "" {
			b.WriteString("  - " + text + "\n")
		}
	}
	b.WriteString("\nResponda apenas com o JSON especificado, sendo preciso e baseado nos dados fornecidos.")
	return b.String()
}

func describeResponses(inst instrument.Instrument, responses []int) string {
	total, tier := 0, instrument.Tier("indisponível")
	if score, err := inst.Score(responses); err == nil {
		total = score
		if t, err := inst.Bucket(score); err == nil {
			tier = t
		}
	}
	var high []string
	for i, r := range responses {
		if r >= 2 {
			high = append(high, fmt.Sprintf("Q%d(%d)", i+1, r))
		}
	}
	highText := "Nenhum"
	if len(high) > 0 {
		highText = strings.Join(high, ", ")
	}
	list, _ := json.Marshal(responses)
	return fmt.Sprintf("  - Respostas: %s\n  - Score total: %d/%d (%s)\n  - Itens com pontuação ≥2: %s\n",
		list, total, inst.MaxScore(), tier, highText)
}

// NarrativeContext is the structured bundle handed to the narrative
// capability. Field names follow the report prompt's vocabulary.
type NarrativeContext struct {
	Name           string                `json:"nome"`
	RegistrationID string                `json:"matricula"`
	Course         string                `json:"curso,omitempty"`
	Term           string                `json:"periodo,omitempty"`
	Date           string                `json:"data"`
	Availability   string                `json:"disponibilidade"`
	Observation    string                `json:"observacao,omitempty"`
	PHQ9Score      int                   `json:"phq9_score"`
	PHQ9Tier       instrument.Tier       `json:"classificacao_phq9"`
	GAD7Score      int                   `json:"gad7_score"`
	GAD7Tier       instrument.Tier       `json:"classificacao_gad7"`
	OverallTier    instrument.Tier       `json:"classificacao_geral"`
	CriticalItem   bool                  `json:"item9_positive"`
	TopItem        string                `json:"item_mais_preocupante"`
	Triage         domain.TriageJudgment `json:"triage"`
	FreeText       []string              `json:"relatos_livres"`
}

// Narrative generates the clinician-facing report. The default is "".
func (g *Gateway) Narrative(ctx context.Context, nc NarrativeContext) Result[string] {
	bundle, err := json.MarshalIndent(nc, "", "  ")
	if err != nil {
		return failed("", fmt.Errorf("encode narrative context: %w", err))
	}
	prompt := narrativePrompt + "\n\n" +
		"DADOS DA TRIAGEM (JSON):\n" + string(bundle) + "\n\n" +
		"Preencha todas as seções com os dados acima. Produza apenas o texto do relatório, sem JSON."

	raw, err := g.generate(ctx, capNarrative, Request{Prompt: prompt})
	if err != nil {
		return failed("", err)
	}
	text := strings.TrimSpace(raw)
	if text == "" {
		return fail(g, ctx, capNarrative, "", ErrEmpty)
	}
	return ok(truncate(text, maxNarrativeLen))
}

// generate runs one bounded call. Failures are logged and counted here.
// The call is abandoned on timeout even if the generator ignores ctx.
func (g *Gateway) generate(ctx context.Context, capability string, req Request) (string, error) {
	if g.gen == nil {
		return "", ErrNotConfigured
	}

	ctx, span := g.tracer.Start(ctx, "llm."+capability, trace.WithAttributes(
		attribute.String("llm.provider", g.gen.Name()),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)
	start := time.Now()
	go func() {
		text, err := g.gen.Generate(ctx, req)
		done <- outcome{text: text, err: err}
	}()

	var res outcome
	select {
	case res = <-done:
	case <-ctx.Done():
		res = outcome{err: ctx.Err()}
	}

	g.duration.Record(context.WithoutCancel(ctx), float64(time.Since(start).Milliseconds()),
		metric.WithAttributes(attribute.String("capability", capability)))

	if res.err != nil {
		span.RecordError(res.err)
		span.SetStatus(codes.Error, res.err.Error())
		g.countFailure(ctx, capability)
		g.logger.Error("llm call failed", "capability", capability, "provider", g.gen.Name(), "error", res.err)
		return "", res.err
	}
	return res.text, nil
}

func (g *Gateway) countFailure(ctx context.Context, capability string) {
	g.failures.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(attribute.String("capability", capability)))
}

func fail[T any](g *Gateway, ctx context.Context, capability string, def T, err error) Result[T] {
	g.countFailure(ctx, capability)
	g.logger.Warn("llm output rejected", "capability", capability, "error", err)
	return failed(def, err)
}

func lastN(items []string, n int) []string {
	if len(items) > n {
		return items[len(items)-n:]
	}
	if items == nil {
		return []string{}
	}
	return items
}
