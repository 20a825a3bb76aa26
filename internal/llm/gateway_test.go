package llm

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ashureev/psicoflow/internal/domain"
)

type fakeGenerator struct {
	reply string
	err   error
	calls atomic.Int32
	last  atomic.Value
}

func (f *fakeGenerator) Name() string { return "fake" }

func (f *fakeGenerator) Generate(_ context.Context, req Request) (string, error) {
	f.calls.Add(1)
	f.last.Store(req)
	return f.reply, f.err
}

type blockingGenerator struct{}

func (blockingGenerator) Name() string { return "blocking" }

func (blockingGenerator) Generate(ctx context.Context, _ Request) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

// stubbornGenerator ignores cancellation entirely.
type stubbornGenerator struct{ release chan struct{} }

func (stubbornGenerator) Name() string { return "stubborn" }

func (s stubbornGenerator) Generate(context.Context, Request) (string, error) {
	<-s.release
	return `{"emocao_principal":"alegria"}`, nil
}

func TestClassifyParsesFencedJSON(t *testing.T) {
	gen := &fakeGenerator{reply: "Claro!\n```json\n{\"emocao_principal\":\"tristeza\",\"intensidade\":7,\"possivel_crise\":true,\"resposta_empatica\":\"  Sinto muito.  \"}\n```"}
	g := NewGateway(gen, nil)

	res := g.Classify(context.Background(), "estou mal", []string{"oi"})
	if !res.OK() {
		t.Fatalf("unexpected failure: %v", res.Err)
	}
	want := domain.Classification{Emotion: domain.EmotionSadness, Intensity: 7, Crisis: true, EmpatheticReply: "Sinto muito."}
	if res.Value != want {
		t.Fatalf("got %+v, want %+v", res.Value, want)
	}
	if req := gen.last.Load().(Request); !req.JSON || !strings.Contains(req.Prompt, "Mensagem atual: estou mal") {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestClassifyRejectsOutOfSetValues(t *testing.T) {
	cases := map[string]string{
		"emotion":   `{"emocao_principal":"euforia","intensidade":3}`,
		"intensity": `{"emocao_principal":"raiva","intensidade":11}`,
		"syntax":    `{"emocao_principal":`,
		"type":      `{"intensidade":"alta"}`,
	}
	for name, reply := range cases {
		t.Run(name, func(t *testing.T) {
			res := NewGateway(&fakeGenerator{reply: reply}, nil).Classify(context.Background(), "x", nil)
			if res.OK() {
				t.Fatal("expected failure")
			}
			if res.Value != domain.DefaultClassification() {
				t.Fatalf("expected default, got %+v", res.Value)
			}
		})
	}
}

func TestClassifyTruncatesReply(t *testing.T) {
	long := strings.Repeat("ã", 700)
	gen := &fakeGenerator{reply: `{"emocao_principal":"neutra","resposta_empatica":"` + long + `"}`}
	res := NewGateway(gen, nil).Classify(context.Background(), "x", nil)
	if !res.OK() {
		t.Fatalf("unexpected failure: %v", res.Err)
	}
	if n := len([]rune(res.Value.EmpatheticReply)); n != maxReplyLen {
		t.Fatalf("expected %d runes, got %d", maxReplyLen, n)
	}
}

func TestNilGeneratorFailsWithoutCalling(t *testing.T) {
	g := NewGateway(nil, nil)
	ctx := context.Background()

	if res := g.Classify(ctx, "x", nil); !errors.Is(res.Err, ErrNotConfigured) || res.Value != domain.DefaultClassification() {
		t.Fatalf("unexpected classify result: %+v", res)
	}
	tr := g.Triage(ctx, TriageInput{})
	if !errors.Is(tr.Err, ErrNotConfigured) || tr.Value.Urgency != domain.UrgencyLow {
		t.Fatalf("unexpected triage result: %+v", tr)
	}
	if res := g.Narrative(ctx, NarrativeContext{}); !errors.Is(res.Err, ErrNotConfigured) || res.Value != "" {
		t.Fatalf("unexpected narrative result: %+v", res)
	}
	if g.Provider() != "none" {
		t.Fatalf("unexpected provider %q", g.Provider())
	}
}

func TestTimeoutYieldsDefaults(t *testing.T) {
	t.Parallel()
	g := NewGateway(blockingGenerator{}, nil, WithTimeout(20*time.Millisecond))

	res := g.Triage(context.Background(), TriageInput{PHQ9: make([]int, 9), GAD7: make([]int, 7)})
	if !errors.Is(res.Err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", res.Err)
	}
	def := domain.DefaultTriage()
	if res.Value.Urgency != def.Urgency || len(res.Value.DepressiveSignals) != 0 {
		t.Fatalf("expected default triage, got %+v", res.Value)
	}
}

func TestTimeoutAbandonsGeneratorIgnoringContext(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	defer close(release)
	g := NewGateway(stubbornGenerator{release: release}, nil, WithTimeout(20*time.Millisecond))

	start := time.Now()
	res := g.Classify(context.Background(), "x", nil)
	if res.OK() {
		t.Fatal("expected timeout failure")
	}
	if time.Since(start) > time.Second {
		t.Fatal("gateway did not honor its timeout")
	}
}

func TestTriageCleansLists(t *testing.T) {
	long := strings.Repeat("x", 200)
	gen := &fakeGenerator{reply: `{"nivel_urgencia":" Alta ",
		"sinais_depressao":["a","b","c","d","e","f","g"],
		"sinais_ansiedade":["  ", 3, "preocupação"],
		"impacto_funcional":["` + long + `"]}`}

	res := NewGateway(gen, nil).Triage(context.Background(), TriageInput{
		PersonalData: map[string]string{"nome": "Ana"},
		PHQ9:         []int{0, 0, 2, 0, 0, 0, 0, 0, 1},
		GAD7:         make([]int, 7),
		FreeText:     []string{"cansada"},
	})
	if !res.OK() {
		t.Fatalf("unexpected failure: %v", res.Err)
	}
	v := res.Value
	if v.Urgency != domain.UrgencyHigh {
		t.Fatalf("urgency = %q", v.Urgency)
	}
	if len(v.DepressiveSignals) != 6 {
		t.Fatalf("expected 6 signals, got %v", v.DepressiveSignals)
	}
	if len(v.AnxietySignals) != 1 || v.AnxietySignals[0] != "preocupação" {
		t.Fatalf("unexpected anxiety signals: %v", v.AnxietySignals)
	}
	if len(v.FunctionalImpact[0]) != maxListItemLen {
		t.Fatalf("expected truncated item, got %d", len(v.FunctionalImpact[0]))
	}
	if v.ProtectiveFactors == nil {
		t.Fatal("missing lists should be empty, not nil")
	}

	prompt := gen.last.Load().(Request).Prompt
	for _, want := range []string{"nome: Ana", "Q3(2)", "RISCO CRÍTICO", "  - cansada"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestTriageRejectsUnknownUrgency(t *testing.T) {
	res := NewGateway(&fakeGenerator{reply: `{"nivel_urgencia":"critica"}`}, nil).Triage(context.Background(), TriageInput{})
	if !errors.Is(res.Err, ErrMalformed) || res.Value.Urgency != domain.UrgencyLow {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestNarrative(t *testing.T) {
	gen := &fakeGenerator{reply: "  " + strings.Repeat("r", maxNarrativeLen+10) + "  "}
	res := NewGateway(gen, nil).Narrative(context.Background(), NarrativeContext{Name: "Ana", PHQ9Score: 4})
	if !res.OK() || len(res.Value) != maxNarrativeLen {
		t.Fatalf("unexpected narrative: ok=%v len=%d", res.OK(), len(res.Value))
	}
	if req := gen.last.Load().(Request); req.JSON || !strings.Contains(req.Prompt, `"nome": "Ana"`) {
		t.Fatalf("unexpected request: %+v", req)
	}

	empty := NewGateway(&fakeGenerator{reply: "   "}, nil).Narrative(context.Background(), NarrativeContext{})
	if !errors.Is(empty.Err, ErrEmpty) || empty.Value != "" {
		t.Fatalf("expected empty failure, got %+v", empty)
	}
}

func TestExtractJSONBlock(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", "{}"},
		{"sem json", "{}"},
		{`{"a":1}`, `{"a":1}`},
		{"texto {\"a\":1} fim", `{"a":1}`},
		{"```json\n{\"a\":1}\n```\n{\"b\":2}", `{"a":1}`},
		{"```\n{\"a\":{\"b\":2}}\n```", `{"a":{"b":2}}`},
	}
	for _, tc := range cases {
		if got := ExtractJSONBlock(tc.in); got != tc.want {
			t.Errorf("ExtractJSONBlock(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
