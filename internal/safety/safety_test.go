package safety

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestHasCrisisTerms(t *testing.T) {
	cases := []struct {
		message string
		want    bool
	}{
		{"Quero me matar", true},
		{"Pensei em tirar a vida ontem", true},
		{"Estou sem vontade de viver", true},
		{"PENSO EM MORRER", true},
		{"tenho pensamentos suicidas", true},
		{"às vezes penso em me machucar", true},
		{"Hoje foi difícil, mas vou continuar", false},
		{"Dia cansativo, mas tudo bem", false},
		{"", false},
	}

	for _, tc := range cases {
		if got := HasCrisisTerms(tc.message); got != tc.want {
			t.Errorf("HasCrisisTerms(%q) = %v, want %v", tc.message, got, tc.want)
		}
	}
}

func TestGateActivatesWithExternalFlag(t *testing.T) {
	d := NewDetector(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), nil)
	if !d.Gate(context.Background(), "u1", "Estou tranquilo", true) {
		t.Fatal("expected gate to trigger on external flag")
	}
}

func TestGateFalseWithoutTriggers(t *testing.T) {
	d := NewDetector(nil, nil)
	if d.Gate(context.Background(), "u1", "Dia cansativo, mas tudo bem", false) {
		t.Fatal("expected gate to stay closed")
	}
}

func TestGateNeverLogsRawMessage(t *testing.T) {
	var buf bytes.Buffer
	d := NewDetector(slog.New(slog.NewJSONHandler(&buf, nil)), nil)

	msg := "quero morrer hoje"
	if !d.Gate(context.Background(), "u1", msg, false) {
		t.Fatal("expected gate to trigger")
	}
	out := buf.String()
	if strings.Contains(out, msg) {
		t.Fatalf("log contains raw message: %s", out)
	}
	if !strings.Contains(out, "crisis_gate_triggered") || !strings.Contains(out, Redact(msg)) {
		t.Fatalf("expected redacted warning, got: %s", out)
	}
}

func TestAnyCrisis(t *testing.T) {
	if AnyCrisis([]string{"tudo bem", "cansado"}, false) {
		t.Fatal("expected no crisis")
	}
	if !AnyCrisis([]string{"tudo bem", "sem vontade de viver"}, false) {
		t.Fatal("expected crisis from messages")
	}
	if !AnyCrisis(nil, true) {
		t.Fatal("expected crisis from flag")
	}
}
