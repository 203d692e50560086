package moderation

import (
	"context"
	"testing"

	"github.com/tuneroom/live-service/internal/domain"
)

func evaluate(t *testing.T, m *RuleModerator, body string) Verdict {
	t.Helper()
	v, err := m.Evaluate(context.Background(), domain.Message{Body: body})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	return v
}

func TestRuleModerator_Allow(t *testing.T) {
	m := NewRuleModerator([]string{"spam"}, []string{"sketchy"})

	v := evaluate(t, m, "hello everyone, great track")
	if v.Decision != Allow {
		t.Fatalf("decision = %s, want allow", v.Decision)
	}
}

func TestRuleModerator_BlockIsCaseAndPunctuationInsensitive(t *testing.T) {
	m := NewRuleModerator([]string{"spam"}, nil)

	for _, body := range []string{"spam", "SPAM", "Spam!", "total (spam)", "spam, again"} {
		if v := evaluate(t, m, body); v.Decision != Block {
			t.Fatalf("body %q: decision = %s, want block", body, v.Decision)
		}
	}
	if v := evaluate(t, m, "spammy"); v.Decision != Allow {
		t.Fatalf("substring must not match, got %s", v.Decision)
	}
}

func TestRuleModerator_Flag(t *testing.T) {
	m := NewRuleModerator([]string{"spam"}, []string{"sketchy"})

	v := evaluate(t, m, "this looks sketchy to me")
	if v.Decision != Flag {
		t.Fatalf("decision = %s, want flag", v.Decision)
	}
	if v.Reason == "" {
		t.Fatal("flag verdict must carry a reason")
	}
}

func TestRuleModerator_BlockWinsOverFlag(t *testing.T) {
	m := NewRuleModerator([]string{"spam"}, []string{"sketchy"})

	v := evaluate(t, m, "sketchy spam")
	if v.Decision != Block {
		t.Fatalf("decision = %s, want block", v.Decision)
	}
}

func TestRuleModerator_CancelledContext(t *testing.T) {
	m := NewRuleModerator([]string{"spam"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.Evaluate(ctx, domain.Message{Body: "hello"}); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
