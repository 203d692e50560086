package moderation

import (
	"context"
	"strings"

	"github.com/tuneroom/live-service/internal/domain"
)

// RuleModerator is the default deterministic keyword engine. Matching is
// case-insensitive over whitespace-separated tokens with common punctuation
// stripped, so "Spam!" still hits a "spam" rule.
type RuleModerator struct {
	block map[string]struct{}
	flag  map[string]struct{}
}

func NewRuleModerator(blockWords, flagWords []string) *RuleModerator {
	m := &RuleModerator{
		block: make(map[string]struct{}, len(blockWords)),
		flag:  make(map[string]struct{}, len(flagWords)),
	}
	for _, w := range blockWords {
		if w = normalize(w); w != "" {
			m.block[w] = struct{}{}
		}
	}
	for _, w := range flagWords {
		if w = normalize(w); w != "" {
			m.flag[w] = struct{}{}
		}
	}
	return m
}

func (m *RuleModerator) Evaluate(ctx context.Context, msg domain.Message) (Verdict, error) {
	if err := ctx.Err(); err != nil {
		return Verdict{}, err
	}

	verdict := Verdict{Decision: Allow}
	for _, tok := range strings.Fields(msg.Body) {
		tok = normalize(tok)
		if tok == "" {
			continue
		}
		if _, ok := m.block[tok]; ok {
			return Verdict{Decision: Block, Reason: "blocked term: " + tok}, nil
		}
		if _, ok := m.flag[tok]; ok && verdict.Decision == Allow {
			verdict = Verdict{Decision: Flag, Reason: "flagged term: " + tok}
		}
	}
	return verdict, nil
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.TrimFunc(s, func(r rune) bool {
		switch r {
		case '.', ',', '!', '?', ';', ':', '"', '\'', '(', ')', '[', ']':
			return true
		}
		return false
	})
}
