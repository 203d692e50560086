package moderation

import (
	"context"

	"github.com/tuneroom/live-service/internal/domain"
)

type Decision string

const (
	Allow Decision = "allow"
	Block Decision = "block"
	Flag  Decision = "flag"
)

type Verdict struct {
	Decision Decision
	Reason   string
}

// Moderator classifies a candidate message before it is appended or fanned
// out. Implementations receive an immutable copy and must never be called
// while the caller holds room or connection locks. Any classifier honoring
// this contract is substitutable for the default rule engine.
type Moderator interface {
	Evaluate(ctx context.Context, msg domain.Message) (Verdict, error)
}
