package history

import (
	"context"

	"github.com/tuneroom/live-service/internal/domain"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

type Page struct {
	Messages      []domain.Message
	NextPageToken string
}

// Store is the append-only ordered log per target. Append assigns the next
// dense sequence number for the message's target and persists it; transient
// persistence failures surface as domain.ErrStorageUnavailable and the store
// itself never retries. History reads ascending by sequence and is
// idempotent: the same page token always yields the same slice.
type Store interface {
	Append(ctx context.Context, msg domain.Message) (domain.Message, error)
	History(ctx context.Context, target domain.Target, pageToken string, limit int) (Page, error)
	// Drop discards a target's log. Used when an ephemeral room is reclaimed.
	Drop(ctx context.Context, target domain.Target) error
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}
