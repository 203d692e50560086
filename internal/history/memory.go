package history

import (
	"context"
	"sync"

	"github.com/tuneroom/live-service/internal/domain"
)

// MemoryStore keeps every target's log in process memory. It is the default
// backend for single-node deployments and for tests; logs are ascending by
// sequence, so a message's index is Seq-1.
type MemoryStore struct {
	mu   sync.RWMutex
	logs map[string][]domain.Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{logs: make(map[string][]domain.Message)}
}

func (s *MemoryStore) Append(ctx context.Context, msg domain.Message) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := msg.Target.Key()
	msg.Seq = int64(len(s.logs[key])) + 1
	s.logs[key] = append(s.logs[key], msg)
	return msg, nil
}

func (s *MemoryStore) History(ctx context.Context, target domain.Target, pageToken string, limit int) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	after, err := DecodePageToken(pageToken)
	if err != nil {
		return Page{}, err
	}
	limit = clampLimit(limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.logs[target.Key()]
	if after >= int64(len(log)) {
		return Page{}, nil
	}

	end := after + int64(limit)
	if end > int64(len(log)) {
		end = int64(len(log))
	}
	page := Page{Messages: append([]domain.Message(nil), log[after:end]...)}
	if end < int64(len(log)) {
		page.NextPageToken = EncodePageToken(end)
	}
	return page, nil
}

func (s *MemoryStore) Drop(ctx context.Context, target domain.Target) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.logs, target.Key())
	return nil
}
