package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tuneroom/live-service/internal/domain"
	"github.com/tuneroom/live-service/internal/history"
)

// HistoryRepository is the durable history.Store backend. Sequence numbers
// are dense per target; the gateway already serializes appends per target,
// the unique (target, seq) index is the safety net.
type HistoryRepository struct {
	db *pgxpool.Pool
}

func NewHistoryRepository(db *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) Append(ctx context.Context, msg domain.Message) (domain.Message, error) {
	var emoji, reactsTo *string
	if msg.Reaction != nil {
		emoji = &msg.Reaction.Emoji
		if msg.Reaction.MessageID != "" {
			reactsTo = &msg.Reaction.MessageID
		}
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO chat_messages (id, target, seq, sender_id, body, emoji, reacts_to, verdict, verdict_reason, created_at)
		VALUES ($1, $2,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM chat_messages WHERE target = $2),
			$3, $4, $5, $6, $7, $8, $9)
		RETURNING seq
	`, msg.ID, msg.Target.Key(), msg.Sender, msg.Body, emoji, reactsTo,
		string(msg.Verdict), msg.VerdictReason, msg.CreatedAt)

	if err := row.Scan(&msg.Seq); err != nil {
		return domain.Message{}, fmt.Errorf("%w: append: %v", domain.ErrStorageUnavailable, err)
	}
	return msg, nil
}

func (r *HistoryRepository) History(ctx context.Context, target domain.Target, pageToken string, limit int) (history.Page, error) {
	after, err := history.DecodePageToken(pageToken)
	if err != nil {
		return history.Page{}, err
	}
	if limit <= 0 {
		limit = history.DefaultPageSize
	}
	if limit > history.MaxPageSize {
		limit = history.MaxPageSize
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, seq, sender_id, body, emoji, reacts_to, verdict, verdict_reason, created_at
		FROM chat_messages
		WHERE target = $1 AND seq > $2
		ORDER BY seq ASC
		LIMIT $3
	`, target.Key(), after, limit)
	if err != nil {
		return history.Page{}, fmt.Errorf("%w: history: %v", domain.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var page history.Page
	for rows.Next() {
		m := domain.Message{Target: target}
		var emoji, reactsTo *string
		var verdict string
		if err := rows.Scan(&m.ID, &m.Seq, &m.Sender, &m.Body, &emoji, &reactsTo,
			&verdict, &m.VerdictReason, &m.CreatedAt); err != nil {
			return history.Page{}, fmt.Errorf("%w: scan: %v", domain.ErrStorageUnavailable, err)
		}
		m.Verdict = domain.Verdict(verdict)
		if emoji != nil {
			m.Reaction = &domain.Reaction{Emoji: *emoji}
			if reactsTo != nil {
				m.Reaction.MessageID = *reactsTo
			}
		}
		page.Messages = append(page.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return history.Page{}, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	if len(page.Messages) == limit {
		page.NextPageToken = history.EncodePageToken(page.Messages[len(page.Messages)-1].Seq)
	}
	return page, nil
}

func (r *HistoryRepository) Drop(ctx context.Context, target domain.Target) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM chat_messages WHERE target = $1`, target.Key()); err != nil {
		return fmt.Errorf("%w: drop: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}
