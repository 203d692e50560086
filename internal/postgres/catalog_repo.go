package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tuneroom/live-service/internal/domain"
	"github.com/tuneroom/live-service/internal/gateway"
)

// CatalogRepository answers room facts from the rooms database owned by the
// CRUD service: the gateway only reads exists / temporariness / privacy /
// archival before authorizing a join or a history read.
type CatalogRepository struct {
	db *pgxpool.Pool
}

func NewCatalogRepository(db *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) Authorize(ctx context.Context, roomID, userID string) (gateway.RoomFacts, error) {
	var (
		isTemporary bool
		isPrivate   bool
		isArchived  bool
		createdBy   string
	)
	err := r.db.QueryRow(ctx, `
		SELECT is_temporary, is_private, is_archived, created_by
		FROM rooms
		WHERE id = $1
	`, roomID).Scan(&isTemporary, &isPrivate, &isArchived, &createdBy)
	if errors.Is(err, pgx.ErrNoRows) {
		// unknown upstream: created on first join as ephemeral
		return gateway.RoomFacts{}, nil
	}
	if err != nil {
		return gateway.RoomFacts{}, fmt.Errorf("%w: room lookup: %v", domain.ErrStorageUnavailable, err)
	}

	facts := gateway.RoomFacts{Known: true, Persistent: !isTemporary, Archived: isArchived}
	if !isPrivate || createdBy == userID {
		return facts, nil
	}

	var allowed bool
	err = r.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM room_access WHERE room_id = $1 AND user_id = $2)
	`, roomID, userID).Scan(&allowed)
	if err != nil {
		return gateway.RoomFacts{}, fmt.Errorf("%w: access lookup: %v", domain.ErrStorageUnavailable, err)
	}
	if !allowed {
		return gateway.RoomFacts{}, domain.ErrRoomNotJoinable
	}
	return facts, nil
}
