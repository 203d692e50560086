package gateway

import "context"

// RoomFacts is what the external room CRUD service knows about a room.
// Unknown rooms are created on first join as ephemeral; known rooms take
// their persistence from the catalog.
type RoomFacts struct {
	Known      bool
	Persistent bool
	Archived   bool
}

// RoomCatalog answers the authorization facts consulted before a join:
// whether the room exists upstream, whether it is persistent or archived,
// and whether this user may enter (private rooms fail with
// domain.ErrRoomNotJoinable).
type RoomCatalog interface {
	Authorize(ctx context.Context, roomID, userID string) (RoomFacts, error)
}

// OpenCatalog treats every room as unknown and joinable. Used when the
// service runs without the rooms database.
type OpenCatalog struct{}

func (OpenCatalog) Authorize(ctx context.Context, roomID, userID string) (RoomFacts, error) {
	return RoomFacts{}, nil
}
