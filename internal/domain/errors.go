package domain

import "errors"

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomNotJoinable    = errors.New("room is not joinable")
	ErrNotAMember         = errors.New("user not in the room")
	ErrMessageRejected    = errors.New("message rejected")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrInvalidEvent       = errors.New("invalid event")
)

// ErrorCode maps an error to the wire-level code carried by the outbound
// error event. Anything outside the taxonomy is reported as Internal and
// must never leak detail to the client.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "Unauthorized"
	case errors.Is(err, ErrRoomNotFound):
		return "RoomNotFound"
	case errors.Is(err, ErrRoomNotJoinable):
		return "RoomNotJoinable"
	case errors.Is(err, ErrNotAMember):
		return "NotAMember"
	case errors.Is(err, ErrMessageRejected):
		return "MessageRejected"
	case errors.Is(err, ErrInvalidEvent):
		return "InvalidEvent"
	default:
		return "Internal"
	}
}

// IsDomain reports whether err belongs to the recoverable taxonomy, i.e. it
// is safe to echo its message back to the originating connection.
func IsDomain(err error) bool {
	return ErrorCode(err) != "Internal"
}
