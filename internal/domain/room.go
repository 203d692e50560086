package domain

// RoomState tracks the directory-side lifecycle of a room. Deleted rooms
// simply disappear from the directory, so only the live states are named.
type RoomState string

const (
	RoomActive   RoomState = "active"
	RoomArchived RoomState = "archived"
)
