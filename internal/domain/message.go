package domain

import (
	"strings"
	"time"
)

type TargetKind string

const (
	TargetRoom   TargetKind = "room"
	TargetDirect TargetKind = "dm"
)

// Target identifies an ordered message log: a room's live chat or the
// conversation between a pair of users. DM targets are canonical, so the
// same pair always maps to the same log regardless of who is sending.
type Target struct {
	Kind   TargetKind
	RoomID string
	UserA  string
	UserB  string
}

func RoomTarget(roomID string) Target {
	return Target{Kind: TargetRoom, RoomID: roomID}
}

func DirectTarget(u1, u2 string) Target {
	if u1 > u2 {
		u1, u2 = u2, u1
	}
	return Target{Kind: TargetDirect, UserA: u1, UserB: u2}
}

func (t Target) Key() string {
	if t.Kind == TargetDirect {
		return strings.Join([]string{string(TargetDirect), t.UserA, t.UserB}, ":")
	}
	return string(TargetRoom) + ":" + t.RoomID
}

// Verdict is the moderation outcome recorded on an accepted message.
// Blocked messages are never appended, so only allow/flag appear in history.
type Verdict string

const (
	VerdictAllow Verdict = "allow"
	VerdictBlock Verdict = "block"
	VerdictFlag  Verdict = "flag"
)

// Reaction is the structured body of an emoji reaction message.
type Reaction struct {
	Emoji     string `json:"emoji"`
	MessageID string `json:"messageID,omitempty"`
}

// Message is immutable once appended. Seq is dense per target and assigned
// by the history store at append time.
type Message struct {
	ID            string
	Seq           int64
	Target        Target
	Sender        string
	Body          string
	Reaction      *Reaction
	Verdict       Verdict
	VerdictReason string
	CreatedAt     time.Time
}
