package protocol

import "time"

// inbound payloads

type ConnectUserPayload struct {
	Token string `json:"token"`
}

type RoomPayload struct {
	RoomID string `json:"roomID"`
}

type LiveMessagePayload struct {
	RoomID string `json:"roomID"`
	Body   string `json:"body"`
}

type DirectMessagePayload struct {
	ToUserID string `json:"toUserID"`
	Body     string `json:"body"`
}

type EmojiReactionPayload struct {
	RoomID    string `json:"roomID"`
	Emoji     string `json:"emoji"`
	MessageID string `json:"messageID,omitempty"`
}

type LiveHistoryPayload struct {
	RoomID    string `json:"roomID"`
	PageToken string `json:"pageToken,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

type DirectHistoryPayload struct {
	WithUserID string `json:"withUserID"`
	PageToken  string `json:"pageToken,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

type PlaybackPayload struct {
	RoomID     string `json:"roomID"`
	SongID     string `json:"songID,omitempty"`
	PositionMS int64  `json:"positionMs,omitempty"`
}

// outbound payloads

type ConnectedPayload struct {
	UserID string `json:"userID"`
}

type RoomJoinedPayload struct {
	RoomID  string   `json:"roomID"`
	Created bool     `json:"created"`
	Members []string `json:"members"`
}

type RoomLeftPayload struct {
	RoomID string `json:"roomID"`
}

type UserRoomPayload struct {
	RoomID string `json:"roomID"`
	UserID string `json:"userID"`
}

type MessageAckPayload struct {
	MessageID string `json:"messageID"`
	Seq       int64  `json:"seq"`
	RoomID    string `json:"roomID,omitempty"`
	ToUserID  string `json:"toUserID,omitempty"`
}

type MessagePayload struct {
	MessageID string    `json:"messageID"`
	Seq       int64     `json:"seq"`
	RoomID    string    `json:"roomID,omitempty"`
	FromUser  string    `json:"fromUserID"`
	Body      string    `json:"body,omitempty"`
	Emoji     string    `json:"emoji,omitempty"`
	ReactsTo  string    `json:"reactsTo,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type ChatHistoryPayload struct {
	RoomID        string           `json:"roomID,omitempty"`
	WithUserID    string           `json:"withUserID,omitempty"`
	Messages      []MessagePayload `json:"messages"`
	NextPageToken string           `json:"nextPageToken,omitempty"`
}

type PlaybackEventPayload struct {
	RoomID     string `json:"roomID"`
	UserID     string `json:"userID"`
	SongID     string `json:"songID,omitempty"`
	PositionMS int64  `json:"positionMs,omitempty"`
	UTCTime    int64  `json:"utcTime"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
