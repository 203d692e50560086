package protocol

import "encoding/json"

// Kind is the closed set of event names shared between the gateway and the
// transport layer. Inbound kinds arrive from clients, outbound kinds are
// emitted by the server; the two sets are disjoint except for typing
// indicators, emojiReaction and seekMedia, which are relayed under their
// inbound name.
type Kind string

const (
	// inbound
	KindConnectUser      Kind = "connectUser"
	KindJoinRoom         Kind = "joinRoom"
	KindLeaveRoom        Kind = "leaveRoom"
	KindLiveMessage      Kind = "liveMessage"
	KindDirectMessage    Kind = "directMessage"
	KindEmojiReaction    Kind = "emojiReaction"
	KindTyping           Kind = "typing"
	KindStopTyping       Kind = "stopTyping"
	KindGetLiveHistory   Kind = "getLiveChatHistory"
	KindGetDirectHistory Kind = "getDirectMessageHistory"
	KindInitPlay         Kind = "initPlay"
	KindInitPause        Kind = "initPause"
	KindInitStop         Kind = "initStop"
	KindSeekMedia        Kind = "seekMedia"

	// outbound
	KindConnected       Kind = "connected"
	KindRoomJoined      Kind = "roomJoined"
	KindRoomLeft        Kind = "roomLeft"
	KindMessageSent     Kind = "messageSent"
	KindMessageReceived Kind = "messageReceived"
	KindUserJoinedRoom  Kind = "userJoinedRoom"
	KindUserLeftRoom    Kind = "userLeftRoom"
	KindChatHistory     Kind = "chatHistory"
	KindPlayMedia       Kind = "playMedia"
	KindPauseMedia      Kind = "pauseMedia"
	KindStopMedia       Kind = "stopMedia"
	KindError           Kind = "error"
)

// Envelope is the raw inbound frame. The payload stays undecoded until the
// gateway knows which handler owns the kind.
type Envelope struct {
	Event   Kind            `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Event is an outbound frame.
type Event struct {
	Event   Kind `json:"event"`
	Payload any  `json:"payload,omitempty"`
}
