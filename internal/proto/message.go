package proto

import "encoding/json"

// Outbound is the envelope for frames sent by this client to the chat server.
type Outbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Inbound is the envelope for frames received from the chat server.
type Inbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *Error          `json:"error,omitempty"`
}

const (
	ProtocolVersion = 1

	OutboundTypeHello  = "hello"
	OutboundTypeJoin   = "join"
	OutboundTypeLeave  = "leave"
	OutboundTypeMsg    = "msg"
	OutboundTypeTyping = "typing"

	InboundTypeEvent = "event"
	InboundTypeError = "error"

	EventMessage     = "message"
	EventUserJoined  = "user_joined"
	EventUserLeft    = "user_left"
	EventUserKicked  = "user_kicked"
	EventForcedLeave = "forced_leave"
	EventRoomJoined  = "room_joined"
	EventRoomLeft    = "room_left"
	EventTypingStart = "typing_start"
	EventTypingStop  = "typing_stop"
)

// HelloData introduces the client after dialing.
type HelloData struct {
	Token    string `json:"token,omitempty"`
	Protocol int    `json:"protocol,omitempty"`
}

// JoinData requests to join a specific room.
type JoinData struct {
	Room string `json:"room"`
}

// LeaveData requests to leave a room. Force skips the server's grace period.
type LeaveData struct {
	Room  string `json:"room"`
	Force bool   `json:"force,omitempty"`
}

// MsgData is a chat message sent by this client.
type MsgData struct {
	Room string `json:"room"`
	Text string `json:"text"`
}

// TypingData toggles this client's typing indicator in a room.
type TypingData struct {
	Room   string `json:"room"`
	Typing bool   `json:"typing"`
}

// User is the sender snapshot attached to server events.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Level    int    `json:"level,omitempty"`
	Online   bool   `json:"online,omitempty"`
	Mentor   bool   `json:"mentor,omitempty"`
	Merchant bool   `json:"merchant,omitempty"`
	Admin    bool   `json:"admin,omitempty"`
}

// Gift is a gift descriptor attached to gift messages.
type Gift struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity,omitempty"`
	To       string `json:"to,omitempty"`
}

// MessageData is a confirmed chat message.
type MessageData struct {
	ID        string `json:"id"`
	Room      string `json:"room"`
	User      User   `json:"user"`
	Text      string `json:"text"`
	Kind      string `json:"kind,omitempty"`
	Gift      *Gift  `json:"gift,omitempty"`
	CardImage string `json:"card_image,omitempty"`
	TS        int64  `json:"ts"` // unix milliseconds
}

// EventRoomUser is the payload of membership and typing events.
type EventRoomUser struct {
	Room   string `json:"room"`
	User   User   `json:"user"`
	Reason string `json:"reason,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Room string `json:"room,omitempty"`
}
