package core

// EventKind is a notification the transport delivers to the engine.
type EventKind int

const (
	// EventMessage carries a server-confirmed chat message.
	EventMessage EventKind = iota
	// EventUserJoined notifies that a user joined a room.
	EventUserJoined
	// EventUserLeft notifies that a user left a room.
	EventUserLeft
	// EventUserKicked notifies that a user was removed from a room.
	EventUserKicked
	// EventForcedLeave tells this client it was removed from a room by the server.
	EventForcedLeave
	// EventSocketError reports a server-side error scoped to a room.
	EventSocketError
	// EventRoomJoined confirms this client's join request.
	EventRoomJoined
	// EventRoomLeft confirms this client left a room.
	EventRoomLeft
	// EventTypingStart marks a user as typing in a room.
	EventTypingStart
	// EventTypingStop clears a user's typing mark.
	EventTypingStop
	// EventConnected is emitted when the transport (re)establishes its connection.
	EventConnected
	// EventDisconnected is emitted when the transport loses its connection.
	EventDisconnected
)

var eventKindNames = [...]string{
	"message",
	"user_joined",
	"user_left",
	"user_kicked",
	"forced_leave",
	"socket_error",
	"room_joined",
	"room_left",
	"typing_start",
	"typing_stop",
	"connected",
	"disconnected",
}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventKindNames) {
		return "unknown"
	}
	return eventKindNames[k]
}

// Event is delivered by the transport. RoomID is empty for connection-level events.
type Event struct {
	Kind    EventKind
	RoomID  string
	User    Sender
	Message Message
	Reason  string
	Error   *CoreError
}

// RoomScoped reports whether the event must be routed to a room session.
func (e Event) RoomScoped() bool {
	return e.Kind != EventConnected && e.Kind != EventDisconnected
}
