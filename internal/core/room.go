package core

import "time"

// systemRoomIDs are reserved rooms owned by the service itself.
var systemRoomIDs = map[string]struct{}{"1": {}, "2": {}, "3": {}, "4": {}}

// SystemCreator is the creator name shown for reserved rooms.
const SystemCreator = "System"

// IsSystemRoom reports whether roomID is one of the reserved system rooms.
func IsSystemRoom(roomID string) bool {
	_, ok := systemRoomIDs[roomID]
	return ok
}

// Access is the outcome of a room access check.
type Access struct {
	Banned           bool
	RemainingMinutes int
}

// RoomInfo is room metadata returned by the room-info collaborator.
type RoomInfo struct {
	Name      string
	CreatedBy string
	CreatedAt time.Time
	Capacity  int
}

// Report is a moderation report about a user or message.
type Report struct {
	RoomID    string `json:"room_id"`
	UserID    string `json:"user_id"`
	MessageID string `json:"message_id,omitempty"`
	Reason    string `json:"reason"`
}
