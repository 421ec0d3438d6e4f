package timeline

import (
	"fmt"
	"strings"

	"github.com/vovakirdan/wirechat-client/internal/core"
)

// FallbackCreator is shown when the room creator cannot be looked up.
const FallbackCreator = "room creator"

const managedByPrefix = "This room is managed by "

// WelcomeID is the stable id of a room's welcome line.
func WelcomeID(roomID string) string {
	return "welcome:" + roomID
}

// ManagedByID is the stable id of a room's "managed by" line.
func ManagedByID(roomID string) string {
	return "managed:" + roomID
}

// WelcomeText is the body of the welcome line.
func WelcomeText(roomName string) string {
	return fmt.Sprintf("Welcome to %s!", roomName)
}

// ManagedByText is the body of the "managed by" line.
func ManagedByText(creator string) string {
	return managedByPrefix + creator
}

// HasWelcome reports whether the welcome line is present.
func (t *Timeline) HasWelcome() bool {
	return t.has(WelcomeID(t.roomID))
}

// EnsureWelcome appends the welcome line unless it is already present.
func (t *Timeline) EnsureWelcome(roomName string) bool {
	return t.ensureMarker(WelcomeID(t.roomID), WelcomeText(roomName))
}

// EnsureManagedBy appends the "managed by" line unless it is already present.
// An empty creator falls back to FallbackCreator.
func (t *Timeline) EnsureManagedBy(creator string) bool {
	if creator == "" {
		creator = FallbackCreator
	}
	return t.ensureMarker(ManagedByID(t.roomID), ManagedByText(creator))
}

func (t *Timeline) ensureMarker(id, text string) bool {
	if t.has(id) {
		return false
	}
	t.messages = append(t.messages, core.Message{
		ID:        id,
		RoomID:    t.roomID,
		Body:      text,
		Sender:    SystemSender,
		CreatedAt: t.clock.Now(),
		Kind:      core.KindSystem,
	})
	t.trim()
	return true
}

// WelcomeSet builds the welcome-only message set used when a room's history is unusable.
// An empty creator omits the "managed by" line.
func (t *Timeline) WelcomeSet(roomName, creator string) []core.Message {
	now := t.clock.Now()
	set := []core.Message{{
		ID:        WelcomeID(t.roomID),
		RoomID:    t.roomID,
		Body:      WelcomeText(roomName),
		Sender:    SystemSender,
		CreatedAt: now,
		Kind:      core.KindSystem,
	}}
	if creator != "" {
		set = append(set, core.Message{
			ID:        ManagedByID(t.roomID),
			RoomID:    t.roomID,
			Body:      ManagedByText(creator),
			Sender:    SystemSender,
			CreatedAt: now,
			Kind:      core.KindSystem,
		})
	}
	return set
}

// CreatorOf returns the "managed by" attribution currently shown, if any.
func (t *Timeline) CreatorOf() (string, bool) {
	for _, m := range t.messages {
		if m.ID == ManagedByID(t.roomID) {
			return strings.TrimPrefix(m.Body, managedByPrefix), true
		}
	}
	return "", false
}
