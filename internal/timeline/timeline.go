// Package timeline reconciles optimistic, confirmed and synthesized messages
// into one ordered, de-duplicated list per room.
package timeline

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/vovakirdan/wirechat-client/internal/core"
)

// MaxMessages caps the in-memory timeline of a room.
const MaxMessages = 200

// SystemSender authors every synthesized message.
var SystemSender = core.Sender{ID: "system", Name: "System"}

// Windows are the per-flow duplicate windows.
type Windows struct {
	// Optimistic is the max distance between a local send and its confirmation.
	Optimistic time.Duration
	// Confirmed is the window for (sender, body, timestamp) duplicate detection.
	Confirmed time.Duration
	// System is the window in which an identical system notice is suppressed.
	System time.Duration
}

// DefaultWindows returns the stock windows.
func DefaultWindows() Windows {
	return Windows{
		Optimistic: 5 * time.Second,
		Confirmed:  2 * time.Second,
		System:     3 * time.Second,
	}
}

// BlockList answers whether a sender is blocked by the local user.
type BlockList interface {
	Blocked(userID string) bool
}

// Result describes what ApplyConfirmed did with a message.
type Result int

const (
	// Appended means the message was added to the end of the timeline.
	Appended Result = iota
	// Superseded means a matching optimistic message was removed and the confirmed one appended.
	Superseded
	// Duplicate means the message was already present.
	Duplicate
	// Blocked means the sender is blocked.
	Blocked
)

// Visible reports whether the result added a message.
func (r Result) Visible() bool {
	return r == Appended || r == Superseded
}

// Timeline is the reconciled message list of one room. It is not safe for
// concurrent use; the coordinator loop owns it.
type Timeline struct {
	roomID   string
	clock    clock.Clock
	windows  Windows
	blocked  BlockList
	messages []core.Message
	notices  map[string]time.Time
}

// New creates an empty timeline.
func New(roomID string, clk clock.Clock, windows Windows, blocked BlockList) *Timeline {
	if clk == nil {
		clk = clock.New()
	}
	return &Timeline{
		roomID:  roomID,
		clock:   clk,
		windows: windows,
		blocked: blocked,
		notices: make(map[string]time.Time),
	}
}

// RoomID returns the room the timeline belongs to.
func (t *Timeline) RoomID() string {
	return t.roomID
}

// Messages returns a copy of the visible messages in timeline order.
func (t *Timeline) Messages() []core.Message {
	out := make([]core.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of visible messages.
func (t *Timeline) Len() int {
	return len(t.messages)
}

// Reset drops all messages and notice history.
func (t *Timeline) Reset() {
	t.messages = nil
	t.notices = make(map[string]time.Time)
}

// Load replaces the timeline with messages, dropping blocked senders and repeated ids.
func (t *Timeline) Load(messages []core.Message) {
	t.Reset()
	t.Restore(messages)
}

// Restore places cached history in front of what is already visible.
// Messages already present by id and messages from blocked senders are skipped.
func (t *Timeline) Restore(history []core.Message) {
	seen := make(map[string]struct{}, len(t.messages)+len(history))
	for _, m := range t.messages {
		seen[m.ID] = struct{}{}
	}

	merged := make([]core.Message, 0, len(history)+len(t.messages))
	for _, m := range history {
		if _, dup := seen[m.ID]; dup || t.isBlocked(m.Sender.ID) {
			continue
		}
		seen[m.ID] = struct{}{}
		merged = append(merged, m)
	}
	t.messages = append(merged, t.messages...)
	t.trim()
}

// AppendOptimistic adds a provisional message for a local send.
func (t *Timeline) AppendOptimistic(sender core.Sender, body string) core.Message {
	m := core.Message{
		ID:        core.LocalIDPrefix + uuid.NewString(),
		RoomID:    t.roomID,
		Body:      body,
		Sender:    sender,
		CreatedAt: t.clock.Now(),
		Kind:      core.KindText,
	}
	t.messages = append(t.messages, m)
	t.trim()
	return m
}

// Remove deletes the message with the given id.
func (t *Timeline) Remove(id string) bool {
	for i, m := range t.messages {
		if m.ID == id {
			t.messages = append(t.messages[:i], t.messages[i+1:]...)
			return true
		}
	}
	return false
}

// ApplyConfirmed folds a server-confirmed message into the timeline.
func (t *Timeline) ApplyConfirmed(msg core.Message) Result {
	if t.isBlocked(msg.Sender.ID) {
		return Blocked
	}
	if t.isDuplicate(msg) {
		return Duplicate
	}

	result := Appended
	if idx := t.matchOptimistic(msg); idx >= 0 {
		t.messages = append(t.messages[:idx], t.messages[idx+1:]...)
		result = Superseded
	}
	if msg.RoomID == "" {
		msg.RoomID = t.roomID
	}
	t.messages = append(t.messages, msg)
	t.trim()
	return result
}

func (t *Timeline) isDuplicate(msg core.Message) bool {
	for _, m := range t.messages {
		if m.Optimistic() {
			continue
		}
		if msg.ID != "" && m.ID == msg.ID {
			return true
		}
		if m.Sender.ID == msg.Sender.ID && m.Body == msg.Body && within(m.CreatedAt, msg.CreatedAt, t.windows.Confirmed) {
			return true
		}
	}
	return false
}

// matchOptimistic finds the oldest optimistic message the confirmed one supersedes.
func (t *Timeline) matchOptimistic(msg core.Message) int {
	for i, m := range t.messages {
		if !m.Optimistic() {
			continue
		}
		if m.Sender.ID == msg.Sender.ID && m.Body == msg.Body && within(m.CreatedAt, msg.CreatedAt, t.windows.Optimistic) {
			return i
		}
	}
	return -1
}

// AppendSystem appends a synthesized notice. When key is non-empty, a notice with
// the same key inside the system window is suppressed and false is returned.
func (t *Timeline) AppendSystem(key, text string) (core.Message, bool) {
	now := t.clock.Now()
	if key != "" {
		if last, ok := t.notices[key]; ok && now.Sub(last) <= t.windows.System {
			return core.Message{}, false
		}
		t.notices[key] = now
	}

	m := core.Message{
		ID:        "sys-" + uuid.NewString(),
		RoomID:    t.roomID,
		Body:      text,
		Sender:    SystemSender,
		CreatedAt: now,
		Kind:      core.KindSystem,
	}
	t.messages = append(t.messages, m)
	t.trim()
	return m, true
}

// AppendNotice appends n through AppendSystem.
func (t *Timeline) AppendNotice(n Notice) (core.Message, bool) {
	return t.AppendSystem(n.Key, n.Text)
}

// RemoveFrom drops every message authored by userID and returns how many were removed.
func (t *Timeline) RemoveFrom(userID string) int {
	kept := t.messages[:0]
	removed := 0
	for _, m := range t.messages {
		if m.Sender.ID == userID {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	t.messages = kept
	return removed
}

func (t *Timeline) has(id string) bool {
	for _, m := range t.messages {
		if m.ID == id {
			return true
		}
	}
	return false
}

func (t *Timeline) isBlocked(userID string) bool {
	return t.blocked != nil && userID != "" && t.blocked.Blocked(userID)
}

func (t *Timeline) trim() {
	if len(t.messages) > MaxMessages {
		t.messages = t.messages[len(t.messages)-MaxMessages:]
	}
}

func within(a, b time.Time, window time.Duration) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d <= window
}
