package coordinator

import (
	"sort"

	"github.com/vovakirdan/wirechat-client/internal/core"
	"github.com/vovakirdan/wirechat-client/internal/kickvote"
)

// RoomSummary is one tab of the room list.
type RoomSummary struct {
	Index      int      `json:"index"`
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	State      string   `json:"state"`
	Foreground bool     `json:"foreground"`
	Unread     bool     `json:"unread"`
	Typing     []string `json:"typing,omitempty"`
	Members    int      `json:"members"`
}

// Snapshot is the derived view of every open room.
type Snapshot struct {
	Self       core.Sender   `json:"self"`
	Foreground int           `json:"foreground"`
	Rooms      []RoomSummary `json:"rooms"`
	Blocked    []string      `json:"blocked,omitempty"`
}

// RoomDetail is the derived view of a single room.
type RoomDetail struct {
	RoomSummary
	Messages   []core.Message    `json:"messages"`
	Votes      []kickvote.Status `json:"votes"`
	MemberList []core.Member     `json:"member_list"`
}

// Snapshot returns the room list view.
func (c *Coordinator) Snapshot() Snapshot {
	snap := Snapshot{
		Self:       c.self,
		Foreground: c.foreground,
		Rooms:      make([]RoomSummary, 0, len(c.sessions)),
		Blocked:    c.BlockedUsers(),
	}
	for i := range c.sessions {
		snap.Rooms = append(snap.Rooms, c.summary(i))
	}
	return snap
}

// Room returns the detailed view of the room at index.
func (c *Coordinator) Room(index int) (RoomDetail, error) {
	s, err := c.session(index)
	if err != nil {
		return RoomDetail{}, err
	}
	return RoomDetail{
		RoomSummary: c.summary(index),
		Messages:    s.Timeline().Messages(),
		Votes:       s.Votes().Votes(s.MemberCount()),
		MemberList:  s.Members(),
	}, nil
}

// Unread reports whether the room has activity the user has not seen.
func (c *Coordinator) Unread(roomID string) bool {
	return c.unread[roomID]
}

// Typing returns the sorted names currently typing in the room.
func (c *Coordinator) Typing(roomID string) []string {
	users := c.typing[roomID]
	names := make([]string, 0, len(users))
	for name := range users {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Coordinator) summary(i int) RoomSummary {
	s := c.sessions[i]
	return RoomSummary{
		Index:      i,
		ID:         s.ID,
		Name:       s.Name,
		State:      s.State().String(),
		Foreground: i == c.foreground,
		Unread:     c.unread[s.ID],
		Typing:     c.Typing(s.ID),
		Members:    s.MemberCount(),
	}
}
