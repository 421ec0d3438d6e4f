package coordinator

import (
	"context"
	"fmt"
	"strings"

	"github.com/vovakirdan/wirechat-client/internal/cache"
	"github.com/vovakirdan/wirechat-client/internal/core"
	"github.com/vovakirdan/wirechat-client/internal/session"
	"github.com/vovakirdan/wirechat-client/internal/timeline"
)

// OpenRoom opens a tab for roomID, foregrounds it and starts joining when the
// transport is connected. Opening a room that is already open only foregrounds it.
func (c *Coordinator) OpenRoom(roomID, name string) (int, error) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return -1, core.NewError(core.ErrCodeBadRequest, "room id required")
	}
	if idx := c.index(roomID); idx >= 0 {
		return idx, c.SwitchForeground(idx)
	}

	s := c.addSession(roomID, name)
	idx := len(c.sessions) - 1
	c.foreground = idx
	c.persistRecord()
	c.log.Info().Str("room_id", roomID).Str("room", s.Name).Int("index", idx).Msg("room opened")

	c.activate(s)
	return idx, nil
}

func (c *Coordinator) addSession(roomID, name string) *session.Session {
	if name == "" {
		name = roomID
	}
	if c.cache != nil {
		c.cache.Reopen(roomID)
	}
	s := session.New(roomID, name, c.sessionOpts)
	c.sessions = append(c.sessions, s)
	return s
}

// ActivateRoom retries joining the room at index. It is a no-op for rooms that
// are joined or have a join in flight.
func (c *Coordinator) ActivateRoom(index int) error {
	s, err := c.session(index)
	if err != nil {
		return err
	}
	c.activate(s)
	return nil
}

// SwitchForeground changes which room is visible. It never joins or leaves.
func (c *Coordinator) SwitchForeground(index int) error {
	s, err := c.session(index)
	if err != nil {
		return err
	}
	c.foreground = index
	delete(c.unread, s.ID)
	c.persistRecord()
	return nil
}

// CloseRoom is the explicit leave: the server is told to drop us, local state
// and every cached key for the room are purged, and the tab is removed.
func (c *Coordinator) CloseRoom(ctx context.Context, index int) error {
	s, err := c.session(index)
	if err != nil {
		return err
	}

	if err := c.transport.Leave(s.ID, true); err != nil {
		c.log.Warn().Err(err).Str("room_id", s.ID).Msg("leave request not sent")
	}
	s.Leave()
	if c.cache != nil {
		if err := c.cache.Clear(ctx, s.ID, c.self.ID); err != nil {
			c.log.Warn().Err(err).Str("room_id", s.ID).Msg("failed to clear room cache")
		}
	}

	c.sessions = append(c.sessions[:index], c.sessions[index+1:]...)
	delete(c.unread, s.ID)
	delete(c.typing, s.ID)
	switch {
	case len(c.sessions) == 0:
		c.foreground = -1
	case c.foreground > index:
		c.foreground--
	case c.foreground >= len(c.sessions):
		c.foreground = len(c.sessions) - 1
	}
	if c.foreground >= 0 {
		delete(c.unread, c.sessions[c.foreground].ID)
	}
	c.persistRecord()

	c.log.Info().Str("room_id", s.ID).Msg("room closed")
	return nil
}

// Send posts text to the room at index and shows it optimistically.
// Sends are rejected, not queued, while the transport is down.
func (c *Coordinator) Send(index int, text string) (core.Message, error) {
	s, err := c.session(index)
	if err != nil {
		return core.Message{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return core.Message{}, core.NewError(core.ErrCodeBadRequest, "message text required")
	}
	if !c.transport.Connected() {
		c.notice(s, timeline.ErrorNotice("not connected, message not sent"))
		return core.Message{}, core.ErrNotConnected
	}
	if !s.Joined() {
		return core.Message{}, core.NewError(core.ErrCodeRoomNotOpen, fmt.Sprintf("not joined to room %s", s.ID))
	}

	local := s.Timeline().AppendOptimistic(c.self, text)
	if err := c.transport.Send(s.ID, text); err != nil {
		s.Timeline().Remove(local.ID)
		c.notice(s, timeline.ErrorNotice(err.Error()))
		return core.Message{}, err
	}
	return local, nil
}

// SetTyping tells the room at index whether the local user is typing. Best effort.
func (c *Coordinator) SetTyping(index int, typing bool) error {
	s, err := c.session(index)
	if err != nil {
		return err
	}
	if !s.Joined() {
		return nil
	}
	return c.transport.Typing(s.ID, typing)
}

// Restore reopens the rooms recorded for the local user and reloads the blocked set.
// Rooms start idle and join on the next connected event.
func (c *Coordinator) Restore(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}

	blocked, err := c.cache.LoadBlocked(ctx, c.self.ID)
	if err != nil {
		return fmt.Errorf("restore blocked users: %w", err)
	}
	for _, id := range blocked {
		c.blocked[id] = struct{}{}
	}

	rec, ok, err := c.cache.LoadRecord(ctx, c.self.ID)
	if err != nil {
		return fmt.Errorf("restore rooms: %w", err)
	}
	if !ok {
		return nil
	}
	for _, ref := range rec.Rooms {
		if ref.ID == "" || c.index(ref.ID) >= 0 {
			continue
		}
		name := ref.Name
		if state, found, err := c.cache.LoadRoomState(ctx, ref.ID); err == nil && found && state.Name != "" {
			name = state.Name
		}
		c.addSession(ref.ID, name)
	}
	if len(c.sessions) > 0 {
		c.foreground = clamp(rec.Foreground, 0, len(c.sessions)-1)
	}
	c.log.Info().Int("rooms", len(c.sessions)).Int("blocked", len(c.blocked)).Msg("restored open rooms")
	return nil
}

// persistRecord mirrors the open rooms and foreground index. Best effort.
func (c *Coordinator) persistRecord() {
	if c.cache == nil || c.self.ID == "" {
		return
	}
	rec := cache.Record{Rooms: make([]cache.RoomRef, 0, len(c.sessions)), Foreground: c.foreground}
	for _, s := range c.sessions {
		rec.Rooms = append(rec.Rooms, cache.RoomRef{ID: s.ID, Name: s.Name})
	}
	if err := c.cache.SaveRecord(c.ctx, c.self.ID, rec); err != nil {
		c.log.Warn().Err(err).Msg("failed to save room record")
	}
}

func cacheRoomState(s *session.Session) cache.RoomState {
	return cache.RoomState{Name: s.Name, Joined: s.Joined()}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
