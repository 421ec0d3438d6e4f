package coordinator

import (
	"context"

	"github.com/vovakirdan/wirechat-client/internal/core"
	"github.com/vovakirdan/wirechat-client/internal/session"
	"github.com/vovakirdan/wirechat-client/internal/timeline"
)

// HandleEvent routes a transport event to the session whose room it names.
// Events for rooms that are not open are dropped.
func (c *Coordinator) HandleEvent(ev core.Event) {
	switch ev.Kind {
	case core.EventConnected:
		c.onConnected()
		return
	case core.EventDisconnected:
		c.onDisconnected()
		return
	}

	idx := c.index(ev.RoomID)
	if idx < 0 {
		c.log.Warn().Str("room_id", ev.RoomID).Str("event", ev.Kind.String()).Msg("dropping event for room that is not open")
		return
	}
	s := c.sessions[idx]

	switch ev.Kind {
	case core.EventMessage:
		c.onMessage(s, ev.Message)
	case core.EventUserJoined:
		if ev.User.ID == c.self.ID {
			return
		}
		c.notice(s, timeline.JoinNotice(ev.User.ID, ev.User.Name))
		c.persist(s)
		c.RefreshMembers(s)
	case core.EventUserLeft:
		if ev.User.ID == c.self.ID {
			// the server dropped this client from the room
			if s.ServerLeft() {
				c.discard(s)
			}
			return
		}
		c.stopTyping(s.ID, ev.User.Name)
		c.notice(s, timeline.LeaveNotice(ev.User.ID, ev.User.Name))
		c.persist(s)
		c.RefreshMembers(s)
	case core.EventUserKicked:
		if ev.User.ID == c.self.ID {
			c.onRemoved(s, ev.Reason)
			return
		}
		c.stopTyping(s.ID, ev.User.Name)
		c.notice(s, timeline.KickNotice(ev.User.ID, ev.User.Name))
		c.persist(s)
		c.RefreshMembers(s)
	case core.EventForcedLeave:
		c.onRemoved(s, ev.Reason)
	case core.EventRoomJoined:
		if s.Confirmed() {
			c.loadHistory(s)
		}
		c.saveRoomState(s)
		c.RefreshMembers(s)
	case core.EventRoomLeft:
		if s.ServerLeft() {
			c.discard(s)
		}
	case core.EventSocketError:
		msg := ev.Reason
		if ev.Error != nil {
			msg = ev.Error.Message
		}
		c.notice(s, timeline.ErrorNotice(msg))
		c.persist(s)
	case core.EventTypingStart:
		if ev.User.ID == c.self.ID || c.Blocked(ev.User.ID) {
			return
		}
		users, ok := c.typing[s.ID]
		if !ok {
			users = make(map[string]struct{})
			c.typing[s.ID] = users
		}
		users[ev.User.Name] = struct{}{}
	case core.EventTypingStop:
		c.stopTyping(s.ID, ev.User.Name)
	}
}

func (c *Coordinator) onMessage(s *session.Session, msg core.Message) {
	if msg.RoomID == "" {
		msg.RoomID = s.ID
	}
	res := s.Timeline().ApplyConfirmed(msg)
	if !res.Visible() {
		c.log.Debug().Str("room_id", s.ID).Str("message_id", msg.ID).Int("result", int(res)).Msg("message not shown")
		return
	}
	c.stopTyping(s.ID, msg.Sender.Name)
	c.markUnread(s)
	c.persist(s)
}

// onRemoved handles the server removing the local user from a room. The tab stays
// open so the user can see why; a later activation may rejoin.
func (c *Coordinator) onRemoved(s *session.Session, reason string) {
	s.ServerLeft()
	c.discard(s)
	c.notice(s, timeline.ForcedLeaveNotice(reason))
}

func (c *Coordinator) onConnected() {
	c.log.Info().Int("rooms", len(c.sessions)).Msg("transport connected")
	for _, s := range c.sessions {
		if s.Resubscribe() {
			if err := c.transport.Join(s.ID); err != nil {
				c.log.Warn().Err(err).Str("room_id", s.ID).Msg("failed to resubscribe room")
			}
			continue
		}
		c.activate(s)
	}
}

func (c *Coordinator) onDisconnected() {
	c.log.Warn().Msg("transport disconnected")
	for _, s := range c.sessions {
		s.Disconnected()
		if s.Joined() {
			c.notice(s, timeline.ErrorNotice("connection lost, reconnecting"))
		}
	}
}

// activate runs the access check and join for s when the transport is up.
func (c *Coordinator) activate(s *session.Session) {
	if !s.Activate(c.transport.Connected()) {
		return
	}
	gen := s.Generation()
	c.dispatch(func(ctx context.Context) func() {
		access, err := c.api.CheckAccess(ctx, s.ID)
		return func() { c.accessChecked(s, gen, access, err) }
	})
}

func (c *Coordinator) accessChecked(s *session.Session, gen uint64, access core.Access, err error) {
	if !c.current(s, gen) {
		c.log.Debug().Str("room_id", s.ID).Msg("discarding stale access check")
		return
	}
	if err != nil {
		c.log.Warn().Err(err).Str("room_id", s.ID).Msg("access check failed, joining anyway")
	}

	join, banned := s.CheckDone(gen, access, err)
	if banned != nil {
		c.notice(s, *banned)
		return
	}
	if !join {
		return
	}
	if err := c.transport.Join(s.ID); err != nil {
		s.JoinFailed(gen)
		c.notice(s, timeline.ErrorNotice(err.Error()))
		c.log.Warn().Err(err).Str("room_id", s.ID).Msg("join request failed")
	}
}

// loadHistory restores cached messages or synthesizes the welcome lines.
func (c *Coordinator) loadHistory(s *session.Session) {
	tl := s.Timeline()
	if c.cache != nil {
		entry, ok, err := c.cache.Read(c.ctx, s.ID)
		if err != nil {
			c.log.Warn().Err(err).Str("room_id", s.ID).Msg("failed to read room cache")
		}
		if ok && !c.cache.IsExpired(entry.SavedAt) && len(entry.Messages) > 0 {
			tl.Restore(entry.Messages)
			c.persist(s)
			return
		}
	}

	tl.EnsureWelcome(s.Name)
	if core.IsSystemRoom(s.ID) {
		tl.EnsureManagedBy(core.SystemCreator)
		c.persist(s)
		return
	}
	c.persist(s)

	gen := s.Generation()
	c.dispatch(func(ctx context.Context) func() {
		info, err := c.api.RoomInfo(ctx, s.ID)
		return func() {
			if !c.current(s, gen) {
				return
			}
			creator := info.CreatedBy
			if err != nil {
				c.log.Warn().Err(err).Str("room_id", s.ID).Msg("room info lookup failed")
				creator = ""
			}
			if s.Timeline().EnsureManagedBy(creator) {
				c.persist(s)
			}
		}
	})
}

func (c *Coordinator) stopTyping(roomID, name string) {
	users, ok := c.typing[roomID]
	if !ok {
		return
	}
	delete(users, name)
	if len(users) == 0 {
		delete(c.typing, roomID)
	}
}

func (c *Coordinator) discard(s *session.Session) {
	delete(c.typing, s.ID)
	if c.cache == nil {
		return
	}
	if err := c.cache.Discard(c.ctx, s.ID); err != nil {
		c.log.Warn().Err(err).Str("room_id", s.ID).Msg("failed to discard room cache")
	}
}

func (c *Coordinator) saveRoomState(s *session.Session) {
	if c.cache == nil {
		return
	}
	state := cacheRoomState(s)
	if err := c.cache.SaveRoomState(c.ctx, s.ID, state); err != nil {
		c.log.Debug().Err(err).Str("room_id", s.ID).Msg("room state not saved")
	}
}
