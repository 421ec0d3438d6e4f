package coordinator

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vovakirdan/wirechat-client/internal/core"
	"github.com/vovakirdan/wirechat-client/internal/kickvote"
	"github.com/vovakirdan/wirechat-client/internal/session"
	"github.com/vovakirdan/wirechat-client/internal/timeline"
)

// StartKickVote opens a vote against targetID in the room at index, seeded with the local user's vote.
func (c *Coordinator) StartKickVote(index int, targetID string) error {
	s, err := c.session(index)
	if err != nil {
		return err
	}
	out := s.Votes().Start(c.self, targetID, s.Members())
	c.applyVote(s, out)
	if out.Rejected {
		return core.NewError(core.ErrCodePrecondition, strings.Join(out.Notices, "; "))
	}
	return nil
}

// ToggleVote adds or withdraws voterID's vote against targetID. An empty voterID is the local user.
func (c *Coordinator) ToggleVote(index int, voterID, targetID string) error {
	s, err := c.session(index)
	if err != nil {
		return err
	}
	voter := c.self
	if voterID != "" && voterID != c.self.ID {
		m, ok := s.Member(voterID)
		if !ok {
			return core.NewError(core.ErrCodePrecondition, fmt.Sprintf("voter %s is not in this room", voterID))
		}
		voter = m.User
	}
	out := s.Votes().Toggle(voter, targetID, s.Members())
	c.applyVote(s, out)
	if out.Rejected {
		return core.NewError(core.ErrCodePrecondition, strings.Join(out.Notices, "; "))
	}
	return nil
}

// TickVotes advances every room's vote countdowns by one second.
func (c *Coordinator) TickVotes() {
	for _, s := range c.sessions {
		c.applyVote(s, s.Votes().Tick())
	}
}

// applyVote shows the outcome's notices and runs the kick when the vote passed.
// Vote notices are engine transitions, never re-delivered, so they are not deduplicated.
func (c *Coordinator) applyVote(s *session.Session, out kickvote.Outcome) {
	for _, text := range out.Notices {
		c.notice(s, timeline.Notice{Text: text})
	}
	if len(out.Notices) > 0 {
		c.persist(s)
	}
	if out.Kick == nil {
		return
	}

	target := *out.Kick
	c.dispatch(func(ctx context.Context) func() {
		err := c.api.Kick(ctx, s.ID, target.User.ID)
		return func() {
			if !c.isOpen(s) {
				return
			}
			for _, text := range kickvote.KickResult(target, err) {
				c.notice(s, timeline.Notice{Text: text})
			}
			c.persist(s)
			if err == nil {
				c.RefreshMembers(s)
			}
		}
	})
}

// BlockUser hides userID everywhere, including messages already shown.
func (c *Coordinator) BlockUser(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" || userID == c.self.ID {
		return core.NewError(core.ErrCodePrecondition, "cannot block this user")
	}
	c.blocked[userID] = struct{}{}
	if err := c.saveBlocked(ctx); err != nil {
		return err
	}
	for _, s := range c.sessions {
		if s.Timeline().RemoveFrom(userID) > 0 {
			c.persist(s)
		}
		if m, ok := s.Member(userID); ok {
			c.stopTyping(s.ID, m.User.Name)
		}
	}
	c.log.Info().Str("user_id", userID).Msg("user blocked")
	return nil
}

// UnblockUser lets userID's future messages through again.
func (c *Coordinator) UnblockUser(ctx context.Context, userID string) error {
	if _, ok := c.blocked[userID]; !ok {
		return nil
	}
	delete(c.blocked, userID)
	return c.saveBlocked(ctx)
}

// BlockedUsers returns the blocked user ids in sorted order.
func (c *Coordinator) BlockedUsers() []string {
	ids := make([]string, 0, len(c.blocked))
	for id := range c.blocked {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (c *Coordinator) saveBlocked(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	if err := c.cache.SaveBlocked(ctx, c.self.ID, c.BlockedUsers()); err != nil {
		return fmt.Errorf("save blocked users: %w", err)
	}
	return nil
}

// BanUser asks the server to ban userID. The outcome is reported in the room at index.
func (c *Coordinator) BanUser(index int, userID string) error {
	s, err := c.session(index)
	if err != nil {
		return err
	}
	if userID == "" || userID == c.self.ID {
		c.notice(s, timeline.ErrorNotice("you cannot ban yourself"))
		return core.NewError(core.ErrCodePrecondition, "cannot ban this user")
	}
	name := c.displayName(s, userID)
	c.moderate(s, func(ctx context.Context) error { return c.api.Ban(ctx, userID) },
		fmt.Sprintf("%s was banned", name))
	return nil
}

// ReportUser files a report about userID, optionally pointing at one message.
func (c *Coordinator) ReportUser(index int, userID, messageID, reason string) error {
	s, err := c.session(index)
	if err != nil {
		return err
	}
	if userID == "" {
		return core.NewError(core.ErrCodeBadRequest, "user id required")
	}
	report := core.Report{RoomID: s.ID, UserID: userID, MessageID: messageID, Reason: reason}
	c.moderate(s, func(ctx context.Context) error { return c.api.Report(ctx, report) },
		timeline.ReportNotice(c.displayName(s, userID)).Text)
	return nil
}

// CloseRoomRemote asks the server to close the room at index. Members are removed
// by the server; the local tab follows the resulting forced-leave event.
func (c *Coordinator) CloseRoomRemote(index int) error {
	s, err := c.session(index)
	if err != nil {
		return err
	}
	c.moderate(s, func(ctx context.Context) error { return c.api.CloseRoom(ctx, s.ID) },
		fmt.Sprintf("Room %s is being closed", s.Name))
	return nil
}

// moderate runs a moderation call and reports the result as a notice.
// A rejected call changes nothing beyond the notice.
func (c *Coordinator) moderate(s *session.Session, call func(ctx context.Context) error, success string) {
	c.dispatch(func(ctx context.Context) func() {
		err := call(ctx)
		return func() {
			if !c.isOpen(s) {
				return
			}
			if err != nil {
				c.log.Warn().Err(err).Str("room_id", s.ID).Msg("moderation request rejected")
				c.notice(s, timeline.ErrorNotice(err.Error()))
			} else {
				c.notice(s, timeline.Notice{Text: success})
			}
			c.persist(s)
		}
	})
}

func (c *Coordinator) displayName(s *session.Session, userID string) string {
	if m, ok := s.Member(userID); ok && m.User.Name != "" {
		return m.User.Name
	}
	return userID
}

// RefreshMembers reloads the members snapshot of s.
func (c *Coordinator) RefreshMembers(s *session.Session) {
	if c.api == nil {
		return
	}
	c.dispatch(func(ctx context.Context) func() {
		members, err := c.api.Members(ctx, s.ID)
		return func() {
			if !c.isOpen(s) {
				return
			}
			if err != nil {
				c.log.Warn().Err(err).Str("room_id", s.ID).Msg("member refresh failed")
				return
			}
			s.SetMembers(members)
		}
	})
}

// PollMembers refreshes the members of every joined room.
func (c *Coordinator) PollMembers() {
	for _, s := range c.sessions {
		if s.Joined() {
			c.RefreshMembers(s)
		}
	}
}

// SweepCaches expires the cached timelines of open rooms. An expired room is
// reset to its welcome lines.
func (c *Coordinator) SweepCaches(ctx context.Context) {
	if c.cache == nil {
		return
	}
	for _, s := range c.sessions {
		tl := s.Timeline()
		creator, ok := tl.CreatorOf()
		if !ok && core.IsSystemRoom(s.ID) {
			creator = core.SystemCreator
		}
		fresh, err := c.cache.Sweep(ctx, s.ID, func() []core.Message {
			return tl.WelcomeSet(s.Name, creator)
		})
		if err != nil {
			c.log.Warn().Err(err).Str("room_id", s.ID).Msg("cache sweep failed")
			continue
		}
		if fresh != nil {
			tl.Load(fresh)
			c.log.Debug().Str("room_id", s.ID).Msg("room timeline expired")
		}
	}
}
