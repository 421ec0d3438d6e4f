// Package session tracks the join lifecycle of a single open room.
//
// A Session is a pure state machine: methods report which side effect the
// caller has to perform (start an access check, send a join, load history)
// and never talk to the network themselves.
package session

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/vovakirdan/wirechat-client/internal/core"
	"github.com/vovakirdan/wirechat-client/internal/kickvote"
	"github.com/vovakirdan/wirechat-client/internal/timeline"
)

// State is the join state of a room.
type State int

const (
	Idle State = iota
	Checking
	Joining
	Joined
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Checking:
		return "checking"
	case Joining:
		return "joining"
	case Joined:
		return "joined"
	default:
		return "unknown"
	}
}

// Options configure the per-room engines owned by a session.
type Options struct {
	Clock   clock.Clock
	Windows timeline.Windows
	Blocked timeline.BlockList
	Vote    VoteOptions
}

// VoteOptions configure the kick-vote engine.
type VoteOptions struct {
	Duration       time.Duration
	ProtectedLevel int
}

// Session is one open room. It is owned by the coordinator loop and is not
// safe for concurrent use.
type Session struct {
	ID   string
	Name string

	state        State
	joinInFlight bool
	generation   uint64
	historyReady bool

	members  []core.Member
	timeline *timeline.Timeline
	votes    *kickvote.Engine
}

// New creates an idle session for a room.
func New(roomID, name string, opts Options) *Session {
	return &Session{
		ID:       roomID,
		Name:     name,
		timeline: timeline.New(roomID, opts.Clock, opts.Windows, opts.Blocked),
		votes:    kickvote.New(opts.Vote.Duration, opts.Vote.ProtectedLevel),
	}
}

// State returns the current join state.
func (s *Session) State() State { return s.state }

// Joined reports whether the server confirmed the join.
func (s *Session) Joined() bool { return s.state == Joined }

// JoinInFlight reports whether an access check or join request is outstanding.
func (s *Session) JoinInFlight() bool { return s.joinInFlight }

// Generation identifies the current join attempt. Async completions carry the
// generation they were started with and are discarded when it has moved on.
func (s *Session) Generation() uint64 { return s.generation }

// Timeline returns the room's reconciled messages.
func (s *Session) Timeline() *timeline.Timeline { return s.timeline }

// Votes returns the room's kick-vote engine.
func (s *Session) Votes() *kickvote.Engine { return s.votes }

// HistoryLoaded reports whether history was loaded since the last join.
func (s *Session) HistoryLoaded() bool { return s.historyReady }

// Activate starts a join attempt. It returns true when the caller must run the
// access check for the returned generation; re-entrant calls are no-ops.
func (s *Session) Activate(connected bool) bool {
	if !connected || s.state != Idle || s.joinInFlight {
		return false
	}
	s.generation++
	s.state = Checking
	s.joinInFlight = true
	return true
}

// CheckDone applies the access check result. join is true when the caller must
// send the join request. banned is set when the user may not join yet.
// A failed check fails open.
func (s *Session) CheckDone(gen uint64, access core.Access, err error) (join bool, banned *timeline.Notice) {
	if gen != s.generation || s.state != Checking {
		return false, nil
	}
	if err == nil && access.Banned {
		s.state = Idle
		s.joinInFlight = false
		n := timeline.BanNotice(access.RemainingMinutes)
		return false, &n
	}
	s.state = Joining
	return true, nil
}

// JoinFailed returns the session to Idle when the join request could not be sent.
func (s *Session) JoinFailed(gen uint64) {
	if gen != s.generation || s.state != Joining {
		return
	}
	s.state = Idle
	s.joinInFlight = false
}

// Confirmed applies the server's join confirmation. It returns true on the
// first confirmation, when the caller must load history.
func (s *Session) Confirmed() bool {
	if s.state == Joined {
		return false
	}
	s.state = Joined
	s.joinInFlight = false
	if s.historyReady {
		return false
	}
	s.historyReady = true
	return true
}

// ServerLeft applies the server's confirmation that this client left the room.
// Local message state and votes are dropped; the caller clears the cache.
func (s *Session) ServerLeft() bool {
	if s.state == Idle && !s.joinInFlight {
		return false
	}
	s.reset()
	return true
}

// Leave is the explicit user leave. It always resets local state.
func (s *Session) Leave() {
	s.reset()
}

// Resubscribe reports whether a join must be re-sent after a reconnect.
// The state is unchanged.
func (s *Session) Resubscribe() bool {
	return s.state == Joined
}

// Disconnected aborts an outstanding check or join so the next connect retries it.
func (s *Session) Disconnected() {
	if s.state == Checking || s.state == Joining {
		s.generation++
		s.state = Idle
		s.joinInFlight = false
	}
}

// SetMembers replaces the members snapshot.
func (s *Session) SetMembers(members []core.Member) {
	s.members = append(s.members[:0:0], members...)
}

// Members returns the last members snapshot.
func (s *Session) Members() []core.Member {
	out := make([]core.Member, len(s.members))
	copy(out, s.members)
	return out
}

// MemberCount returns the number of members in the snapshot.
func (s *Session) MemberCount() int { return len(s.members) }

// Member looks up a member by user id.
func (s *Session) Member(userID string) (core.Member, bool) {
	return core.FindMember(s.members, userID)
}

func (s *Session) reset() {
	s.generation++
	s.state = Idle
	s.joinInFlight = false
	s.historyReady = false
	s.timeline.Reset()
	s.votes.Reset()
}
