// Package kickvote runs the per-room majority vote used to kick a member.
package kickvote

import (
	"fmt"
	"sort"
	"time"

	"github.com/vovakirdan/wirechat-client/internal/core"
)

const (
	// DefaultDuration is how long a vote stays open.
	DefaultDuration = 30 * time.Second
	// DefaultProtectedLevel is the sender level from which users cannot be vote-kicked.
	DefaultProtectedLevel = 100
)

// milestones are the remaining-second marks that produce a reminder.
var milestones = []int{20, 10, 5}

// Outcome is what a transition asks the caller to show and do.
type Outcome struct {
	Notices []string
	// Kick is set when the vote passed; the caller must execute the kick.
	Kick *core.Member
	// Rejected is set when a precondition failed and nothing changed.
	Rejected bool
}

func (o *Outcome) notice(format string, args ...any) {
	o.Notices = append(o.Notices, fmt.Sprintf(format, args...))
}

// Status is the view of an active vote.
type Status struct {
	Target    core.Sender `json:"target"`
	Voters    []string    `json:"voters"`
	Required  int         `json:"required"`
	Remaining int         `json:"remaining"`
}

type vote struct {
	target    core.Member
	voters    map[string]struct{}
	remaining int
	reminded  map[int]bool
}

// Engine holds the active votes of one room. It is not safe for concurrent use.
type Engine struct {
	duration       int
	protectedLevel int
	votes          map[string]*vote
}

// New creates an engine. Non-positive arguments select the defaults.
func New(duration time.Duration, protectedLevel int) *Engine {
	if duration <= 0 {
		duration = DefaultDuration
	}
	if protectedLevel <= 0 {
		protectedLevel = DefaultProtectedLevel
	}
	return &Engine{
		duration:       int(duration / time.Second),
		protectedLevel: protectedLevel,
		votes:          make(map[string]*vote),
	}
}

// Required is the majority threshold for a room of memberCount members.
func Required(memberCount int) int {
	req := (memberCount + 1) / 2
	if req < 1 {
		req = 1
	}
	return req
}

// Start opens a vote against targetID, seeded with the initiator's vote.
func (e *Engine) Start(initiator core.Sender, targetID string, members []core.Member) Outcome {
	var out Outcome

	target, ok := core.FindMember(members, targetID)
	switch {
	case !ok:
		out.Rejected = true
		out.notice("User %s is not in this room", targetID)
		return out
	case targetID == initiator.ID:
		out.Rejected = true
		out.notice("You cannot start a vote to kick yourself")
		return out
	case target.User.Admin || target.User.Level >= e.protectedLevel:
		out.Rejected = true
		out.notice("%s cannot be kicked", target.User.Name)
		return out
	}
	if _, active := e.votes[targetID]; active {
		out.Rejected = true
		out.notice("A vote to kick %s is already running", target.User.Name)
		return out
	}

	v := &vote{
		target:    target,
		voters:    map[string]struct{}{initiator.ID: {}},
		remaining: e.duration,
		reminded:  make(map[int]bool),
	}
	e.votes[targetID] = v

	required := Required(len(members))
	out.notice("%s started a vote to kick %s (1/%d, %ds)", initiator.Name, target.User.Name, required, v.remaining)
	e.evaluate(targetID, v, required, &out)
	return out
}

// Toggle adds or removes voter's vote against targetID. With no active vote it
// behaves like Start.
func (e *Engine) Toggle(voter core.Sender, targetID string, members []core.Member) Outcome {
	v, ok := e.votes[targetID]
	if !ok {
		return e.Start(voter, targetID, members)
	}

	var out Outcome
	required := Required(len(members))
	if _, voted := v.voters[voter.ID]; voted {
		delete(v.voters, voter.ID)
		out.notice("%s removed their vote to kick %s (%d/%d)", voter.Name, v.target.User.Name, len(v.voters), required)
		if len(v.voters) == 0 {
			delete(e.votes, targetID)
			out.notice("Vote to kick %s was withdrawn", v.target.User.Name)
		}
		return out
	}

	v.voters[voter.ID] = struct{}{}
	out.notice("%s voted to kick %s (%d/%d)", voter.Name, v.target.User.Name, len(v.voters), required)
	e.evaluate(targetID, v, required, &out)
	return out
}

func (e *Engine) evaluate(targetID string, v *vote, required int, out *Outcome) {
	if len(v.voters) < required {
		return
	}
	delete(e.votes, targetID)
	target := v.target
	out.Kick = &target
	out.notice("Vote passed, kicking %s", target.User.Name)
}

// Tick advances every active vote by one second.
func (e *Engine) Tick() Outcome {
	var out Outcome
	for _, id := range e.targets() {
		v := e.votes[id]
		v.remaining--
		if v.remaining <= 0 {
			delete(e.votes, id)
			out.notice("Vote to kick %s failed: time is up", v.target.User.Name)
			continue
		}
		for _, m := range milestones {
			if v.remaining == m && !v.reminded[m] {
				v.reminded[m] = true
				out.notice("%ds left to vote on kicking %s", m, v.target.User.Name)
			}
		}
	}
	return out
}

// KickResult reports the response of the kick request made for a passed vote.
func KickResult(target core.Member, err error) []string {
	if err != nil {
		return []string{fmt.Sprintf("Failed to kick %s: %v", target.User.Name, err)}
	}
	return []string{fmt.Sprintf("%s was kicked by vote", target.User.Name)}
}

// Active reports whether a vote against targetID is running.
func (e *Engine) Active(targetID string) bool {
	_, ok := e.votes[targetID]
	return ok
}

// Votes returns the active votes ordered by target id.
func (e *Engine) Votes(memberCount int) []Status {
	out := make([]Status, 0, len(e.votes))
	for _, id := range e.targets() {
		v := e.votes[id]
		voters := make([]string, 0, len(v.voters))
		for voter := range v.voters {
			voters = append(voters, voter)
		}
		sort.Strings(voters)
		out = append(out, Status{
			Target:    v.target.User,
			Voters:    voters,
			Required:  Required(memberCount),
			Remaining: v.remaining,
		})
	}
	return out
}

// Reset drops every active vote.
func (e *Engine) Reset() {
	e.votes = make(map[string]*vote)
}

func (e *Engine) targets() []string {
	ids := make([]string, 0, len(e.votes))
	for id := range e.votes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
