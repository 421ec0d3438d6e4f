// Package coordinator owns every open room session of the local user and runs
// the single event loop that mutates them.
package coordinator

import (
	"context"
	"errors"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-client/internal/cache"
	"github.com/vovakirdan/wirechat-client/internal/core"
	"github.com/vovakirdan/wirechat-client/internal/session"
	"github.com/vovakirdan/wirechat-client/internal/timeline"
)

// Transport sends room commands to the chat server. Implementations must not block.
type Transport interface {
	Join(roomID string) error
	Leave(roomID string, force bool) error
	Send(roomID, text string) error
	Typing(roomID string, typing bool) error
	Connected() bool
}

// RoomAPI is the request/response collaborator for room metadata and moderation.
type RoomAPI interface {
	CheckAccess(ctx context.Context, roomID string) (core.Access, error)
	RoomInfo(ctx context.Context, roomID string) (core.RoomInfo, error)
	Members(ctx context.Context, roomID string) ([]core.Member, error)
	Kick(ctx context.Context, roomID, userID string) error
	Ban(ctx context.Context, userID string) error
	Report(ctx context.Context, report core.Report) error
	CloseRoom(ctx context.Context, roomID string) error
}

// Task is a network call run off the loop. The returned completion is applied on the loop.
type Task func(ctx context.Context) func()

// Dispatcher schedules a task. The default runs it on its own goroutine and
// feeds the completion back into Run.
type Dispatcher func(task Task)

// Options configure a Coordinator.
type Options struct {
	Self          core.Sender
	Transport     Transport
	API           RoomAPI
	Cache         *cache.Cache
	Clock         clock.Clock
	Windows       timeline.Windows
	Vote          session.VoteOptions
	SweepInterval time.Duration
	PollInterval  time.Duration
	// Dispatch overrides how async tasks are scheduled.
	Dispatch Dispatcher
}

var errStopped = errors.New("coordinator stopped")

type action struct {
	fn  func(*Coordinator) error
	err chan error
}

// Coordinator holds the ordered list of open rooms. All methods except Do and
// Run must be called from the loop goroutine (or before Run starts).
type Coordinator struct {
	self      core.Sender
	transport Transport
	api       RoomAPI
	cache     *cache.Cache
	clock     clock.Clock
	log       *zerolog.Logger

	sessionOpts   session.Options
	sweepInterval time.Duration
	pollInterval  time.Duration
	dispatch      Dispatcher

	sessions   []*session.Session
	foreground int
	unread     map[string]bool
	typing     map[string]map[string]struct{}
	blocked    map[string]struct{}

	ctx         context.Context
	actions     chan action
	completions chan func()
	done        chan struct{}
}

// New creates a coordinator with no open rooms.
func New(opts Options, logger *zerolog.Logger) *Coordinator {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = cache.DefaultSweepInterval
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 20 * time.Second
	}

	c := &Coordinator{
		self:          opts.Self,
		transport:     opts.Transport,
		api:           opts.API,
		cache:         opts.Cache,
		clock:         clk,
		log:           logger,
		sweepInterval: opts.SweepInterval,
		pollInterval:  opts.PollInterval,
		foreground:    -1,
		unread:        make(map[string]bool),
		typing:        make(map[string]map[string]struct{}),
		blocked:       make(map[string]struct{}),
		ctx:           context.Background(),
		actions:       make(chan action),
		completions:   make(chan func(), 64),
		done:          make(chan struct{}),
	}
	c.sessionOpts = session.Options{
		Clock:   clk,
		Windows: opts.Windows,
		Blocked: c,
		Vote:    opts.Vote,
	}
	c.dispatch = opts.Dispatch
	if c.dispatch == nil {
		c.dispatch = c.spawn
	}
	return c
}

// Self returns the local user.
func (c *Coordinator) Self() core.Sender {
	return c.self
}

// Run processes transport events, actions, completions and timers until ctx is done.
func (c *Coordinator) Run(ctx context.Context, events <-chan core.Event) error {
	c.ctx = ctx
	defer close(c.done)

	voteTicker := c.clock.Ticker(time.Second)
	defer voteTicker.Stop()
	sweepTicker := c.clock.Ticker(c.sweepInterval)
	defer sweepTicker.Stop()
	pollTicker := c.clock.Ticker(c.pollInterval)
	defer pollTicker.Stop()

	c.log.Info().Int("rooms", len(c.sessions)).Msg("coordinator started")

	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("coordinator stopped")
			return nil
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			c.HandleEvent(ev)
		case a := <-c.actions:
			a.err <- a.fn(c)
		case complete := <-c.completions:
			complete()
		case <-voteTicker.C:
			c.TickVotes()
		case <-sweepTicker.C:
			c.SweepCaches(ctx)
		case <-pollTicker.C:
			c.PollMembers()
		}
	}
}

// Do runs fn on the loop goroutine and returns its error.
func (c *Coordinator) Do(ctx context.Context, fn func(*Coordinator) error) error {
	a := action{fn: fn, err: make(chan error, 1)}
	select {
	case c.actions <- a:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return errStopped
	}
	select {
	case err := <-a.err:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) spawn(task Task) {
	ctx := c.ctx
	go func() {
		complete := task(ctx)
		if complete == nil {
			return
		}
		select {
		case c.completions <- complete:
		case <-ctx.Done():
		case <-c.done:
		}
	}()
}

// Blocked reports whether the local user blocked userID.
func (c *Coordinator) Blocked(userID string) bool {
	_, ok := c.blocked[userID]
	return ok
}

func (c *Coordinator) index(roomID string) int {
	for i, s := range c.sessions {
		if s.ID == roomID {
			return i
		}
	}
	return -1
}

func (c *Coordinator) session(index int) (*session.Session, error) {
	if index < 0 || index >= len(c.sessions) {
		return nil, core.NewError(core.ErrCodeRoomNotOpen, "room not open")
	}
	return c.sessions[index], nil
}

// isOpen reports whether s is still the open session for its room.
func (c *Coordinator) isOpen(s *session.Session) bool {
	idx := c.index(s.ID)
	return idx >= 0 && c.sessions[idx] == s
}

// current reports whether a completion started at generation gen still applies to s.
func (c *Coordinator) current(s *session.Session, gen uint64) bool {
	return c.isOpen(s) && s.Generation() == gen
}

func (c *Coordinator) notice(s *session.Session, n timeline.Notice) {
	if _, ok := s.Timeline().AppendNotice(n); ok {
		c.markUnread(s)
	}
}

func (c *Coordinator) markUnread(s *session.Session) {
	if idx := c.index(s.ID); idx >= 0 && idx != c.foreground {
		c.unread[s.ID] = true
	}
}

// persist mirrors a joined room's timeline to the cache.
func (c *Coordinator) persist(s *session.Session) {
	if c.cache == nil || !s.Joined() {
		return
	}
	if err := c.cache.Write(c.ctx, s.ID, s.Timeline().Messages()); err != nil {
		if errors.Is(err, cache.ErrCleared) {
			return
		}
		c.log.Warn().Err(err).Str("room_id", s.ID).Msg("failed to write room cache")
	}
}
