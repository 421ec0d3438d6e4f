package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirechat-client/internal/cache"
	"github.com/vovakirdan/wirechat-client/internal/core"
	"github.com/vovakirdan/wirechat-client/internal/session"
	"github.com/vovakirdan/wirechat-client/internal/store/memory"
	"github.com/vovakirdan/wirechat-client/internal/timeline"
)

var (
	alice = core.Sender{ID: "u-alice", Name: "alice"}
	bob   = core.Sender{ID: "u-bob", Name: "bob"}
	carol = core.Sender{ID: "u-carol", Name: "carol"}
	dave  = core.Sender{ID: "u-dave", Name: "dave"}
	eve   = core.Sender{ID: "u-eve", Name: "eve"}
)

type fakeTransport struct {
	mu        sync.Mutex
	connected bool
	joins     []string
	leaves    []string
	sends     []string
	typing    []string
	sendErr   error
}

func (f *fakeTransport) Join(roomID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return core.ErrNotConnected
	}
	f.joins = append(f.joins, roomID)
	return nil
}

func (f *fakeTransport) Leave(roomID string, force bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !force {
		return errors.New("expected forced leave")
	}
	f.leaves = append(f.leaves, roomID)
	return nil
}

func (f *fakeTransport) Send(roomID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sends = append(f.sends, roomID+":"+text)
	return nil
}

func (f *fakeTransport) Typing(roomID string, typing bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return core.ErrNotConnected
	}
	f.typing = append(f.typing, fmt.Sprintf("%s:%t", roomID, typing))
	return nil
}

func (f *fakeTransport) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) joinCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.joins)
}

type fakeAPI struct {
	mu        sync.Mutex
	access    core.Access
	accessErr error
	info      core.RoomInfo
	infoErr   error
	members   []core.Member
	kicks     []string
	kickErr   error
	bans      []string
	banErr    error
	reports   []core.Report
	closed    []string
	checks    int
}

func (f *fakeAPI) CheckAccess(_ context.Context, _ string) (core.Access, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks++
	return f.access, f.accessErr
}

func (f *fakeAPI) RoomInfo(_ context.Context, _ string) (core.RoomInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.info, f.infoErr
}

func (f *fakeAPI) Members(_ context.Context, _ string) ([]core.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.members, nil
}

func (f *fakeAPI) Kick(_ context.Context, _ string, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kicks = append(f.kicks, userID)
	return f.kickErr
}

func (f *fakeAPI) Ban(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bans = append(f.bans, userID)
	return f.banErr
}

func (f *fakeAPI) Report(_ context.Context, report core.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, report)
	return nil
}

func (f *fakeAPI) CloseRoom(_ context.Context, roomID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, roomID)
	return nil
}

// taskQueue runs async work only when flushed, so tests control interleaving.
type taskQueue struct {
	tasks []Task
}

func (q *taskQueue) dispatch(task Task) {
	q.tasks = append(q.tasks, task)
}

func (q *taskQueue) flush() {
	for len(q.tasks) > 0 {
		task := q.tasks[0]
		q.tasks = q.tasks[1:]
		if complete := task(context.Background()); complete != nil {
			complete()
		}
	}
}

type harness struct {
	c         *Coordinator
	transport *fakeTransport
	api       *fakeAPI
	cache     *cache.Cache
	clock     *clock.Mock
	queue     *taskQueue
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	mock := clock.NewMock()
	mock.Set(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	h := &harness{
		transport: &fakeTransport{connected: true},
		api:       &fakeAPI{},
		clock:     mock,
		queue:     &taskQueue{},
	}
	h.cache = cache.New(memory.New(), cache.DefaultTTL, mock, nil)
	h.c = New(Options{
		Self:      alice,
		Transport: h.transport,
		API:       h.api,
		Cache:     h.cache,
		Clock:     mock,
		Windows:   timeline.DefaultWindows(),
		Vote:      session.VoteOptions{Duration: 30 * time.Second, ProtectedLevel: 100},
		Dispatch:  h.queue.dispatch,
	}, nil)
	return h
}

// join opens a room and drives it to Joined.
func (h *harness) join(t *testing.T, roomID, name string) int {
	t.Helper()
	idx, err := h.c.OpenRoom(roomID, name)
	require.NoError(t, err)
	h.queue.flush()
	h.c.HandleEvent(core.Event{Kind: core.EventRoomJoined, RoomID: roomID})
	h.queue.flush()
	require.True(t, h.c.sessions[idx].Joined())
	return idx
}

func (h *harness) bodies(idx int) []string {
	msgs := h.c.sessions[idx].Timeline().Messages()
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Body)
	}
	return out
}

func chat(roomID, id string, from core.Sender, body string, at time.Time) core.Event {
	return core.Event{
		Kind:   core.EventMessage,
		RoomID: roomID,
		User:   from,
		Message: core.Message{
			ID: id, RoomID: roomID, Body: body, Sender: from, CreatedAt: at, Kind: core.KindText,
		},
	}
}

func TestActivateTwiceSendsOneJoin(t *testing.T) {
	h := newHarness(t)

	idx, err := h.c.OpenRoom("7", "lobby")
	require.NoError(t, err)
	require.NoError(t, h.c.ActivateRoom(idx))
	require.NoError(t, h.c.ActivateRoom(idx))
	h.c.HandleEvent(core.Event{Kind: core.EventConnected})

	h.queue.flush()
	require.NoError(t, h.c.ActivateRoom(idx))
	h.queue.flush()

	assert.Equal(t, []string{"7"}, h.transport.joins)
	assert.Equal(t, 1, h.api.checks)
}

func TestGeneralRoomWelcome(t *testing.T) {
	h := newHarness(t)

	idx := h.join(t, "1", "general")
	h.c.HandleEvent(core.Event{Kind: core.EventUserJoined, RoomID: "1", User: alice})

	msgs := h.c.sessions[idx].Timeline().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, timeline.WelcomeID("1"), msgs[0].ID)
	assert.Equal(t, "Welcome to general!", msgs[0].Body)
	assert.Equal(t, "This room is managed by System", msgs[1].Body)

	// reconnect and a repeated confirmation must not duplicate the markers
	h.c.HandleEvent(core.Event{Kind: core.EventDisconnected})
	h.c.HandleEvent(core.Event{Kind: core.EventConnected})
	h.c.HandleEvent(core.Event{Kind: core.EventRoomJoined, RoomID: "1"})
	h.queue.flush()

	var welcomes int
	for _, m := range h.c.sessions[idx].Timeline().Messages() {
		if m.ID == timeline.WelcomeID("1") || m.ID == timeline.ManagedByID("1") {
			welcomes++
		}
	}
	assert.Equal(t, 2, welcomes)
	assert.Equal(t, []string{"1", "1"}, h.transport.joins, "joined room is resubscribed after reconnect")
}

func TestRoomInfoResolvesCreator(t *testing.T) {
	h := newHarness(t)
	h.api.info = core.RoomInfo{Name: "lobby", CreatedBy: "dana"}

	idx := h.join(t, "7", "lobby")
	assert.Equal(t, []string{"Welcome to lobby!", "This room is managed by dana"}, h.bodies(idx))
}

func TestRoomInfoFailureFallsBack(t *testing.T) {
	h := newHarness(t)
	h.api.infoErr = errors.New("timeout")

	idx := h.join(t, "7", "lobby")
	assert.Equal(t, []string{"Welcome to lobby!", "This room is managed by room creator"}, h.bodies(idx))
}

func TestCachedHistoryIsRestored(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cached := []core.Message{
		{ID: timeline.WelcomeID("7"), RoomID: "7", Body: "Welcome to lobby!", Kind: core.KindSystem, Sender: timeline.SystemSender},
		{ID: "m1", RoomID: "7", Body: "earlier", Kind: core.KindText, Sender: bob},
	}
	require.NoError(t, h.cache.Write(ctx, "7", cached))

	idx := h.join(t, "7", "lobby")
	assert.Equal(t, []string{"Welcome to lobby!", "earlier"}, h.bodies(idx))
}

func TestExpiredCacheYieldsWelcomeOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.cache.Write(ctx, "1", []core.Message{{ID: "m1", RoomID: "1", Body: "stale", Sender: bob}}))
	h.clock.Add(6 * time.Minute)

	idx := h.join(t, "1", "general")
	assert.Equal(t, []string{"Welcome to general!", "This room is managed by System"}, h.bodies(idx))
}

func TestSwitchForegroundNeverLeaves(t *testing.T) {
	h := newHarness(t)

	h.join(t, "1", "general")
	h.join(t, "7", "lobby")
	h.join(t, "9", "games")

	for _, idx := range []int{0, 2, 1, 0, 2} {
		require.NoError(t, h.c.SwitchForeground(idx))
		assert.Equal(t, idx, h.c.foreground)
	}

	assert.Empty(t, h.transport.leaves)
	assert.Len(t, h.transport.joins, 3)
	for _, s := range h.c.sessions {
		assert.True(t, s.Joined(), "room %s", s.ID)
	}
}

func TestBlockedSenderNeverShown(t *testing.T) {
	h := newHarness(t)
	idx := h.join(t, "1", "general")

	h.c.HandleEvent(chat("1", "m1", bob, "before block", h.clock.Now()))
	require.NoError(t, h.c.BlockUser(context.Background(), bob.ID))
	assert.NotContains(t, h.bodies(idx), "before block")

	h.c.HandleEvent(chat("1", "m2", bob, "hello alice", h.clock.Now()))
	h.c.HandleEvent(chat("1", "m3", carol, "hi all", h.clock.Now()))

	bodies := h.bodies(idx)
	assert.NotContains(t, bodies, "hello alice")
	assert.Contains(t, bodies, "hi all")

	blocked, err := h.cache.LoadBlocked(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{bob.ID}, blocked)

	require.NoError(t, h.c.UnblockUser(context.Background(), bob.ID))
	h.c.HandleEvent(chat("1", "m4", bob, "back", h.clock.Now()))
	assert.Contains(t, h.bodies(idx), "back")
}

func TestOptimisticSendReconciles(t *testing.T) {
	h := newHarness(t)
	idx := h.join(t, "7", "lobby")
	before := h.c.sessions[idx].Timeline().Len()

	local, err := h.c.Send(idx, "hi")
	require.NoError(t, err)
	assert.True(t, local.Optimistic())
	assert.Equal(t, []string{"7:hi"}, h.transport.sends)

	h.clock.Add(time.Second)
	h.c.HandleEvent(chat("7", "srv-1", alice, "hi", h.clock.Now()))

	msgs := h.c.sessions[idx].Timeline().Messages()
	require.Len(t, msgs, before+1)
	assert.Equal(t, "srv-1", msgs[len(msgs)-1].ID)
}

func TestSendRejectedWhileDisconnected(t *testing.T) {
	h := newHarness(t)
	idx := h.join(t, "7", "lobby")

	h.transport.connected = false
	_, err := h.c.Send(idx, "hi")
	assert.ErrorIs(t, err, core.ErrNotConnected)
	assert.Empty(t, h.transport.sends)
	assert.Contains(t, h.bodies(idx), "Error: not connected, message not sent")
}

func TestUnreadAndTyping(t *testing.T) {
	h := newHarness(t)
	h.join(t, "1", "general")
	h.join(t, "7", "lobby")
	require.Equal(t, 1, h.c.foreground)

	h.c.HandleEvent(core.Event{Kind: core.EventTypingStart, RoomID: "1", User: bob})
	h.c.HandleEvent(core.Event{Kind: core.EventTypingStart, RoomID: "1", User: carol})
	assert.Equal(t, []string{"bob", "carol"}, h.c.Typing("1"))

	h.c.HandleEvent(chat("1", "m1", bob, "psst", h.clock.Now()))
	assert.True(t, h.c.Unread("1"))
	assert.Equal(t, []string{"carol"}, h.c.Typing("1"))

	h.c.HandleEvent(core.Event{Kind: core.EventTypingStop, RoomID: "1", User: carol})
	assert.Empty(t, h.c.Typing("1"))

	h.c.HandleEvent(chat("7", "m2", bob, "foreground", h.clock.Now()))
	assert.False(t, h.c.Unread("7"), "foreground room never marked unread")

	require.NoError(t, h.c.SwitchForeground(0))
	assert.False(t, h.c.Unread("1"))

	require.NoError(t, h.c.SetTyping(0, true))
	require.NoError(t, h.c.SetTyping(0, false))
	assert.Equal(t, []string{"1:true", "1:false"}, h.transport.typing)
}

func TestCloseRoomLeavesAndClearsCache(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.join(t, "1", "general")
	idx := h.join(t, "7", "lobby")
	h.c.HandleEvent(chat("7", "m1", bob, "hi", h.clock.Now()))

	_, ok, err := h.cache.Read(ctx, "7")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, h.c.CloseRoom(ctx, idx))
	assert.Equal(t, []string{"7"}, h.transport.leaves)
	assert.Equal(t, 0, h.c.foreground)
	require.Len(t, h.c.sessions, 1)

	_, ok, err = h.cache.Read(ctx, "7")
	require.NoError(t, err)
	assert.False(t, ok)

	rec, ok, err := h.cache.LoadRecord(ctx, alice.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []cache.RoomRef{{ID: "1", Name: "general"}}, rec.Rooms)

	// late events for the closed room are dropped, not misfiled
	h.c.HandleEvent(chat("7", "m2", bob, "late", h.clock.Now()))
	assert.NotContains(t, h.bodies(0), "late")
}

func TestCloseForegroundClearsNextUnread(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.join(t, "7", "lobby")
	h.join(t, "8", "games")
	require.NoError(t, h.c.SwitchForeground(0))

	h.c.HandleEvent(chat("8", "m1", bob, "over here", h.clock.Now()))
	require.True(t, h.c.Unread("8"))

	require.NoError(t, h.c.CloseRoom(ctx, 0))
	require.Equal(t, 0, h.c.foreground)
	assert.Equal(t, "8", h.c.sessions[h.c.foreground].ID)
	assert.False(t, h.c.Unread("8"), "new foreground room keeps no unread mark")
}

func TestSelfUserLeftReturnsToIdle(t *testing.T) {
	h := newHarness(t)
	idx := h.join(t, "7", "lobby")
	h.c.HandleEvent(chat("7", "m1", bob, "hi", h.clock.Now()))
	before := len(h.bodies(idx))

	h.c.HandleEvent(core.Event{Kind: core.EventUserLeft, RoomID: "7", User: alice})
	assert.Equal(t, session.Idle, h.c.sessions[idx].State())
	assert.NotContains(t, h.bodies(idx), "alice left the room")
	assert.LessOrEqual(t, len(h.bodies(idx)), before)

	h.c.HandleEvent(core.Event{Kind: core.EventUserLeft, RoomID: "7", User: bob})
	assert.Equal(t, session.Idle, h.c.sessions[idx].State())
}

func TestStaleAccessCheckDiscarded(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	idx, err := h.c.OpenRoom("7", "lobby")
	require.NoError(t, err)
	require.NoError(t, h.c.CloseRoom(ctx, idx))
	h.queue.flush()
	assert.Empty(t, h.transport.joins)

	_, err = h.c.OpenRoom("7", "lobby")
	require.NoError(t, err)
	h.queue.flush()
	assert.Equal(t, []string{"7"}, h.transport.joins)
}

func TestBannedRoomDoesNotJoin(t *testing.T) {
	h := newHarness(t)
	h.api.access = core.Access{Banned: true, RemainingMinutes: 3}

	idx, err := h.c.OpenRoom("7", "lobby")
	require.NoError(t, err)
	h.queue.flush()

	assert.Empty(t, h.transport.joins)
	assert.Equal(t, session.Idle, h.c.sessions[idx].State())
	assert.Equal(t, []string{"You are temporarily banned from this room (3 min remaining)"}, h.bodies(idx))
}

func TestAccessCheckFailureFailsOpen(t *testing.T) {
	h := newHarness(t)
	h.api.accessErr = errors.New("gateway timeout")

	_, err := h.c.OpenRoom("7", "lobby")
	require.NoError(t, err)
	h.queue.flush()
	assert.Equal(t, []string{"7"}, h.transport.joins)
}

func TestForcedLeaveKeepsTab(t *testing.T) {
	h := newHarness(t)
	idx := h.join(t, "7", "lobby")

	h.c.HandleEvent(core.Event{Kind: core.EventForcedLeave, RoomID: "7", Reason: "room closed"})

	s := h.c.sessions[idx]
	assert.Equal(t, session.Idle, s.State())
	assert.Equal(t, []string{"You were removed from this room: room closed"}, h.bodies(idx))
	_, ok, err := h.cache.Read(context.Background(), "7")
	require.NoError(t, err)
	assert.False(t, ok)
}

func fiveMembers() []core.Member {
	out := make([]core.Member, 0, 5)
	for _, u := range []core.Sender{alice, bob, carol, dave, eve} {
		out = append(out, core.Member{User: u, Role: core.RoleMember})
	}
	return out
}

func TestKickVoteExecutesKick(t *testing.T) {
	h := newHarness(t)
	h.api.members = fiveMembers()
	idx := h.join(t, "7", "lobby")
	require.Equal(t, 5, h.c.sessions[idx].MemberCount())

	require.NoError(t, h.c.StartKickVote(idx, eve.ID))
	require.NoError(t, h.c.ToggleVote(idx, bob.ID, eve.ID))
	h.queue.flush()
	assert.Empty(t, h.api.kicks)

	require.NoError(t, h.c.ToggleVote(idx, carol.ID, eve.ID))
	h.queue.flush()
	assert.Equal(t, []string{eve.ID}, h.api.kicks)
	assert.Contains(t, h.bodies(idx), "eve was kicked by vote")
}

func TestKickVotePreconditions(t *testing.T) {
	h := newHarness(t)
	h.api.members = fiveMembers()
	idx := h.join(t, "7", "lobby")

	err := h.c.StartKickVote(idx, alice.ID)
	assert.Equal(t, core.ErrCodePrecondition, core.ErrorCode(err))
	h.queue.flush()
	assert.Empty(t, h.api.kicks)
}

func TestKickVoteTimesOutOnce(t *testing.T) {
	h := newHarness(t)
	h.api.members = fiveMembers()
	idx := h.join(t, "7", "lobby")

	require.NoError(t, h.c.StartKickVote(idx, eve.ID))
	for i := 0; i < 45; i++ {
		h.c.TickVotes()
	}

	var timeouts int
	for _, b := range h.bodies(idx) {
		if strings.HasPrefix(b, "Vote to kick eve failed") {
			timeouts++
		}
	}
	assert.Equal(t, 1, timeouts)
	assert.Empty(t, h.api.kicks)
}

func TestModerationRejectedShowsReason(t *testing.T) {
	h := newHarness(t)
	h.api.members = fiveMembers()
	h.api.banErr = core.NewError(core.ErrCodeModerationRejected, "insufficient privileges")
	idx := h.join(t, "7", "lobby")

	require.NoError(t, h.c.BanUser(idx, bob.ID))
	require.NoError(t, h.c.ReportUser(idx, bob.ID, "m1", "spam"))
	h.queue.flush()

	bodies := h.bodies(idx)
	assert.Contains(t, bodies, "Error: insufficient privileges")
	assert.Contains(t, bodies, "Your report about bob was submitted")
	require.Len(t, h.api.reports, 1)
	assert.Equal(t, "7", h.api.reports[0].RoomID)
}

func TestSweepResetsExpiredRoom(t *testing.T) {
	h := newHarness(t)
	idx := h.join(t, "1", "general")
	h.c.HandleEvent(chat("1", "m1", bob, "old news", h.clock.Now()))

	h.clock.Add(6 * time.Minute)
	h.c.SweepCaches(context.Background())
	assert.Equal(t, []string{"Welcome to general!", "This room is managed by System"}, h.bodies(idx))

	h.c.SweepCaches(context.Background())
	assert.Len(t, h.bodies(idx), 2)
}

func TestRestoreReopensRecordedRooms(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.cache.SaveRecord(ctx, alice.ID, cache.Record{
		Rooms:      []cache.RoomRef{{ID: "1", Name: "general"}, {ID: "7", Name: "lobby"}},
		Foreground: 5,
	}))
	require.NoError(t, h.cache.SaveBlocked(ctx, alice.ID, []string{bob.ID}))

	require.NoError(t, h.c.Restore(ctx))
	snap := h.c.Snapshot()
	require.Len(t, snap.Rooms, 2)
	assert.Equal(t, 1, snap.Foreground)
	assert.Equal(t, []string{bob.ID}, snap.Blocked)
	assert.Equal(t, "idle", snap.Rooms[0].State)

	h.c.HandleEvent(core.Event{Kind: core.EventConnected})
	h.queue.flush()
	assert.Equal(t, []string{"1", "7"}, h.transport.joins)
}

func TestRunAppliesActionsAndCompletions(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	transport := &fakeTransport{connected: true}
	api := &fakeAPI{info: core.RoomInfo{CreatedBy: "dana"}}
	c := New(Options{
		Self:      alice,
		Transport: transport,
		API:       api,
		Cache:     cache.New(memory.New(), 0, mock, nil),
		Clock:     mock,
		Windows:   timeline.DefaultWindows(),
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	events := make(chan core.Event, 4)
	runDone := make(chan error, 1)
	go func() { runDone <- c.Run(ctx, events) }()

	var idx int
	require.NoError(t, c.Do(ctx, func(c *Coordinator) error {
		var err error
		idx, err = c.OpenRoom("9", "games")
		return err
	}))
	require.Eventually(t, func() bool { return transport.joinCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	events <- core.Event{Kind: core.EventRoomJoined, RoomID: "9"}
	require.Eventually(t, func() bool {
		var detail RoomDetail
		_ = c.Do(ctx, func(c *Coordinator) error {
			var err error
			detail, err = c.Room(idx)
			return err
		})
		return len(detail.Messages) == 2 && detail.Messages[1].Body == "This room is managed by dana"
	}, 2*time.Second, 10*time.Millisecond)

	err := c.Do(ctx, func(c *Coordinator) error {
		_, err := c.Room(3)
		return err
	})
	assert.Equal(t, core.ErrCodeRoomNotOpen, core.ErrorCode(err))

	cancel()
	require.NoError(t, <-runDone)
}
