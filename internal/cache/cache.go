// Package cache keeps a short-lived local copy of each open room's timeline
// plus the small records needed to rebuild the client after a restart.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-client/internal/core"
	"github.com/vovakirdan/wirechat-client/internal/store"
)

const (
	// DefaultTTL is how long a saved timeline stays usable.
	DefaultTTL = 5 * time.Minute
	// DefaultSweepInterval is how often open rooms are checked for expiry.
	DefaultSweepInterval = 30 * time.Second
	// MaxMessages caps the number of messages stored per room.
	MaxMessages = 200

	messagesPrefix  = "messages:"
	roomStatePrefix = "room-state:"
	roomsPrefix     = "rooms:"
	blockedPrefix   = "blocked:"
)

var (
	// ErrCorrupt marks a stored value that could not be decoded in any known encoding.
	ErrCorrupt = core.NewError(core.ErrCodeCacheCorrupt, "cache entry corrupt")
	// ErrCleared is returned by writes to a room whose cache was cleared and not reopened.
	ErrCleared = errors.New("room cache cleared")
)

// Entry is a decoded room timeline.
type Entry struct {
	Messages []core.Message
	SavedAt  time.Time // zero for legacy entries, which are always expired
	Legacy   bool
}

type envelope struct {
	Messages []core.Message `json:"messages"`
	SavedAt  int64          `json:"savedAt"` // unix milliseconds
}

// RoomRef identifies an open room in the membership record.
type RoomRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Record is the per-user list of open rooms and the foreground index.
type Record struct {
	Rooms      []RoomRef `json:"rooms"`
	Foreground int       `json:"foreground"`
}

// RoomState is the last known session state of a room.
type RoomState struct {
	Name   string `json:"name"`
	Joined bool   `json:"joined"`
}

// Cache is the local message cache. It is safe for concurrent use, although
// each room is expected to be written by a single owner.
type Cache struct {
	store store.Store
	clock clock.Clock
	ttl   time.Duration
	log   *zerolog.Logger

	mu      sync.Mutex
	cleared map[string]struct{}
}

// New creates a cache over st. A zero ttl selects DefaultTTL; a nil clock selects the wall clock.
func New(st store.Store, ttl time.Duration, clk clock.Clock, logger *zerolog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Cache{
		store:   st,
		clock:   clk,
		ttl:     ttl,
		log:     logger,
		cleared: make(map[string]struct{}),
	}
}

// Read returns the stored timeline of a room.
// Legacy bare-list entries are returned with a zero SavedAt and removed from the store.
// Undecodable entries are deleted and reported as a miss.
func (c *Cache) Read(ctx context.Context, roomID string) (Entry, bool, error) {
	key := messagesPrefix + roomID
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("read cache %s: %w", roomID, err)
	}

	entry, err := decodeEntry(data)
	if err != nil {
		c.log.Warn().Err(err).Str("room_id", roomID).Msg("dropping corrupt cache entry")
		if delErr := c.store.Delete(ctx, key); delErr != nil {
			c.log.Warn().Err(delErr).Str("room_id", roomID).Msg("failed to delete corrupt cache entry")
		}
		return Entry{}, false, nil
	}

	if entry.Legacy {
		c.log.Debug().Str("room_id", roomID).Msg("discarding legacy cache entry")
		if delErr := c.store.Delete(ctx, key); delErr != nil {
			c.log.Warn().Err(delErr).Str("room_id", roomID).Msg("failed to delete legacy cache entry")
		}
	}
	return entry, true, nil
}

// Peek returns the stored timeline of a room without removing legacy or
// undecodable entries. Undecodable entries are reported as a miss.
func (c *Cache) Peek(ctx context.Context, roomID string) (Entry, bool, error) {
	data, err := c.store.Get(ctx, messagesPrefix+roomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("read cache %s: %w", roomID, err)
	}
	entry, err := decodeEntry(data)
	if err != nil {
		return Entry{}, false, nil
	}
	return entry, true, nil
}

// decodeEntry tries the envelope encoding first, then the legacy bare list.
func decodeEntry(data []byte) (Entry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Entry{}, ErrCorrupt
	}

	var env envelope
	envErr := json.Unmarshal(trimmed, &env)
	if envErr == nil {
		entry := Entry{Messages: env.Messages}
		if env.SavedAt > 0 {
			entry.SavedAt = time.UnixMilli(env.SavedAt)
		}
		return entry, nil
	}

	var legacy []core.Message
	if err := json.Unmarshal(trimmed, &legacy); err == nil {
		return Entry{Messages: legacy, Legacy: true}, nil
	}

	return Entry{}, fmt.Errorf("%w: %v", ErrCorrupt, envErr)
}

// Write stores messages for a room with the current time as savedAt.
// Optimistic messages are not persisted.
func (c *Cache) Write(ctx context.Context, roomID string, messages []core.Message) error {
	if c.isCleared(roomID) {
		return ErrCleared
	}
	return c.write(ctx, roomID, messages)
}

func (c *Cache) write(ctx context.Context, roomID string, messages []core.Message) error {
	kept := make([]core.Message, 0, len(messages))
	for _, m := range messages {
		if !m.Optimistic() {
			kept = append(kept, m)
		}
	}
	if len(kept) > MaxMessages {
		kept = kept[len(kept)-MaxMessages:]
	}

	data, err := json.Marshal(envelope{Messages: kept, SavedAt: c.clock.Now().UnixMilli()})
	if err != nil {
		return fmt.Errorf("encode cache %s: %w", roomID, err)
	}
	if err := c.store.Set(ctx, messagesPrefix+roomID, data); err != nil {
		return fmt.Errorf("write cache %s: %w", roomID, err)
	}
	return nil
}

// IsExpired reports whether an entry saved at savedAt is older than the TTL.
func (c *Cache) IsExpired(savedAt time.Time) bool {
	if savedAt.IsZero() {
		return true
	}
	return c.clock.Now().Sub(savedAt) > c.ttl
}

// Sweep deletes an expired room entry and stores the regenerated welcome set in its place.
// It returns the regenerated messages, or nil when nothing was swept.
// Sweeping a cleared or missing room is a no-op. A nil regenerate only deletes.
func (c *Cache) Sweep(ctx context.Context, roomID string, regenerate func() []core.Message) ([]core.Message, error) {
	if c.isCleared(roomID) {
		return nil, nil
	}

	entry, ok, err := c.Peek(ctx, roomID)
	if err != nil || !ok {
		return nil, err
	}
	if !c.IsExpired(entry.SavedAt) {
		return nil, nil
	}

	if err := c.store.Delete(ctx, messagesPrefix+roomID); err != nil {
		return nil, fmt.Errorf("sweep cache %s: %w", roomID, err)
	}
	c.log.Debug().Str("room_id", roomID).Msg("swept expired cache entry")

	if regenerate == nil {
		return nil, nil
	}
	fresh := regenerate()
	if err := c.write(ctx, roomID, fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

// Clear removes every key referencing the room, including its slot in the user's
// membership record, and blocks further writes until Reopen.
func (c *Cache) Clear(ctx context.Context, roomID, userID string) error {
	c.mu.Lock()
	c.cleared[roomID] = struct{}{}
	c.mu.Unlock()

	if err := c.store.Delete(ctx, messagesPrefix+roomID, roomStatePrefix+roomID); err != nil {
		return fmt.Errorf("clear cache %s: %w", roomID, err)
	}

	if userID == "" {
		return nil
	}
	rec, ok, err := c.LoadRecord(ctx, userID)
	if err != nil || !ok {
		return err
	}
	filtered := rec.Rooms[:0]
	for _, r := range rec.Rooms {
		if r.ID != roomID {
			filtered = append(filtered, r)
		}
	}
	rec.Rooms = filtered
	if rec.Foreground >= len(rec.Rooms) {
		rec.Foreground = len(rec.Rooms) - 1
	}
	return c.SaveRecord(ctx, userID, rec)
}

// Discard deletes the room's timeline and saved state without blocking later writes.
// It is used when the server ends a session that stays open locally.
func (c *Cache) Discard(ctx context.Context, roomID string) error {
	if err := c.store.Delete(ctx, messagesPrefix+roomID, roomStatePrefix+roomID); err != nil {
		return fmt.Errorf("discard cache %s: %w", roomID, err)
	}
	return nil
}

// Reopen lifts the write block placed by Clear.
func (c *Cache) Reopen(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cleared, roomID)
}

func (c *Cache) isCleared(roomID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.cleared[roomID]
	return ok
}

// Rooms lists room IDs that currently have a stored timeline.
func (c *Cache) Rooms(ctx context.Context) ([]string, error) {
	keys, err := c.store.Keys(ctx, messagesPrefix)
	if err != nil {
		return nil, fmt.Errorf("list cached rooms: %w", err)
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, messagesPrefix))
	}
	return ids, nil
}

// SaveRoomState stores the last known session state of a room.
func (c *Cache) SaveRoomState(ctx context.Context, roomID string, state RoomState) error {
	if c.isCleared(roomID) {
		return ErrCleared
	}
	return c.putJSON(ctx, roomStatePrefix+roomID, state)
}

// LoadRoomState returns the saved session state of a room.
func (c *Cache) LoadRoomState(ctx context.Context, roomID string) (RoomState, bool, error) {
	var state RoomState
	ok, err := c.getJSON(ctx, roomStatePrefix+roomID, &state)
	return state, ok, err
}

// SaveRecord stores the user's membership record.
func (c *Cache) SaveRecord(ctx context.Context, userID string, rec Record) error {
	return c.putJSON(ctx, roomsPrefix+userID, rec)
}

// LoadRecord returns the user's membership record.
func (c *Cache) LoadRecord(ctx context.Context, userID string) (Record, bool, error) {
	var rec Record
	ok, err := c.getJSON(ctx, roomsPrefix+userID, &rec)
	return rec, ok, err
}

// SaveBlocked stores the user's blocked-user set.
func (c *Cache) SaveBlocked(ctx context.Context, userID string, blocked []string) error {
	return c.putJSON(ctx, blockedPrefix+userID, blocked)
}

// LoadBlocked returns the user's blocked-user set.
func (c *Cache) LoadBlocked(ctx context.Context, userID string) ([]string, error) {
	var blocked []string
	_, err := c.getJSON(ctx, blockedPrefix+userID, &blocked)
	return blocked, err
}

func (c *Cache) putJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// getJSON decodes key into v. Corrupt values are deleted and treated as missing.
func (c *Cache) getJSON(ctx context.Context, key string, v any) (bool, error) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("dropping corrupt record")
		if delErr := c.store.Delete(ctx, key); delErr != nil {
			c.log.Warn().Err(delErr).Str("key", key).Msg("failed to delete corrupt record")
		}
		return false, nil
	}
	return true, nil
}
