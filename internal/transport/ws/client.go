// Package ws is the websocket transport between the engine and the chat server.
package ws

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdhttp "net/http"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-client/internal/core"
	"github.com/vovakirdan/wirechat-client/internal/proto"
)

const (
	eventBuffer    = 64
	outboundBuffer = 64
)

var (
	// ErrQueueFull is returned when the outbound queue cannot take another frame.
	ErrQueueFull = errors.New("outbound queue full")
	// ErrRateLimited is returned when messages are sent faster than the configured limit.
	ErrRateLimited = core.NewError("rate_limited", "too many messages, slow down")
)

// Options configure a Client.
type Options struct {
	URL           string
	Token         string
	MinBackoff    time.Duration
	MaxBackoff    time.Duration
	SendPerMinute int
	Clock         clock.Clock
}

// Client keeps one websocket connection to the chat server alive, reconnecting
// with exponential backoff. Outbound calls never block.
type Client struct {
	opts    Options
	clock   clock.Clock
	log     *zerolog.Logger
	limiter *rateLimiter

	events    chan core.Event
	outbound  chan proto.Outbound
	connected atomic.Bool
}

// New creates a client. Call Run to connect.
func New(opts Options, logger *zerolog.Logger) *Client {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.MinBackoff <= 0 {
		opts.MinBackoff = 500 * time.Millisecond
	}
	if opts.MaxBackoff < opts.MinBackoff {
		opts.MaxBackoff = opts.MinBackoff
	}
	return &Client{
		opts:     opts,
		clock:    opts.Clock,
		log:      logger,
		limiter:  newRateLimiter(opts.SendPerMinute, opts.Clock),
		events:   make(chan core.Event, eventBuffer),
		outbound: make(chan proto.Outbound, outboundBuffer),
	}
}

// Events returns the stream of engine events. It is closed when Run returns.
func (c *Client) Events() <-chan core.Event {
	return c.events
}

// Connected reports whether a connection is currently established.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Join asks the server to subscribe this client to a room.
func (c *Client) Join(roomID string) error {
	return c.enqueue(joinFrame(roomID))
}

// Leave asks the server to unsubscribe this client from a room.
func (c *Client) Leave(roomID string, force bool) error {
	return c.enqueue(leaveFrame(roomID, force))
}

// Send posts a chat message to a room.
func (c *Client) Send(roomID, text string) error {
	if !c.Connected() {
		return core.ErrNotConnected
	}
	if !c.limiter.allow() {
		return ErrRateLimited
	}
	return c.enqueue(msgFrame(roomID, text))
}

// Typing toggles the typing indicator in a room.
func (c *Client) Typing(roomID string, typing bool) error {
	return c.enqueue(typingFrame(roomID, typing))
}

func (c *Client) enqueue(frame proto.Outbound) error {
	if !c.Connected() {
		return core.ErrNotConnected
	}
	select {
	case c.outbound <- frame:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run connects and serves until ctx is done, reconnecting after failures.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.events)

	backoff := c.opts.MinBackoff
	for {
		established, err := c.serve(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if established {
			backoff = c.opts.MinBackoff
		}
		c.log.Warn().Err(err).Dur("retry_in", backoff).Msg("ws connection lost")

		timer := c.clock.Timer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		backoff *= 2
		if backoff > c.opts.MaxBackoff {
			backoff = c.opts.MaxBackoff
		}
	}
}

// serve runs one connection. established is true when the hello was sent.
func (c *Client) serve(ctx context.Context) (established bool, err error) {
	header := stdhttp.Header{}
	if c.opts.Token != "" {
		header.Set("Authorization", "Bearer "+c.opts.Token)
	}
	conn, _, err := websocket.Dial(ctx, c.opts.URL, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", c.opts.URL, err)
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	if err := wsjson.Write(ctx, conn, helloFrame(c.opts.Token)); err != nil {
		return false, fmt.Errorf("send hello: %w", err)
	}

	c.drainOutbound()
	c.connected.Store(true)
	c.log.Info().Str("url", c.opts.URL).Msg("ws connected")
	c.emit(ctx, core.Event{Kind: core.EventConnected})

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- c.readLoop(connCtx, conn)
	}()
	go func() {
		errCh <- c.writeLoop(connCtx, conn)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	c.connected.Store(false)
	c.emit(ctx, core.Event{Kind: core.EventDisconnected})

	if errors.Is(err, io.EOF) {
		err = errors.New("server closed connection")
	}
	if s := websocket.CloseStatus(err); s == websocket.StatusNormalClosure || s == websocket.StatusGoingAway {
		err = fmt.Errorf("server closed connection: %s", s)
	}
	conn.Close(websocket.StatusNormalClosure, "closing")
	return true, err
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		ev, ok, err := inboundToEvent(inbound, c.clock.Now())
		if err != nil {
			c.log.Warn().Err(err).Str("type", inbound.Type).Str("event", inbound.Event).Msg("failed to map inbound")
			continue
		}
		if !ok {
			c.log.Debug().Str("type", inbound.Type).Str("event", inbound.Event).Msg("ignoring inbound frame")
			continue
		}
		c.emit(ctx, ev)
	}
}

func (c *Client) writeLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		select {
		case frame := <-c.outbound:
			if err := wsjson.Write(ctx, conn, frame); err != nil {
				c.log.Error().Err(err).Str("type", frame.Type).Msg("write ws frame")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) emit(ctx context.Context, ev core.Event) {
	select {
	case c.events <- ev:
	case <-ctx.Done():
	}
}

// drainOutbound drops frames queued for a connection that no longer exists.
func (c *Client) drainOutbound() {
	for {
		select {
		case <-c.outbound:
		default:
			return
		}
	}
}
