package ws

import (
	"context"
	"encoding/json"
	"errors"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wirechat-client/internal/core"
	"github.com/vovakirdan/wirechat-client/internal/proto"
)

type clientFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type serverFrame struct {
	Type  string       `json:"type"`
	Event string       `json:"event,omitempty"`
	Data  any          `json:"data,omitempty"`
	Error *proto.Error `json:"error,omitempty"`
}

func mustEvent(t *testing.T, ch <-chan core.Event, kind core.EventKind) core.Event {
	t.Helper()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("event stream closed while waiting for %v", kind)
			}
			if ev.Kind == kind {
				return ev
			}
		case <-timeout:
			t.Fatalf("expected event kind %v not received", kind)
		}
	}
}

func wsURL(ts *httptest.Server) string {
	return strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
}

func TestClientHelloJoinAndEvents(t *testing.T) {
	var authHeader atomic.Value
	ts := httptest.NewServer(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		authHeader.Store(r.Header.Get("Authorization"))
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "done")
		ctx := r.Context()

		var hello clientFrame
		if err := wsjson.Read(ctx, conn, &hello); err != nil || hello.Type != proto.OutboundTypeHello {
			return
		}
		var join clientFrame
		if err := wsjson.Read(ctx, conn, &join); err != nil || join.Type != proto.OutboundTypeJoin {
			return
		}
		var data proto.JoinData
		_ = json.Unmarshal(join.Data, &data)

		_ = wsjson.Write(ctx, conn, serverFrame{Type: "event", Event: proto.EventRoomJoined, Data: proto.EventRoomUser{Room: data.Room}})
		_ = wsjson.Write(ctx, conn, serverFrame{Type: "event", Event: proto.EventMessage, Data: proto.MessageData{
			ID: "42", Room: data.Room, User: proto.User{ID: "u-bob", Name: "bob", Level: 7}, Text: "hi", TS: 1_700_000_000_000,
		}})
		_ = wsjson.Write(ctx, conn, serverFrame{Type: "error", Error: &proto.Error{Code: "forbidden", Msg: "nope", Room: data.Room}})

		// keep the connection open until the client goes away
		var sink clientFrame
		for wsjson.Read(ctx, conn, &sink) == nil {
		}
	}))
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := New(Options{URL: wsURL(ts), Token: "secret-token"}, nil)
	done := make(chan struct{})
	go func() {
		_ = client.Run(ctx)
		close(done)
	}()

	mustEvent(t, client.Events(), core.EventConnected)
	if got, _ := authHeader.Load().(string); got != "Bearer secret-token" {
		t.Fatalf("unexpected authorization header: %q", got)
	}
	if err := client.Join("7"); err != nil {
		t.Fatalf("join: %v", err)
	}

	joined := mustEvent(t, client.Events(), core.EventRoomJoined)
	if joined.RoomID != "7" {
		t.Fatalf("unexpected room_joined: %+v", joined)
	}

	msg := mustEvent(t, client.Events(), core.EventMessage)
	if msg.RoomID != "7" || msg.Message.Body != "hi" || msg.Message.Sender.Name != "bob" || msg.Message.Sender.Level != 7 {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if !msg.Message.CreatedAt.Equal(time.UnixMilli(1_700_000_000_000)) {
		t.Fatalf("unexpected timestamp: %v", msg.Message.CreatedAt)
	}

	sockErr := mustEvent(t, client.Events(), core.EventSocketError)
	if sockErr.RoomID != "7" || sockErr.Error == nil || sockErr.Error.Code != "forbidden" {
		t.Fatalf("unexpected socket error: %+v", sockErr)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("client did not stop")
	}
}

func TestClientReconnectsAfterServerClose(t *testing.T) {
	var conns atomic.Int32
	ts := httptest.NewServer(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		var hello clientFrame
		_ = wsjson.Read(r.Context(), conn, &hello)
		if conns.Add(1) == 1 {
			conn.Close(websocket.StatusGoingAway, "restart")
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "done")
		var sink clientFrame
		for wsjson.Read(r.Context(), conn, &sink) == nil {
		}
	}))
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := New(Options{URL: wsURL(ts), MinBackoff: 10 * time.Millisecond, MaxBackoff: 50 * time.Millisecond}, nil)
	go func() { _ = client.Run(ctx) }()

	mustEvent(t, client.Events(), core.EventConnected)
	mustEvent(t, client.Events(), core.EventDisconnected)
	mustEvent(t, client.Events(), core.EventConnected)
	if !client.Connected() {
		t.Fatalf("expected client to be connected after reconnect")
	}
	// the handler counts a connection only after reading the hello frame
	deadline := time.Now().Add(time.Second)
	for conns.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if conns.Load() < 2 {
		t.Fatalf("expected a second connection, got %d", conns.Load())
	}
}

func TestWritesRejectedWhileDisconnected(t *testing.T) {
	client := New(Options{URL: "ws://127.0.0.1:1/ws"}, nil)

	for name, err := range map[string]error{
		"join":   client.Join("7"),
		"leave":  client.Leave("7", true),
		"send":   client.Send("7", "hi"),
		"typing": client.Typing("7", true),
	} {
		if !errors.Is(err, core.ErrNotConnected) {
			t.Fatalf("%s: expected ErrNotConnected, got %v", name, err)
		}
	}
}

func TestSendRateLimit(t *testing.T) {
	mock := clock.NewMock()
	client := New(Options{URL: "ws://unused", SendPerMinute: 2, Clock: mock}, nil)
	client.connected.Store(true)

	for i := 0; i < 2; i++ {
		if err := client.Send("7", "hi"); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	if err := client.Send("7", "hi"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected rate limit, got %v", err)
	}

	mock.Add(time.Minute)
	if err := client.Send("7", "hi"); err != nil {
		t.Fatalf("send after window: %v", err)
	}
}

func TestInboundToEvent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	raw, _ := json.Marshal(proto.MessageData{
		ID: "9", Room: "1", User: proto.User{ID: "u1", Name: "ann", Merchant: true},
		Text: "a gift", Kind: "gift", Gift: &proto.Gift{ID: "rose", Name: "Rose", Quantity: 3},
	})
	ev, ok, err := inboundToEvent(proto.Inbound{Type: proto.InboundTypeEvent, Event: proto.EventMessage, Data: raw}, now)
	if err != nil || !ok {
		t.Fatalf("map message: ok=%v err=%v", ok, err)
	}
	if ev.Message.Kind != core.KindGift || ev.Message.Payload == nil || ev.Message.Payload.Gift.Quantity != 3 {
		t.Fatalf("unexpected gift message: %+v", ev.Message)
	}
	if !ev.Message.CreatedAt.Equal(now) {
		t.Fatalf("missing ts should default to receive time, got %v", ev.Message.CreatedAt)
	}
	if !ev.Message.Sender.Merchant {
		t.Fatalf("sender flags lost: %+v", ev.Message.Sender)
	}

	raw, _ = json.Marshal(proto.EventRoomUser{Room: "1", User: proto.User{ID: "u2", Name: "bo"}, Reason: "spam"})
	ev, ok, err = inboundToEvent(proto.Inbound{Type: proto.InboundTypeEvent, Event: proto.EventUserKicked, Data: raw}, now)
	if err != nil || !ok || ev.Kind != core.EventUserKicked || ev.User.ID != "u2" || ev.Reason != "spam" {
		t.Fatalf("unexpected kick event: %+v ok=%v err=%v", ev, ok, err)
	}

	if _, ok, _ := inboundToEvent(proto.Inbound{Type: proto.InboundTypeEvent, Event: "history"}, now); ok {
		t.Fatalf("unknown events must be ignored")
	}

	if _, _, err := inboundToEvent(proto.Inbound{Type: proto.InboundTypeEvent, Event: proto.EventMessage, Data: json.RawMessage(`{"id":`)}, now); err == nil {
		t.Fatalf("expected decode error")
	}

	raw, _ = json.Marshal(proto.MessageData{ID: "1", Room: "1", Text: "x", Kind: "weird"})
	ev, _, _ = inboundToEvent(proto.Inbound{Type: proto.InboundTypeEvent, Event: proto.EventMessage, Data: raw}, now)
	if ev.Message.Kind != core.KindText {
		t.Fatalf("unknown kinds fall back to text, got %q", ev.Message.Kind)
	}
}
