package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/vovakirdan/wirechat-client/internal/auth"
	"github.com/vovakirdan/wirechat-client/internal/cache"
	"github.com/vovakirdan/wirechat-client/internal/config"
	"github.com/vovakirdan/wirechat-client/internal/core"
	"github.com/vovakirdan/wirechat-client/internal/log"
)

func TestOpenStoreBackends(t *testing.T) {
	ctx := context.Background()

	st, err := OpenStore(ctx, config.CacheConfig{Backend: BackendMemory})
	if err != nil {
		t.Fatalf("memory backend: %v", err)
	}
	_ = st.Close()

	st, err = OpenStore(ctx, config.CacheConfig{Backend: BackendSQLite, Path: filepath.Join(t.TempDir(), "cache.db")})
	if err != nil {
		t.Fatalf("sqlite backend: %v", err)
	}
	if err := st.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("sqlite set: %v", err)
	}
	_ = st.Close()

	if _, err := OpenStore(ctx, config.CacheConfig{Backend: "etcd"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestNewRequiresToken(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Backend = BackendMemory

	if _, err := New(context.Background(), &cfg, log.Nop()); err == nil {
		t.Fatalf("expected error without token")
	}

	cfg.Token = "garbage"
	if _, err := New(context.Background(), &cfg, log.Nop()); err == nil {
		t.Fatalf("expected error for malformed token")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	token, err := auth.GenerateToken(&auth.JWTConfig{Secret: []byte("s"), TTL: time.Hour}, core.Sender{ID: "u-me", Name: "me"}, false)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Token = token
	cfg.JWTSecret = "s"
	cfg.ServerURL = "ws://127.0.0.1:1/ws"
	cfg.ViewAddr = "127.0.0.1:0"
	cfg.ShutdownTimeout = time.Second
	cfg.Cache.Backend = BackendSQLite
	cfg.Cache.Path = filepath.Join(dir, "cache.db")

	// a room recorded by a previous run is reopened
	st, err := OpenStore(context.Background(), cfg.Cache)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	seed := cache.New(st, 0, nil, nil)
	if err := seed.SaveRecord(context.Background(), "u-me", cache.Record{Rooms: []cache.RoomRef{{ID: "7", Name: "lounge"}}}); err != nil {
		t.Fatalf("seed record: %v", err)
	}
	_ = st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	application, err := New(ctx, &cfg, log.Nop())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	if application.self.ID != "u-me" {
		t.Fatalf("unexpected identity: %+v", application.self)
	}
	if rooms := application.coordinator.Snapshot().Rooms; len(rooms) != 1 || rooms[0].Name != "lounge" {
		t.Fatalf("expected restored room, got %+v", rooms)
	}

	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("app did not stop after cancel")
	}
}
