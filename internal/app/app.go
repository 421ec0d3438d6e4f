package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/wirechat-client/internal/api"
	"github.com/vovakirdan/wirechat-client/internal/auth"
	"github.com/vovakirdan/wirechat-client/internal/cache"
	"github.com/vovakirdan/wirechat-client/internal/config"
	"github.com/vovakirdan/wirechat-client/internal/coordinator"
	"github.com/vovakirdan/wirechat-client/internal/core"
	"github.com/vovakirdan/wirechat-client/internal/log"
	"github.com/vovakirdan/wirechat-client/internal/session"
	"github.com/vovakirdan/wirechat-client/internal/store"
	"github.com/vovakirdan/wirechat-client/internal/timeline"
	transporthttp "github.com/vovakirdan/wirechat-client/internal/transport/http"
	"github.com/vovakirdan/wirechat-client/internal/transport/ws"
)

// App wires together the engine, its transports and the view server.
type App struct {
	self            core.Sender
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	client          *ws.Client
	coordinator     *coordinator.Coordinator
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if cfg.Token == "" {
		return nil, errors.New("token is required")
	}
	self, err := auth.IdentityFromToken(&auth.JWTConfig{Secret: []byte(cfg.JWTSecret)}, cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("read identity: %w", err)
	}
	logger.Info().Str("user_id", self.ID).Str("user", self.Name).Msg("identity loaded")

	st, err := OpenStore(ctx, cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("backend", cfg.Cache.Backend).Msg("cache store initialized")

	clk := clock.New()
	msgCache := cache.New(st, cfg.Cache.TTL, clk, log.Component(logger, "cache"))

	client := ws.New(ws.Options{
		URL:           cfg.ServerURL,
		Token:         cfg.Token,
		MinBackoff:    cfg.Reconnect.MinBackoff,
		MaxBackoff:    cfg.Reconnect.MaxBackoff,
		SendPerMinute: cfg.SendPerMinute,
		Clock:         clk,
	}, log.Component(logger, "ws"))

	coord := coordinator.New(coordinator.Options{
		Self:      self,
		Transport: client,
		API:       api.New(cfg.APIURL, cfg.Token, nil, log.Component(logger, "api")),
		Cache:     msgCache,
		Clock:     clk,
		Windows: timeline.Windows{
			Optimistic: cfg.Dedup.OptimisticWindow,
			Confirmed:  cfg.Dedup.ConfirmedWindow,
			System:     cfg.Dedup.SystemWindow,
		},
		Vote: session.VoteOptions{
			Duration:       cfg.Vote.Duration,
			ProtectedLevel: cfg.Vote.ProtectedLevel,
		},
		SweepInterval: cfg.Cache.SweepInterval,
		PollInterval:  cfg.Members.PollInterval,
	}, log.Component(logger, "coordinator"))

	if err := coord.Restore(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to restore open rooms")
	}

	server := transporthttp.NewServer(coord, cfg, log.Component(logger, "view"))

	return &App{
		self:            self,
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		client:          client,
		coordinator:     coord,
		store:           st,
		log:             logger,
	}, nil
}

// Run connects to the chat server, runs the engine and serves the view API
// until context cancellation or a fatal error.
func (a *App) Run(ctx context.Context) error {
	defer a.cleanup()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.client.Run(ctx)
	})
	g.Go(func() error {
		return a.coordinator.Run(ctx, a.client.Events())
	})
	g.Go(func() error {
		a.log.Info().Str("addr", a.server.Addr).Msg("view api listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return fmt.Errorf("view server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down view server")
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// cleanup closes the store.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
