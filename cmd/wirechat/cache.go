package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-client/internal/app"
	"github.com/vovakirdan/wirechat-client/internal/auth"
	"github.com/vovakirdan/wirechat-client/internal/cache"
	"github.com/vovakirdan/wirechat-client/internal/config"
	"github.com/vovakirdan/wirechat-client/internal/log"
)

func newCacheCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the local message cache",
	}
	cmd.AddCommand(newCacheListCmd(opts), newCacheClearCmd(opts), newCacheSweepCmd(opts))
	return cmd
}

// withCache opens the configured store for an offline cache command.
func withCache(cmd *cobra.Command, opts *rootOptions, fn func(cfg config.Config, c *cache.Cache) error) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	logger := log.New(cfg.LogLevel)

	st, err := app.OpenStore(cmd.Context(), cfg.Cache)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close store")
		}
	}()

	return fn(cfg, cache.New(st, cfg.Cache.TTL, nil, log.Component(logger, "cache")))
}

func newCacheListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rooms with a cached timeline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCache(cmd, opts, func(_ config.Config, c *cache.Cache) error {
				rooms, err := c.Rooms(cmd.Context())
				if err != nil {
					return err
				}
				for _, id := range rooms {
					entry, ok, err := c.Peek(cmd.Context(), id)
					if err != nil || !ok {
						continue
					}
					state := "fresh"
					if c.IsExpired(entry.SavedAt) {
						state = "expired"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d messages\t%s\n", id, len(entry.Messages), state)
				}
				return nil
			})
		},
	}
}

func newCacheClearCmd(opts *rootOptions) *cobra.Command {
	var roomID string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached key of a room",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if roomID == "" {
				return errors.New("--room is required")
			}
			return withCache(cmd, opts, func(cfg config.Config, c *cache.Cache) error {
				// the room also leaves the user's record when the token names a user
				userID := ""
				if cfg.Token != "" {
					if self, err := auth.IdentityFromToken(&auth.JWTConfig{Secret: []byte(cfg.JWTSecret)}, cfg.Token); err == nil {
						userID = self.ID
					}
				}
				if err := c.Clear(cmd.Context(), roomID, userID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cleared room %s\n", roomID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&roomID, "room", "", "room id")
	return cmd
}

func newCacheSweepCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired room timelines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCache(cmd, opts, func(_ config.Config, c *cache.Cache) error {
				rooms, err := c.Rooms(cmd.Context())
				if err != nil {
					return err
				}
				swept := 0
				for _, id := range rooms {
					entry, ok, err := c.Peek(cmd.Context(), id)
					if err != nil || !ok || !c.IsExpired(entry.SavedAt) {
						continue
					}
					// offline there is no session to regenerate the welcome lines for
					if _, err := c.Sweep(cmd.Context(), id, nil); err != nil {
						return err
					}
					swept++
				}
				fmt.Fprintf(cmd.OutOrStdout(), "swept %d of %d rooms\n", swept, len(rooms))
				return nil
			})
		},
	}
}
