package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vovakirdan/wirechat-client/internal/app"
	"github.com/vovakirdan/wirechat-client/internal/config"
	"github.com/vovakirdan/wirechat-client/internal/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	v          *viper.Viper
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{v: viper.New()}

	cmd := &cobra.Command{
		Use:           "wirechat",
		Short:         "WireChat room client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config file")
	cmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("cache-backend", "", "cache backend (sqlite, redis, memory)")
	cmd.PersistentFlags().String("cache-path", "", "sqlite cache file")
	_ = opts.v.BindPFlag("log_level", cmd.PersistentFlags().Lookup("log-level"))
	_ = opts.v.BindPFlag("cache.backend", cmd.PersistentFlags().Lookup("cache-backend"))
	_ = opts.v.BindPFlag("cache.path", cmd.PersistentFlags().Lookup("cache-path"))

	cmd.AddCommand(newRunCmd(opts), newCacheCmd(opts))
	return cmd
}

// load resolves configuration: defaults < config file < env < flags.
func (o *rootOptions) load() (config.Config, error) {
	bootstrap := log.New("info")
	cfg, path, err := config.Load(bootstrap, o.v, o.configPath)
	if err != nil {
		return cfg, err
	}
	log.New(cfg.LogLevel).Debug().Str("path", path).Msg("config loaded")
	return cfg, nil
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the chat server and serve the local view API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			logger := log.New(cfg.LogLevel)

			application, err := app.New(cmd.Context(), &cfg, logger)
			if err != nil {
				return err
			}

			logger.Info().Str("server", cfg.ServerURL).Str("view_addr", cfg.ViewAddr).Msg("starting wirechat client")
			if err := application.Run(cmd.Context()); err != nil {
				return fmt.Errorf("client exited with error: %w", err)
			}
			logger.Info().Msg("client stopped")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("server-url", "", "websocket URL of the chat server")
	flags.String("api-url", "", "base URL of the REST API")
	flags.String("token", "", "bearer token")
	flags.String("view-addr", "", "listen address of the local view API")
	flags.Duration("shutdown-timeout", 0, "graceful shutdown timeout")
	for flag, key := range map[string]string{
		"server-url":       "server_url",
		"api-url":          "api_url",
		"token":            "token",
		"view-addr":        "view_addr",
		"shutdown-timeout": "shutdown_timeout",
	} {
		_ = opts.v.BindPFlag(key, flags.Lookup(flag))
	}
	return cmd
}
