package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envConfigDefaultPath = "WIRECHAT_CONFIG_DEFAULT_PATH"
	defaultConfigName    = "wirechat.yaml"
)

// Load builds configuration from defaults, optional config file, env vars, and returns the resolved path.
// Precedence: defaults < config file < env vars < caller overrides.
func Load(logger *zerolog.Logger, v *viper.Viper, explicitPath string) (Config, string, error) {
	cfg := Default()

	if v == nil {
		v = viper.New()
	}
	v.SetConfigType("yaml")
	setDefaults(v, cfg)

	v.SetEnvPrefix("WIRECHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := resolveConfigPath(explicitPath)
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			if writeErr := writeDefaultConfig(configPath, cfg); writeErr != nil && logger != nil {
				logger.Warn().Err(writeErr).Str("path", configPath).Msg("failed to write default config")
			} else if logger != nil {
				logger.Info().Str("path", configPath).Msg("created default config")
			}
			// try reading again in case it was just written
			if readErr := v.ReadInConfig(); readErr != nil && logger != nil {
				logger.Warn().Err(readErr).Str("path", configPath).Msg("failed to read config after writing default")
			}
		} else {
			return cfg, configPath, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, configPath, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, configPath, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("server_url", cfg.ServerURL)
	v.SetDefault("api_url", cfg.APIURL)
	v.SetDefault("token", cfg.Token)
	v.SetDefault("jwt_secret", cfg.JWTSecret)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("view_addr", cfg.ViewAddr)
	v.SetDefault("shutdown_timeout", cfg.ShutdownTimeout)
	v.SetDefault("send_per_minute", cfg.SendPerMinute)
	v.SetDefault("cache.backend", cfg.Cache.Backend)
	v.SetDefault("cache.path", cfg.Cache.Path)
	v.SetDefault("cache.redis_addr", cfg.Cache.RedisAddr)
	v.SetDefault("cache.prefix", cfg.Cache.Prefix)
	v.SetDefault("cache.ttl", cfg.Cache.TTL)
	v.SetDefault("cache.sweep_interval", cfg.Cache.SweepInterval)
	v.SetDefault("vote.duration", cfg.Vote.Duration)
	v.SetDefault("vote.protected_level", cfg.Vote.ProtectedLevel)
	v.SetDefault("members.poll_interval", cfg.Members.PollInterval)
	v.SetDefault("dedup.optimistic_window", cfg.Dedup.OptimisticWindow)
	v.SetDefault("dedup.confirmed_window", cfg.Dedup.ConfirmedWindow)
	v.SetDefault("dedup.system_window", cfg.Dedup.SystemWindow)
	v.SetDefault("reconnect.min_backoff", cfg.Reconnect.MinBackoff)
	v.SetDefault("reconnect.max_backoff", cfg.Reconnect.MaxBackoff)
}

func resolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}

	if base := os.Getenv(envConfigDefaultPath); base != "" {
		if err := os.MkdirAll(base, 0o755); err == nil {
			return filepath.Join(base, defaultConfigName)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return defaultConfigName
	}
	return filepath.Join(cwd, defaultConfigName)
}

func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
