package config

import "time"

// Config holds client configuration values.
type Config struct {
	ServerURL       string          `mapstructure:"server_url" yaml:"server_url"`
	APIURL          string          `mapstructure:"api_url" yaml:"api_url"`
	Token           string          `mapstructure:"token" yaml:"token"`
	JWTSecret       string          `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	LogLevel        string          `mapstructure:"log_level" yaml:"log_level"`
	ViewAddr        string          `mapstructure:"view_addr" yaml:"view_addr"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	SendPerMinute   int             `mapstructure:"send_per_minute" yaml:"send_per_minute"`
	Cache           CacheConfig     `mapstructure:"cache" yaml:"cache"`
	Vote            VoteConfig      `mapstructure:"vote" yaml:"vote"`
	Members         MembersConfig   `mapstructure:"members" yaml:"members"`
	Dedup           DedupConfig     `mapstructure:"dedup" yaml:"dedup"`
	Reconnect       ReconnectConfig `mapstructure:"reconnect" yaml:"reconnect"`
}

// CacheConfig selects and tunes the local message cache backend.
type CacheConfig struct {
	Backend       string        `mapstructure:"backend" yaml:"backend"` // sqlite, redis or memory
	Path          string        `mapstructure:"path" yaml:"path"`
	RedisAddr     string        `mapstructure:"redis_addr" yaml:"redis_addr"`
	Prefix        string        `mapstructure:"prefix" yaml:"prefix"`
	TTL           time.Duration `mapstructure:"ttl" yaml:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
}

// VoteConfig tunes kick votes.
type VoteConfig struct {
	Duration       time.Duration `mapstructure:"duration" yaml:"duration"`
	ProtectedLevel int           `mapstructure:"protected_level" yaml:"protected_level"`
}

// MembersConfig tunes membership polling.
type MembersConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

// DedupConfig holds the per-flow duplicate windows.
type DedupConfig struct {
	OptimisticWindow time.Duration `mapstructure:"optimistic_window" yaml:"optimistic_window"`
	ConfirmedWindow  time.Duration `mapstructure:"confirmed_window" yaml:"confirmed_window"`
	SystemWindow     time.Duration `mapstructure:"system_window" yaml:"system_window"`
}

// ReconnectConfig bounds the transport's reconnect backoff.
type ReconnectConfig struct {
	MinBackoff time.Duration `mapstructure:"min_backoff" yaml:"min_backoff"`
	MaxBackoff time.Duration `mapstructure:"max_backoff" yaml:"max_backoff"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		ServerURL:       "ws://localhost:8080/ws",
		APIURL:          "http://localhost:8080/api",
		LogLevel:        "info",
		ViewAddr:        "127.0.0.1:7070",
		ShutdownTimeout: 5 * time.Second,
		SendPerMinute:   30,
		Cache: CacheConfig{
			Backend:       "sqlite",
			Path:          "wirechat-cache.db",
			RedisAddr:     "localhost:6379",
			Prefix:        "wirechat:",
			TTL:           5 * time.Minute,
			SweepInterval: 30 * time.Second,
		},
		Vote: VoteConfig{
			Duration:       30 * time.Second,
			ProtectedLevel: 100,
		},
		Members: MembersConfig{
			PollInterval: 20 * time.Second,
		},
		Dedup: DedupConfig{
			OptimisticWindow: 5 * time.Second,
			ConfirmedWindow:  2 * time.Second,
			SystemWindow:     3 * time.Second,
		},
		Reconnect: ReconnectConfig{
			MinBackoff: 500 * time.Millisecond,
			MaxBackoff: 15 * time.Second,
		},
	}
}
