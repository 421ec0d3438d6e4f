package app

import (
	"context"
	"fmt"

	"github.com/vovakirdan/wirechat-client/internal/config"
	"github.com/vovakirdan/wirechat-client/internal/store"
	"github.com/vovakirdan/wirechat-client/internal/store/memory"
	"github.com/vovakirdan/wirechat-client/internal/store/redis"
	"github.com/vovakirdan/wirechat-client/internal/store/sqlite"
)

// Cache backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// OpenStore opens the key/value backend selected by cfg.Backend.
func OpenStore(ctx context.Context, cfg config.CacheConfig) (store.Store, error) {
	switch cfg.Backend {
	case BackendSQLite, "":
		st, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, err
		}
		return st, nil
	case BackendRedis:
		st, err := redis.New(ctx, cfg.RedisAddr, cfg.Prefix)
		if err != nil {
			return nil, err
		}
		return st, nil
	case BackendMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
