package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("key not found")

// Store is a best-effort key/value backend for locally persisted client state.
// Values are opaque bytes; callers own the encoding.
type Store interface {
	// Get returns the value stored under key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// Keys lists keys starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases the underlying connection.
	Close() error
}
