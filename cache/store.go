package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrMiss is returned by reads when the key is absent or expired.
	ErrMiss = errors.New("cache miss")
	// ErrUnavailable wraps transport failures of the backing store.
	ErrUnavailable = errors.New("cache unavailable")
)

// Store is the single-key contract the engine relies on. Every method is safe for
// concurrent use. A non-positive ttl means the key never expires.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// GetDel returns the value and removes the key in one atomic step. Of several
	// concurrent callers on the same key at most one observes the value.
	GetDel(ctx context.Context, key string) (string, error)
	// Delete removes the keys; absent keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	// Incr increments a counter, starting a fixed window of the given length on the
	// first hit.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}
