package rate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/authcore/cache"
)

// Config holds login throttle tuning.
type Config struct {
	EnableIPThrottle bool
	MaxAttempts      int
	Cooldown         time.Duration
}

// Limiter counts failed logins per identifier (and optionally per client IP)
// in fixed windows on the shared cache.
type Limiter struct {
	store  cache.Store
	config Config
}

// New creates a [Limiter] backed by store.
func New(store cache.Store, cfg Config) *Limiter {
	return &Limiter{
		store:  store,
		config: cfg,
	}
}

// CheckLogin returns ErrRateLimited when the identifier or IP has used up its
// failure budget for the current window.
func (l *Limiter) CheckLogin(ctx context.Context, identifier, ip string) error {
	if err := l.checkCounter(ctx, loginUserKey(identifier)); err != nil {
		return err
	}

	if l.config.EnableIPThrottle && ip != "" {
		if err := l.checkCounter(ctx, loginIPKey(ip)); err != nil {
			return err
		}
	}

	return nil
}

// RecordFailure counts one failed login against every enabled counter. It
// returns ErrRateLimited when this failure exhausted a budget.
func (l *Limiter) RecordFailure(ctx context.Context, identifier, ip string) error {
	keys := []string{loginUserKey(identifier)}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, loginIPKey(ip))
	}

	limited := false
	for _, key := range keys {
		count, err := l.increment(ctx, key)
		if err != nil {
			return err
		}
		if count >= int64(l.config.MaxAttempts) {
			limited = true
		}
	}
	if limited {
		return ErrRateLimited
	}
	return nil
}

// Reset clears the identifier counter after a successful login. The IP
// counter is left alone so one valid account cannot launder a sprayed IP.
func (l *Limiter) Reset(ctx context.Context, identifier string) error {
	if err := l.store.Delete(ctx, loginUserKey(identifier)); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Attempts returns the failure count of identifier in the current window.
// Missing keys return zero.
func (l *Limiter) Attempts(ctx context.Context, identifier string) (int, error) {
	return l.read(ctx, loginUserKey(identifier))
}

func (l *Limiter) checkCounter(ctx context.Context, key string) error {
	count, err := l.read(ctx, key)
	if err != nil {
		return err
	}
	if count >= l.config.MaxAttempts {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) read(ctx context.Context, key string) (int, error) {
	raw, err := l.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	count, err := strconv.Atoi(raw)
	if err != nil || count < 0 {
		return 0, nil
	}
	return count, nil
}

func (l *Limiter) increment(ctx context.Context, key string) (int64, error) {
	count, err := l.store.Incr(ctx, key, l.config.Cooldown)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return count, nil
}

func loginUserKey(identifier string) string {
	return cache.AttemptKey("login", "id", identifier)
}

func loginIPKey(ip string) string {
	return cache.AttemptKey("login", "ip", ip)
}
