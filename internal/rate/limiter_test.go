package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/cache"
)

func newLimiterTest(ipThrottle bool) (*Limiter, *cache.MemoryStore, *time.Time) {
	store := cache.NewMemoryStore()
	now := time.Unix(1_700_000_000, 0)
	store.SetClock(func() time.Time { return now })
	return New(store, Config{
		EnableIPThrottle: ipThrottle,
		MaxAttempts:      3,
		Cooldown:         time.Minute,
	}), store, &now
}

func TestLoginBudgetExhaustsAndRecovers(t *testing.T) {
	l, _, now := newLimiterTest(false)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.RecordFailure(ctx, "a@b.c", ""); err != nil {
			t.Fatalf("failure %d: %v", i+1, err)
		}
		if err := l.CheckLogin(ctx, "a@b.c", ""); err != nil {
			t.Fatalf("check after %d failures: %v", i+1, err)
		}
	}
	if err := l.RecordFailure(ctx, "a@b.c", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected third failure to exhaust budget, got %v", err)
	}
	if err := l.CheckLogin(ctx, "a@b.c", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected check to deny, got %v", err)
	}
	if err := l.CheckLogin(ctx, "other@b.c", ""); err != nil {
		t.Fatalf("other identifiers are unaffected: %v", err)
	}

	*now = now.Add(time.Minute)
	if err := l.CheckLogin(ctx, "a@b.c", ""); err != nil {
		t.Fatalf("expected window to expire: %v", err)
	}
}

func TestResetClearsIdentifierOnly(t *testing.T) {
	l, _, _ := newLimiterTest(true)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = l.RecordFailure(ctx, "a@b.c", "10.0.0.1")
	}
	if err := l.Reset(ctx, "a@b.c"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if n, _ := l.Attempts(ctx, "a@b.c"); n != 0 {
		t.Fatalf("expected cleared counter, got %d", n)
	}
	if err := l.CheckLogin(ctx, "fresh@b.c", "10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected IP to stay throttled, got %v", err)
	}
}
