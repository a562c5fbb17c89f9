package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStoreTest(t *testing.T, prefix string) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewRedisStore(rdb, prefix), mr
}

func TestRedisStoreSetGetExpire(t *testing.T) {
	store, mr := newRedisStoreTest(t, "")
	ctx := context.Background()

	if err := store.Set(ctx, RefreshKey("j1"), "u-1", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := store.Get(ctx, RefreshKey("j1"))
	if err != nil || got != "u-1" {
		t.Fatalf("get = %q, %v", got, err)
	}
	if ttl := mr.TTL("refresh:j1"); ttl != time.Minute {
		t.Fatalf("expected 1m ttl, got %v", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := store.Get(ctx, RefreshKey("j1")); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss after expiry, got %v", err)
	}
}

func TestRedisStorePrefix(t *testing.T) {
	store, mr := newRedisStoreTest(t, "svc:")
	ctx := context.Background()

	if err := store.Set(ctx, CSRFKey("j1"), "c", 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("svc:csrf:j1") {
		t.Fatalf("expected prefixed key, have %v", mr.Keys())
	}
}

func TestRedisStoreGetDelSingleWinner(t *testing.T) {
	store, _ := newRedisStoreTest(t, "")
	ctx := context.Background()

	if err := store.Set(ctx, RefreshKey("j1"), "u-1", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.GetDel(ctx, RefreshKey("j1")); err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestRedisStoreDeleteIdempotent(t *testing.T) {
	store, _ := newRedisStoreTest(t, "")
	ctx := context.Background()

	_ = store.Set(ctx, "a", "1", 0)
	if err := store.Delete(ctx, "a", "b"); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := store.Delete(ctx, "a", "b"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if err := store.Delete(ctx); err != nil {
		t.Fatalf("empty delete: %v", err)
	}
}

func TestRedisStoreIncrFixedWindow(t *testing.T) {
	store, mr := newRedisStoreTest(t, "")
	ctx := context.Background()
	key := AttemptKey("login", "user", "a@b.c")

	for i := int64(1); i <= 3; i++ {
		n, err := store.Incr(ctx, key, time.Minute)
		if err != nil {
			t.Fatalf("incr: %v", err)
		}
		if n != i {
			t.Fatalf("expected %d, got %d", i, n)
		}
	}
	if ttl := mr.TTL(key); ttl != time.Minute {
		t.Fatalf("window must not slide, ttl=%v", ttl)
	}

	mr.FastForward(time.Minute + time.Second)
	n, err := store.Incr(ctx, key, time.Minute)
	if err != nil || n != 1 {
		t.Fatalf("expected fresh window, got %d, %v", n, err)
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	store, mr := newRedisStoreTest(t, "")
	mr.Close()

	_, err := store.Get(context.Background(), "k")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
