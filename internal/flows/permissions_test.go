package flows

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/cache"
)

func permissionDeps(store cache.Store, calls *int, perms ...string) PermissionDeps {
	return PermissionDeps{
		Cache: store,
		TTL:   900 * time.Second,
		Compute: func() []string {
			*calls++
			return perms
		},
	}
}

func TestResolvePermissionsCacheAside(t *testing.T) {
	store := cache.NewMemoryStore()
	ctx := context.Background()
	calls := 0
	deps := permissionDeps(store, &calls, "users.read", "users.ban", "users.read")

	first := RunResolvePermissions(ctx, "u-1", 1, deps)
	if first.Source != PermissionComputed || calls != 1 {
		t.Fatalf("expected computed on miss, got %v calls=%d", first.Source, calls)
	}
	want := []string{"users.ban", "users.read"}
	if !reflect.DeepEqual(first.Permissions, want) {
		t.Fatalf("permissions = %v", first.Permissions)
	}
	raw, err := store.Get(ctx, cache.PermissionKey("u-1", 1))
	if err != nil || raw != `["users.ban","users.read"]` {
		t.Fatalf("cached value = %q, %v", raw, err)
	}

	second := RunResolvePermissions(ctx, "u-1", 1, deps)
	if second.Source != PermissionFromCache || calls != 1 {
		t.Fatalf("expected cache hit, got %v calls=%d", second.Source, calls)
	}
	if !reflect.DeepEqual(second.Permissions, want) {
		t.Fatalf("cached permissions = %v", second.Permissions)
	}

	third := RunResolvePermissions(ctx, "u-1", 2, deps)
	if third.Source != PermissionComputed || calls != 2 {
		t.Fatalf("new version must miss, got %v calls=%d", third.Source, calls)
	}
}

func TestResolvePermissionsCachesEmptySet(t *testing.T) {
	store := cache.NewMemoryStore()
	ctx := context.Background()
	calls := 0
	deps := permissionDeps(store, &calls)

	res := RunResolvePermissions(ctx, "u-1", 1, deps)
	if res.Permissions == nil || len(res.Permissions) != 0 {
		t.Fatalf("expected empty non-nil set, got %#v", res.Permissions)
	}
	raw, _ := store.Get(ctx, cache.PermissionKey("u-1", 1))
	if raw != "[]" {
		t.Fatalf("expected [] cached, got %q", raw)
	}

	res = RunResolvePermissions(ctx, "u-1", 1, deps)
	if res.Source != PermissionFromCache || calls != 1 {
		t.Fatalf("empty set must be served from cache, got %v calls=%d", res.Source, calls)
	}
}

func TestResolvePermissionsRecoversFromCorruptEntry(t *testing.T) {
	store := cache.NewMemoryStore()
	ctx := context.Background()
	calls := 0
	deps := permissionDeps(store, &calls, "users.read")

	for _, corrupt := range []string{"not-json", `{"a":1}`, `[""]`, "null", `[1,2]`} {
		_ = store.Set(ctx, cache.PermissionKey("u-1", 1), corrupt, time.Minute)
		res := RunResolvePermissions(ctx, "u-1", 1, deps)
		if res.Source != PermissionRecomputed {
			t.Fatalf("%q: expected recompute, got %v", corrupt, res.Source)
		}
		if !reflect.DeepEqual(res.Permissions, []string{"users.read"}) {
			t.Fatalf("%q: permissions = %v", corrupt, res.Permissions)
		}
		raw, _ := store.Get(ctx, cache.PermissionKey("u-1", 1))
		if raw != `["users.read"]` {
			t.Fatalf("%q: expected repaired entry, got %q", corrupt, raw)
		}
	}
}
