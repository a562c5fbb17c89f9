package flows

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/MrEthical07/authcore/cache"
)

// PermissionSource tells where a resolved permission set came from.
type PermissionSource int

const (
	PermissionFromCache PermissionSource = iota
	PermissionComputed
	// PermissionRecomputed means a corrupt cache entry was dropped first.
	PermissionRecomputed
)

// PermissionResult carries the resolved set. ReadErr and WriteErr report cache
// trouble that was absorbed; the set is still authoritative.
type PermissionResult struct {
	Permissions []string
	Source      PermissionSource
	ReadErr     error
	WriteErr    error
}

// PermissionDeps captures permission resolution dependencies.
type PermissionDeps struct {
	Cache cache.Store
	TTL   time.Duration
	// Expanded marks sets computed with implied roles; they live under their
	// own key.
	Expanded bool
	// Compute derives the set from the user's role assignments.
	Compute func() []string
}

// Key is the cache key of userID's set at version under this resolution mode.
func (d PermissionDeps) Key(userID string, version uint32) string {
	if d.Expanded {
		return cache.ExpandedPermissionKey(userID, version)
	}
	return cache.PermissionKey(userID, version)
}

// RunResolvePermissions is cache-aside over the version-keyed permission key.
// The stored value is a pure function of (user, version, mode), so concurrent
// misses writing the same key are harmless. An empty set is cached too.
func RunResolvePermissions(ctx context.Context, userID string, version uint32, deps PermissionDeps) PermissionResult {
	key := deps.Key(userID, version)
	var res PermissionResult

	raw, err := deps.Cache.Get(ctx, key)
	switch {
	case err == nil:
		if perms, ok := DecodePermissionSet(raw); ok {
			return PermissionResult{Permissions: perms, Source: PermissionFromCache}
		}
		_ = deps.Cache.Delete(ctx, key)
		res.Source = PermissionRecomputed
	case errors.Is(err, cache.ErrMiss):
		res.Source = PermissionComputed
	default:
		res.Source = PermissionComputed
		res.ReadErr = err
	}

	res.Permissions = normalize(deps.Compute())
	encoded, err := json.Marshal(res.Permissions)
	if err == nil {
		err = deps.Cache.Set(ctx, key, string(encoded), deps.TTL)
	}
	res.WriteErr = err
	return res
}

// DecodePermissionSet parses a cached value. Anything other than a JSON array
// of non-empty strings is corrupt.
func DecodePermissionSet(raw string) ([]string, bool) {
	var perms []string
	if err := json.Unmarshal([]byte(raw), &perms); err != nil || perms == nil {
		return nil, false
	}
	for _, p := range perms {
		if p == "" {
			return nil, false
		}
	}
	return normalize(perms), true
}

func normalize(perms []string) []string {
	out := make([]string, 0, len(perms))
	seen := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
