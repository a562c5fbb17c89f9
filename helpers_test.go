package authcore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/cache"
	"github.com/MrEthical07/authcore/permission"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var testHMACKey = []byte("0123456789abcdef0123456789abcdef-test-key")

// memUserStore is a UserStore over maps, enough for engine tests.
type memUserStore struct {
	mu    sync.Mutex
	users map[string]*User
	roles map[string]Role
	now   func() time.Time
}

func newMemUserStore(c permission.Catalog) *memUserStore {
	s := &memUserStore{
		users: make(map[string]*User),
		roles: make(map[string]Role),
		now:   time.Now,
	}
	for _, r := range c.Roles {
		s.roles[r.Slug] = Role{
			Slug:        r.Slug,
			Name:        r.Name,
			Description: r.Description,
			Permissions: append([]string(nil), r.Permissions...),
		}
	}
	return s
}

func (s *memUserStore) copyUser(u *User) *User {
	out := *u
	out.Roles = append([]Role(nil), u.Roles...)
	return &out
}

func (s *memUserStore) GetUserByID(_ context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return s.copyUser(u), nil
}

func (s *memUserStore) GetUserByEmail(_ context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return s.copyUser(u), nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *memUserStore) CreateUser(_ context.Context, nu NewUser) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == nu.Email || (nu.Username != "" && u.Username == nu.Username) {
			return nil, ErrAccountExists
		}
	}
	now := s.now()
	u := &User{
		ID:           nu.ID,
		Email:        nu.Email,
		Username:     nu.Username,
		PasswordHash: nu.PasswordHash,
		AuthVersion:  1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for _, slug := range nu.Roles {
		u.Roles = append(u.Roles, s.roles[slug])
	}
	s.users[u.ID] = u
	return s.copyUser(u), nil
}

func (s *memUserStore) FindRoles(_ context.Context, slugs []string) ([]Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Role
	for _, slug := range slugs {
		if r, ok := s.roles[slug]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memUserStore) mutate(id string, fn func(u *User)) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	fn(u)
	u.AuthVersion++
	u.UpdatedAt = s.now()
	return s.copyUser(u), nil
}

func (s *memUserStore) SetBanned(_ context.Context, id string, banned bool) (*User, error) {
	return s.mutate(id, func(u *User) { u.Banned = banned })
}

func (s *memUserStore) ReplaceRoles(_ context.Context, id string, slugs []string) (*User, error) {
	return s.mutate(id, func(u *User) {
		u.Roles = nil
		for _, slug := range slugs {
			u.Roles = append(u.Roles, s.roles[slug])
		}
	})
}

func (s *memUserStore) BumpAuthVersion(_ context.Context, id string) (*User, error) {
	return s.mutate(id, func(*User) {})
}

func (s *memUserStore) SetPasswordHash(_ context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (s *memUserStore) ListUsers(_ context.Context, q ListUsersQuery) (UserPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []User
	for _, u := range s.users {
		if q.Banned != nil && u.Banned != *q.Banned {
			continue
		}
		if q.Search != "" && !strings.Contains(strings.ToLower(u.Email), q.Search) &&
			!strings.Contains(strings.ToLower(u.Username), q.Search) {
			continue
		}
		all = append(all, *s.copyUser(u))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	start := 0
	if q.Cursor != "" {
		start = sort.Search(len(all), func(i int) bool { return strings.Compare(all[i].ID, q.Cursor) > 0 })
	}
	end := start + q.Limit
	if end >= len(all) {
		return UserPage{Users: all[start:]}, nil
	}
	return UserPage{Users: all[start:end], NextCursor: all[end-1].ID}, nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = testHMACKey
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.UpgradeOnLogin = false
	return cfg
}

type testEnv struct {
	engine *Engine
	users  *memUserStore
	store  cache.Store
	mr     *miniredis.Miniredis
}

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	users := newMemUserStore(permission.DefaultCatalog())
	store := cache.NewRedisStore(rdb, "")
	engine, err := New().
		WithConfig(cfg).
		WithCache(store).
		WithUserStore(users).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{engine: engine, users: users, store: store, mr: mr}
}

func (env *testEnv) register(t *testing.T, email string, origin Origin) TokenSet {
	t.Helper()
	ts, err := env.engine.Register(context.Background(), RegisterRequest{
		Email:    email,
		Password: "correct-horse-battery",
	}, origin)
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return ts
}

func (env *testEnv) userID(t *testing.T, ts TokenSet) string {
	t.Helper()
	claims, err := env.engine.VerifyAccess(ts.AccessToken)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	return claims.Subject
}
