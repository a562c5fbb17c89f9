package authcore

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/MrEthical07/authcore/cache"
	"github.com/MrEthical07/authcore/permission"
)

func TestMemberPromotedToAdmin(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	ts := env.register(t, "alice@example.com", OriginMobile)

	p, err := env.engine.Authenticate(ctx, ts.AccessToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if p.User.AuthVersion != 1 {
		t.Fatalf("expected version 1, got %d", p.User.AuthVersion)
	}
	if _, err := env.engine.ResolvePermissions(ctx, p.User); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	u, err := env.engine.AssignRoles(ctx, p.User.ID, []string{permission.RoleAdmin})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if u.AuthVersion != 2 || !u.HasRoles(permission.RoleAdmin) || u.HasRoles(permission.RoleMember) {
		t.Fatalf("unexpected user after assignment %+v", u)
	}
	if env.mr.Exists(cache.PermissionKey(u.ID, 1)) {
		t.Fatalf("previous version's permission entry must be dropped")
	}

	if _, err := env.engine.Authenticate(ctx, ts.AccessToken); !errors.Is(err, ErrTokenStale) {
		t.Fatalf("old token must be stale, got %v", err)
	}

	// The existing session refreshes into the new version.
	fresh, err := env.engine.Refresh(ctx, ts.RefreshToken, "")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	p, err = env.engine.Authenticate(ctx, fresh.AccessToken)
	if err != nil {
		t.Fatalf("authenticate fresh: %v", err)
	}
	if err := env.engine.RequirePermissions(ctx, p.User, permission.PermUsersBan, permission.PermUsersManageRoles); err != nil {
		t.Fatalf("admin permissions: %v", err)
	}
	if err := env.engine.RequireRoles(p.User, permission.RoleAdmin); err != nil {
		t.Fatalf("admin role: %v", err)
	}
}

func TestAssignRolesUnknownLeavesUserUnchanged(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	ts := env.register(t, "alice@example.com", OriginMobile)
	id := env.userID(t, ts)

	_, err := env.engine.AssignRoles(ctx, id, []string{"admin", "nonexistent", "admin"})
	var rnf *RoleNotFoundError
	if !errors.As(err, &rnf) {
		t.Fatalf("expected RoleNotFoundError, got %v", err)
	}
	if !reflect.DeepEqual(rnf.Missing, []string{"nonexistent"}) {
		t.Fatalf("missing = %v", rnf.Missing)
	}
	if !errors.Is(err, ErrNotFound) || err.Error() != "unknown roles: nonexistent" {
		t.Fatalf("unexpected error shape %q", err)
	}

	u, _ := env.engine.GetUser(ctx, id)
	if u.AuthVersion != 1 || !reflect.DeepEqual(u.RoleSlugs(), []string{permission.RoleMember}) {
		t.Fatalf("user must be unchanged, got %+v", u)
	}
}

func TestAssignRolesDeduplicates(t *testing.T) {
	env := newTestEnv(t, nil)
	ts := env.register(t, "alice@example.com", OriginMobile)

	u, err := env.engine.AssignRoles(context.Background(), env.userID(t, ts), []string{"admin", "member", "admin"})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if !reflect.DeepEqual(u.RoleSlugs(), []string{"admin", "member"}) {
		t.Fatalf("roles = %v", u.RoleSlugs())
	}
}

func TestAdminOperationsOnUnknownUser(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	if _, err := env.engine.SetBan(ctx, "ghost", true); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("ban: expected ErrUserNotFound, got %v", err)
	}
	if _, err := env.engine.AssignRoles(ctx, "ghost", []string{"member"}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("assign: expected ErrUserNotFound, got %v", err)
	}
	if _, err := env.engine.LogoutAll(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("logout all: expected not found, got %v", err)
	}
}

func TestUnbanRestoresLoginButNotOldTokens(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	ts := env.register(t, "alice@example.com", OriginMobile)
	id := env.userID(t, ts)

	if _, err := env.engine.SetBan(ctx, id, true); err != nil {
		t.Fatalf("ban: %v", err)
	}
	u, err := env.engine.SetBan(ctx, id, false)
	if err != nil {
		t.Fatalf("unban: %v", err)
	}
	if u.Banned || u.AuthVersion != 3 {
		t.Fatalf("unexpected user %+v", u)
	}
	if _, err := env.engine.Authenticate(ctx, ts.AccessToken); !errors.Is(err, ErrTokenStale) {
		t.Fatalf("pre-ban token must stay dead, got %v", err)
	}
	if _, err := env.engine.Refresh(ctx, ts.RefreshToken, ""); !errors.Is(err, ErrRefreshDenied) {
		t.Fatalf("pre-ban session must stay dead, got %v", err)
	}
	if _, err := env.engine.Login(ctx, LoginRequest{Identifier: "alice@example.com", Password: "correct-horse-battery"}, OriginMobile); err != nil {
		t.Fatalf("login after unban: %v", err)
	}
}

func TestListUsersClampsLimit(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		env.register(t, email, OriginMobile)
	}

	page, err := env.engine.ListUsers(ctx, ListUsersQuery{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Users) != 2 || page.NextCursor == "" {
		t.Fatalf("unexpected first page %+v", page)
	}
	page, err = env.engine.ListUsers(ctx, ListUsersQuery{Cursor: page.NextCursor})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Users) != 1 || page.NextCursor != "" {
		t.Fatalf("unexpected last page %+v", page)
	}
}

func TestListUsersSearch(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	for _, email := range []string{"alice@example.com", "bob@example.com", "alina@corp.test"} {
		env.register(t, email, OriginMobile)
	}

	page, err := env.engine.ListUsers(ctx, ListUsersQuery{Search: "  ALI "})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Users) != 2 {
		t.Fatalf("expected two matches, got %+v", page.Users)
	}
	for _, u := range page.Users {
		if !strings.HasPrefix(u.Email, "ali") {
			t.Fatalf("unexpected match %q", u.Email)
		}
	}

	var verr *ValidationError
	_, err = env.engine.ListUsers(ctx, ListUsersQuery{Search: strings.Repeat("a", maxSearchLength+1)})
	if !errors.As(err, &verr) || verr.Field != "search" {
		t.Fatalf("expected search validation error, got %v", err)
	}
}
