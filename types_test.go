package authcore

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseOrigin(t *testing.T) {
	for in, want := range map[string]Origin{"": OriginWeb, "web": OriginWeb, " Mobile ": OriginMobile} {
		got, err := ParseOrigin(in)
		if err != nil || got != want {
			t.Fatalf("ParseOrigin(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseOrigin("desktop"); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
}

func TestUserDerivedAccessors(t *testing.T) {
	u := &User{Roles: []Role{
		{Slug: "admin", Permissions: []string{"users.read", "users.ban"}},
		{Slug: "auditor", Permissions: []string{"users.read", "audit.read"}},
	}}

	if got := u.PermissionSlugs(); !reflect.DeepEqual(got, []string{"users.read", "users.ban", "audit.read"}) {
		t.Fatalf("permissions = %v", got)
	}
	if !u.HasRoles("admin", "auditor") || u.HasRoles("member") {
		t.Fatalf("unexpected role check")
	}
	if !u.HasPermissions("audit.read") || u.HasPermissions("users.manage_roles") {
		t.Fatalf("unexpected permission check")
	}
}

func TestErrorKinds(t *testing.T) {
	cases := map[error]error{
		ErrTokenInvalid:       ErrUnauthenticated,
		ErrTokenStale:         ErrUnauthenticated,
		ErrRefreshDenied:      ErrUnauthenticated,
		ErrInvalidCredentials: ErrUnauthenticated,
		ErrBanned:             ErrForbidden,
		ErrAccountExists:      ErrConflict,
		ErrUserNotFound:       ErrNotFound,
	}
	for err, kind := range cases {
		if !errors.Is(err, kind) {
			t.Fatalf("%v must match %v", err, kind)
		}
	}

	rnf := &RoleNotFoundError{Missing: []string{"a", "b"}}
	if rnf.Error() != "unknown roles: a, b" || !errors.Is(rnf, ErrNotFound) {
		t.Fatalf("unexpected role error %q", rnf)
	}
}
