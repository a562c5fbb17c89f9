package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEthical07/authcore"
)

type fakeAuth struct {
	principals map[string]*authcore.Principal
	errs       map[string]error
}

func (f fakeAuth) Authenticate(_ context.Context, token string) (*authcore.Principal, error) {
	if err, ok := f.errs[token]; ok {
		return nil, err
	}
	if p, ok := f.principals[token]; ok {
		return p, nil
	}
	return nil, authcore.ErrTokenInvalid
}

type fakeAuthz struct{}

func (fakeAuthz) RequireRoles(u *authcore.User, roles ...string) error {
	if !u.HasRoles(roles...) {
		return authcore.ErrForbidden
	}
	return nil
}

func (fakeAuthz) RequirePermissions(_ context.Context, u *authcore.User, perms ...string) error {
	if !u.HasPermissions(perms...) {
		return authcore.ErrForbidden
	}
	return nil
}

func newFakeAuth() fakeAuth {
	return fakeAuth{
		principals: map[string]*authcore.Principal{
			"member": {User: &authcore.User{ID: "u-1", Roles: []authcore.Role{{Slug: "member"}}}},
			"admin": {User: &authcore.User{ID: "u-2", Roles: []authcore.Role{
				{Slug: "admin", Permissions: []string{"users.read", "users.ban"}},
			}}},
		},
		errs: map[string]error{
			"banned": authcore.ErrBanned,
			"stale":  authcore.ErrTokenStale,
			"broken": errors.New("store down"),
		},
	}
}

func serve(h http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func okHandler(t *testing.T, wantID string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok || p.User.ID != wantID {
			t.Errorf("principal missing or wrong: %+v", p)
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestGuard(t *testing.T) {
	h := Guard(newFakeAuth())(okHandler(t, "u-1"))

	cases := []struct {
		header string
		code   int
		body   string
	}{
		{"Bearer member", http.StatusNoContent, ""},
		{"bearer member", http.StatusNoContent, ""},
		{"", http.StatusUnauthorized, "not authorized"},
		{"Basic abc", http.StatusUnauthorized, "not authorized"},
		{"Bearer ", http.StatusUnauthorized, "not authorized"},
		{"Bearer nope", http.StatusUnauthorized, "not authorized"},
		{"Bearer stale", http.StatusUnauthorized, "not authorized"},
		{"Bearer banned", http.StatusForbidden, "account banned"},
		{"Bearer broken", http.StatusInternalServerError, "internal error"},
	}
	for _, tc := range cases {
		rec := serve(h, tc.header)
		if rec.Code != tc.code {
			t.Fatalf("%q: code = %d, want %d", tc.header, rec.Code, tc.code)
		}
		if tc.body != "" && strings.TrimSpace(rec.Body.String()) != tc.body {
			t.Fatalf("%q: body = %q", tc.header, rec.Body.String())
		}
	}
}

func TestGuardNilAuthenticator(t *testing.T) {
	rec := serve(Guard(nil)(okHandler(t, "")), "Bearer member")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d", rec.Code)
	}
}

func TestRequireRolesAndPermissions(t *testing.T) {
	auth := newFakeAuth()
	adminOnly := Guard(auth)(RequireRoles(fakeAuthz{}, []string{"admin"})(okHandler(t, "u-2")))
	canBan := Guard(auth)(RequirePermissions(fakeAuthz{}, []string{"users.ban"})(okHandler(t, "u-2")))

	if rec := serve(adminOnly, "Bearer admin"); rec.Code != http.StatusNoContent {
		t.Fatalf("admin: code = %d", rec.Code)
	}
	if rec := serve(adminOnly, "Bearer member"); rec.Code != http.StatusForbidden || strings.TrimSpace(rec.Body.String()) != "no permission" {
		t.Fatalf("member on admin route: %d %q", rec.Code, rec.Body.String())
	}
	if rec := serve(canBan, "Bearer admin"); rec.Code != http.StatusNoContent {
		t.Fatalf("admin ban: code = %d", rec.Code)
	}
	if rec := serve(canBan, "Bearer member"); rec.Code != http.StatusForbidden {
		t.Fatalf("member ban: code = %d", rec.Code)
	}
}

func TestGateWithoutGuard(t *testing.T) {
	h := RequireRoles(fakeAuthz{}, []string{"admin"})(okHandler(t, ""))
	if rec := serve(h, "Bearer admin"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d", rec.Code)
	}
}

func TestCustomErrorHandler(t *testing.T) {
	var got error
	h := Guard(newFakeAuth(), WithErrorHandler(func(w http.ResponseWriter, _ *http.Request, err error) {
		got = err
		w.WriteHeader(http.StatusTeapot)
	}))(okHandler(t, ""))

	if rec := serve(h, "Bearer stale"); rec.Code != http.StatusTeapot || !errors.Is(got, authcore.ErrTokenStale) {
		t.Fatalf("custom handler not used: %d %v", rec.Code, got)
	}
}
