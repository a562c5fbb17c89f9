package middleware

import (
	"context"
	"net/http"

	"github.com/MrEthical07/authcore"
)

// Authorizer evaluates role and permission gates. *authcore.Engine satisfies it.
type Authorizer interface {
	RequireRoles(u *authcore.User, roles ...string) error
	RequirePermissions(ctx context.Context, u *authcore.User, perms ...string) error
}

// RequireRoles rejects requests whose principal lacks any of roles. It must
// run after [Guard].
func RequireRoles(authz Authorizer, roles []string, opts ...Option) func(http.Handler) http.Handler {
	return gate(opts, func(r *http.Request, p *authcore.Principal) error {
		return authz.RequireRoles(p.User, roles...)
	})
}

// RequirePermissions rejects requests whose principal's resolved permission
// set lacks any of perms. It must run after [Guard].
func RequirePermissions(authz Authorizer, perms []string, opts ...Option) func(http.Handler) http.Handler {
	return gate(opts, func(r *http.Request, p *authcore.Principal) error {
		return authz.RequirePermissions(r.Context(), p.User, perms...)
	})
}

func gate(opts []Option, check func(*http.Request, *authcore.Principal) error) func(http.Handler) http.Handler {
	o := buildOptions(opts)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				o.onError(w, r, authcore.ErrUnauthenticated)
				return
			}
			if err := check(r, p); err != nil {
				o.onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
