package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/MrEthical07/authcore"
)

// Authenticator turns a bearer access token into a principal.
// *authcore.Engine satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*authcore.Principal, error)
}

// ErrorHandler writes the response for a rejected request.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Option configures a guard.
type Option func(*options)

type options struct {
	onError ErrorHandler
}

// WithErrorHandler replaces the plain-text rejection responses.
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *options) {
		if h != nil {
			o.onError = h
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{onError: DefaultErrorHandler}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type principalContextKey struct{}

// PrincipalFromContext returns the principal stored by [Guard].
func PrincipalFromContext(ctx context.Context) (*authcore.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*authcore.Principal)
	return p, ok && p != nil
}

// WithPrincipal stores p in ctx. Guard does this; tests and custom
// authenticators may too.
func WithPrincipal(ctx context.Context, p *authcore.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// Guard authenticates the bearer access token of every request and injects
// the resulting principal into the request context.
func Guard(auth Authenticator, opts ...Option) func(http.Handler) http.Handler {
	o := buildOptions(opts)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil {
				o.onError(w, r, authcore.ErrUnauthenticated)
				return
			}

			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				o.onError(w, r, authcore.ErrUnauthenticated)
				return
			}

			p, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				o.onError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// BearerToken extracts the token of an "Authorization: Bearer" header value.
func BearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

// DefaultErrorHandler answers 401 "not authorized", 403 "account banned" or
// "no permission", and 500 for anything else.
func DefaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	switch {
	case errors.Is(err, authcore.ErrBanned):
		http.Error(w, "account banned", http.StatusForbidden)
	case errors.Is(err, authcore.ErrForbidden):
		http.Error(w, "no permission", http.StatusForbidden)
	case errors.Is(err, authcore.ErrUnauthenticated):
		http.Error(w, "not authorized", http.StatusUnauthorized)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
