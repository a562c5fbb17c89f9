package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/middleware"
	"github.com/MrEthical07/authcore/permission"
	"go.uber.org/zap"
)

// Service is the engine surface the handlers use. *authcore.Engine
// satisfies it.
type Service interface {
	middleware.Authenticator
	middleware.Authorizer

	Register(ctx context.Context, req authcore.RegisterRequest, origin authcore.Origin) (authcore.TokenSet, error)
	Login(ctx context.Context, req authcore.LoginRequest, origin authcore.Origin) (authcore.TokenSet, error)
	Refresh(ctx context.Context, refreshToken, csrf string) (authcore.TokenSet, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, userID string) (*authcore.User, error)
	ResolvePermissions(ctx context.Context, u *authcore.User) ([]string, error)

	GetUser(ctx context.Context, userID string) (*authcore.User, error)
	ListUsers(ctx context.Context, q authcore.ListUsersQuery) (authcore.UserPage, error)
	SetBan(ctx context.Context, userID string, banned bool) (*authcore.User, error)
	AssignRoles(ctx context.Context, userID string, slugs []string) (*authcore.User, error)
}

var _ Service = (*authcore.Engine)(nil)

// API serves the auth and admin routes.
type API struct {
	svc        Service
	mux        *http.ServeMux
	logger     *zap.Logger
	cookies    CookieOptions
	limiter    *ipLimiter
	trustProxy bool
	now        func() time.Time
}

// Option configures an API.
type Option func(*API)

// WithLogger sets the request and error logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *API) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithCookieOptions sets the attributes of the session cookies.
func WithCookieOptions(o CookieOptions) Option {
	return func(a *API) { a.cookies = o }
}

// WithAuthRateLimit throttles /v1/auth/* per client IP. A non-positive
// rate disables the limiter.
func WithAuthRateLimit(perSecond float64, burst int) Option {
	return func(a *API) {
		if perSecond <= 0 || burst <= 0 {
			a.limiter = nil
			return
		}
		a.limiter = newIPLimiter(perSecond, burst, a.now)
	}
}

// WithTrustedProxy makes the first X-Forwarded-For entry the client IP.
func WithTrustedProxy(trust bool) Option {
	return func(a *API) { a.trustProxy = trust }
}

// New builds the API and registers its routes.
func New(svc Service, opts ...Option) *API {
	a := &API{
		svc:     svc,
		mux:     http.NewServeMux(),
		logger:  zap.NewNop(),
		cookies: DefaultCookieOptions(7 * 24 * time.Hour),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.routes()
	return a
}

// Handler returns the root handler with request logging applied.
func (a *API) Handler() http.Handler {
	return a.logRequests(a.mux)
}

// Mount registers an extra handler on the API's mux, e.g. /metrics.
func (a *API) Mount(pattern string, h http.Handler) {
	a.mux.Handle(pattern, h)
}

func (a *API) routes() {
	onError := middleware.WithErrorHandler(a.writeServiceError)
	guard := middleware.Guard(a.svc, onError)
	roles := func(slugs ...string) func(http.Handler) http.Handler {
		return middleware.RequireRoles(a.svc, slugs, onError)
	}
	perms := func(slugs ...string) func(http.Handler) http.Handler {
		return middleware.RequirePermissions(a.svc, slugs, onError)
	}

	a.mux.Handle("POST /v1/auth/register", a.rateLimit(http.HandlerFunc(a.handleRegister)))
	a.mux.Handle("POST /v1/auth/login", a.rateLimit(http.HandlerFunc(a.handleLogin)))
	a.mux.Handle("POST /v1/auth/refresh", a.rateLimit(http.HandlerFunc(a.handleRefresh)))
	a.mux.Handle("POST /v1/auth/logout", a.rateLimit(http.HandlerFunc(a.handleLogout)))
	a.mux.Handle("POST /v1/auth/logout-all", a.rateLimit(guard(http.HandlerFunc(a.handleLogoutAll))))

	a.mux.Handle("GET /v1/users/me", guard(http.HandlerFunc(a.handleMe)))

	a.mux.Handle("GET /v1/admin/users",
		guard(perms(permission.PermUsersRead)(http.HandlerFunc(a.handleListUsers))))
	a.mux.Handle("GET /v1/admin/users/{id}",
		guard(perms(permission.PermUsersRead)(http.HandlerFunc(a.handleGetUser))))
	a.mux.Handle("PUT /v1/admin/users/{id}/ban",
		guard(roles(permission.RoleAdmin)(perms(permission.PermUsersBan)(http.HandlerFunc(a.handleSetBan)))))
	a.mux.Handle("PUT /v1/admin/users/{id}/roles",
		guard(roles(permission.RoleAdmin)(perms(permission.PermUsersManageRoles)(http.HandlerFunc(a.handleAssignRoles)))))
}
