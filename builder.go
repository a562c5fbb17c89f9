package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authcore/cache"
	"github.com/MrEthical07/authcore/internal"
	"github.com/MrEthical07/authcore/internal/flows"
	"github.com/MrEthical07/authcore/internal/rate"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/permission"
	"go.uber.org/zap"
)

// Builder assembles an [Engine]. A Builder is single use: configure it during
// start-up, call Build once, and discard it.
type Builder struct {
	config  Config
	cache   cache.Store
	users   UserStore
	catalog *permission.Catalog
	logger  *zap.Logger
	now     func() time.Time

	built bool
}

// New returns a Builder preloaded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithCache sets the shared cache holding sessions, CSRF bindings,
// permission sets and login counters. Required.
func (b *Builder) WithCache(store cache.Store) *Builder {
	b.cache = store
	return b
}

// WithUserStore sets the account store. Required.
func (b *Builder) WithUserStore(users UserStore) *Builder {
	b.users = users
	return b
}

// WithCatalog sets the role and permission catalog. Defaults to
// permission.DefaultCatalog.
func (b *Builder) WithCatalog(c permission.Catalog) *Builder {
	b.catalog = &c
	return b
}

// WithLogger sets the engine logger. Defaults to a no-op logger.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the token clock. Tests only.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, compiles the catalog, parses key
// material and wires the flows. It fails on the second call.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.cache == nil {
		return nil, errors.New("cache store required")
	}
	if b.users == nil {
		return nil, errors.New("user store required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// -------- CATALOG --------
	catalog := permission.DefaultCatalog()
	if b.catalog != nil {
		catalog = *b.catalog
	}
	compiled, err := catalog.Compile()
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:  cloneConfig(cfg),
		catalog: compiled,
		users:   b.users,
		cache:   b.cache,
		metrics: NewMetrics(cfg.Metrics),
		logger:  b.logger,
	}
	if engine.logger == nil {
		engine.logger = zap.NewNop()
	}
	engine.now = b.now
	if engine.now == nil {
		engine.now = time.Now
	}

	// -------- PASSWORDS --------
	ph, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	engine.passwordHash = ph
	engine.policy = password.Policy{
		MinLength: cfg.Password.MinLength,
		MaxBytes:  cfg.Password.MaxBytes,
	}

	// -------- TOKENS --------
	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		KeyID:         cfg.JWT.KeyID,
		Leeway:        cfg.JWT.Leeway,
		Now:           b.now,
	})
	if err != nil {
		return nil, err
	}
	engine.jwtManager = jm

	// -------- LOGIN THROTTLE --------
	if cfg.Login.MaxAttempts > 0 {
		engine.rateLimiter = rate.New(b.cache, rate.Config{
			EnableIPThrottle: cfg.Login.EnableIPThrottle,
			MaxAttempts:      cfg.Login.MaxAttempts,
			Cooldown:         cfg.Login.Cooldown,
		})
	}

	engine.flows = engine.buildFlowDeps()

	b.built = true

	return engine, nil
}

func (e *Engine) buildFlowDeps() flows.Deps {
	issue := flows.IssueDeps{
		NewJTI:      internal.NewJTI,
		NewCSRF:     internal.NewCSRFToken,
		SignAccess:  e.jwtManager.CreateAccess,
		SignRefresh: e.jwtManager.CreateRefresh,
		RefreshTTL:  e.jwtManager.RefreshTTL(),
		Cache:       e.cache,
		Now:         e.now,
	}

	login := flows.LoginDeps{
		RateLimited:      rate.ErrRateLimited,
		LookupCredential: e.lookupCredential,
		Verify:           e.passwordHash.Verify,
		VerifyDummy:      e.passwordHash.VerifyDummy,
	}
	// A nil *rate.Limiter must not become a non-nil interface.
	if e.rateLimiter != nil {
		login.Limiter = e.rateLimiter
	}
	if e.config.Password.UpgradeOnLogin {
		login.NeedsRehash = func(hash string) bool {
			needs, err := e.passwordHash.NeedsRehash(hash)
			return err == nil && needs
		}
		login.Rehash = e.rehashPassword
	}

	return flows.Deps{
		Issue: issue,
		Refresh: flows.RefreshDeps{
			ParseRefresh: e.jwtManager.ParseRefresh,
			LoadUser:     e.loadUserState,
			Cache:        e.cache,
			Issue:        issue,
		},
		Revoke: flows.RevokeDeps{
			ParseRefresh: e.jwtManager.ParseRefresh,
			Cache:        e.cache,
		},
		Login: login,
		Permissions: flows.PermissionDeps{
			Cache:    e.cache,
			TTL:      e.config.Permission.CacheTTL,
			Expanded: e.config.Permission.ExpandImpliedRoles,
		},
	}
}

func (e *Engine) loadUserState(ctx context.Context, id string) (*flows.UserState, error) {
	u, err := e.users.GetUserByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &flows.UserState{ID: u.ID, AuthVersion: u.AuthVersion, Banned: u.Banned}, nil
}

func (e *Engine) lookupCredential(ctx context.Context, email string) (*flows.Credential, error) {
	u, err := e.users.GetUserByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &flows.Credential{
		UserID:       u.ID,
		PasswordHash: u.PasswordHash,
		AuthVersion:  u.AuthVersion,
		Banned:       u.Banned,
	}, nil
}

func (e *Engine) rehashPassword(ctx context.Context, userID, plain string) error {
	hash, err := e.passwordHash.Hash(plain)
	if err != nil {
		return err
	}
	if err := e.users.SetPasswordHash(ctx, userID, hash); err != nil {
		e.logger.Warn("password rehash failed", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}
