package authcore

import (
	"time"

	"github.com/MrEthical07/authcore/cache"
	"github.com/MrEthical07/authcore/internal/flows"
	"github.com/MrEthical07/authcore/internal/rate"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/permission"
	"go.uber.org/zap"
)

// Engine is the authentication and authorization core. It is created by
// [Builder.Build] and is safe for concurrent use; it holds no mutable state
// besides its metric counters.
type Engine struct {
	config       Config
	catalog      *permission.Compiled
	users        UserStore
	cache        cache.Store
	jwtManager   *jwt.Manager
	passwordHash *password.Argon2
	policy       password.Policy
	rateLimiter  *rate.Limiter
	metrics      *Metrics
	logger       *zap.Logger
	now          func() time.Time
	flows        flows.Deps
}

// Close releases engine resources. The cache and user store are owned by
// the caller and are left open.
func (e *Engine) Close() {
	if e == nil || e.logger == nil {
		return
	}
	_ = e.logger.Sync()
}

// MetricsSnapshot returns a copy of all counters and histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the configuration the engine was built with.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// DefaultRole is the role assigned at registration.
func (e *Engine) DefaultRole() string {
	return e.catalog.DefaultRole
}

// KnownRole reports whether slug is defined in the catalog.
func (e *Engine) KnownRole(slug string) bool {
	return e.catalog.Roles.Has(slug)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.jwtManager != nil && e.users != nil && e.cache != nil
}
