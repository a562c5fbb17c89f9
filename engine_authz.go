package authcore

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/authcore/internal/flows"
	"github.com/MrEthical07/authcore/permission"
	"go.uber.org/zap"
)

// Authenticate verifies an access token and checks it against the live user
// record. Unknown users are ErrUnauthenticated, banned users ErrBanned, and a
// token minted before the last auth-version bump ErrTokenStale.
func (e *Engine) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricAuthenticateLatency, time.Since(start)) }()
	}

	claims, err := e.VerifyAccess(token)
	if err != nil {
		e.metricInc(MetricAuthenticateFailure)
		return nil, err
	}

	u, err := e.users.GetUserByID(ctx, claims.Subject)
	if err != nil {
		e.metricInc(MetricAuthenticateFailure)
		if isNotFound(err) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	state := &flows.UserState{ID: u.ID, AuthVersion: u.AuthVersion, Banned: u.Banned}
	switch flows.CheckUser(claims.AuthVersion, state) {
	case flows.AccessFailureBanned:
		e.metricInc(MetricAuthenticateFailure)
		return nil, ErrBanned
	case flows.AccessFailureStale:
		e.metricInc(MetricAuthenticateFailure)
		e.metricInc(MetricAuthenticateStale)
		return nil, ErrTokenStale
	}

	e.metricInc(MetricAuthenticateSuccess)
	return &Principal{
		User:   u,
		Claims: claims,
		Origin: Origin(claims.Source),
	}, nil
}

// ResolvePermissions returns the sorted permission set of u, served from the
// cache entry for (u.ID, u.AuthVersion) when one exists. Cache trouble is
// logged and absorbed; the store-derived set is authoritative.
func (e *Engine) ResolvePermissions(ctx context.Context, u *User) ([]string, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if u == nil {
		return nil, ErrUnauthenticated
	}

	deps := e.flows.Permissions
	deps.Compute = func() []string { return e.computePermissions(u) }

	res := flows.RunResolvePermissions(ctx, u.ID, u.AuthVersion, deps)
	switch res.Source {
	case flows.PermissionFromCache:
		e.metricInc(MetricPermissionCacheHit)
	case flows.PermissionRecomputed:
		e.metricInc(MetricPermissionCacheCorrupt)
		e.metricInc(MetricPermissionCacheMiss)
		e.logger.Warn("corrupt permission cache entry dropped", zap.String("user_id", u.ID))
	default:
		e.metricInc(MetricPermissionCacheMiss)
	}
	if res.ReadErr != nil {
		e.logger.Warn("permission cache read failed", zap.String("user_id", u.ID), zap.Error(res.ReadErr))
	}
	if res.WriteErr != nil {
		e.logger.Warn("permission cache write failed", zap.String("user_id", u.ID), zap.Error(res.WriteErr))
	}

	return res.Permissions, nil
}

// RequireRoles fails with ErrForbidden unless u holds every role.
func (e *Engine) RequireRoles(u *User, roles ...string) error {
	if u == nil {
		return ErrUnauthenticated
	}
	if missing := permission.Missing(e.effectiveRoles(u), roles); len(missing) > 0 {
		e.metricInc(MetricRoleDenied)
		return ErrForbidden
	}
	return nil
}

// RequirePermissions fails with ErrForbidden unless the resolved permission
// set of u contains every permission.
func (e *Engine) RequirePermissions(ctx context.Context, u *User, perms ...string) error {
	have, err := e.ResolvePermissions(ctx, u)
	if err != nil {
		return err
	}
	if missing := permission.Missing(have, perms); len(missing) > 0 {
		e.metricInc(MetricPermissionDenied)
		return ErrForbidden
	}
	return nil
}

// EffectiveRoles returns the roles checks are evaluated against: the direct
// assignments, plus implied roles when ExpandImpliedRoles is on.
func (e *Engine) EffectiveRoles(u *User) []string {
	if u == nil {
		return nil
	}
	return e.effectiveRoles(u)
}

func (e *Engine) effectiveRoles(u *User) []string {
	direct := u.RoleSlugs()
	if !e.config.Permission.ExpandImpliedRoles {
		return direct
	}
	return e.catalog.Implications.Expand(direct)
}

func (e *Engine) computePermissions(u *User) []string {
	perms := u.PermissionSlugs()
	if !e.config.Permission.ExpandImpliedRoles {
		return perms
	}

	lists := [][]string{perms}
	for _, role := range e.catalog.Implications.Expand(u.RoleSlugs()) {
		if rolePerms, ok := e.catalog.Roles.Permissions(role); ok {
			lists = append(lists, rolePerms)
		}
	}
	return permission.Union(lists...)
}
