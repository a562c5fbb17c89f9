package authcore

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrEthical07/authcore/internal/flows"
	"github.com/MrEthical07/authcore/permission"
	"go.uber.org/zap"
)

// SetBan sets the banned flag of userID. The store bumps the auth version in
// the same transaction, so every outstanding access token stops working.
// Banning also voids the user's refresh sessions; lifting a ban does not
// bring them back.
func (e *Engine) SetBan(ctx context.Context, userID string, banned bool) (*User, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	u, err := e.users.SetBanned(ctx, userID, banned)
	if err != nil {
		return nil, storeError("set banned", err)
	}

	if banned {
		if err := e.revokeSessions(ctx, u.ID); err != nil {
			return nil, err
		}
		e.metricInc(MetricUserBanned)
	} else {
		e.metricInc(MetricUserUnbanned)
	}
	e.logger.Info("ban updated", zap.String("user_id", u.ID), zap.Bool("banned", banned), zap.Uint32("auth_version", u.AuthVersion))

	e.invalidatePermissions(ctx, u)
	return u, nil
}

// AssignRoles replaces the role set of userID. Duplicates are dropped. When
// any slug is unknown a *RoleNotFoundError naming exactly the unknown slugs
// is returned and nothing changes.
func (e *Engine) AssignRoles(ctx context.Context, userID string, slugs []string) (*User, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	wanted := permission.Dedupe(slugs)
	found, err := e.users.FindRoles(ctx, wanted)
	if err != nil {
		return nil, fmt.Errorf("find roles: %w", err)
	}
	have := make([]string, 0, len(found))
	for _, r := range found {
		have = append(have, r.Slug)
	}
	if missing := permission.Missing(have, wanted); len(missing) > 0 {
		return nil, &RoleNotFoundError{Missing: missing}
	}

	u, err := e.users.ReplaceRoles(ctx, userID, wanted)
	if err != nil {
		return nil, storeError("replace roles", err)
	}

	e.metricInc(MetricRolesAssigned)
	e.logger.Info("roles assigned", zap.String("user_id", u.ID), zap.Strings("roles", wanted), zap.Uint32("auth_version", u.AuthVersion))

	e.invalidatePermissions(ctx, u)
	return u, nil
}

// LogoutAll bumps the auth version of userID, invalidating every access token
// minted before the call, and voids every refresh session issued before it.
func (e *Engine) LogoutAll(ctx context.Context, userID string) (*User, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	u, err := e.users.BumpAuthVersion(ctx, userID)
	if err != nil {
		return nil, storeError("bump auth version", err)
	}
	if err := e.revokeSessions(ctx, u.ID); err != nil {
		return nil, err
	}

	e.metricInc(MetricLogoutAll)
	e.invalidatePermissions(ctx, u)
	return u, nil
}

// GetUser loads a user by id.
func (e *Engine) GetUser(ctx context.Context, userID string) (*User, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	u, err := e.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, storeError("get user", err)
	}
	return u, nil
}

const maxSearchLength = 128

// ListUsers pages through accounts. Limit is clamped to [1, 100], default 20.
// Search is trimmed and lowercased before it reaches the store.
func (e *Engine) ListUsers(ctx context.Context, q ListUsersQuery) (UserPage, error) {
	if !e.ready() {
		return UserPage{}, ErrEngineNotReady
	}

	q.Search = strings.ToLower(strings.TrimSpace(q.Search))
	if len(q.Search) > maxSearchLength {
		return UserPage{}, &ValidationError{Field: "search", Reason: "too long"}
	}

	switch {
	case q.Limit <= 0:
		q.Limit = 20
	case q.Limit > 100:
		q.Limit = 100
	}
	return e.users.ListUsers(ctx, q)
}

// invalidatePermissions drops the permission entry of the version u had
// before its last bump. Version keying already hides that entry; failures
// are only logged.
func (e *Engine) invalidatePermissions(ctx context.Context, u *User) {
	if !e.config.Permission.ActiveInvalidation || u.AuthVersion <= 1 {
		return
	}
	key := e.flows.Permissions.Key(u.ID, u.AuthVersion-1)
	if err := e.cache.Delete(ctx, key); err != nil {
		e.metricInc(MetricCacheInvalidationFailure)
		e.logger.Warn("permission cache invalidation failed", zap.String("user_id", u.ID), zap.Error(err))
	}
}

func (e *Engine) revokeSessions(ctx context.Context, userID string) error {
	if err := flows.RevokeSessions(ctx, e.cache, userID, e.now(), e.jwtManager.RefreshTTL()); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	return nil
}

func storeError(op string, err error) error {
	if isNotFound(err) {
		return ErrUserNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
