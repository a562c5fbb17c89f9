package authcore

import (
	"context"
	"fmt"

	"github.com/MrEthical07/authcore/internal/flows"
	"github.com/MrEthical07/authcore/jwt"
	"go.uber.org/zap"
)

// Issue mints an access/refresh pair for userID, snapshotting the user's
// current auth version. Banned users cannot be issued tokens.
func (e *Engine) Issue(ctx context.Context, userID string, origin Origin) (TokenSet, error) {
	if !e.ready() {
		return TokenSet{}, ErrEngineNotReady
	}

	u, err := e.users.GetUserByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return TokenSet{}, ErrUserNotFound
		}
		return TokenSet{}, fmt.Errorf("load user: %w", err)
	}
	if u.Banned {
		return TokenSet{}, ErrBanned
	}

	return e.issueFor(ctx, u.ID, u.AuthVersion, origin)
}

func (e *Engine) issueFor(ctx context.Context, userID string, version uint32, origin Origin) (TokenSet, error) {
	if err := checkOrigin(origin); err != nil {
		return TokenSet{}, err
	}

	res := flows.RunIssue(ctx, flows.IssueInput{
		UserID:      userID,
		AuthVersion: version,
		Origin:      string(origin),
	}, e.flows.Issue)
	if res.Err != nil {
		return TokenSet{}, fmt.Errorf("issue tokens: %w", res.Err)
	}

	e.metricInc(MetricTokenIssued)
	return tokenSetFrom(res, origin), nil
}

func tokenSetFrom(res flows.IssueResult, origin Origin) TokenSet {
	return TokenSet{
		AccessToken:      res.AccessToken,
		RefreshToken:     res.RefreshToken,
		CSRFToken:        res.CSRFToken,
		Origin:           origin,
		AccessExpiresAt:  res.AccessExpiresAt,
		RefreshExpiresAt: res.RefreshExpiresAt,
	}
}

// VerifyAccess checks signature, expiry and token kind of an access token. It
// does not consult the cache or the user store, so a token of a banned or
// bumped user still verifies; use Authenticate for request gating.
func (e *Engine) VerifyAccess(token string) (*jwt.AccessClaims, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.jwtManager.ParseAccess(token)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// Refresh redeems refreshToken exactly once and returns a new pair. For web
// tokens csrf must equal the value issued with the pair. Every failure is
// reported as ErrRefreshDenied; the cause is only logged and counted.
func (e *Engine) Refresh(ctx context.Context, refreshToken, csrf string) (TokenSet, error) {
	if !e.ready() {
		return TokenSet{}, ErrEngineNotReady
	}

	res := flows.RunRefresh(ctx, flows.RefreshInput{
		RefreshToken: refreshToken,
		CSRFToken:    csrf,
	}, e.flows.Refresh)

	if res.Failure != flows.RefreshFailureNone {
		e.metricInc(MetricRefreshFailure)
		switch res.Failure {
		case flows.RefreshFailureSessionMissing:
			e.metricInc(MetricRefreshReuseDetected)
		case flows.RefreshFailureCSRFMissing, flows.RefreshFailureCSRFMismatch:
			e.metricInc(MetricRefreshCSRFRejected)
		}

		fields := []zap.Field{
			zap.Stringer("reason", res.Failure),
			zap.String("jti", res.JTI),
			zap.String("user_id", res.UserID),
		}
		if res.Failure == flows.RefreshFailureStore || res.Failure == flows.RefreshFailureIssue {
			e.logger.Error("refresh failed", append(fields, zap.Error(res.Err))...)
		} else {
			e.logger.Debug("refresh denied", fields...)
		}
		return TokenSet{}, ErrRefreshDenied
	}

	e.metricInc(MetricRefreshSuccess)
	e.metricInc(MetricTokenIssued)
	return tokenSetFrom(res.Issued, Origin(res.Origin)), nil
}

// Revoke deletes the session record and CSRF binding behind refreshToken. A
// token that does not verify is ignored. Cache errors are returned.
func (e *Engine) Revoke(ctx context.Context, refreshToken string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	res := flows.RunRevoke(ctx, refreshToken, e.flows.Revoke)
	if res.Skipped {
		return nil
	}
	if res.Err != nil {
		return fmt.Errorf("revoke session: %w", res.Err)
	}

	e.metricInc(MetricLogout)
	return nil
}
