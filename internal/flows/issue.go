package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/authcore/cache"
)

// IssueInput names the user snapshot a token pair is minted for.
type IssueInput struct {
	UserID      string
	AuthVersion uint32
	Origin      string
}

// IssueResult carries the minted pair or the failure.
type IssueResult struct {
	Err              error
	JTI              string
	AccessToken      string
	RefreshToken     string
	CSRFToken        string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// IssueDeps captures issuance dependencies.
type IssueDeps struct {
	NewJTI      func() (string, error)
	NewCSRF     func() (string, error)
	SignAccess  func(userID string, authVersion uint32, origin string) (string, time.Time, error)
	SignRefresh func(userID, jti, origin string) (string, time.Time, error)
	RefreshTTL  time.Duration
	Cache       cache.Store
	// Now stamps the session record. Defaults to time.Now.
	Now func() time.Time
}

// RunIssue signs a fresh access/refresh pair and persists the session record
// and CSRF binding under a new jti, both with the refresh lifetime.
func RunIssue(ctx context.Context, in IssueInput, deps IssueDeps) IssueResult {
	jti, err := deps.NewJTI()
	if err != nil {
		return IssueResult{Err: err}
	}
	csrf, err := deps.NewCSRF()
	if err != nil {
		return IssueResult{Err: err, JTI: jti}
	}

	access, accessExp, err := deps.SignAccess(in.UserID, in.AuthVersion, in.Origin)
	if err != nil {
		return IssueResult{Err: err, JTI: jti}
	}
	refresh, refreshExp, err := deps.SignRefresh(in.UserID, jti, in.Origin)
	if err != nil {
		return IssueResult{Err: err, JTI: jti}
	}

	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	if err := deps.Cache.Set(ctx, cache.RefreshKey(jti), encodeSession(in.UserID, now()), deps.RefreshTTL); err != nil {
		return IssueResult{Err: err, JTI: jti}
	}
	if err := deps.Cache.Set(ctx, cache.CSRFKey(jti), csrf, deps.RefreshTTL); err != nil {
		// A session without its CSRF binding could never be refreshed from a browser.
		_ = deps.Cache.Delete(ctx, cache.RefreshKey(jti))
		return IssueResult{Err: err, JTI: jti}
	}

	return IssueResult{
		JTI:              jti,
		AccessToken:      access,
		RefreshToken:     refresh,
		CSRFToken:        csrf,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}
}
