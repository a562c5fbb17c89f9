package flows

import (
	"context"

	"github.com/MrEthical07/authcore/cache"
	"github.com/MrEthical07/authcore/jwt"
)

// RevokeDeps captures revoke flow dependencies.
type RevokeDeps struct {
	ParseRefresh func(string) (*jwt.RefreshClaims, error)
	Cache        cache.Store
}

// RevokeResult reports what was attempted. Skipped is set when the token did
// not verify; that is not an error.
type RevokeResult struct {
	Skipped bool
	JTI     string
	UserID  string
	Err     error
}

// RunRevoke deletes the session record and CSRF binding of a refresh token.
func RunRevoke(ctx context.Context, refreshToken string, deps RevokeDeps) RevokeResult {
	claims, err := deps.ParseRefresh(refreshToken)
	if err != nil {
		return RevokeResult{Skipped: true}
	}

	return RevokeResult{
		JTI:    claims.ID,
		UserID: claims.Subject,
		Err:    deps.Cache.Delete(ctx, cache.RefreshKey(claims.ID), cache.CSRFKey(claims.ID)),
	}
}
