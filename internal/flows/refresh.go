package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/authcore/cache"
	"github.com/MrEthical07/authcore/internal"
	"github.com/MrEthical07/authcore/jwt"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
// Every kind except None is reported to callers as the same denial.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureDecode
	RefreshFailureSessionMissing
	RefreshFailureSubjectMismatch
	RefreshFailureCSRFMissing
	RefreshFailureCSRFMismatch
	RefreshFailureUserMissing
	RefreshFailureBanned
	RefreshFailureRevoked
	RefreshFailureStore
	RefreshFailureIssue
)

// String names the failure for logs.
func (k RefreshFailureKind) String() string {
	switch k {
	case RefreshFailureNone:
		return "none"
	case RefreshFailureDecode:
		return "decode"
	case RefreshFailureSessionMissing:
		return "session_missing"
	case RefreshFailureSubjectMismatch:
		return "subject_mismatch"
	case RefreshFailureCSRFMissing:
		return "csrf_missing"
	case RefreshFailureCSRFMismatch:
		return "csrf_mismatch"
	case RefreshFailureUserMissing:
		return "user_missing"
	case RefreshFailureBanned:
		return "banned"
	case RefreshFailureRevoked:
		return "sessions_revoked"
	case RefreshFailureStore:
		return "store"
	case RefreshFailureIssue:
		return "issue"
	default:
		return "unknown"
	}
}

// OriginWeb is the only origin bound to a CSRF check.
const OriginWeb = "web"

// RefreshInput is the presented credential pair.
type RefreshInput struct {
	RefreshToken string
	CSRFToken    string
}

// RefreshResult carries either the rotated pair or failure metadata.
type RefreshResult struct {
	Failure RefreshFailureKind
	Err     error
	JTI     string
	UserID  string
	Origin  string
	Issued  IssueResult
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	ParseRefresh func(string) (*jwt.RefreshClaims, error)
	// LoadUser returns nil, nil for unknown users.
	LoadUser func(context.Context, string) (*UserState, error)
	Cache    cache.Store
	Issue    IssueDeps
}

// RunRefresh redeems a refresh token exactly once and mints a new pair
// against the live user record, so role changes carry into the new access
// token instead of ending the session.
//
// The session record is taken with GetDel before any other check, so a token
// is consumed even when a later check denies it and of several concurrent
// redemptions at most one proceeds.
func RunRefresh(ctx context.Context, in RefreshInput, deps RefreshDeps) RefreshResult {
	claims, err := deps.ParseRefresh(in.RefreshToken)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureDecode, Err: err}
	}

	res := RefreshResult{
		JTI:    claims.ID,
		UserID: claims.Subject,
		Origin: claims.Source,
	}

	record, err := deps.Cache.GetDel(ctx, cache.RefreshKey(claims.ID))
	if err != nil {
		_ = deps.Cache.Delete(ctx, cache.CSRFKey(claims.ID))
		if errors.Is(err, cache.ErrMiss) {
			res.Failure = RefreshFailureSessionMissing
		} else {
			res.Failure = RefreshFailureStore
		}
		res.Err = err
		return res
	}

	storedCSRF, csrfErr := deps.Cache.GetDel(ctx, cache.CSRFKey(claims.ID))
	if csrfErr != nil && !errors.Is(csrfErr, cache.ErrMiss) {
		res.Failure = RefreshFailureStore
		res.Err = csrfErr
		return res
	}

	owner, issuedAt, err := decodeSession(record)
	if err != nil || owner != claims.Subject {
		res.Failure = RefreshFailureSubjectMismatch
		return res
	}

	if claims.Source == OriginWeb {
		if in.CSRFToken == "" || csrfErr != nil {
			res.Failure = RefreshFailureCSRFMissing
			return res
		}
		if !internal.EqualSecret(in.CSRFToken, storedCSRF) {
			res.Failure = RefreshFailureCSRFMismatch
			return res
		}
	}

	revokedAt, err := sessionsRevokedAt(ctx, deps.Cache, claims.Subject)
	if err != nil {
		res.Failure = RefreshFailureStore
		res.Err = err
		return res
	}
	if issuedAt <= revokedAt {
		res.Failure = RefreshFailureRevoked
		return res
	}

	user, err := deps.LoadUser(ctx, claims.Subject)
	if err != nil {
		res.Failure = RefreshFailureStore
		res.Err = err
		return res
	}
	switch {
	case user == nil:
		res.Failure = RefreshFailureUserMissing
		return res
	case user.Banned:
		res.Failure = RefreshFailureBanned
		return res
	}

	issued := RunIssue(ctx, IssueInput{
		UserID:      user.ID,
		AuthVersion: user.AuthVersion,
		Origin:      claims.Source,
	}, deps.Issue)
	if issued.Err != nil {
		res.Failure = RefreshFailureIssue
		res.Err = issued.Err
		return res
	}

	res.Issued = issued
	return res
}
