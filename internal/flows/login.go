package flows

import (
	"context"
	"errors"
)

// LoginFailureKind classifies login flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureRateLimited
	LoginFailureLimiter
	LoginFailureInvalidCredentials
	LoginFailureBanned
	LoginFailureStore
)

// Credential is the flow-local view of an account for password login.
type Credential struct {
	UserID       string
	PasswordHash string
	AuthVersion  uint32
	Banned       bool
}

// LoginInput is one login attempt. Identifier is already normalized.
type LoginInput struct {
	Identifier string
	Password   string
	ClientIP   string
}

// LoginResult carries the authenticated account or failure metadata.
type LoginResult struct {
	Failure    LoginFailureKind
	Err        error
	Credential *Credential
	// Rehashed is set when the stored hash was upgraded in place.
	Rehashed bool
}

// LoginLimiter is the attempt throttle; nil disables throttling.
type LoginLimiter interface {
	CheckLogin(ctx context.Context, identifier, ip string) error
	RecordFailure(ctx context.Context, identifier, ip string) error
	Reset(ctx context.Context, identifier string) error
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	Limiter LoginLimiter
	// RateLimited is the limiter's budget-exhausted sentinel.
	RateLimited error
	// LookupCredential returns nil, nil for unknown identifiers.
	LookupCredential func(ctx context.Context, identifier string) (*Credential, error)
	Verify           func(password, encodedHash string) (bool, error)
	VerifyDummy      func(password string)
	// NeedsRehash and Rehash are optional; both must be set to upgrade hashes.
	NeedsRehash func(encodedHash string) bool
	Rehash      func(ctx context.Context, userID, password string) error
}

// RunLogin checks the throttle, verifies the password and applies the ban
// gate. Unknown accounts and wrong passwords are indistinguishable to callers
// and cost the same hashing work.
func RunLogin(ctx context.Context, in LoginInput, deps LoginDeps) LoginResult {
	if deps.Limiter != nil {
		if err := deps.Limiter.CheckLogin(ctx, in.Identifier, in.ClientIP); err != nil {
			if deps.RateLimited != nil && errors.Is(err, deps.RateLimited) {
				return LoginResult{Failure: LoginFailureRateLimited, Err: err}
			}
			return LoginResult{Failure: LoginFailureLimiter, Err: err}
		}
	}

	cred, err := deps.LookupCredential(ctx, in.Identifier)
	if err != nil {
		return LoginResult{Failure: LoginFailureStore, Err: err}
	}

	ok := false
	if cred == nil {
		deps.VerifyDummy(in.Password)
	} else {
		ok, err = deps.Verify(in.Password, cred.PasswordHash)
		if err != nil {
			ok = false
		}
	}

	if !ok {
		if deps.Limiter != nil {
			if limErr := deps.Limiter.RecordFailure(ctx, in.Identifier, in.ClientIP); limErr != nil &&
				deps.RateLimited != nil && errors.Is(limErr, deps.RateLimited) {
				return LoginResult{Failure: LoginFailureRateLimited, Err: limErr}
			}
		}
		return LoginResult{Failure: LoginFailureInvalidCredentials, Err: err}
	}

	if cred.Banned {
		return LoginResult{Failure: LoginFailureBanned, Credential: cred}
	}

	if deps.Limiter != nil {
		_ = deps.Limiter.Reset(ctx, in.Identifier)
	}

	res := LoginResult{Credential: cred}
	if deps.NeedsRehash != nil && deps.Rehash != nil && deps.NeedsRehash(cred.PasswordHash) {
		res.Rehashed = deps.Rehash(ctx, cred.UserID, in.Password) == nil
	}
	return res
}
