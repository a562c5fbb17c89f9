package authcore

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by the Engine matches at most one of these
// with errors.Is; transports map kinds to status codes.
var (
	// ErrUnauthenticated means the caller could not be authenticated.
	ErrUnauthenticated = errors.New("not authorized")
	// ErrForbidden means the caller is authenticated but lacks a role or permission.
	ErrForbidden = errors.New("no permission")
	// ErrConflict means the request collides with existing state.
	ErrConflict = errors.New("conflict")
	// ErrNotFound means a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest means the input failed validation.
	ErrInvalidRequest = errors.New("invalid request")
)

var (
	// ErrTokenInvalid is returned for access tokens that fail verification.
	ErrTokenInvalid = fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	// ErrTokenStale is returned when the token's auth version no longer matches the user.
	ErrTokenStale = fmt.Errorf("%w: token revoked", ErrUnauthenticated)
	// ErrRefreshDenied is the single error for every refresh failure.
	ErrRefreshDenied = fmt.Errorf("%w: refresh denied", ErrUnauthenticated)
	// ErrInvalidCredentials is returned for unknown accounts and wrong passwords alike.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)

	// ErrBanned is returned when a banned account authenticates or logs in.
	ErrBanned = fmt.Errorf("%w: account banned", ErrForbidden)

	// ErrAccountExists is returned by Register for a taken email or username.
	ErrAccountExists = fmt.Errorf("%w: account already exists", ErrConflict)

	// ErrUserNotFound is returned by admin operations on an unknown user id.
	ErrUserNotFound = fmt.Errorf("%w: user not found", ErrNotFound)

	// ErrLoginRateLimited is returned once the failed-login budget is spent.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrEngineNotReady is returned by methods called on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// RoleNotFoundError lists role slugs that do not exist. It matches ErrNotFound.
type RoleNotFoundError struct {
	Missing []string
}

func (e *RoleNotFoundError) Error() string {
	return "unknown roles: " + strings.Join(e.Missing, ", ")
}

// Is makes errors.Is(err, ErrNotFound) hold.
func (e *RoleNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError describes one rejected input field. It matches ErrInvalidRequest.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

// Is makes errors.Is(err, ErrInvalidRequest) hold.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRequest
}
