package rate

import "errors"

var (
	// ErrRateLimited is returned once the attempt budget is spent.
	ErrRateLimited = errors.New("rate limited")
	// ErrStoreUnavailable wraps cache failures.
	ErrStoreUnavailable = errors.New("rate limit store unavailable")
)
