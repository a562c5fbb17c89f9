package flows

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/authcore/cache"
)

var errMalformedSession = errors.New("malformed session record")

// encodeSession renders the value stored under a refresh key: the owner and
// the issue instant in unix nanoseconds.
func encodeSession(userID string, issuedAt time.Time) string {
	return userID + "|" + strconv.FormatInt(issuedAt.UnixNano(), 10)
}

func decodeSession(v string) (userID string, issuedAt int64, err error) {
	userID, ts, ok := strings.Cut(v, "|")
	if !ok || userID == "" {
		return "", 0, errMalformedSession
	}
	issuedAt, err = strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", 0, errMalformedSession
	}
	return userID, issuedAt, nil
}

// RevokeSessions voids every refresh session of userID issued at or before
// at. The marker outlives the longest possible session by expiring with the
// refresh lifetime.
func RevokeSessions(ctx context.Context, store cache.Store, userID string, at time.Time, refreshTTL time.Duration) error {
	return store.Set(ctx, cache.SessionsRevokedKey(userID), strconv.FormatInt(at.UnixNano(), 10), refreshTTL)
}

// sessionsRevokedAt returns the revocation marker of userID, or 0 when none
// is set.
func sessionsRevokedAt(ctx context.Context, store cache.Store, userID string) (int64, error) {
	v, err := store.Get(ctx, cache.SessionsRevokedKey(userID))
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return 0, nil
		}
		return 0, err
	}
	at, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		// An unreadable marker revokes everything rather than nothing.
		return int64(^uint64(0) >> 1), nil
	}
	return at, nil
}
