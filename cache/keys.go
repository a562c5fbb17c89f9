package cache

import "strconv"

// RefreshKey is the session record of a refresh token id.
func RefreshKey(jti string) string {
	return "refresh:" + jti
}

// CSRFKey is the CSRF binding of a refresh token id.
func CSRFKey(jti string) string {
	return "csrf:" + jti
}

// PermissionKey is the cached permission set of a user at one auth version.
func PermissionKey(userID string, version uint32) string {
	return "auth:perm:" + userID + ":v" + strconv.FormatUint(uint64(version), 10)
}

// ExpandedPermissionKey is PermissionKey for sets computed with implied roles
// expanded. The two modes never read each other's entries.
func ExpandedPermissionKey(userID string, version uint32) string {
	return PermissionKey(userID, version) + ":x"
}

// AttemptKey namespaces attempt counters, e.g. AttemptKey("login", "user", "a@b.c").
func AttemptKey(scope, kind, subject string) string {
	return "auth:rl:" + scope + ":" + kind + ":" + subject
}

// SessionsRevokedKey holds the instant (unix nanoseconds) before which every
// refresh session of a user is void.
func SessionsRevokedKey(userID string) string {
	return "auth:sessions:revoked:" + userID
}
