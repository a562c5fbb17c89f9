package internaldefs

import (
	"github.com/MrEthical07/authcore"
)

// CounterDef names one engine counter.
type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// HistogramDef names one engine latency histogram.
type HistogramDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in output order.
var CounterDefs = []CounterDef{
	{ID: authcore.MetricLoginSuccess, Name: "authcore_login_success_total", Help: "Successful logins."},
	{ID: authcore.MetricLoginFailure, Name: "authcore_login_failure_total", Help: "Failed logins, including banned accounts."},
	{ID: authcore.MetricLoginRateLimited, Name: "authcore_login_rate_limited_total", Help: "Logins rejected by the attempt throttle."},
	{ID: authcore.MetricRegisterSuccess, Name: "authcore_register_success_total", Help: "Accounts registered."},
	{ID: authcore.MetricRegisterDuplicate, Name: "authcore_register_duplicate_total", Help: "Registrations rejected as duplicate."},
	{ID: authcore.MetricTokenIssued, Name: "authcore_token_issued_total", Help: "Token pairs issued."},
	{ID: authcore.MetricRefreshSuccess, Name: "authcore_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: authcore.MetricRefreshFailure, Name: "authcore_refresh_failure_total", Help: "Denied refresh attempts."},
	{ID: authcore.MetricRefreshReuseDetected, Name: "authcore_refresh_reuse_detected_total", Help: "Refresh attempts on an already redeemed or revoked session."},
	{ID: authcore.MetricRefreshCSRFRejected, Name: "authcore_refresh_csrf_rejected_total", Help: "Web refresh attempts with a missing or wrong CSRF value."},
	{ID: authcore.MetricLogout, Name: "authcore_logout_total", Help: "Single-session logouts."},
	{ID: authcore.MetricLogoutAll, Name: "authcore_logout_all_total", Help: "Logout-all operations."},
	{ID: authcore.MetricAuthenticateSuccess, Name: "authcore_authenticate_success_total", Help: "Requests authenticated."},
	{ID: authcore.MetricAuthenticateFailure, Name: "authcore_authenticate_failure_total", Help: "Requests rejected during authentication."},
	{ID: authcore.MetricAuthenticateStale, Name: "authcore_authenticate_stale_total", Help: "Access tokens rejected for an outdated auth version."},
	{ID: authcore.MetricPermissionCacheHit, Name: "authcore_permission_cache_hit_total", Help: "Permission sets served from cache."},
	{ID: authcore.MetricPermissionCacheMiss, Name: "authcore_permission_cache_miss_total", Help: "Permission sets computed on a cache miss."},
	{ID: authcore.MetricPermissionCacheCorrupt, Name: "authcore_permission_cache_corrupt_total", Help: "Unreadable cached permission sets that were discarded."},
	{ID: authcore.MetricRoleDenied, Name: "authcore_role_denied_total", Help: "Role gate denials."},
	{ID: authcore.MetricPermissionDenied, Name: "authcore_permission_denied_total", Help: "Permission gate denials."},
	{ID: authcore.MetricUserBanned, Name: "authcore_user_banned_total", Help: "Ban operations."},
	{ID: authcore.MetricUserUnbanned, Name: "authcore_user_unbanned_total", Help: "Unban operations."},
	{ID: authcore.MetricRolesAssigned, Name: "authcore_roles_assigned_total", Help: "Role assignment replacements."},
	{ID: authcore.MetricCacheInvalidationFailure, Name: "authcore_cache_invalidation_failure_total", Help: "Failed deletions of outdated permission entries."},
}

// HistogramDefs lists every exported latency histogram.
var HistogramDefs = []HistogramDef{
	{ID: authcore.MetricAuthenticateLatency, Name: "authcore_authenticate_latency_seconds", Help: "Authenticate latency."},
}

// HistogramBounds are the upper bounds in seconds of the finite buckets. The
// engine keeps one more bucket for everything above the last bound.
var HistogramBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters that
// publish one gauge per bucket.
var HistogramBoundSuffix = []string{"0_005", "0_01", "0_025", "0_05", "0_1", "0_25", "0_5", "inf"}

// BucketCount is the number of engine buckets, +Inf included.
const BucketCount = 8

// NormalizeBuckets pads or truncates raw to BucketCount entries.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
