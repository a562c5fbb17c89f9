package authcore

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter or histogram.
type MetricID uint16

const (
	// MetricLoginSuccess counts successful logins.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected logins (bad credentials or banned).
	MetricLoginFailure
	// MetricLoginRateLimited counts logins refused by the attempt throttle.
	MetricLoginRateLimited
	// MetricRegisterSuccess counts created accounts.
	MetricRegisterSuccess
	// MetricRegisterDuplicate counts registrations rejected as duplicates.
	MetricRegisterDuplicate
	// MetricTokenIssued counts minted token pairs, from any path.
	MetricTokenIssued
	// MetricRefreshSuccess counts completed rotations.
	MetricRefreshSuccess
	// MetricRefreshFailure counts denied rotations of any cause.
	MetricRefreshFailure
	// MetricRefreshReuseDetected counts redemptions of a consumed or unknown session.
	MetricRefreshReuseDetected
	// MetricRefreshCSRFRejected counts web rotations denied for a missing or wrong CSRF value.
	MetricRefreshCSRFRejected
	// MetricLogout counts single-session revocations.
	MetricLogout
	// MetricLogoutAll counts auth-version bumps requested by the user.
	MetricLogoutAll
	// MetricAuthenticateSuccess counts accepted access tokens.
	MetricAuthenticateSuccess
	// MetricAuthenticateFailure counts rejected access tokens.
	MetricAuthenticateFailure
	// MetricAuthenticateStale counts access tokens rejected for an outdated auth version.
	MetricAuthenticateStale
	// MetricPermissionCacheHit counts permission sets served from cache.
	MetricPermissionCacheHit
	// MetricPermissionCacheMiss counts permission sets computed from role assignments.
	MetricPermissionCacheMiss
	// MetricPermissionCacheCorrupt counts unreadable cache entries that were dropped.
	MetricPermissionCacheCorrupt
	// MetricRoleDenied counts failed role gates.
	MetricRoleDenied
	// MetricPermissionDenied counts failed permission gates.
	MetricPermissionDenied
	// MetricUserBanned counts ban operations.
	MetricUserBanned
	// MetricUserUnbanned counts unban operations.
	MetricUserUnbanned
	// MetricRolesAssigned counts role replacements.
	MetricRolesAssigned
	// MetricCacheInvalidationFailure counts best-effort cache deletions that failed.
	MetricCacheInvalidationFailure
	// MetricAuthenticateLatency is the latency histogram of Authenticate.
	MetricAuthenticateLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters, one cache line each, plus fixed-bucket
// latency histograms. A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all metrics. Histogram buckets
// are non-cumulative.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates the metric set described by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether histograms are recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram of id. Only latency metrics have histograms.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricAuthenticateLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value reads one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and histogram.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricAuthenticateLatency].buckets[i])
		}
		s.Histograms[MetricAuthenticateLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
