package portalauth

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one counter in the metrics block.
type MetricID uint16

const (
	// MetricLoginSuccess counts successful logins.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected or failed logins.
	MetricLoginFailure
	// MetricLogout counts logouts.
	MetricLogout
	// MetricRestoreActive counts startup restorations that ended Active.
	MetricRestoreActive
	// MetricRestoreAbsent counts startup restorations that ended Absent.
	MetricRestoreAbsent
	// MetricRestoreLocalExpiry counts restorations resolved by the local
	// expiry check, with no network round-trip.
	MetricRestoreLocalExpiry
	// MetricValidateRejected counts fail-closed revalidation outcomes.
	MetricValidateRejected
	// MetricProfileUpdate counts accepted profile patches.
	MetricProfileUpdate
	// MetricPasswordChangeSuccess counts completed password changes.
	MetricPasswordChangeSuccess
	// MetricPasswordChangeMismatch counts changes rejected by the local
	// confirmation pre-check.
	MetricPasswordChangeMismatch
	// MetricStoreWriteFailure counts durable or mirror write failures.
	MetricStoreWriteFailure
	// MetricRecoveryRequest counts accepted recovery requests.
	MetricRecoveryRequest
	// MetricRecoveryRateLimited counts throttled recovery requests.
	MetricRecoveryRateLimited
	// MetricRecoveryResetSuccess counts completed password resets.
	MetricRecoveryResetSuccess
	// MetricRecoveryResetFailure counts failed password resets.
	MetricRecoveryResetFailure
	// MetricRecoveryTokenExpired counts validations that found an aged token.
	MetricRecoveryTokenExpired
	// MetricRecoveryTokenReplay counts validations of already-used tokens.
	MetricRecoveryTokenReplay
	// MetricValidateLatency is the restore-revalidation latency histogram.
	MetricValidateLatency
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

// Metrics is a fixed block of atomic counters plus one latency histogram.
// All methods are safe for concurrent use and free of allocation except
// Snapshot.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
	latency  metricHistogram
}

// MetricsSnapshot is a point-in-time copy for exporters.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics builds the metrics block; disabled metrics make every mutation a
// no-op.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Enabled reports whether counters are recording.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to the identified counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records one restore-revalidation round-trip duration.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || id != MetricValidateLatency {
		return
	}
	atomic.AddUint64(&m.latency.buckets[bucketIndex(d)], 1)
}

// Value reads a single counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and the latency histogram.
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

	buckets := make([]uint64, histBucketCount)
	for i := 0; i < histBucketCount; i++ {
		buckets[i] = atomic.LoadUint64(&m.latency.buckets[i])
	}
	s.Histograms[MetricValidateLatency] = buckets

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
