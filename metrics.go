package authcore

import "sync/atomic"

// MetricID identifies one counter in the in-process metrics system.
type MetricID uint8

const (
	// MetricLoginSuccess is incremented on fully established sessions.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure is incremented on rejected first factors.
	MetricLoginFailure
	// MetricLoginRateLimited is incremented when the guard rejects a login.
	MetricLoginRateLimited
	// MetricRefreshSuccess is incremented on successful token refreshes.
	MetricRefreshSuccess
	// MetricRefreshFailure is incremented on rejected refreshes.
	MetricRefreshFailure
	// MetricMFARequired is incremented when a login returns a temp token.
	MetricMFARequired
	// MetricMFASuccess is incremented on accepted second factors.
	MetricMFASuccess
	// MetricMFAFailure is incremented on rejected second factors.
	MetricMFAFailure
	// MetricMFALockout is incremented each time a lock engages.
	MetricMFALockout
	// MetricBackupCodeUsed is incremented per consumed backup code.
	MetricBackupCodeUsed
	// MetricBackupCodesRegenerated is incremented per replaced batch.
	MetricBackupCodesRegenerated
	// MetricStoreConflict is incremented per conditional-save conflict.
	MetricStoreConflict

	metricIDCount
)

// Metrics holds atomic counters. A nil or disabled Metrics is a no-op.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]atomic.Uint64
}

// NewMetrics creates a Metrics instance. When enabled is false all
// operations are no-ops.
func NewMetrics(enabled bool) *Metrics {
	return &Metrics{enabled: enabled}
}

// Inc increments one counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// Snapshot returns a point-in-time copy of all counters.
func (m *Metrics) Snapshot() map[MetricID]uint64 {
	out := make(map[MetricID]uint64, metricIDCount)
	if m == nil {
		return out
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		out[id] = m.counters[id].Load()
	}
	return out
}
