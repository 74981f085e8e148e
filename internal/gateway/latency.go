package gateway

import (
	"sort"
	"sync"

	"chronoutil/pkg/chrono"
)

// LatencyTracker keeps the most recent sample-to-emit lags in a circular
// buffer and reports their percentiles. Thread-safe.
type LatencyTracker struct {
	mu      sync.Mutex
	samples []chrono.TimeSpan
	pos     int
	count   int
}

// NewLatencyTracker creates a tracker that holds the last capacity lags.
func NewLatencyTracker(capacity int) *LatencyTracker {
	if capacity <= 0 {
		capacity = 10000
	}
	return &LatencyTracker{samples: make([]chrono.TimeSpan, capacity)}
}

// Record adds one lag. Negative lags (clock stepped backwards) are ignored.
func (lt *LatencyTracker) Record(lag chrono.TimeSpan) {
	if lag.IsNegative() {
		return
	}
	lt.mu.Lock()
	lt.samples[lt.pos] = lag
	lt.pos = (lt.pos + 1) % len(lt.samples)
	if lt.count < len(lt.samples) {
		lt.count++
	}
	lt.mu.Unlock()
}

// Percentiles returns the p50, p95 and p99 lags, all zero before the
// first Record.
func (lt *LatencyTracker) Percentiles() (p50, p95, p99 chrono.TimeSpan) {
	lt.mu.Lock()
	sorted := make([]chrono.TimeSpan, lt.count)
	copy(sorted, lt.samples[:lt.count])
	lt.mu.Unlock()

	if len(sorted) == 0 {
		return 0, 0, 0
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return percentile(sorted, 50), percentile(sorted, 95), percentile(sorted, 99)
}

// Count returns the number of lags held (up to capacity).
func (lt *LatencyTracker) Count() int {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	return lt.count
}

// percentile interpolates the p-th percentile (0-100) of a sorted slice
// in whole ticks.
func percentile(sorted []chrono.TimeSpan, p int64) chrono.TimeSpan {
	n := int64(len(sorted))
	if n == 1 {
		return sorted[0]
	}
	// rank = p*(n-1)/100, kept as lower + num/100
	scaled := p * (n - 1)
	lower := scaled / 100
	num := scaled % 100
	if lower+1 >= n {
		return sorted[n-1]
	}
	lo, hi := sorted[lower], sorted[lower+1]
	return lo + (hi-lo).Mul(num).Div(100)
}
