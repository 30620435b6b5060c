// Package stats aggregates timing distributions for supervised subjects.
package stats

import (
	"sync"
	"time"

	"github.com/influxdata/tdigest"
)

// LatencyTracker records a duration distribution (e.g. Starting→Running
// startup latency) and answers quantile queries. Safe for concurrent use.
type LatencyTracker struct {
	mu     sync.Mutex
	digest *tdigest.TDigest
	count  int64
	max    time.Duration
}

// NewLatencyTracker creates an empty tracker.
func NewLatencyTracker() *LatencyTracker {
	return &LatencyTracker{
		// ~100 centroids, ~10KB; plenty of resolution for P50/P95/P99.
		digest: tdigest.NewWithCompression(100),
	}
}

// Record adds one observation.
func (t *LatencyTracker) Record(d time.Duration) {
	if d < 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.digest.Add(d.Seconds(), 1)
	t.count++
	if d > t.max {
		t.max = d
	}
}

// Quantile returns the duration at quantile q (0.0-1.0). Returns 0 when
// no observations have been recorded.
func (t *LatencyTracker) Quantile(q float64) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.count == 0 {
		return 0
	}
	return time.Duration(t.digest.Quantile(q) * float64(time.Second))
}

// Count returns the number of observations.
func (t *LatencyTracker) Count() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Max returns the largest observation.
func (t *LatencyTracker) Max() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.max
}
