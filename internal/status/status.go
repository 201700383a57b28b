// Package status tracks request outcomes for the status surface and
// exports them as Prometheus metrics.
package status

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"nakdan/internal/core"
)

// snapshot display truncation, matching the status surface contract.
const displayLimit = 100

// Tracker accumulates lookup outcomes. Safe for concurrent use.
type Tracker struct {
	mu         sync.Mutex
	state      string
	lastText   string
	lastResult string
	lastUpdate time.Time
	total      int64
	failed     int64
	cacheStats core.CacheStats
	clock      core.Clock

	requestsTotal prometheus.Counter
	failuresTotal prometheus.Counter
	cacheEntries  prometheus.Gauge
}

// NewTracker creates a tracker and registers its metrics with reg.
func NewTracker(reg prometheus.Registerer, clock core.Clock) *Tracker {
	if clock == nil {
		clock = time.Now
	}
	t := &Tracker{
		state: "Ready",
		clock: clock,
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nakdan_requests_total",
			Help: "Total nikud lookup requests handled.",
		}),
		failuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nakdan_request_failures_total",
			Help: "Nikud lookup requests that ended in failure.",
		}),
		cacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nakdan_cache_entries",
			Help: "Entries currently held in the result cache.",
		}),
	}
	if reg != nil {
		reg.MustRegister(t.requestsTotal, t.failuresTotal, t.cacheEntries)
	}
	return t
}

// RecordSuccess notes a completed lookup.
func (t *Tracker) RecordSuccess(text, result string, stats core.CacheStats) {
	t.record(text, result, stats, true)
}

// RecordFailure notes a lookup that returned no result or was rejected.
func (t *Tracker) RecordFailure(text string, stats core.CacheStats) {
	t.record(text, "", stats, false)
}

func (t *Tracker) record(text, result string, stats core.CacheStats, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total++
	t.requestsTotal.Inc()
	if ok {
		t.state = "Ready"
	} else {
		t.failed++
		t.failuresTotal.Inc()
		t.state = "Error"
	}
	t.lastText = truncate(text, displayLimit)
	t.lastResult = truncate(result, displayLimit)
	t.lastUpdate = t.clock()
	t.cacheStats = stats
	t.cacheEntries.Set(float64(stats.Total))
}

// Snapshot is the status payload pushed to the display surface.
type Snapshot struct {
	State          string          `json:"state"`
	LastText       string          `json:"last_text"`
	LastResult     string          `json:"last_result"`
	LastUpdate     string          `json:"last_update,omitempty"`
	TotalRequests  int64           `json:"total_requests"`
	FailedRequests int64           `json:"failed_requests"`
	SuccessRate    string          `json:"success_rate"`
	CacheStats     core.CacheStats `json:"cache_stats"`
}

// Snapshot returns the current status.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Snapshot{
		State:          t.state,
		LastText:       t.lastText,
		LastResult:     t.lastResult,
		TotalRequests:  t.total,
		FailedRequests: t.failed,
		SuccessRate:    "0%",
		CacheStats:     t.cacheStats,
	}
	if !t.lastUpdate.IsZero() {
		s.LastUpdate = t.lastUpdate.Format(time.RFC3339)
	}
	if t.total > 0 {
		rate := float64(t.total-t.failed) / float64(t.total) * 100
		s.SuccessRate = fmt.Sprintf("%.1f%%", rate)
	}
	return s
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
