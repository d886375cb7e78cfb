package llm

import (
	"slices"
	"sync"
	"time"
)

// StatsSnapshot aggregates the calls inside the window. Latency fields cover
// successful calls only.
type StatsSnapshot struct {
	Window    string  `json:"window"`
	Count     int     `json:"count"`
	Errors    int     `json:"errors"`
	ErrorRate float64 `json:"error_rate"`
	MinMs     int64   `json:"min_ms"`
	MaxMs     int64   `json:"max_ms"`
	AvgMs     float64 `json:"avg_ms"`
	P50Ms     float64 `json:"p50_ms"`
	P95Ms     float64 `json:"p95_ms"`
	P99Ms     float64 `json:"p99_ms"`
}

type call struct {
	at      time.Time
	latency time.Duration
	failed  bool
}

// LLMStats keeps generation calls from the last window for /api/stats/llm.
type LLMStats struct {
	mu     sync.Mutex
	window time.Duration
	calls  []call
	now    func() time.Time
}

// NewLLMStats returns an empty window. A non-positive window means one hour.
func NewLLMStats(window time.Duration) *LLMStats {
	if window <= 0 {
		window = time.Hour
	}
	return &LLMStats{window: window, now: time.Now}
}

// Observe records one call. A nil err counts toward the latency figures.
func (s *LLMStats) Observe(latency time.Duration, err error) {
	latency = max(latency, 0)

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.expire(now)
	s.calls = append(s.calls, call{at: now, latency: latency, failed: err != nil})
}

func (s *LLMStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	s.expire(s.now())
	var ms []int64
	errs := 0
	for _, c := range s.calls {
		if c.failed {
			errs++
			continue
		}
		ms = append(ms, c.latency.Milliseconds())
	}
	total := len(s.calls)
	s.mu.Unlock()

	snap := StatsSnapshot{Window: s.window.String(), Count: len(ms), Errors: errs}
	if total > 0 {
		snap.ErrorRate = float64(errs) / float64(total)
	}
	if len(ms) == 0 {
		return snap
	}

	slices.Sort(ms)
	var sum int64
	for _, v := range ms {
		sum += v
	}
	snap.MinMs = ms[0]
	snap.MaxMs = ms[len(ms)-1]
	snap.AvgMs = float64(sum) / float64(len(ms))
	snap.P50Ms = quantile(ms, 0.50)
	snap.P95Ms = quantile(ms, 0.95)
	snap.P99Ms = quantile(ms, 0.99)
	return snap
}

// expire drops calls older than the window. Calls are appended in time
// order, so the expired ones form a prefix.
func (s *LLMStats) expire(now time.Time) {
	cutoff := now.Add(-s.window)
	i, _ := slices.BinarySearchFunc(s.calls, cutoff, func(c call, t time.Time) int {
		return c.at.Compare(t)
	})
	if i > 0 {
		s.calls = slices.Delete(s.calls, 0, i)
	}
}

// quantile linearly interpolates between the closest ranks of sorted.
func quantile(sorted []int64, q float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case q <= 0:
		return float64(sorted[0])
	case q >= 1:
		return float64(sorted[len(sorted)-1])
	}
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	if lo+1 >= len(sorted) {
		return float64(sorted[lo])
	}
	frac := pos - float64(lo)
	return float64(sorted[lo]) + frac*float64(sorted[lo+1]-sorted[lo])
}
