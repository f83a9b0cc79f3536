package diversity

import (
	"sync"
	"time"
)

// DefaultRefreshInterval is the minimum time between recomputations of
// the Hill numbers, matching spec §4.4's default of 5 seconds.
const DefaultRefreshInterval = 5 * time.Second

// Gate recomputes Numbers at most once per configured interval and
// remembers the last snapshot so callers can ask "has H1 grown enough
// to admit this input" (the admitOnDiversityGain policy, spec §4.4, §9).
type Gate struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	snapshot Numbers
	now      func() time.Time
}

// NewGate returns a Gate with the given refresh interval. An interval of
// zero uses DefaultRefreshInterval.
func NewGate(interval time.Duration) *Gate {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Gate{interval: interval, now: time.Now}
}

// Refresh recomputes Numbers from histogram if the refresh interval has
// elapsed since the last recomputation, otherwise returns the cached
// snapshot. Returns the (possibly stale) snapshot and whether a
// recomputation actually happened.
func (g *Gate) Refresh(histogram map[uint32]uint64) (Numbers, bool) {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.last.IsZero() && now.Sub(g.last) < g.interval {
		return g.snapshot, false
	}

	g.snapshot = Compute(histogram)
	g.last = now
	return g.snapshot, true
}

// Last returns the most recently computed snapshot without forcing a
// refresh decision.
func (g *Gate) Last() Numbers {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshot
}

// GrowthSince reports how much H1 increased relative to baseline. Used
// by the Trial Runner's admit_on_diversity_gain check: an input is
// admitted if this growth meets or exceeds the configured epsilon, even
// absent branch novelty.
func GrowthSince(baseline Numbers, current Numbers) float64 {
	return current.H1 - baseline.H1
}
