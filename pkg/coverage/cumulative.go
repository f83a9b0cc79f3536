package coverage

import "sync"

// Cumulative is the process-wide counter array (spec §3): total hits
// across all valid (non-invalid) executions. Invariant: each cell is
// monotonically non-decreasing — Fold only ever adds.
type Cumulative struct {
	mu    sync.Mutex
	hits  map[uint32]uint64
	total uint64
}

// NewCumulative returns an empty Cumulative aggregate.
func NewCumulative() *Cumulative {
	return &Cumulative{hits: make(map[uint32]uint64)}
}

// ValueAt returns the cumulative hit count for branchID, 0 if never seen.
func (c *Cumulative) ValueAt(branchID uint32) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits[branchID]
}

// Fold adds a trial's per-branch counts into the cumulative totals. Only
// called by the Trial Runner on SUCCESS outcomes (spec §4.8).
func (c *Cumulative) Fold(trial *Map) {
	values := trial.NonZeroValues()
	c.mu.Lock()
	for branchID, count := range values {
		c.hits[branchID] += uint64(count)
		c.total += uint64(count)
	}
	c.mu.Unlock()
}

// CoveredBranches returns H0: the count of branches with at least one hit.
func (c *Cumulative) CoveredBranches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.hits)
}

// Histogram returns a snapshot of the per-branch cumulative hit counts.
func (c *Cumulative) Histogram() map[uint32]uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[uint32]uint64, len(c.hits))
	for k, v := range c.hits {
		out[k] = v
	}
	return out
}

// Total returns the sum of all cumulative hit counts.
func (c *Cumulative) Total() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}
