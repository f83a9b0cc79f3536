package corpus

import (
	"sort"
	"sync"
)

// Favorites maps branch id to the Input currently chosen to represent
// it: the smallest, cheapest input that covers that branch (spec §3).
// Invariant: every branch covered so far has exactly one entry.
type Favorites struct {
	mu       sync.RWMutex
	byBranch map[uint32]*Input
}

// NewFavorites returns an empty Favorites map.
func NewFavorites() *Favorites {
	return &Favorites{byBranch: make(map[uint32]*Input)}
}

// Consider offers candidate as a favorite for every branch in its
// coverage signature. It reassigns a branch's favorite only when
// candidate strictly dominates the incumbent (smaller size, then
// shorter execution time), and records every branch candidate newly
// became the favorite for on candidate.FavoredBranches.
func (f *Favorites) Consider(candidate *Input) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for branchID := range candidate.CoverageSignature {
		incumbent, ok := f.byBranch[branchID]
		if !ok || candidate.dominates(incumbent) {
			if ok {
				incumbent.removeFavoredBranch(branchID)
			}
			f.byBranch[branchID] = candidate
			candidate.FavoredBranches = append(candidate.FavoredBranches, branchID)
		}
	}
}

// Get returns the current favorite for branchID, if any.
func (f *Favorites) Get(branchID uint32) (*Input, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	in, ok := f.byBranch[branchID]
	return in, ok
}

// Inputs returns the distinct set of inputs currently favored for at
// least one branch, used as the sampling pool for select_parent. The
// result is ordered by input id so seeded selection is reproducible.
func (f *Favorites) Inputs() []*Input {
	f.mu.RLock()
	defer f.mu.RUnlock()

	seen := make(map[int64]*Input)
	for _, in := range f.byBranch {
		seen[in.ID] = in
	}
	out := make([]*Input, 0, len(seen))
	for _, in := range seen {
		out = append(out, in)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
