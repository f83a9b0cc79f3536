package trial

import (
	"sync"
	"time"
)

// Stats is the running counters the Trial Runner exposes for the
// periodic stats line and the final termination summary (spec §4.8,
// §4.9, §7).
type Stats struct {
	mu            sync.Mutex
	TotalExecs    int64
	ValidExecs    int64
	InvalidExecs  int64
	Failures      int64
	StartTime     time.Time
	lastEmit      time.Time
	execTimeTotal time.Duration
}

// NewStats returns a Stats with StartTime set to now.
func NewStats(now time.Time) *Stats {
	return &Stats{StartTime: now}
}

func (s *Stats) recordExec(d time.Duration) {
	s.mu.Lock()
	s.TotalExecs++
	s.execTimeTotal += d
	s.mu.Unlock()
}

func (s *Stats) recordValid()   { s.mu.Lock(); s.ValidExecs++; s.mu.Unlock() }
func (s *Stats) recordInvalid() { s.mu.Lock(); s.InvalidExecs++; s.mu.Unlock() }
func (s *Stats) recordFailure() { s.mu.Lock(); s.Failures++; s.mu.Unlock() }

// ExecsPerSec computes throughput since StartTime.
func (s *Stats) ExecsPerSec(now time.Time) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	elapsed := now.Sub(s.StartTime).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(s.TotalExecs) / elapsed
}

// Snapshot returns a copy of the counters, safe to hand to a reporter.
func (s *Stats) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		TotalExecs:   s.TotalExecs,
		ValidExecs:   s.ValidExecs,
		InvalidExecs: s.InvalidExecs,
		Failures:     s.Failures,
		StartTime:    s.StartTime,
	}
}

// shouldEmit reports whether period has elapsed since the last emit,
// and if so marks now as the new last-emit time.
func (s *Stats) shouldEmit(now time.Time, period time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if period <= 0 {
		return false
	}
	if !s.lastEmit.IsZero() && now.Sub(s.lastEmit) < period {
		return false
	}
	s.lastEmit = now
	return true
}
