package diversity

import (
	"math"
	"testing"
	"time"
)

func closeEnough(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestComputeUniformHistogram(t *testing.T) {
	// Synthetic histogram [3, 3, 3]: H0=3, H1=3, H2=3 (spec §8 S5).
	histogram := map[uint32]uint64{1: 3, 2: 3, 3: 3}
	n := Compute(histogram)

	const eps = 1e-9
	if !closeEnough(n.H0, 3, eps) {
		t.Errorf("H0 = %v, want 3", n.H0)
	}
	if !closeEnough(n.H1, 3, eps) {
		t.Errorf("H1 = %v, want 3", n.H1)
	}
	if !closeEnough(n.H2, 3, eps) {
		t.Errorf("H2 = %v, want 3", n.H2)
	}
}

func TestComputeEmptyHistogram(t *testing.T) {
	n := Compute(nil)
	if n != (Numbers{}) {
		t.Fatalf("expected zero Numbers for empty histogram, got %+v", n)
	}
}

func TestComputeSkewedHistogram(t *testing.T) {
	// A single dominant branch: H1 and H2 should sit near 1 although H0 is 2.
	histogram := map[uint32]uint64{1: 1000, 2: 1}
	n := Compute(histogram)
	if n.H0 != 2 {
		t.Fatalf("H0 = %v, want 2", n.H0)
	}
	if n.H1 <= 1 || n.H1 >= 2 {
		t.Fatalf("H1 = %v, want strictly between 1 and 2 for a skewed pair", n.H1)
	}
	if n.H2 <= 1 || n.H2 >= 2 {
		t.Fatalf("H2 = %v, want strictly between 1 and 2 for a skewed pair", n.H2)
	}
}

func TestGateRefreshesAtMostOncePerInterval(t *testing.T) {
	g := NewGate(5 * time.Second)
	clock := time.Now()
	g.now = func() time.Time { return clock }

	histogram := map[uint32]uint64{1: 1}
	_, refreshed := g.Refresh(histogram)
	if !refreshed {
		t.Fatal("first Refresh call should always recompute")
	}

	histogram[2] = 1
	_, refreshed = g.Refresh(histogram)
	if refreshed {
		t.Fatal("Refresh before interval elapsed should not recompute")
	}

	clock = clock.Add(6 * time.Second)
	snapshot, refreshed := g.Refresh(histogram)
	if !refreshed {
		t.Fatal("Refresh after interval elapsed should recompute")
	}
	if snapshot.H0 != 2 {
		t.Fatalf("H0 after recompute = %v, want 2", snapshot.H0)
	}
}

func TestGrowthSince(t *testing.T) {
	baseline := Numbers{H1: 2.0}
	current := Numbers{H1: 2.5}
	if got := GrowthSince(baseline, current); !closeEnough(got, 0.5, 1e-9) {
		t.Fatalf("GrowthSince = %v, want 0.5", got)
	}
}
