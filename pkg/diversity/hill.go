// Package diversity computes Hill-number diversity indices over the
// cumulative branch-hit histogram (spec §4.4) and gates how often they
// are recomputed.
package diversity

import "math"

// Numbers holds the three Hill numbers the fuzzer tracks: H0 (species
// count), H1 (Shannon exponential), H2 (inverse Simpson).
type Numbers struct {
	H0 float64
	H1 float64
	H2 float64
}

// Compute derives Hill numbers from a cumulative per-branch hit-count
// histogram. Branches with zero hits are excluded from the proportions,
// matching spec §4.4's p_i = h_i / T over non-zero branches.
func Compute(histogram map[uint32]uint64) Numbers {
	var total uint64
	for _, h := range histogram {
		total += h
	}
	if total == 0 {
		return Numbers{}
	}

	var h0 float64
	var shannon float64
	var simpsonSum float64
	for _, h := range histogram {
		if h == 0 {
			continue
		}
		h0++
		p := float64(h) / float64(total)
		shannon -= p * math.Log(p)
		simpsonSum += p * p
	}

	h1 := math.Exp(shannon)
	var h2 float64
	if simpsonSum > 0 {
		h2 = 1 / simpsonSum
	}

	return Numbers{H0: h0, H1: h1, H2: h2}
}
