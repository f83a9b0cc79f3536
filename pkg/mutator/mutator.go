// Package mutator produces child byte-sequences from parent inputs
// (spec §4.6): a per-parent budget of rounds, each applying a handful of
// random-overwrite mutations, with independent policies for linear and
// split (structure/value) streams.
package mutator

import (
	"math"
	"math/rand"

	"github.com/genfuzz/genfuzz/pkg/choice"
)

// MinMutationsPerRound and MaxMutationsPerRound bound k, the number of
// mutations applied per round (spec §4.6: "uniformly from 1..4").
const (
	MinMutationsPerRound = 1
	MaxMutationsPerRound = 4
	MinRunLength         = 1
	MaxRunLength         = 4
)

// DefaultStructureWeight is the fraction of split-mode mutations
// targeting the structure stream rather than the value stream.
const DefaultStructureWeight = 0.5

// Budget computes the per-parent mutation round count from spec §4.6:
// floor(log2(size) + 1). A zero-length parent still gets one round.
func Budget(size int) int {
	if size <= 0 {
		return 1
	}
	return int(math.Floor(math.Log2(float64(size)) + 1))
}

// Engine applies the mutation policy using a caller-supplied RNG, so
// the scheduler can make mutation reproducible under a fixed
// randomSeed (spec §8 S6).
type Engine struct {
	rng             *rand.Rand
	structureWeight float64
}

// New returns an Engine drawing all randomness from rng.
func New(rng *rand.Rand) *Engine {
	return &Engine{rng: rng, structureWeight: DefaultStructureWeight}
}

// SetStructureWeight overrides the default 50/50 split-mode targeting
// weight. w is the probability a given mutation targets the structure
// stream; 1-w targets the value stream.
func (e *Engine) SetStructureWeight(w float64) {
	e.structureWeight = w
}

// MutateLinear runs the full per-parent mutation budget over a flat
// byte sequence and returns the mutated child.
func (e *Engine) MutateLinear(parent []byte) []byte {
	child := make([]byte, len(parent))
	copy(child, parent)
	if len(child) == 0 {
		return child
	}

	rounds := Budget(len(child))
	for round := 0; round < rounds; round++ {
		k := e.intRange(MinMutationsPerRound, MaxMutationsPerRound)
		for i := 0; i < k; i++ {
			e.overwriteRun(child)
		}
	}
	return child
}

// SplitMutationResult is the outcome of a split-mode mutation: the
// mutated structure/value streams and whether structure was touched
// (which invalidates the access log past the mutated position, per
// spec §4.6).
type SplitMutationResult struct {
	Structure        []byte
	Value            []byte
	StructureTouched bool
	AccessLog        []choice.AccessLogEntry
}

// MutateSplit runs the per-parent mutation budget over a structure/value
// pair, targeting each mutation at the structure or value stream
// according to the engine's structure weight. parentLog is the access
// log recorded when the parent was generated; any entries at or after
// the earliest structural mutation are dropped, since the next
// generation pass must re-record the interleaving from that point on
// (spec §4.6, §9).
func (e *Engine) MutateSplit(structure, value []byte, parentLog []choice.AccessLogEntry) SplitMutationResult {
	result := SplitMutationResult{
		Structure: append([]byte(nil), structure...),
		Value:     append([]byte(nil), value...),
		AccessLog: parentLog,
	}

	total := len(structure) + len(value)
	if total == 0 {
		return result
	}

	rounds := Budget(total)
	for round := 0; round < rounds; round++ {
		k := e.intRange(MinMutationsPerRound, MaxMutationsPerRound)
		for i := 0; i < k; i++ {
			targetStructure := e.rng.Float64() < e.structureWeight
			if targetStructure && len(result.Structure) > 0 {
				offset := e.overwriteRunAt(result.Structure)
				result.StructureTouched = true
				result.AccessLog = truncateLogAt(result.AccessLog, offset)
			} else if len(result.Value) > 0 {
				e.overwriteRun(result.Value)
			} else if len(result.Structure) > 0 {
				offset := e.overwriteRunAt(result.Structure)
				result.StructureTouched = true
				result.AccessLog = truncateLogAt(result.AccessLog, offset)
			}
		}
	}
	return result
}

// overwriteRun picks an offset and a run-length r in [1,4] and
// overwrites those bytes with fresh random bytes, clamped to buf's
// bounds (spec §4.6).
func (e *Engine) overwriteRun(buf []byte) {
	e.overwriteRunAt(buf)
}

// overwriteRunAt is overwriteRun but also returns the chosen offset, for
// callers that need to invalidate state past the mutated position.
func (e *Engine) overwriteRunAt(buf []byte) int {
	if len(buf) == 0 {
		return 0
	}
	offset := e.rng.Intn(len(buf))
	r := e.intRange(MinRunLength, MaxRunLength)
	end := offset + r
	if end > len(buf) {
		end = len(buf)
	}
	for i := offset; i < end; i++ {
		buf[i] = byte(e.rng.Intn(256))
	}
	return offset
}

func (e *Engine) intRange(lo, hi int) int {
	return lo + e.rng.Intn(hi-lo+1)
}

// truncateLogAt drops access log entries recorded at or after a
// structural mutation offset, per spec §4.6's "invalidate the access
// log entries past the mutated position" — the log is rebuilt on the
// next generation pass when the regenerated generator re-records reads.
func truncateLogAt(log []choice.AccessLogEntry, structureOffset int) []choice.AccessLogEntry {
	for i, entry := range log {
		if entry.Tag == choice.TagStructure && entry.Offset >= structureOffset {
			return log[:i]
		}
	}
	return log
}
