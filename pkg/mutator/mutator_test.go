package mutator

import (
	"math/rand"
	"testing"

	"github.com/genfuzz/genfuzz/pkg/choice"
)

func TestBudgetFormula(t *testing.T) {
	cases := []struct {
		size int
		want int
	}{
		{0, 1},
		{1, 1},
		{2, 2},
		{3, 2},
		{4, 3},
		{8, 4},
		{16, 5},
	}
	for _, c := range cases {
		if got := Budget(c.size); got != c.want {
			t.Errorf("Budget(%d) = %d, want %d", c.size, got, c.want)
		}
	}
}

func TestMutateLinearPreservesLength(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	e := New(rng)
	parent := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	child := e.MutateLinear(parent)
	if len(child) != len(parent) {
		t.Fatalf("child length = %d, want %d", len(child), len(parent))
	}
}

func TestMutateLinearDeterministicUnderSeed(t *testing.T) {
	parent := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	run := func() []byte {
		rng := rand.New(rand.NewSource(99))
		return New(rng).MutateLinear(parent)
	}

	a := run()
	b := run()
	if len(a) != len(b) {
		t.Fatal("mismatched lengths across runs")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("byte %d diverged: %d vs %d", i, a[i], b[i])
		}
	}
}

func TestMutateLinearEmptyParent(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	e := New(rng)
	child := e.MutateLinear(nil)
	if len(child) != 0 {
		t.Fatalf("expected empty child for empty parent, got %d bytes", len(child))
	}
}

func TestMutateSplitValueOnlyPreservesStructure(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	e := New(rng)
	e.SetStructureWeight(0) // force value-only targeting

	structure := []byte{3} // "3-element list" tag
	value := []byte{1, 2, 3}

	result := e.MutateSplit(structure, value, nil)

	if result.StructureTouched {
		t.Fatal("structure weight 0 should never touch the structure stream")
	}
	if len(result.Structure) != len(structure) || result.Structure[0] != structure[0] {
		t.Fatalf("structure bytes changed: got %v, want %v", result.Structure, structure)
	}
}

func TestMutateSplitStructureMutationInvalidatesLog(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	e := New(rng)
	e.SetStructureWeight(1) // force structure-only targeting

	parentLog := []choice.AccessLogEntry{
		{Tag: choice.TagStructure, Offset: 0},
		{Tag: choice.TagValue, Offset: 0},
		{Tag: choice.TagStructure, Offset: 1},
		{Tag: choice.TagValue, Offset: 1},
	}

	result := e.MutateSplit([]byte{1, 2, 3}, []byte{9, 9, 9}, parentLog)

	if !result.StructureTouched {
		t.Fatal("structure weight 1 should touch the structure stream")
	}
	if len(result.AccessLog) >= len(parentLog) {
		t.Fatalf("expected access log to be truncated, got %d entries (started with %d)",
			len(result.AccessLog), len(parentLog))
	}
}

func TestMutateSplitEmptyInputs(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	e := New(rng)
	result := e.MutateSplit(nil, nil, nil)
	if len(result.Structure) != 0 || len(result.Value) != 0 {
		t.Fatal("expected empty result for empty parent")
	}
}
