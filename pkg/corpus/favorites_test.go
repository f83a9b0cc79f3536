package corpus

import (
	"testing"
	"time"

	"github.com/genfuzz/genfuzz/pkg/coverage"
)

func TestConsiderClearsDisplacedIncumbentsFavoredBranches(t *testing.T) {
	f := NewFavorites()

	incumbent := &Input{Bytes: []byte{1, 2, 3, 4}, ExecutionTime: time.Millisecond, CoverageSignature: coverage.Signature{10: 1, 11: 1}}
	f.Consider(incumbent)
	if got := incumbent.FavoredBranches; len(got) != 2 {
		t.Fatalf("incumbent.FavoredBranches = %v, want both branches", got)
	}

	challenger := &Input{Bytes: []byte{1}, ExecutionTime: time.Millisecond, CoverageSignature: coverage.Signature{10: 1}}
	f.Consider(challenger)

	if got, want := f.byBranch[10], challenger; got != want {
		t.Fatal("expected the smaller challenger to take branch 10's favorite slot")
	}
	for _, b := range incumbent.FavoredBranches {
		if b == 10 {
			t.Fatal("displaced incumbent should no longer list branch 10 in FavoredBranches")
		}
	}
	if got := incumbent.FavoredBranches; len(got) != 1 || got[0] != 11 {
		t.Fatalf("incumbent.FavoredBranches = %v, want only [11]", got)
	}
}
