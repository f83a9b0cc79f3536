package corpus

import (
	"time"

	"github.com/genfuzz/genfuzz/pkg/coverage"
)

// CreationOutcome classifies how an Input came to exist (spec §3).
type CreationOutcome string

const (
	CreationSeed    CreationOutcome = "seed"
	CreationFavored CreationOutcome = "favored"
	CreationRandom  CreationOutcome = "random"
)

// Input is an admitted choice-sequence plus its bookkeeping. Fields are
// set at admission time and not mutated afterward, except
// FavoredBranches, which Favorites updates as better candidates arrive.
type Input struct {
	ID                int64
	ParentID          *int64
	CreationOutcome   CreationOutcome
	Bytes             []byte
	StructureBytes    []byte // split mode only; nil in linear mode
	SplitMode         bool
	CoverageSignature coverage.Signature
	FavoredBranches   []uint32
	ExecutionTime     time.Duration
	MutationCount     int
}

// Size is the byte length used for Favorites tie-breaking (size first,
// then execution time — spec §3, §4.3).
func (in *Input) Size() int {
	return len(in.Bytes) + len(in.StructureBytes)
}

// dominates reports whether in is a better Favorites candidate than
// other for some shared branch: smaller size wins, ties broken by
// shorter execution time.
func (in *Input) dominates(other *Input) bool {
	if in.Size() != other.Size() {
		return in.Size() < other.Size()
	}
	return in.ExecutionTime < other.ExecutionTime
}

// removeFavoredBranch drops branchID from FavoredBranches, called when a
// dominating candidate displaces in from that branch's favorite slot so
// FavoredBranches never lists a branch in no longer represents. The
// sidecar metadata written at admission is not rewritten.
func (in *Input) removeFavoredBranch(branchID uint32) {
	for i, b := range in.FavoredBranches {
		if b == branchID {
			in.FavoredBranches = append(in.FavoredBranches[:i], in.FavoredBranches[i+1:]...)
			return
		}
	}
}
