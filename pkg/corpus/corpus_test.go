package corpus

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/genfuzz/genfuzz/pkg/coverage"
)

func newTestCorpus(t *testing.T) *Corpus {
	t.Helper()
	dir := t.TempDir()
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestAdmitAssignsMonotonicIDs(t *testing.T) {
	c := newTestCorpus(t)

	id1, err := c.Admit(&Input{Bytes: []byte{1}, CoverageSignature: coverage.Signature{1: 1}})
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	id2, err := c.Admit(&Input{Bytes: []byte{2}, CoverageSignature: coverage.Signature{2: 1}})
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if id2 <= id1 {
		t.Fatalf("expected monotonic ids, got %d then %d", id1, id2)
	}
	if c.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", c.Size())
	}
}

func TestAdmitPersistsToDisk(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	id, err := c.Admit(&Input{Bytes: []byte{0xAB, 0xCD}, CoverageSignature: coverage.Signature{1: 1}})
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}

	path := filepath.Join(dir, "corpus", "id_0001")
	if id != 1 {
		t.Fatalf("expected id 1, got %d", id)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading saved input: %v", err)
	}
	if string(data) != "\xab\xcd" {
		t.Fatalf("saved input bytes mismatch: %x", data)
	}
	if _, err := os.Stat(path + ".json"); err != nil {
		t.Fatalf("expected metadata sidecar: %v", err)
	}
}

func TestFavoritesPicksSmallestThenFastest(t *testing.T) {
	c := newTestCorpus(t)

	big := &Input{Bytes: []byte{1, 2, 3, 4}, ExecutionTime: time.Millisecond, CoverageSignature: coverage.Signature{10: 1}}
	small := &Input{Bytes: []byte{1}, ExecutionTime: time.Second, CoverageSignature: coverage.Signature{10: 1}}

	if _, err := c.Admit(big); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Admit(small); err != nil {
		t.Fatal(err)
	}

	favored, ok := c.favorites.Get(10)
	if !ok {
		t.Fatal("expected a favorite for branch 10")
	}
	if favored != small {
		t.Fatal("expected the smaller input to become the favorite regardless of arrival order")
	}
}

func TestSelectParentDeterministicUnderSeed(t *testing.T) {
	c := newTestCorpus(t)
	for i := 0; i < 5; i++ {
		if _, err := c.Admit(&Input{Bytes: []byte{byte(i)}, CoverageSignature: coverage.Signature{uint32(i): 1}}); err != nil {
			t.Fatal(err)
		}
	}

	pick := func() []int64 {
		rng := rand.New(rand.NewSource(7))
		var ids []int64
		for i := 0; i < 20; i++ {
			in, ok := c.SelectParent(rng)
			if !ok {
				t.Fatal("expected a parent")
			}
			ids = append(ids, in.ID)
		}
		return ids
	}

	a := pick()
	b := pick()
	if len(a) != len(b) {
		t.Fatal("mismatched pick lengths")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("selection diverged at index %d: %d vs %d", i, a[i], b[i])
		}
	}
}

func TestSelectParentEmptyCorpus(t *testing.T) {
	c := newTestCorpus(t)
	rng := rand.New(rand.NewSource(1))
	if _, ok := c.SelectParent(rng); ok {
		t.Fatal("expected no parent from an empty corpus")
	}
}

func TestFailureRegistryDedup(t *testing.T) {
	r := NewFailureRegistry()
	fp := NewFingerprint("RuntimeError", "frame:42")

	first := r.Record(&Failure{Input: &Input{ID: 1}, Fingerprint: fp})
	second := r.Record(&Failure{Input: &Input{ID: 2}, Fingerprint: fp})

	if !first {
		t.Fatal("first Record with a new fingerprint should succeed")
	}
	if second {
		t.Fatal("second Record with the same fingerprint should be rejected")
	}
	if r.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", r.Count())
	}
}
