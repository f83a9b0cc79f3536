package corpus

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultRandomParentProbability is p_random from spec §4.5: the
// fraction of select_parent calls that sample uniformly from the whole
// corpus instead of the favored set.
const DefaultRandomParentProbability = 0.1

// Corpus is the append-only, in-memory set of admitted Inputs with an
// on-disk mirror under dir/corpus/id_#### (spec §4.5).
type Corpus struct {
	mu                     sync.RWMutex
	dir                    string
	entries                []*Input
	byID                   map[int64]*Input
	favorites              *Favorites
	nextID                 int64
	randomParentProbability float64
}

// New returns a Corpus persisting admitted inputs under dir/corpus. If
// dir is empty, entries are kept in memory only.
func New(dir string) (*Corpus, error) {
	c := &Corpus{
		dir:                     dir,
		byID:                    make(map[int64]*Input),
		favorites:               NewFavorites(),
		randomParentProbability: DefaultRandomParentProbability,
	}
	if dir != "" {
		if err := os.MkdirAll(filepath.Join(dir, "corpus"), 0o755); err != nil {
			return nil, fmt.Errorf("corpus: create corpus dir: %w", err)
		}
	}
	return c, nil
}

// SetRandomParentProbability overrides p_random (default 0.1).
func (c *Corpus) SetRandomParentProbability(p float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.randomParentProbability = p
}

// Admit adds an Input to the corpus, assigns it an id, persists it to
// disk if a directory was configured, and updates the Favorites Map.
// Returns the assigned id.
func (c *Corpus) Admit(in *Input) (int64, error) {
	c.mu.Lock()
	c.nextID++
	in.ID = c.nextID
	c.entries = append(c.entries, in)
	c.byID[in.ID] = in
	dir := c.dir
	c.mu.Unlock()

	c.favorites.Consider(in)

	if dir != "" {
		if err := c.save(in); err != nil {
			return in.ID, fmt.Errorf("corpus: persist input %d: %w", in.ID, err)
		}
	}
	return in.ID, nil
}

// Get returns the Input with the given id.
func (c *Corpus) Get(id int64) (*Input, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	in, ok := c.byID[id]
	return in, ok
}

// Size returns the number of admitted inputs.
func (c *Corpus) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// All returns every admitted input, in admission order.
func (c *Corpus) All() []*Input {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Input, len(c.entries))
	copy(out, c.entries)
	return out
}

// FavoredInputs returns the current favorite-set cover.
func (c *Corpus) FavoredInputs() []*Input {
	return c.favorites.Inputs()
}

// SelectParent samples an Input to mutate next: with probability
// 1 - p_random from the favored set, otherwise uniformly from the whole
// corpus (spec §4.5). rng is supplied by the caller so selection stays
// deterministic under a fixed randomSeed.
func (c *Corpus) SelectParent(rng *rand.Rand) (*Input, bool) {
	c.mu.RLock()
	p := c.randomParentProbability
	total := len(c.entries)
	c.mu.RUnlock()

	if total == 0 {
		return nil, false
	}

	if rng.Float64() >= p {
		favored := c.FavoredInputs()
		if len(favored) > 0 {
			return favored[rng.Intn(len(favored))], true
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[rng.Intn(len(c.entries))], true
}

func (c *Corpus) save(in *Input) error {
	base := filepath.Join(c.dir, "corpus", fmt.Sprintf("id_%04d", in.ID))
	if in.SplitMode {
		if err := os.WriteFile(base+".structure", in.StructureBytes, 0o644); err != nil {
			return err
		}
		if err := os.WriteFile(base+".value", in.Bytes, 0o644); err != nil {
			return err
		}
	} else {
		if err := os.WriteFile(base, in.Bytes, 0o644); err != nil {
			return err
		}
	}

	meta, err := json.MarshalIndent(metadataOf(in), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(base+".json", meta, 0o644)
}

// metadata is the on-disk sidecar written alongside each corpus entry.
type metadata struct {
	ID                int64           `json:"id"`
	ParentID          *int64          `json:"parent_id,omitempty"`
	CreationOutcome   CreationOutcome `json:"creation_outcome"`
	SplitMode         bool            `json:"split_mode"`
	ExecutionTimeNS   int64           `json:"execution_time_ns"`
	MutationCount     int             `json:"mutation_count"`
	CoveredBranches   int             `json:"covered_branches"`
	FavoredBranches   []uint32        `json:"favored_branches,omitempty"`
}

func metadataOf(in *Input) metadata {
	return metadata{
		ID:              in.ID,
		ParentID:        in.ParentID,
		CreationOutcome: in.CreationOutcome,
		SplitMode:       in.SplitMode,
		ExecutionTimeNS: int64(in.ExecutionTime / time.Nanosecond),
		MutationCount:   in.MutationCount,
		CoveredBranches: len(in.CoverageSignature),
		FavoredBranches: in.FavoredBranches,
	}
}
