// Package scheduler implements the state machine that decides which
// saved input to mutate next, interleaving seed replay, exploitation,
// and occasional fully-random injection (spec §4.7).
package scheduler

import (
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/genfuzz/genfuzz/pkg/choice"
	"github.com/genfuzz/genfuzz/pkg/corpus"
	"github.com/genfuzz/genfuzz/pkg/mutator"
)

// State is the scheduler's current phase (spec §4.7).
type State int

const (
	Seeding State = iota
	Exploiting
	ReplayingSeed
)

func (s State) String() string {
	switch s {
	case Seeding:
		return "SEEDING"
	case ReplayingSeed:
		return "REPLAYING_SEED"
	default:
		return "EXPLOITING"
	}
}

// ScheduledInput is everything the Trial Runner needs to run one trial:
// the concrete bytes (for corpus persistence on admission) and a ready
// Choice Stream built from them.
type ScheduledInput struct {
	ParentID        *int64
	CreationOutcome corpus.CreationOutcome
	Bytes           []byte
	StructureBytes  []byte
	SplitMode       bool
	Stream          choice.Stream
	ParentLog       []choice.AccessLogEntry
}

// Config bounds a scheduler run (spec §6's CLI surface, the subset the
// scheduler itself consumes).
type Config struct {
	SeedDir           string
	SplitMode         bool
	FixedSize         bool
	Duration          time.Duration
	TrialCap          int64
	ExitOnCrash       bool
	RandomInjectEvery func(corpusSize int) int // default: every 100th trial, scaled by corpus size
}

// DefaultInjectionInterval emits a fully random input roughly every
// 100 trials, widening as the corpus grows so exploitation dominates
// once there is real coverage signal to chase (spec §4.7).
func DefaultInjectionInterval(corpusSize int) int {
	n := 100 + corpusSize*2
	if n < 1 {
		n = 1
	}
	return n
}

// Scheduler drives the SEEDING -> EXPLOITING <-> REPLAYING_SEED state
// machine described in spec §4.7.
type Scheduler struct {
	cfg       Config
	corpus    *corpus.Corpus
	mutEngine *mutator.Engine
	rng       *rand.Rand
	extend    choice.Extender

	mu           sync.Mutex
	state        State
	seedFiles    []string
	seedCursor   int
	replayCursor int
	trialCount   int64
	startedAt    time.Time
	stopRequest  int32
	hasFailure   int32
}

// New returns a Scheduler. rng drives every scheduling decision
// (parent selection, mutation, random injection) so the whole run is
// reproducible under a fixed randomSeed (spec §8 S6).
func New(cfg Config, c *corpus.Corpus, rng *rand.Rand) *Scheduler {
	if cfg.RandomInjectEvery == nil {
		cfg.RandomInjectEvery = DefaultInjectionInterval
	}
	extend := func(n int) []byte {
		b := make([]byte, n)
		for i := range b {
			b[i] = byte(rng.Intn(256))
		}
		return b
	}
	s := &Scheduler{
		cfg:       cfg,
		corpus:    c,
		mutEngine: mutator.New(rng),
		rng:       rng,
		extend:    extend,
		state:     Seeding,
		startedAt: time.Now(),
	}
	s.seedFiles = discoverSeeds(cfg.SeedDir)
	if len(s.seedFiles) == 0 {
		s.state = Exploiting
	}
	return s
}

func discoverSeeds(dir string) []string {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if filepath.Ext(name) == ".structure" {
			continue // paired with .value; picked up by its .value sibling
		}
		out = append(out, filepath.Join(dir, name))
	}
	return out
}

// RequestStop sets the monotonic stop flag checked between trials
// (spec §5's cancellation model).
func (s *Scheduler) RequestStop() {
	atomic.StoreInt32(&s.stopRequest, 1)
}

// NoteFailure records that a failure occurred, for the exitOnCrash
// termination check.
func (s *Scheduler) NoteFailure() {
	atomic.StoreInt32(&s.hasFailure, 1)
}

// ShouldStop reports whether the scheduler has reached a termination
// condition: deadline, trial cap, external stop request, or
// exit-on-crash with a recorded failure (spec §4.7, §5).
func (s *Scheduler) ShouldStop() bool {
	if atomic.LoadInt32(&s.stopRequest) == 1 {
		return true
	}
	if s.cfg.ExitOnCrash && atomic.LoadInt32(&s.hasFailure) == 1 {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.TrialCap > 0 && s.trialCount >= s.cfg.TrialCap {
		return true
	}
	if s.cfg.Duration > 0 && time.Since(s.startedAt) >= s.cfg.Duration {
		return true
	}
	return false
}

// State returns the scheduler's current phase.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// TrialCount returns the number of inputs scheduled so far.
func (s *Scheduler) TrialCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trialCount
}

// Next produces the next scheduled input: a remaining seed file, a
// fully random injection, or a mutated child of a selected parent
// (spec §4.7).
func (s *Scheduler) Next() (*ScheduledInput, error) {
	s.mu.Lock()
	s.trialCount++
	state := s.state
	s.mu.Unlock()

	if state == Seeding {
		in, ok := s.nextSeed()
		if ok {
			return in, nil
		}
		s.mu.Lock()
		s.state = Exploiting
		s.mu.Unlock()
	}

	corpusSize := s.corpus.Size()
	interval := s.cfg.RandomInjectEvery(corpusSize)
	if interval > 0 && s.TrialCount()%int64(interval) == 0 {
		// Alternate the periodic deviation from pure mutation between a
		// fully random input and a replayed seed (spec §4.7's
		// EXPLOITING <-> REPLAYING_SEED edge): a seed exhausted during
		// SEEDING may now exercise coverage a grown corpus couldn't reach
		// at startup, so it gets a second look at the same cadence as
		// random injection rather than never running again.
		if len(s.seedFiles) > 0 && (s.TrialCount()/int64(interval))%2 == 1 {
			return s.replaySeed(), nil
		}
		return s.randomInput(), nil
	}

	return s.mutateFromParent()
}

// replaySeed re-enters REPLAYING_SEED to run an already-consumed seed
// file again, unmutated, against the scheduler's current corpus state
// (spec §4.7). Falls back to a random input if the seed can no longer
// be read.
func (s *Scheduler) replaySeed() *ScheduledInput {
	s.mu.Lock()
	s.state = ReplayingSeed
	path := s.seedFiles[s.replayCursor%len(s.seedFiles)]
	s.replayCursor++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.state = Exploiting
		s.mu.Unlock()
	}()

	data, err := os.ReadFile(path)
	if err != nil {
		return s.randomInput()
	}

	if s.cfg.SplitMode {
		structure, value := splitSeed(path, data)
		return &ScheduledInput{
			CreationOutcome: corpus.CreationSeed,
			Bytes:           value,
			StructureBytes:  structure,
			SplitMode:       true,
			Stream:          choice.NewSplitWithExtender(structure, value, s.cfg.FixedSize, s.extend),
		}
	}
	return &ScheduledInput{
		CreationOutcome: corpus.CreationSeed,
		Bytes:           data,
		Stream:          choice.NewLinearWithExtender(data, s.cfg.FixedSize, s.extend),
	}
}

func (s *Scheduler) nextSeed() (*ScheduledInput, bool) {
	s.mu.Lock()
	if s.seedCursor >= len(s.seedFiles) {
		s.mu.Unlock()
		return nil, false
	}
	path := s.seedFiles[s.seedCursor]
	s.seedCursor++
	s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	if s.cfg.SplitMode {
		structure, value := splitSeed(path, data)
		return &ScheduledInput{
			CreationOutcome: corpus.CreationSeed,
			Bytes:           value,
			StructureBytes:  structure,
			SplitMode:       true,
			Stream:          choice.NewSplitWithExtender(structure, value, s.cfg.FixedSize, s.extend),
		}, true
	}

	return &ScheduledInput{
		CreationOutcome: corpus.CreationSeed,
		Bytes:           data,
		Stream:          choice.NewLinearWithExtender(data, s.cfg.FixedSize, s.extend),
	}, true
}

// splitSeed loads a split-mode seed. A sibling "<name>.value" file next
// to a ".structure" file is preferred; otherwise the file is treated as
// a concatenation prefixed by a 4-byte big-endian structural length
// (spec §6).
func splitSeed(path string, data []byte) (structure, value []byte) {
	valuePath := path
	structurePath := path + ".structure"
	if filepath.Ext(path) == ".value" {
		structurePath = path[:len(path)-len(".value")] + ".structure"
	}
	if sdata, err := os.ReadFile(structurePath); err == nil {
		if vdata, err := os.ReadFile(valuePath); err == nil {
			return sdata, vdata
		}
	}
	if len(data) >= 4 {
		n := int(data[0])<<24 | int(data[1])<<16 | int(data[2])<<8 | int(data[3])
		if n >= 0 && n+4 <= len(data) {
			return data[4 : 4+n], data[4+n:]
		}
	}
	return nil, data
}

func (s *Scheduler) randomInput() *ScheduledInput {
	if s.cfg.SplitMode {
		return &ScheduledInput{
			CreationOutcome: corpus.CreationRandom,
			SplitMode:       true,
			Stream:          choice.NewSplitWithExtender(nil, nil, false, s.extend),
		}
	}
	return &ScheduledInput{
		CreationOutcome: corpus.CreationRandom,
		Stream:          choice.NewLinearWithExtender(nil, false, s.extend),
	}
}

func (s *Scheduler) mutateFromParent() (*ScheduledInput, error) {
	parent, ok := s.corpus.SelectParent(s.rng)
	if !ok {
		return s.randomInput(), nil
	}

	parentID := parent.ID
	if s.cfg.SplitMode && parent.SplitMode {
		result := s.mutEngine.MutateSplit(parent.StructureBytes, parent.Bytes, nil)
		return &ScheduledInput{
			ParentID:        &parentID,
			CreationOutcome: corpus.CreationFavored,
			Bytes:           result.Value,
			StructureBytes:  result.Structure,
			SplitMode:       true,
			Stream:          choice.NewSplitWithExtender(result.Structure, result.Value, s.cfg.FixedSize, s.extend),
			ParentLog:       result.AccessLog,
		}, nil
	}

	child := s.mutEngine.MutateLinear(parent.Bytes)
	return &ScheduledInput{
		ParentID:        &parentID,
		CreationOutcome: corpus.CreationFavored,
		Bytes:           child,
		Stream:          choice.NewLinearWithExtender(child, s.cfg.FixedSize, s.extend),
	}, nil
}
