// Package trial drives one scheduled input through the external test
// harness via the guidance.Contract, classifies the outcome, and folds
// it into coverage, the corpus, and the failure registry (spec §4.8).
package trial

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/genfuzz/genfuzz/pkg/choice"
	"github.com/genfuzz/genfuzz/pkg/corpus"
	"github.com/genfuzz/genfuzz/pkg/coverage"
	"github.com/genfuzz/genfuzz/pkg/diversity"
	"github.com/genfuzz/genfuzz/pkg/guidance"
	"github.com/genfuzz/genfuzz/pkg/scheduler"
)

// FailureWriter persists a FAILURE outcome's input and stack trace
// under the configured failures/ directory (spec §4.8, §4.9). Kept as
// an interface so pkg/trial does not depend on pkg/persist directly.
type FailureWriter interface {
	WriteFailure(id int64, bytes, structureBytes []byte, splitMode bool, stacktrace string) error
}

// Config bounds the Trial Runner's admission policy and throttling.
type Config struct {
	SaveAll              bool
	AdmitOnDiversityGain bool
	DiversityEpsilon     float64
	RunTimeout           time.Duration
	StatsRefreshPeriod   time.Duration
	MaxExecsPerSec       float64 // 0 disables the throttle
}

// Runner implements guidance.Contract, tying the Scheduler, Coverage
// Map, Novelty Filter, Cumulative Coverage, Corpus, and Failure
// Registry together into the trial lifecycle of spec §4.8.
type Runner struct {
	cfg Config

	scheduler  *scheduler.Scheduler
	corpus     *corpus.Corpus
	cumulative *coverage.Cumulative
	novelty    *coverage.NoveltyFilter
	failures   *corpus.FailureRegistry
	gate       *diversity.Gate
	writer     FailureWriter
	limiter    *rate.Limiter

	stats *Stats

	mu                sync.Mutex
	trialCoverage     *coverage.Map
	pending           *scheduler.ScheduledInput
	pendingStart      time.Time
	lastAdmittedH1    float64
	lastObservedArgs  interface{}
	onStatsLine       func(Snapshot)
}

// Snapshot is what gets handed to a stats-line reporter each time the
// refresh period elapses.
type Snapshot struct {
	Stats       Stats
	ExecsPerSec float64
	CorpusSize  int
	Diversity   diversity.Numbers
	Failures    int
}

// New returns a Runner. writer may be nil, in which case FAILURE
// outcomes are recorded in the Failure Registry but not persisted to
// disk (used by the in-memory `genfuzz demo` command).
func New(cfg Config, sched *scheduler.Scheduler, c *corpus.Corpus, cumulative *coverage.Cumulative, novelty *coverage.NoveltyFilter, failures *corpus.FailureRegistry, writer FailureWriter) *Runner {
	var limiter *rate.Limiter
	if cfg.MaxExecsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.MaxExecsPerSec), 1)
	}
	return &Runner{
		cfg:           cfg,
		scheduler:     sched,
		corpus:        c,
		cumulative:    cumulative,
		novelty:       novelty,
		failures:      failures,
		gate:          diversity.NewGate(0),
		writer:        writer,
		limiter:       limiter,
		stats:         NewStats(time.Now()),
		trialCoverage: coverage.New(),
	}
}

// OnStatsLine registers a callback invoked whenever the configured
// StatsRefreshPeriod elapses (spec §4.8 "emit stats line").
func (r *Runner) OnStatsLine(fn func(Snapshot)) {
	r.onStatsLine = fn
}

// HasInput implements guidance.Contract.
func (r *Runner) HasInput() bool {
	return !r.scheduler.ShouldStop()
}

// GetInput implements guidance.Contract.
func (r *Runner) GetInput() choice.Stream {
	if r.limiter != nil {
		_ = r.limiter.Wait(context.Background())
	}

	in, err := r.scheduler.Next()
	if err != nil || in == nil {
		// Scheduler invariant violation: surface as an empty, immediately
		// exhausted stream rather than a nil dereference further down.
		in = &scheduler.ScheduledInput{Stream: choice.NewLinear(nil, true)}
	}

	r.mu.Lock()
	r.trialCoverage.Clear()
	r.pending = in
	r.pendingStart = time.Now()
	r.mu.Unlock()

	return in.Stream
}

// ObserveGenerated implements guidance.Contract.
func (r *Runner) ObserveGenerated(args interface{}) {
	r.mu.Lock()
	r.lastObservedArgs = args
	r.mu.Unlock()
}

// TraceCallback implements guidance.Contract. Every thread the harness
// spawns gets its own closure, but all of them fold into the same
// per-trial Map, which serializes increments internally (spec §5).
func (r *Runner) TraceCallback(thread uint64) guidance.TraceCallback {
	return func(ev guidance.TraceEvent) {
		if ev.Kind != guidance.TraceBranch {
			return
		}
		r.trialCoverage.Increment(ev.BranchID)
	}
}

// HandleResult implements guidance.Contract.
func (r *Runner) HandleResult(outcome guidance.Outcome, err error) {
	r.mu.Lock()
	in := r.pending
	elapsed := time.Since(r.pendingStart)
	r.pending = nil
	r.mu.Unlock()

	r.stats.recordExec(elapsed)

	switch outcome {
	case guidance.Success:
		r.handleSuccess(in, elapsed)
	case guidance.Invalid:
		r.stats.recordInvalid()
	case guidance.Failure:
		r.handleFailure(in, err)
	}

	r.maybeEmitStats()
}

func (r *Runner) handleSuccess(in *scheduler.ScheduledInput, elapsed time.Duration) {
	r.stats.recordValid()

	class, sig := r.novelty.Classify(r.trialCoverage, r.cumulative)
	r.cumulative.Fold(r.trialCoverage)

	admit := class != coverage.Redundant

	if !admit && r.cfg.AdmitOnDiversityGain {
		hist := r.cumulative.Histogram()
		current := diversity.Compute(hist)
		r.mu.Lock()
		baseline := r.lastAdmittedH1
		r.mu.Unlock()
		if diversity.GrowthSince(diversity.Numbers{H1: baseline}, current) >= r.cfg.DiversityEpsilon {
			admit = true
		}
	}

	if !admit && !r.cfg.SaveAll {
		return
	}

	mutationCount := 0
	if in.ParentID != nil {
		if parent, ok := r.corpus.Get(*in.ParentID); ok {
			mutationCount = parent.MutationCount + 1
		}
	}

	newInput := &corpus.Input{
		ParentID:          in.ParentID,
		CreationOutcome:   in.CreationOutcome,
		Bytes:             in.Bytes,
		StructureBytes:    in.StructureBytes,
		SplitMode:         in.SplitMode,
		CoverageSignature: sig,
		ExecutionTime:     elapsed,
		MutationCount:     mutationCount,
	}
	if _, err := r.corpus.Admit(newInput); err != nil {
		return
	}

	r.novelty.Record(sig)

	hist := r.cumulative.Histogram()
	numbers := diversity.Compute(hist)
	r.mu.Lock()
	r.lastAdmittedH1 = numbers.H1
	r.mu.Unlock()
}

func (r *Runner) handleFailure(in *scheduler.ScheduledInput, err error) {
	r.stats.recordFailure()
	r.scheduler.NoteFailure()

	if err == nil {
		err = &guidance.TrialFailure{Message: "unspecified failure"}
	}
	fp := fingerprintFor(err)

	failure := &corpus.Failure{
		Input: &corpus.Input{
			Bytes:          in.Bytes,
			StructureBytes: in.StructureBytes,
			SplitMode:      in.SplitMode,
		},
		Fingerprint: fp,
		StackTrace:  err.Error(),
	}

	if !r.failures.Record(failure) {
		return
	}

	if r.writer != nil {
		_ = r.writer.WriteFailure(failure.ID, in.Bytes, in.StructureBytes, in.SplitMode, err.Error())
	}
}

func (r *Runner) maybeEmitStats() {
	now := time.Now()
	if !r.stats.shouldEmit(now, r.cfg.StatsRefreshPeriod) {
		return
	}
	if r.onStatsLine == nil {
		return
	}
	r.onStatsLine(r.snapshot(now))
}

func (r *Runner) snapshot(now time.Time) Snapshot {
	numbers, _ := r.gate.Refresh(r.cumulative.Histogram())
	return Snapshot{
		Stats:       r.stats.Snapshot(),
		ExecsPerSec: r.stats.ExecsPerSec(now),
		CorpusSize:  r.corpus.Size(),
		Diversity:   numbers,
		Failures:    r.failures.Count(),
	}
}

// Stats returns the runner's live counters.
func (r *Runner) Stats() *Stats { return r.stats }

// Snapshot returns a point-in-time view of the run's stats, corpus
// size, diversity numbers, and failure count, for external consumers
// like internal/monitor's status server.
func (r *Runner) Snapshot() Snapshot { return r.snapshot(time.Now()) }

// ObservedArgsJSON marshals the most recently observed generator
// arguments (the value reported by the harness's ObserveGenerated call)
// to JSON, for reporting layers that need to pull individual fields out
// of it (e.g. pkg/persist's gjson-backed field extraction for the
// fuzz.log line, spec §11). Returns "" before the first ObserveGenerated
// call, or if the value cannot be marshaled.
func (r *Runner) ObservedArgsJSON() string {
	r.mu.Lock()
	args := r.lastObservedArgs
	r.mu.Unlock()

	if args == nil {
		return ""
	}
	data, err := json.Marshal(args)
	if err != nil {
		return ""
	}
	return string(data)
}
