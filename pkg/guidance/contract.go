// Package guidance defines the external contract between the fuzzing
// core and a test harness (spec §6), plus the error taxonomy the core
// uses to classify what happened during a trial (spec §7).
package guidance

import "github.com/genfuzz/genfuzz/pkg/choice"

// Outcome is the harness's verdict on one invocation of the target.
type Outcome int

const (
	Success Outcome = iota
	Invalid
	Failure
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "SUCCESS"
	case Invalid:
		return "INVALID"
	case Failure:
		return "FAILURE"
	default:
		return "UNKNOWN"
	}
}

// TraceEvent is one instrumentation callback. Only Branch events affect
// coverage; the others are reserved for extension engines doing
// execution-indexing (spec §6).
type TraceEvent struct {
	Kind     TraceKind
	IID      uint32
	BranchID uint32
	TakenArm uint8
	Size     uint64
	Object   uint64
	Field    string
}

// TraceKind discriminates TraceEvent.Kind.
type TraceKind int

const (
	TraceBranch TraceKind = iota
	TraceCall
	TraceReturn
	TraceAlloc
	TraceRead
)

// TraceCallback consumes trace events from one thread of target
// execution.
type TraceCallback func(TraceEvent)

// Contract is the guidance API the core exposes to the external test
// harness (spec §6). Implementations must be safe to call from the
// single loop thread plus any thread the harness itself spawns for
// TraceCallback only.
type Contract interface {
	// HasInput reports whether another trial is scheduled. May block
	// until a scheduling decision is reached.
	HasInput() bool

	// GetInput opens the Choice Stream for the scheduled input. Invoked
	// at most once per successful HasInput call.
	GetInput() choice.Stream

	// ObserveGenerated is an optional hook the harness uses to report
	// resolved generator arguments, used for reporting only.
	ObserveGenerated(args interface{})

	// HandleResult is invoked exactly once per GetInput call.
	HandleResult(outcome Outcome, err error)

	// TraceCallback returns a per-thread trace consumer. Called once
	// per thread the harness spawns, including the main trial thread.
	TraceCallback(thread uint64) TraceCallback
}
