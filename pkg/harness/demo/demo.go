// Package demo is a minimal, standard-library-only example harness and
// generator, used by `genfuzz demo` and pkg/trial's tests. It decodes a
// single byte off the Choice Stream, applies an assumption and a
// crashing condition, and reports a branch on the byte's high bit —
// enough surface to exercise every outcome in spec §8's S1-S3 scenarios.
package demo

import (
	"fmt"

	"github.com/genfuzz/genfuzz/internal/threadpool"
	"github.com/genfuzz/genfuzz/pkg/choice"
	"github.com/genfuzz/genfuzz/pkg/guidance"
)

// Args is the single resolved generator argument for this target.
type Args struct {
	X byte
}

// Generate reads one byte off the stream. Returns ok=false on EOF,
// which the driver treats as an INVALID trial (nothing to run).
func Generate(s choice.Stream) (Args, bool) {
	b, ok := s.ReadByte()
	if !ok {
		return Args{}, false
	}
	return Args{X: b}, true
}

const branchHighBit uint32 = 1
const branchLowBit uint32 = 2

// Invoke runs the target for one generated Args, reporting a branch
// event on whichever half of the byte range x falls into, then
// applying the assumption (x != 0) and the crashing condition (x ==
// 42). trace is typically contract.TraceCallback(0) from the calling
// driver.
func Invoke(trace guidance.TraceCallback, args Args) (outcome guidance.Outcome, err error) {
	if args.X&0x80 != 0 {
		trace(guidance.TraceEvent{Kind: guidance.TraceBranch, BranchID: branchHighBit})
	} else {
		trace(guidance.TraceEvent{Kind: guidance.TraceBranch, BranchID: branchLowBit})
	}

	defer func() {
		if r := recover(); r != nil {
			outcome = guidance.Failure
			err = &guidance.TrialFailure{
				Fingerprint: fmt.Sprintf("panic:%v", r),
				Message:     fmt.Sprintf("target panicked: %v", r),
			}
		}
	}()

	if args.X == 0 {
		return guidance.Invalid, &guidance.AssumptionViolated{Message: "x must be nonzero"}
	}
	if args.X == 42 {
		panic("x == 42")
	}
	_ = 100 / int(args.X)
	return guidance.Success, nil
}

// Run drives contract until it reports no further scheduled trials,
// invoking the target on a worker from pool so each trial's trace
// events arrive through the per-thread callback path (spec §5).
func Run(contract guidance.Contract, pool *threadpool.Pool) error {
	for contract.HasInput() {
		stream := contract.GetInput()
		args, ok := Generate(stream)
		if !ok {
			contract.HandleResult(guidance.Invalid, &guidance.AssumptionViolated{Message: "stream exhausted before a byte was available"})
			continue
		}
		contract.ObserveGenerated(args)

		type result struct {
			outcome guidance.Outcome
			err     error
		}
		done := make(chan result, 1)
		trace := contract.TraceCallback(0)

		submit := func() {
			outcome, err := Invoke(trace, args)
			done <- result{outcome, err}
		}

		if pool != nil {
			if err := pool.Submit(submit); err != nil {
				submit()
			}
		} else {
			submit()
		}

		r := <-done
		contract.HandleResult(r.outcome, r.err)
	}
	return nil
}
