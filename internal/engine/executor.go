package engine

import (
	"context"
	"fmt"

	"github.com/rowguard-labs/rowguard/internal/guard"
)

// Executor runs the result-producing phase of a query with sentinel
// inspection wired into the per-row path. It replaces the engine default
// row-delivery step as an injected pipeline stage: one Executor per process,
// constructed at bootstrap with the process-lifetime rule, shared read-only
// by every query it runs.
type Executor struct {
	rule *guard.Rule
}

// New creates an Executor bound to the given sentinel rule. A nil rule
// disarms inspection; everything else behaves like the engine default.
func New(rule *guard.Rule) *Executor {
	if rule == nil {
		rule = guard.Disarmed()
	}
	return &Executor{rule: rule}
}

// Rule returns the rule this executor inspects with.
func (e *Executor) Rule() *guard.Rule { return e.rule }

// Run is the interception point: the sole entry for executing a query's
// result-producing phase. count is the maximum number of rows to process
// (0 = no limit).
//
// Run panics on a nil descriptor, a descriptor without a plan, or an
// explain-only descriptor. Those are misuse by the surrounding engine, not
// runtime conditions this module recovers from.
//
// The returned ExecState carries the processed-row counter. The returned
// error is nil for every normal completion (plan exhausted, sink closed,
// row limit reached); a *guard.AbortError means a sentinel match, and the
// caller must unwind it to statement or connection teardown according to
// its scope.
func (e *Executor) Run(ctx context.Context, qd *QueryDescriptor, count uint64) (*ExecState, error) {
	if qd == nil {
		panic("engine: Run called with nil query descriptor")
	}
	if qd.ExplainOnly {
		panic("engine: Run called with explain-only query descriptor")
	}
	if qd.Plan == nil {
		panic("engine: query descriptor has no plan")
	}

	if qd.Instrument != nil {
		qd.Instrument.StartTimer()
	}

	state := &ExecState{}

	sendRows := qd.Operation == OpSelect || qd.HasReturning
	if sendRows && qd.Dest != nil {
		qd.Dest.Startup(qd.Operation, qd.Schema)
	}

	var err error
	if qd.Direction != NoMovement {
		err = e.executePlan(ctx, state, qd, sendRows, count)
	}

	// A sentinel abort unwinds through the caller's error path without the
	// ordinary completion steps; the session discards the sink wholesale.
	if _, aborted := guard.AsAbort(err); aborted {
		return state, err
	}

	if sendRows && qd.Dest != nil {
		qd.Dest.Shutdown()
	}
	if qd.Instrument != nil {
		qd.Instrument.StopTimer(state.Processed)
	}
	return state, err
}

// executePlan is the row execution loop. Each iteration fetches one row,
// optionally cleans it, forwards it, inspects it on SELECTs, counts it, and
// checks the row limit. Exactly one termination signal is chosen per row:
// continue, stop-normal, or abort.
func (e *Executor) executePlan(ctx context.Context, state *ExecState, qd *QueryDescriptor, sendRows bool, numberRows uint64) error {
	var currentRows uint64

	state.Direction = qd.Direction

	// A finite row limit means we might exit early, which is unsafe under
	// parallel execution, so force the plan to run without parallelism.
	useParallel := qd.ParallelMode && qd.Parallel != nil
	if numberRows != 0 {
		useParallel = false
	}
	if useParallel {
		qd.Parallel.Enter()
	}
	exitParallel := func() {
		if useParallel {
			qd.Parallel.Exit()
		}
	}

	for {
		row, err := qd.Plan.Next(ctx)
		if err != nil {
			// Fetch failures are immediately terminal. No retries.
			exitParallel()
			return fmt.Errorf("engine: plan fetch failed: %w", err)
		}

		// A nil row means there is nothing more to process: let the plan
		// release its resources and end the loop.
		if row == nil {
			_ = qd.Plan.Shutdown()
			break
		}

		if qd.Junk != nil {
			row = qd.Junk.Filter(row)
		}

		if sendRows {
			// A refused row means the destination has closed and no more
			// rows can be sent.
			if !qd.Dest.Receive(row) {
				break
			}
		}

		if qd.Operation == OpSelect {
			// Inspect the current row. A sentinel match on the guarded
			// relation aborts before this row is counted and before any
			// further row is fetched.
			if e.rule.Enabled() && row.Relation == e.rule.Relation() {
				if text, ok := row.Text(e.rule.Column()); ok && e.rule.Matches(text) {
					exitParallel()
					return e.rule.Abort()
				}
			}
			state.Processed++
			state.LastRelation = row.Relation
		}

		currentRows++
		if numberRows != 0 && numberRows == currentRows {
			break
		}
	}

	exitParallel()
	return nil
}
