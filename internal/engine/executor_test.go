package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/rowguard-labs/rowguard/internal/guard"
)

const (
	guardedRelation guard.RelationID = 16389
	otherRelation   guard.RelationID = 16401
)

func guardedRule(statementOnly bool) *guard.Rule {
	return guard.NewRule(guardedRelation, 2, "SENTINEL", statementOnly)
}

func row(rel guard.RelationID, values ...any) *Row {
	return &Row{Relation: rel, Values: values}
}

func selectDescriptor(plan PlanNode, dest Sink) *QueryDescriptor {
	return &QueryDescriptor{
		Plan:      plan,
		Operation: OpSelect,
		Dest:      dest,
		Schema:    &RowSchema{Columns: []ColumnDef{{Name: "id"}, {Name: "email"}}},
		Direction: Forward,
	}
}

// recordingParallel counts Enter/Exit calls.
type recordingParallel struct {
	enters int
	exits  int
}

func (p *recordingParallel) Enter() { p.enters++ }
func (p *recordingParallel) Exit()  { p.exits++ }

// refusingSink accepts a fixed number of rows, then refuses.
type refusingSink struct {
	CollectSink
	accept int
}

func (s *refusingSink) Receive(r *Row) bool {
	if len(s.CollectSink.Rows()) >= s.accept {
		return false
	}
	return s.CollectSink.Receive(r)
}

// errorPlan fails on the first fetch.
type errorPlan struct {
	err      error
	shutdown bool
}

func (p *errorPlan) Next(ctx context.Context) (*Row, error) { return nil, p.err }
func (p *errorPlan) Shutdown() error                        { p.shutdown = true; return nil }

func TestRun_ForwardsAllRowsWhenNothingMatches(t *testing.T) {
	plan := NewSlicePlan(
		row(guardedRelation, 1, "alice"),
		row(guardedRelation, 2, "bob"),
		row(guardedRelation, 3, "carol"),
	)
	sink := NewCollectSink()
	timer := &RunTimer{}
	qd := selectDescriptor(plan, sink)
	qd.Instrument = timer

	exec := New(guardedRule(false))
	state, err := exec.Run(context.Background(), qd, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if state.Processed != 3 {
		t.Errorf("expected 3 processed rows, got %d", state.Processed)
	}
	if len(sink.Rows()) != 3 {
		t.Errorf("expected 3 forwarded rows, got %d", len(sink.Rows()))
	}
	if !plan.WasShutdown() {
		t.Error("expected plan shutdown on exhaustion")
	}
	if !sink.Started() || !sink.WasShutdown() {
		t.Error("expected sink startup and shutdown on normal completion")
	}
	if timer.Running {
		t.Error("expected timer stopped on normal completion")
	}
	if timer.Rows != 3 {
		t.Errorf("expected timer to record 3 rows, got %d", timer.Rows)
	}
}

// TestRun_AbortsOnSentinelMatch walks the reference scenario: guarded
// relation 16389, column 2, rows (1,"alice"), (2,"SENTINEL-9"), (3,"bob").
// The matched row is forwarded before inspection; no later row is fetched.
func TestRun_AbortsOnSentinelMatch(t *testing.T) {
	for _, tc := range []struct {
		name          string
		statementOnly bool
		wantScope     guard.Scope
	}{
		{"connection scope", false, guard.ScopeConnection},
		{"statement scope", true, guard.ScopeStatement},
	} {
		t.Run(tc.name, func(t *testing.T) {
			plan := NewSlicePlan(
				row(guardedRelation, 1, "alice"),
				row(guardedRelation, 2, "SENTINEL-9"),
				row(guardedRelation, 3, "bob"),
			)
			sink := NewCollectSink()
			timer := &RunTimer{}
			qd := selectDescriptor(plan, sink)
			qd.Instrument = timer

			exec := New(guardedRule(tc.statementOnly))
			state, err := exec.Run(context.Background(), qd, 0)

			abort, ok := guard.AsAbort(err)
			if !ok {
				t.Fatalf("expected abort, got %v", err)
			}
			if abort.Scope() != tc.wantScope {
				t.Errorf("expected %v scope, got %v", tc.wantScope, abort.Scope())
			}
			if abort.Error() != "severe internal error detected" {
				t.Errorf("unexpected message: %q", abort.Error())
			}

			// The matched row was already forwarded when inspection ran.
			if len(sink.Rows()) != 2 {
				t.Fatalf("expected 2 forwarded rows, got %d", len(sink.Rows()))
			}
			// The matched row is not counted.
			if state.Processed != 1 {
				t.Errorf("expected 1 processed row, got %d", state.Processed)
			}
			// The abort skips the ordinary completion steps.
			if sink.WasShutdown() {
				t.Error("sink must not be shut down on abort")
			}
			if plan.WasShutdown() {
				t.Error("plan must not be shut down by the abort path")
			}
			if !timer.Running {
				t.Error("timer must not be stopped on abort")
			}
		})
	}
}

// TestRun_IgnoresOtherRelations proves a matching value in a different
// relation, or in an untagged row, never trips the rule.
func TestRun_IgnoresOtherRelations(t *testing.T) {
	plan := NewSlicePlan(
		row(otherRelation, 1, "SENTINEL-9"),
		row(guard.InvalidRelation, 2, "SENTINEL"),
	)
	sink := NewCollectSink()

	exec := New(guardedRule(false))
	state, err := exec.Run(context.Background(), selectDescriptor(plan, sink), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Processed != 2 {
		t.Errorf("expected 2 processed rows, got %d", state.Processed)
	}
}

// TestRun_IgnoresWriteRows proves rows produced by write statements bypass
// inspection even when they carry the sentinel value.
func TestRun_IgnoresWriteRows(t *testing.T) {
	plan := NewSlicePlan(row(guardedRelation, 1, "SENTINEL"))
	sink := NewCollectSink()
	qd := selectDescriptor(plan, sink)
	qd.Operation = OpUpdate
	qd.HasReturning = true

	exec := New(guardedRule(false))
	state, err := exec.Run(context.Background(), qd, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// RETURNING rows are forwarded but not counted as SELECT rows.
	if len(sink.Rows()) != 1 {
		t.Errorf("expected the returning row to be forwarded, got %d rows", len(sink.Rows()))
	}
	if state.Processed != 0 {
		t.Errorf("expected 0 processed rows for a write, got %d", state.Processed)
	}
}

func TestRun_DisarmedRuleInspectsNothing(t *testing.T) {
	plan := NewSlicePlan(
		row(guardedRelation, 1, "SENTINEL"),
		row(guardedRelation, 2, "SENTINEL-9"),
	)
	sink := NewCollectSink()

	exec := New(nil)
	state, err := exec.Run(context.Background(), selectDescriptor(plan, sink), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Processed != 2 {
		t.Errorf("expected 2 processed rows, got %d", state.Processed)
	}
}

func TestRun_RowLimitStopsEarly(t *testing.T) {
	plan := NewSlicePlan(
		row(guardedRelation, 1, "a"),
		row(guardedRelation, 2, "b"),
		row(guardedRelation, 3, "c"),
	)
	sink := NewCollectSink()

	exec := New(guardedRule(false))
	state, err := exec.Run(context.Background(), selectDescriptor(plan, sink), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Processed != 2 {
		t.Errorf("expected 2 processed rows, got %d", state.Processed)
	}
	if len(sink.Rows()) != 2 {
		t.Errorf("expected 2 forwarded rows, got %d", len(sink.Rows()))
	}
	// Early stop via the limit is a normal completion.
	if !sink.WasShutdown() {
		t.Error("expected sink shutdown after limit stop")
	}
}

// TestRun_SentinelBeatsRowLimit proves inspection runs before the limit
// check: a match on the last allowed row still aborts.
func TestRun_SentinelBeatsRowLimit(t *testing.T) {
	plan := NewSlicePlan(
		row(guardedRelation, 1, "alice"),
		row(guardedRelation, 2, "SENTINEL-9"),
	)
	sink := NewCollectSink()

	exec := New(guardedRule(false))
	_, err := exec.Run(context.Background(), selectDescriptor(plan, sink), 2)
	if _, ok := guard.AsAbort(err); !ok {
		t.Fatalf("expected abort, got %v", err)
	}
}

func TestRun_ParallelModeBracketsTheLoop(t *testing.T) {
	parallel := &recordingParallel{}
	plan := NewSlicePlan(row(guardedRelation, 1, "a"))
	qd := selectDescriptor(plan, NewCollectSink())
	qd.Parallel = parallel
	qd.ParallelMode = true

	exec := New(guardedRule(false))
	if _, err := exec.Run(context.Background(), qd, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parallel.enters != 1 || parallel.exits != 1 {
		t.Errorf("expected one enter and one exit, got %d/%d", parallel.enters, parallel.exits)
	}
}

// TestRun_RowLimitForcesParallelOff proves a finite limit disables parallel
// mode entirely.
func TestRun_RowLimitForcesParallelOff(t *testing.T) {
	parallel := &recordingParallel{}
	plan := NewSlicePlan(row(guardedRelation, 1, "a"), row(guardedRelation, 2, "b"))
	qd := selectDescriptor(plan, NewCollectSink())
	qd.Parallel = parallel
	qd.ParallelMode = true

	exec := New(guardedRule(false))
	if _, err := exec.Run(context.Background(), qd, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parallel.enters != 0 || parallel.exits != 0 {
		t.Errorf("expected parallel mode untouched, got %d/%d", parallel.enters, parallel.exits)
	}
}

// TestRun_ParallelModeExitsOnAbort proves parallel mode is left before the
// abort propagates.
func TestRun_ParallelModeExitsOnAbort(t *testing.T) {
	parallel := &recordingParallel{}
	plan := NewSlicePlan(row(guardedRelation, 1, "SENTINEL"))
	qd := selectDescriptor(plan, NewCollectSink())
	qd.Parallel = parallel
	qd.ParallelMode = true

	exec := New(guardedRule(false))
	_, err := exec.Run(context.Background(), qd, 0)
	if _, ok := guard.AsAbort(err); !ok {
		t.Fatalf("expected abort, got %v", err)
	}
	if parallel.exits != 1 {
		t.Errorf("expected parallel exit before abort, got %d exits", parallel.exits)
	}
}

func TestRun_ClosedSinkStopsWithoutError(t *testing.T) {
	plan := NewSlicePlan(
		row(guardedRelation, 1, "a"),
		row(guardedRelation, 2, "b"),
		row(guardedRelation, 3, "c"),
	)
	sink := &refusingSink{accept: 1}

	exec := New(guardedRule(false))
	state, err := exec.Run(context.Background(), selectDescriptor(plan, sink), 0)
	if err != nil {
		t.Fatalf("sink refusal is a normal stop, got %v", err)
	}
	if len(sink.Rows()) != 1 {
		t.Errorf("expected 1 accepted row, got %d", len(sink.Rows()))
	}
	// The refused row was not forwarded and not counted.
	if state.Processed != 1 {
		t.Errorf("expected 1 processed row, got %d", state.Processed)
	}
}

func TestRun_PlanErrorIsTerminal(t *testing.T) {
	parallel := &recordingParallel{}
	fetchErr := errors.New("connection reset")
	plan := &errorPlan{err: fetchErr}
	qd := selectDescriptor(plan, NewCollectSink())
	qd.Parallel = parallel
	qd.ParallelMode = true

	exec := New(guardedRule(false))
	_, err := exec.Run(context.Background(), qd, 0)
	if err == nil || !errors.Is(err, fetchErr) {
		t.Fatalf("expected wrapped fetch error, got %v", err)
	}
	if parallel.exits != 1 {
		t.Error("expected parallel exit before the error propagated")
	}
}

// TestRun_NoMovementSkipsThePlan proves a no-movement direction still runs
// sink startup and shutdown but never touches the plan.
func TestRun_NoMovementSkipsThePlan(t *testing.T) {
	plan := NewSlicePlan(row(guardedRelation, 1, "SENTINEL"))
	sink := NewCollectSink()
	qd := selectDescriptor(plan, sink)
	qd.Direction = NoMovement

	exec := New(guardedRule(false))
	state, err := exec.Run(context.Background(), qd, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Processed != 0 || len(sink.Rows()) != 0 {
		t.Error("no-movement run must not process rows")
	}
	if !sink.Started() || !sink.WasShutdown() {
		t.Error("expected sink startup and shutdown even with no movement")
	}
}

// TestRun_JunkFilterCleansBeforeInspection proves inspection sees the
// projected row, with ordinals renumbered by the keep list.
func TestRun_JunkFilterCleansBeforeInspection(t *testing.T) {
	// Raw rows carry a bookkeeping column first; the filter keeps only the
	// payload column, which becomes ordinal 1.
	plan := NewSlicePlan(row(guardedRelation, "ctid-55", "SENTINEL-9"))
	sink := NewCollectSink()
	qd := selectDescriptor(plan, sink)
	qd.Junk = &JunkFilter{Keep: []int{2}}

	exec := New(guard.NewRule(guardedRelation, 1, "SENTINEL", false))
	_, err := exec.Run(context.Background(), qd, 0)
	if _, ok := guard.AsAbort(err); !ok {
		t.Fatalf("expected abort on cleaned row, got %v", err)
	}
	if len(sink.Rows()) != 1 || len(sink.Rows()[0].Values) != 1 {
		t.Fatal("expected the cleaned single-column row to be forwarded")
	}
}

// TestRun_ExecutorIsReusableAcrossQueries proves per-query state never
// leaks: the same executor runs queries back to back with fresh counters.
func TestRun_ExecutorIsReusableAcrossQueries(t *testing.T) {
	exec := New(guardedRule(true))

	// First query trips the sentinel.
	_, err := exec.Run(context.Background(),
		selectDescriptor(NewSlicePlan(row(guardedRelation, 1, "SENTINEL")), NewCollectSink()), 0)
	if _, ok := guard.AsAbort(err); !ok {
		t.Fatalf("expected abort, got %v", err)
	}

	// Second query on the same executor runs clean.
	state, err := exec.Run(context.Background(),
		selectDescriptor(NewSlicePlan(row(guardedRelation, 1, "bob")), NewCollectSink()), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Processed != 1 {
		t.Errorf("expected fresh counter, got %d", state.Processed)
	}
}

func TestRun_PanicsOnMisuse(t *testing.T) {
	exec := New(guardedRule(false))

	assertPanics := func(name string, fn func()) {
		defer func() {
			if recover() == nil {
				t.Errorf("%s: expected panic", name)
			}
		}()
		fn()
	}

	assertPanics("nil descriptor", func() {
		exec.Run(context.Background(), nil, 0)
	})
	assertPanics("explain only", func() {
		qd := selectDescriptor(NewSlicePlan(), NewCollectSink())
		qd.ExplainOnly = true
		exec.Run(context.Background(), qd, 0)
	})
	assertPanics("nil plan", func() {
		qd := selectDescriptor(nil, NewCollectSink())
		exec.Run(context.Background(), qd, 0)
	})
}

func TestRun_ContextCancellationPropagates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	plan := NewSlicePlan(row(guardedRelation, 1, "a"))
	exec := New(guardedRule(false))
	_, err := exec.Run(ctx, selectDescriptor(plan, NewCollectSink()), 0)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
