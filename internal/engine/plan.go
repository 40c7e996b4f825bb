package engine

import (
	"context"

	"github.com/rowguard-labs/rowguard/internal/guard"
)

// Operation is the kind of statement a query executes.
type Operation int

const (
	OpSelect Operation = iota
	OpInsert
	OpUpdate
	OpDelete
	OpMerge
)

// String returns the operation keyword.
func (o Operation) String() string {
	switch o {
	case OpSelect:
		return "SELECT"
	case OpInsert:
		return "INSERT"
	case OpUpdate:
		return "UPDATE"
	case OpDelete:
		return "DELETE"
	case OpMerge:
		return "MERGE"
	default:
		return "UNKNOWN"
	}
}

// ScanDirection controls plan traversal.
type ScanDirection int

const (
	// NoMovement runs none of the plan; the interception point still
	// performs sink startup and shutdown.
	NoMovement ScanDirection = iota
	Forward
	Backward
)

// PlanNode is the pull interface the loop drives. Next returns the next row,
// or (nil, nil) once the plan is exhausted. Shutdown releases the plan's
// resources; the loop calls it exactly once, on exhaustion.
type PlanNode interface {
	Next(ctx context.Context) (*Row, error)
	Shutdown() error
}

// Sink receives result rows. Receive reports whether the sink can accept
// more rows; false means the destination has closed downstream, which the
// loop treats as a normal early stop.
type Sink interface {
	Startup(op Operation, schema *RowSchema)
	Receive(row *Row) bool
	Shutdown()
}

// Instrumentation observes overall executor runtime. It never influences
// control flow.
type Instrumentation interface {
	StartTimer()
	StopTimer(rows uint64)
}

// ParallelController enters and exits the surrounding engine's parallel
// execution mode. The loop never manages workers itself; it only brackets
// its run, and it always exits the mode before any terminal transition,
// abort included.
type ParallelController interface {
	Enter()
	Exit()
}

// JunkFilter projects internal bookkeeping columns out of a row before it is
// forwarded or inspected. Keep holds the 1-based ordinals to retain. The
// projected copy, never the original, flows downstream: storing the clean
// tuple back over the dirty one would corrupt the row's layout metadata.
type JunkFilter struct {
	Keep []int
}

// Filter returns the cleaned copy of row.
func (f *JunkFilter) Filter(row *Row) *Row {
	return row.Project(f.Keep)
}

// QueryDescriptor is the opaque bundle the engine hands to Run for one
// query's result-producing phase.
type QueryDescriptor struct {
	// Plan is the plan tree root.
	Plan PlanNode

	// Operation is the statement kind.
	Operation Operation

	// Dest receives forwarded rows.
	Dest Sink

	// Schema is the row shape given to Dest at startup.
	Schema *RowSchema

	// Junk, when non-nil, cleans each row before forwarding and inspection.
	Junk *JunkFilter

	// Instrument, when non-nil, brackets the run with timing.
	Instrument Instrumentation

	// Parallel, when non-nil, is used to bracket parallel execution mode.
	Parallel ParallelController

	// ParallelMode reports that the plan was built for parallel execution.
	// It is forced off whenever a finite row limit is requested, because
	// early exit is unsafe under parallelism.
	ParallelMode bool

	// Direction is the requested scan direction.
	Direction ScanDirection

	// HasReturning marks a write statement that returns rows.
	HasReturning bool

	// ExplainOnly descriptors must never reach Run.
	ExplainOnly bool
}

// ExecState is the per-query mutable execution state. It is owned exclusively
// by one query's run and torn down with it.
type ExecState struct {
	// Direction is the scan direction the loop ran with.
	Direction ScanDirection

	// Processed counts rows processed for SELECT statements. Other
	// operation kinds count through their own plan nodes.
	Processed uint64

	// LastRelation is the source relation of the last processed row.
	LastRelation guard.RelationID
}
