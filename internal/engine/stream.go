package engine

import (
	"context"
	"time"
)

// SlicePlan exposes a slice of rows as a PlanNode. It backs tests and the
// bootstrap seeding path; adapters stream from live engines instead.
type SlicePlan struct {
	rows     []*Row
	idx      int
	shutdown bool
}

// NewSlicePlan creates a plan over the given rows.
func NewSlicePlan(rows ...*Row) *SlicePlan {
	return &SlicePlan{rows: rows}
}

// Next returns the next row, or nil once exhausted.
func (p *SlicePlan) Next(ctx context.Context) (*Row, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if p.shutdown || p.idx >= len(p.rows) {
		return nil, nil
	}
	row := p.rows[p.idx]
	p.idx++
	return row, nil
}

// Shutdown releases the plan's rows.
func (p *SlicePlan) Shutdown() error {
	p.shutdown = true
	p.rows = nil
	return nil
}

// WasShutdown reports whether Shutdown has run.
func (p *SlicePlan) WasShutdown() bool { return p.shutdown }

// CollectSink accumulates forwarded rows in memory. It is the sink the
// session uses to materialize a result set for the client.
type CollectSink struct {
	op       Operation
	schema   *RowSchema
	rows     []*Row
	started  bool
	shutdown bool
}

// NewCollectSink creates an empty collecting sink.
func NewCollectSink() *CollectSink {
	return &CollectSink{}
}

// Startup records the operation and row shape.
func (s *CollectSink) Startup(op Operation, schema *RowSchema) {
	s.op = op
	s.schema = schema
	s.started = true
}

// Receive retains the row. A collecting sink never closes on its own.
func (s *CollectSink) Receive(row *Row) bool {
	s.rows = append(s.rows, row)
	return true
}

// Shutdown marks the sink closed.
func (s *CollectSink) Shutdown() {
	s.shutdown = true
}

// Rows returns the collected rows.
func (s *CollectSink) Rows() []*Row { return s.rows }

// Schema returns the row shape recorded at startup.
func (s *CollectSink) Schema() *RowSchema { return s.schema }

// Started reports whether Startup ran.
func (s *CollectSink) Started() bool { return s.started }

// WasShutdown reports whether Shutdown ran.
func (s *CollectSink) WasShutdown() bool { return s.shutdown }

// RunTimer is a minimal Instrumentation that records wall-clock runtime and
// the final processed-row count. Purely observational.
type RunTimer struct {
	startedAt time.Time
	Elapsed   time.Duration
	Rows      uint64
	Running   bool
}

// StartTimer begins timing.
func (t *RunTimer) StartTimer() {
	t.startedAt = time.Now()
	t.Running = true
}

// StopTimer ends timing and records the row count.
func (t *RunTimer) StopTimer(rows uint64) {
	t.Elapsed = time.Since(t.startedAt)
	t.Rows = rows
	t.Running = false
}
