// Package session binds one client connection to one engine, with the
// sentinel-inspecting executor on the read path.
//
// The session owns the scope boundary the abort signal promises: a
// statement-scoped abort fails only the current statement, while a
// connection-scoped abort poisons the session so every later statement is
// refused. The abort surfaces to the client with its fixed generic message
// and nothing else.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rowguard-labs/rowguard/internal/adapters"
	"github.com/rowguard-labs/rowguard/internal/engine"
	"github.com/rowguard-labs/rowguard/internal/errors"
	"github.com/rowguard-labs/rowguard/internal/guard"
	"github.com/rowguard-labs/rowguard/internal/observability"
	sqlclass "github.com/rowguard-labs/rowguard/internal/sql"
	"github.com/rowguard-labs/rowguard/internal/storage"
)

// Result is the materialized outcome of one statement.
type Result struct {
	// QueryID is the unique identifier assigned to this execution.
	QueryID string

	// Operation is the statement kind that ran.
	Operation engine.Operation

	// Columns are the result column names, in order. Empty for writes.
	Columns []string

	// Rows are the result rows, positionally matching Columns.
	Rows [][]any

	// RowCount is the number of rows a SELECT processed, or the number of
	// rows a write affected.
	RowCount uint64

	// Elapsed is the wall-clock execution time.
	Elapsed time.Duration
}

// Session is one client connection to one engine. Sessions are safe for
// concurrent use; statements on the same session serialize.
type Session struct {
	mu         sync.Mutex
	id         string
	executor   *engine.Executor
	classifier *sqlclass.Classifier
	relations  storage.RelationRegistry
	adapter    adapters.EngineAdapter
	logger     observability.QueryLogger
	terminated bool
}

// New creates a session on the given engine adapter. A nil logger disables
// query logging.
func New(executor *engine.Executor, relations storage.RelationRegistry, adapter adapters.EngineAdapter, logger observability.QueryLogger) *Session {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	return &Session{
		id:         uuid.New().String(),
		executor:   executor,
		classifier: sqlclass.NewClassifier(),
		relations:  relations,
		adapter:    adapter,
		logger:     logger,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Engine returns the name of the engine this session runs on.
func (s *Session) Engine() string { return s.adapter.Name() }

// Terminated reports whether a connection-scoped abort has poisoned the
// session.
func (s *Session) Terminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminated
}

// Execute runs one statement with no row limit.
func (s *Session) Execute(ctx context.Context, query string) (*Result, error) {
	return s.ExecuteLimit(ctx, query, 0)
}

// ExecuteLimit runs one statement, processing at most limit rows (0 = no
// limit). A *guard.AbortError return means a sentinel match; when its scope
// is connection the session is already terminated by the time this returns.
func (s *Session) ExecuteLimit(ctx context.Context, query string, limit uint64) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.terminated {
		return nil, errors.NewSessionTerminated()
	}

	stmt, err := s.classifier.Classify(query)
	if err != nil {
		return nil, err
	}

	queryID := uuid.New().String()
	start := time.Now()

	var result *Result
	switch stmt.Operation {
	case engine.OpSelect:
		result, err = s.executeSelect(ctx, queryID, stmt, limit)
	default:
		result, err = s.executeWrite(ctx, queryID, stmt)
	}

	s.logOutcome(ctx, queryID, stmt, result, time.Since(start), err)

	if abort, aborted := guard.AsAbort(err); aborted {
		if abort.Scope() == guard.ScopeConnection {
			s.terminated = true
		}
		return nil, abort
	}
	return result, err
}

// executeSelect drives the read path through the inspecting executor.
func (s *Session) executeSelect(ctx context.Context, queryID string, stmt *sqlclass.Statement, limit uint64) (*Result, error) {
	// Only a single-base-relation scan gets a relation tag; everything else
	// stays untagged and outside the guard's reach.
	tag := guard.InvalidRelation
	if stmt.SingleRelation != "" {
		id, err := s.relations.Resolve(ctx, stmt.SingleRelation)
		switch err.(type) {
		case nil:
			tag = id
		case *errors.ErrRelationNotFound:
			// Unregistered tables are simply unguarded.
		default:
			return nil, err
		}
	}

	plan, schema, err := s.adapter.Scan(ctx, stmt.Raw, tag)
	if err != nil {
		return nil, errors.NewEngineUnavailable(s.adapter.Name(), err)
	}

	sink := engine.NewCollectSink()
	timer := &engine.RunTimer{}
	qd := &engine.QueryDescriptor{
		Plan:       plan,
		Operation:  engine.OpSelect,
		Dest:       sink,
		Schema:     schema,
		Instrument: timer,
		Direction:  engine.Forward,
	}

	state, err := s.executor.Run(ctx, qd, limit)
	if err != nil {
		// The sink and its buffered rows are discarded wholesale; an abort
		// must not hand the client a partial result set.
		return nil, err
	}

	return &Result{
		QueryID:   queryID,
		Operation: engine.OpSelect,
		Columns:   columnNames(schema),
		Rows:      rowValues(sink.Rows()),
		RowCount:  state.Processed,
		Elapsed:   timer.Elapsed,
	}, nil
}

// executeWrite sends write statements straight to the engine. Write rows
// never pass through the inspection loop.
func (s *Session) executeWrite(ctx context.Context, queryID string, stmt *sqlclass.Statement) (*Result, error) {
	start := time.Now()
	affected, err := s.adapter.Exec(ctx, stmt.Raw)
	if err != nil {
		return nil, errors.NewEngineUnavailable(s.adapter.Name(), err)
	}
	count := uint64(0)
	if affected > 0 {
		count = uint64(affected)
	}
	return &Result{
		QueryID:   queryID,
		Operation: stmt.Operation,
		RowCount:  count,
		Elapsed:   time.Since(start),
	}, nil
}

// logOutcome records the statement in the query log. A sentinel abort logs
// as an ordinary failed query carrying only the generic message.
func (s *Session) logOutcome(ctx context.Context, queryID string, stmt *sqlclass.Statement, result *Result, elapsed time.Duration, err error) {
	entry := observability.QueryLogEntry{
		QueryID:       queryID,
		Engine:        s.adapter.Name(),
		Tables:        stmt.Tables,
		ExecutionTime: elapsed,
		Outcome:       "success",
	}
	if err != nil {
		entry.Outcome = "error"
		entry.Error = err.Error()
	} else if result != nil {
		entry.Rows = result.RowCount
	}
	// Logging failures never affect statement outcome.
	_ = s.logger.LogQuery(ctx, entry)
}

func columnNames(schema *engine.RowSchema) []string {
	if schema == nil {
		return nil
	}
	names := make([]string, len(schema.Columns))
	for i, col := range schema.Columns {
		names[i] = col.Name
	}
	return names
}

func rowValues(rows []*engine.Row) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		out[i] = row.Values
	}
	return out
}
