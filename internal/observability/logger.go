// Package observability provides structured query logging.
//
// Every executed statement emits: query_id, engine, tables referenced,
// execution time, row count, and outcome. A sentinel-tripped query logs as
// an ordinary failed query carrying the generic error string and nothing
// else; there is no match-specific audit trail to leak through.
package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// QueryLogEntry contains the required fields for query logging.
type QueryLogEntry struct {
	// QueryID is the unique identifier for this query.
	QueryID string

	// Engine is the execution engine the statement ran on.
	Engine string

	// Tables are the relations referenced in the statement.
	Tables []string

	// ExecutionTime is how long the statement took. Must be non-negative.
	ExecutionTime time.Duration

	// Rows is the number of rows processed.
	Rows uint64

	// Outcome is the result status: "success" or "error".
	Outcome string

	// Error contains the error message if the statement failed.
	Error string
}

// Validate checks that all required fields are present.
func (e *QueryLogEntry) Validate() error {
	if e.QueryID == "" {
		return fmt.Errorf("observability: query_id is required")
	}
	if e.ExecutionTime < 0 {
		return fmt.Errorf("observability: execution_time cannot be negative")
	}
	return nil
}

// QueryLogger is the interface for query logging.
type QueryLogger interface {
	// LogQuery logs a query execution event.
	// Returns an error if logging fails or the entry is invalid.
	LogQuery(ctx context.Context, entry QueryLogEntry) error
}

// jsonLogOutput is the structured format for JSON logs.
type jsonLogOutput struct {
	Timestamp       string   `json:"timestamp"`
	Level           string   `json:"level"`
	QueryID         string   `json:"query_id"`
	Engine          string   `json:"engine"`
	Tables          []string `json:"tables"`
	ExecutionTimeMs int64    `json:"execution_time_ms"`
	Rows            uint64   `json:"rows"`
	Outcome         string   `json:"outcome,omitempty"`
	Error           string   `json:"error,omitempty"`
}

func toOutput(entry QueryLogEntry) jsonLogOutput {
	level := "info"
	if entry.Error != "" {
		level = "error"
	}
	tables := entry.Tables
	if tables == nil {
		tables = []string{}
	}
	return jsonLogOutput{
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		Level:           level,
		QueryID:         entry.QueryID,
		Engine:          entry.Engine,
		Tables:          tables,
		ExecutionTimeMs: entry.ExecutionTime.Milliseconds(),
		Rows:            entry.Rows,
		Outcome:         entry.Outcome,
		Error:           entry.Error,
	}
}

// JSONLogger implements QueryLogger with JSON lines on a writer.
type JSONLogger struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewJSONLogger creates a new JSON logger writing to the given writer.
func NewJSONLogger(w io.Writer) *JSONLogger {
	return &JSONLogger{writer: w}
}

// LogQuery logs a query execution event as one JSON line.
func (l *JSONLogger) LogQuery(ctx context.Context, entry QueryLogEntry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("observability: context error: %w", err)
	}
	if err := entry.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(toOutput(entry))
	if err != nil {
		return fmt.Errorf("observability: failed to marshal log: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("observability: failed to write log: %w", err)
	}
	return nil
}

// NoopLogger discards all logs. Useful for testing or when logging is
// disabled.
type NoopLogger struct{}

// NewNoopLogger creates a new no-op logger.
func NewNoopLogger() *NoopLogger {
	return &NoopLogger{}
}

// LogQuery does nothing and always succeeds.
func (l *NoopLogger) LogQuery(ctx context.Context, entry QueryLogEntry) error {
	return nil
}

// PersistentLogger implements QueryLogger with PostgreSQL persistence, so
// the query log survives restarts. An optional writer additionally mirrors
// entries as JSON lines.
type PersistentLogger struct {
	db     *sql.DB
	writer io.Writer
}

// NewPersistentLogger creates a logger that persists entries to PostgreSQL.
func NewPersistentLogger(db *sql.DB) (*PersistentLogger, error) {
	if db == nil {
		return nil, fmt.Errorf("observability: database connection is required for persistent logging")
	}
	return &PersistentLogger{db: db}, nil
}

// NewPersistentLoggerWithWriter creates a logger that persists to both the
// database and a writer.
func NewPersistentLoggerWithWriter(db *sql.DB, w io.Writer) (*PersistentLogger, error) {
	logger, err := NewPersistentLogger(db)
	if err != nil {
		return nil, err
	}
	logger.writer = w
	return logger, nil
}

// LogQuery persists a query log entry.
func (l *PersistentLogger) LogQuery(ctx context.Context, entry QueryLogEntry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("observability: context error: %w", err)
	}
	if err := entry.Validate(); err != nil {
		return err
	}

	tablesJSON, err := json.Marshal(entry.Tables)
	if err != nil {
		tablesJSON = []byte("[]")
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO query_log (
			query_id, engine, tables_json, execution_time_ms,
			row_count, outcome, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		entry.QueryID,
		nullableString(entry.Engine),
		tablesJSON,
		entry.ExecutionTime.Milliseconds(),
		int64(entry.Rows),
		nullableString(entry.Outcome),
		nullableString(entry.Error),
	)
	if err != nil {
		return fmt.Errorf("observability: failed to persist query log: %w", err)
	}

	if l.writer != nil {
		if data, err := json.Marshal(toOutput(entry)); err == nil {
			l.writer.Write(append(data, '\n'))
		}
	}
	return nil
}

// nullableString converts empty strings to nil for SQL NULL.
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
