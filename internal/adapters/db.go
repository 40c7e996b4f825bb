package adapters

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/rowguard-labs/rowguard/internal/engine"
	"github.com/rowguard-labs/rowguard/internal/guard"
)

// DB implements the adapter contract over a database/sql handle. The
// SQL-speaking adapters (sqlite, duckdb, postgres, trino, snowflake) embed
// it; each contributes only its driver and DSN.
type DB struct {
	mu     sync.RWMutex
	name   string
	db     *sql.DB
	closed bool
}

// NewDB wraps an open handle under the given engine name.
func NewDB(name string, db *sql.DB) *DB {
	return &DB{name: name, db: db}
}

// Name returns the engine name.
func (a *DB) Name() string { return a.name }

func (a *DB) handle() (*sql.DB, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed || a.db == nil {
		return nil, fmt.Errorf("%s adapter: connection is closed", a.name)
	}
	return a.db, nil
}

// Scan runs a read statement and exposes its cursor as a plan node. Rows
// stream from the cursor one at a time; nothing is materialized here.
func (a *DB) Scan(ctx context.Context, query string, relation guard.RelationID) (engine.PlanNode, *engine.RowSchema, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("%s adapter: context error: %w", a.name, err)
	}
	if query == "" {
		return nil, nil, fmt.Errorf("%s adapter: query is empty", a.name)
	}
	db, err := a.handle()
	if err != nil {
		return nil, nil, err
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("%s adapter: query execution failed: %w", a.name, err)
	}
	plan, schema, err := NewRowsPlan(rows, relation)
	if err != nil {
		return nil, nil, fmt.Errorf("%s adapter: %w", a.name, err)
	}
	return plan, schema, nil
}

// Exec runs a write statement and returns the affected row count.
func (a *DB) Exec(ctx context.Context, query string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%s adapter: context error: %w", a.name, err)
	}
	db, err := a.handle()
	if err != nil {
		return 0, err
	}

	res, err := db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("%s adapter: exec failed: %w", a.name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		// Engines without affected-row reporting still executed the
		// statement.
		return 0, nil
	}
	return affected, nil
}

// Ping checks if the engine is reachable.
func (a *DB) Ping(ctx context.Context) error {
	db, err := a.handle()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// Close releases the handle. Idempotent.
func (a *DB) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
