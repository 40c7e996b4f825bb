// Package postgres provides the PostgreSQL engine adapter.
package postgres

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rowguard-labs/rowguard/internal/adapters"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// AdapterConfig configures the PostgreSQL adapter.
type AdapterConfig struct {
	// ConnectionString is the libpq connection string or URL.
	ConnectionString string

	// MaxOpenConns is the maximum number of open connections. Default: 10.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections. Default: 5.
	MaxIdleConns int

	// ConnMaxLifetime is the maximum lifetime of a connection. Default: 5m.
	ConnMaxLifetime time.Duration
}

// Validate validates the configuration.
func (c AdapterConfig) Validate() error {
	if c.ConnectionString == "" {
		return fmt.Errorf("postgres adapter: connection string is required")
	}
	return nil
}

// Adapter implements the engine adapter interface for PostgreSQL.
type Adapter struct {
	*adapters.DB
	db *sql.DB
}

// NewAdapter creates a PostgreSQL adapter with the given configuration.
func NewAdapter(config AdapterConfig) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.MaxOpenConns <= 0 {
		config.MaxOpenConns = 10
	}
	if config.MaxIdleConns <= 0 {
		config.MaxIdleConns = 5
	}
	if config.ConnMaxLifetime <= 0 {
		config.ConnMaxLifetime = 5 * time.Minute
	}

	db, err := sql.Open("postgres", config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("postgres adapter: open failed: %w", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	return &Adapter{DB: adapters.NewDB("postgres", db), db: db}, nil
}

// Handle exposes the underlying database handle so the relation registry
// and the persistent query log can share the connection pool.
func (a *Adapter) Handle() *sql.DB {
	return a.db
}
