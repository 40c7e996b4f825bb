// Package sqlite provides the SQLite engine adapter, the default engine for
// local development and tests. It uses the cgo-free modernc driver.
package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/rowguard-labs/rowguard/internal/adapters"

	_ "modernc.org/sqlite" // SQLite driver
)

// AdapterConfig configures the SQLite adapter.
type AdapterConfig struct {
	// DatabasePath is the path to the database file.
	// Use ":memory:" for an in-memory database.
	DatabasePath string
}

// Adapter implements the engine adapter interface for SQLite.
type Adapter struct {
	*adapters.DB
}

// NewAdapter creates a SQLite adapter with an in-memory database.
func NewAdapter() (*Adapter, error) {
	return NewAdapterWithConfig(AdapterConfig{DatabasePath: ":memory:"})
}

// NewAdapterWithConfig creates a SQLite adapter with the given configuration.
func NewAdapterWithConfig(config AdapterConfig) (*Adapter, error) {
	path := config.DatabasePath
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite adapter: open failed: %w", err)
	}
	// In-memory databases vanish per connection; keep exactly one.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	return &Adapter{DB: adapters.NewDB("sqlite", db)}, nil
}
