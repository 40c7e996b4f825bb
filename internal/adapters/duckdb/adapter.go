// Package duckdb provides the DuckDB engine adapter for analytical scans.
package duckdb

import (
	"database/sql"
	"fmt"

	"github.com/rowguard-labs/rowguard/internal/adapters"

	_ "github.com/marcboeker/go-duckdb" // DuckDB driver
)

// AdapterConfig configures the DuckDB adapter.
type AdapterConfig struct {
	// DatabasePath is the path to the DuckDB database file.
	// Use ":memory:" for an in-memory database.
	DatabasePath string
}

// Adapter implements the engine adapter interface for DuckDB.
type Adapter struct {
	*adapters.DB
}

// NewAdapter creates a DuckDB adapter with an in-memory database.
func NewAdapter() (*Adapter, error) {
	return NewAdapterWithConfig(AdapterConfig{DatabasePath: ":memory:"})
}

// NewAdapterWithConfig creates a DuckDB adapter with the given configuration.
func NewAdapterWithConfig(config AdapterConfig) (*Adapter, error) {
	path := config.DatabasePath
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("duckdb adapter: open failed: %w", err)
	}

	return &Adapter{DB: adapters.NewDB("duckdb", db)}, nil
}
