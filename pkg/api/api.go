// Package api provides the shared output models for the rowguard CLI's
// machine-readable (--json) mode.
package api

import "time"

// QueryResult is the JSON output for query execution.
type QueryResult struct {
	Success   bool     `json:"success"`
	QueryID   string   `json:"query_id,omitempty"`
	Engine    string   `json:"engine"`
	Operation string   `json:"operation,omitempty"`
	Columns   []string `json:"columns,omitempty"`
	Rows      [][]any  `json:"rows,omitempty"`
	RowCount  uint64   `json:"row_count"`
	ElapsedMs int64    `json:"elapsed_ms"`
	Error     string   `json:"error,omitempty"`
}

// Relation is the JSON output for registry entries.
type Relation struct {
	ID        uint32    `json:"id"`
	Name      string    `json:"name"`
	Engine    string    `json:"engine,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// EngineStatus is the JSON output for engine health.
type EngineStatus struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}
