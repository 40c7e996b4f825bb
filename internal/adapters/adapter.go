// Package adapters defines the common interface for engine adapters.
// An adapter turns one statement on one engine into a row stream the
// executor can drive. Adapters are stateless, replaceable, thin: no silent
// retries, no hidden fallbacks, errors always propagated.
package adapters

import (
	"context"

	"github.com/rowguard-labs/rowguard/internal/engine"
	"github.com/rowguard-labs/rowguard/internal/guard"
)

// EngineAdapter is the interface all engine adapters implement.
type EngineAdapter interface {
	// Name returns the unique name of this engine.
	Name() string

	// Scan runs a read statement and returns the plan the executor pulls
	// rows from, plus the row shape for the sink. relation is the tag to
	// stamp on every produced row; pass guard.InvalidRelation for
	// statements that do not scan a single base relation.
	Scan(ctx context.Context, query string, relation guard.RelationID) (engine.PlanNode, *engine.RowSchema, error)

	// Exec runs a write statement and returns the affected row count.
	Exec(ctx context.Context, query string) (int64, error)

	// Ping checks if the engine is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the adapter.
	Close() error
}

// Registry manages engine adapters. One registry per process, populated at
// bootstrap.
type Registry struct {
	adapters map[string]EngineAdapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]EngineAdapter),
	}
}

// Register adds an adapter to the registry.
func (r *Registry) Register(adapter EngineAdapter) {
	r.adapters[adapter.Name()] = adapter
}

// Get returns an adapter by name.
func (r *Registry) Get(name string) (EngineAdapter, bool) {
	adapter, ok := r.adapters[name]
	return adapter, ok
}

// Available returns the names of all registered adapters.
func (r *Registry) Available() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}

// CheckAllHealth pings every registered adapter. A nil error value means
// the adapter is healthy.
func (r *Registry) CheckAllHealth(ctx context.Context) map[string]error {
	results := make(map[string]error)
	for name, adapter := range r.adapters {
		results[name] = adapter.Ping(ctx)
	}
	return results
}

// CloseAll closes all registered adapters.
func (r *Registry) CloseAll() error {
	var lastErr error
	for _, adapter := range r.adapters {
		if err := adapter.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// IsEmpty returns true if no adapters are registered.
func (r *Registry) IsEmpty() bool {
	return len(r.adapters) == 0
}
