// Package storage provides persistence for the relation registry.
// The registry maps relation names to the stable numeric IDs the sentinel
// rule points at. IDs are assigned at registration and never change; the
// immutable rule would otherwise silently drift to a different table.
package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rowguard-labs/rowguard/internal/errors"
	"github.com/rowguard-labs/rowguard/internal/guard"
)

// Relation is one registered relation.
type Relation struct {
	// ID is the stable numeric identifier.
	ID guard.RelationID `json:"id"`

	// Name is the possibly schema-qualified relation name.
	Name string `json:"name"`

	// Engine is the engine the relation lives in.
	Engine string `json:"engine,omitempty"`

	// CreatedAt is when the relation was registered.
	CreatedAt time.Time `json:"created_at"`
}

// RelationRegistry defines relation persistence. Implementations must be
// thread-safe, context-aware, and explicit about errors.
type RelationRegistry interface {
	// Register assigns an ID to a relation name. Registering an existing
	// name returns its existing ID; names are stable.
	Register(ctx context.Context, name, engine string) (guard.RelationID, error)

	// Resolve returns the ID for a relation name.
	// Returns ErrRelationNotFound if the name is unknown.
	Resolve(ctx context.Context, name string) (guard.RelationID, error)

	// List returns all registered relations, ordered by ID.
	// Returns an empty slice (not nil) when none exist.
	List(ctx context.Context) ([]*Relation, error)

	// CheckConnectivity verifies the backing store is reachable.
	CheckConnectivity(ctx context.Context) error
}

// MemoryRegistry is an in-memory RelationRegistry for development and tests.
// Not for production: IDs do not survive a restart.
type MemoryRegistry struct {
	mu     sync.RWMutex
	byName map[string]*Relation
	nextID guard.RelationID
}

// NewMemoryRegistry creates an empty in-memory registry. IDs start above
// zero so guard.InvalidRelation is never handed out.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		byName: make(map[string]*Relation),
		nextID: 16384,
	}
}

// Register assigns an ID to a relation name.
func (r *MemoryRegistry) Register(ctx context.Context, name, engine string) (guard.RelationID, error) {
	if err := ctx.Err(); err != nil {
		return guard.InvalidRelation, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byName[name]; ok {
		return existing.ID, nil
	}
	r.nextID++
	rel := &Relation{
		ID:        r.nextID,
		Name:      name,
		Engine:    engine,
		CreatedAt: time.Now().UTC(),
	}
	r.byName[name] = rel
	return rel.ID, nil
}

// RegisterFixed installs a relation under a caller-chosen ID. Bootstrap
// manifests use this to pin IDs across environments.
func (r *MemoryRegistry) RegisterFixed(ctx context.Context, id guard.RelationID, name, engine string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byName[name] = &Relation{
		ID:        id,
		Name:      name,
		Engine:    engine,
		CreatedAt: time.Now().UTC(),
	}
	if id > r.nextID {
		r.nextID = id
	}
	return nil
}

// Resolve returns the ID for a relation name.
func (r *MemoryRegistry) Resolve(ctx context.Context, name string) (guard.RelationID, error) {
	if err := ctx.Err(); err != nil {
		return guard.InvalidRelation, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	rel, ok := r.byName[name]
	if !ok {
		return guard.InvalidRelation, errors.NewRelationNotFound(name)
	}
	return rel.ID, nil
}

// List returns all registered relations, ordered by ID.
func (r *MemoryRegistry) List(ctx context.Context) ([]*Relation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Relation, 0, len(r.byName))
	for _, rel := range r.byName {
		out = append(out, rel)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CheckConnectivity always succeeds for the in-memory registry.
func (r *MemoryRegistry) CheckConnectivity(ctx context.Context) error {
	return ctx.Err()
}
