package storage

import (
	"context"
	"testing"

	"github.com/rowguard-labs/rowguard/internal/errors"
	"github.com/rowguard-labs/rowguard/internal/guard"
)

func TestMemoryRegistry_RegisterAssignsStableIDs(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry()

	first, err := reg.Register(ctx, "customers", "sqlite")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if first == guard.InvalidRelation {
		t.Fatal("assigned ID must never be the invalid relation")
	}

	second, err := reg.Register(ctx, "orders", "sqlite")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if second == first {
		t.Error("distinct names must get distinct IDs")
	}

	// Re-registering returns the existing ID.
	again, err := reg.Register(ctx, "customers", "sqlite")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if again != first {
		t.Errorf("expected stable ID %d, got %d", first, again)
	}
}

func TestMemoryRegistry_ResolveUnknownName(t *testing.T) {
	reg := NewMemoryRegistry()

	_, err := reg.Resolve(context.Background(), "ghost")
	if _, ok := err.(*errors.ErrRelationNotFound); !ok {
		t.Fatalf("expected ErrRelationNotFound, got %v", err)
	}
}

func TestMemoryRegistry_RegisterFixedPinsID(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry()

	if err := reg.RegisterFixed(ctx, 16389, "accounts", "postgres"); err != nil {
		t.Fatalf("register fixed: %v", err)
	}
	id, err := reg.Resolve(ctx, "accounts")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id != 16389 {
		t.Errorf("expected pinned ID 16389, got %d", id)
	}

	// Later auto-assigned IDs must not collide with the pinned one.
	next, err := reg.Register(ctx, "orders", "postgres")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if next <= 16389 {
		t.Errorf("expected ID above the pinned one, got %d", next)
	}
}

func TestMemoryRegistry_ListOrderedByID(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry()
	reg.Register(ctx, "b_table", "sqlite")
	reg.Register(ctx, "a_table", "sqlite")

	rels, err := reg.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rels) != 2 {
		t.Fatalf("expected 2 relations, got %d", len(rels))
	}
	if rels[0].ID > rels[1].ID {
		t.Error("expected relations ordered by ID")
	}

	empty, err := NewMemoryRegistry().List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Error("expected an empty non-nil slice")
	}
}

func TestMemoryRegistry_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reg := NewMemoryRegistry()
	if _, err := reg.Register(ctx, "customers", "sqlite"); err == nil {
		t.Error("expected context error on register")
	}
	if err := reg.CheckConnectivity(ctx); err == nil {
		t.Error("expected context error on connectivity check")
	}
}
