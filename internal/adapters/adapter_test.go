package adapters

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/rowguard-labs/rowguard/internal/engine"
	"github.com/rowguard-labs/rowguard/internal/guard"
)

type stubAdapter struct {
	name    string
	pingErr error
	closed  bool
}

func (a *stubAdapter) Name() string { return a.name }
func (a *stubAdapter) Scan(ctx context.Context, query string, relation guard.RelationID) (engine.PlanNode, *engine.RowSchema, error) {
	return engine.NewSlicePlan(), &engine.RowSchema{}, nil
}
func (a *stubAdapter) Exec(ctx context.Context, query string) (int64, error) { return 0, nil }
func (a *stubAdapter) Ping(ctx context.Context) error                        { return a.pingErr }
func (a *stubAdapter) Close() error                                          { a.closed = true; return nil }

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	if !reg.IsEmpty() {
		t.Error("new registry must be empty")
	}

	reg.Register(&stubAdapter{name: "sqlite"})
	reg.Register(&stubAdapter{name: "trino"})

	if reg.IsEmpty() {
		t.Error("registry must not be empty after registration")
	}
	if _, ok := reg.Get("sqlite"); !ok {
		t.Error("expected sqlite adapter")
	}
	if _, ok := reg.Get("oracle"); ok {
		t.Error("unexpected adapter")
	}

	names := reg.Available()
	sort.Strings(names)
	if len(names) != 2 || names[0] != "sqlite" || names[1] != "trino" {
		t.Errorf("unexpected names: %v", names)
	}
}

func TestRegistry_CheckAllHealth(t *testing.T) {
	reg := NewRegistry()
	down := errors.New("connection refused")
	reg.Register(&stubAdapter{name: "up"})
	reg.Register(&stubAdapter{name: "down", pingErr: down})

	health := reg.CheckAllHealth(context.Background())
	if health["up"] != nil {
		t.Errorf("expected healthy adapter, got %v", health["up"])
	}
	if !errors.Is(health["down"], down) {
		t.Errorf("expected ping error surfaced, got %v", health["down"])
	}
}

func TestRegistry_CloseAll(t *testing.T) {
	reg := NewRegistry()
	a := &stubAdapter{name: "a"}
	b := &stubAdapter{name: "b"}
	reg.Register(a)
	reg.Register(b)

	if err := reg.CloseAll(); err != nil {
		t.Fatalf("close all: %v", err)
	}
	if !a.closed || !b.closed {
		t.Error("expected every adapter closed")
	}
}
