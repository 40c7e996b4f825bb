package engine

import (
	"testing"
	"time"

	"github.com/rowguard-labs/rowguard/internal/guard"
)

func TestRowText_RendersCommonTypes(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	r := &Row{Values: []any{
		"SENTINEL",
		[]byte("SENTINEL-9"),
		int64(42),
		3.5,
		true,
		ts,
	}}

	cases := []struct {
		ordinal int
		want    string
	}{
		{1, "SENTINEL"},
		{2, "SENTINEL-9"},
		{3, "42"},
		{4, "3.5"},
		{5, "true"},
		{6, "2026-03-14T09:26:53Z"},
	}
	for _, tc := range cases {
		got, ok := r.Text(tc.ordinal)
		if !ok {
			t.Errorf("ordinal %d: expected a rendering", tc.ordinal)
			continue
		}
		if got != tc.want {
			t.Errorf("ordinal %d: got %q, want %q", tc.ordinal, got, tc.want)
		}
	}
}

// TestRowText_SkipsUnrenderable proves NULLs and out-of-range ordinals are
// reported as not renderable, so the comparison is skipped rather than run
// against an empty string.
func TestRowText_SkipsUnrenderable(t *testing.T) {
	r := &Row{Values: []any{nil, struct{}{}}}

	for _, ordinal := range []int{0, -1, 3, 1, 2} {
		if _, ok := r.Text(ordinal); ok {
			t.Errorf("ordinal %d: expected no rendering", ordinal)
		}
	}
	var nilRow *Row
	if _, ok := nilRow.Text(1); ok {
		t.Error("nil row: expected no rendering")
	}
}

func TestRowProject_ReturnsFreshRow(t *testing.T) {
	orig := &Row{Relation: guard.RelationID(7), Values: []any{"a", "b", "c"}}

	clean := orig.Project([]int{3, 1})
	if clean == orig {
		t.Fatal("expected a fresh row")
	}
	if clean.Relation != orig.Relation {
		t.Error("projection must keep the relation tag")
	}
	if len(clean.Values) != 2 || clean.Values[0] != "c" || clean.Values[1] != "a" {
		t.Errorf("unexpected projection: %v", clean.Values)
	}
	if len(orig.Values) != 3 {
		t.Error("original row must be untouched")
	}
}

func TestRowProject_PadsOutOfRangeWithNull(t *testing.T) {
	orig := &Row{Values: []any{"a"}}
	clean := orig.Project([]int{1, 5})
	if clean.Values[1] != nil {
		t.Errorf("expected NULL for out-of-range ordinal, got %v", clean.Values[1])
	}
}
