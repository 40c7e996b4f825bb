// Package engine contains the row execution loop and the interception point
// that wraps it. This is the core of rowguard: every tuple a query plan
// produces passes through here on its way to the destination sink, and a
// SELECT row from the guarded relation whose column matches the sentinel
// value aborts the statement or the connection before any further row is
// fetched.
package engine

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rowguard-labs/rowguard/internal/guard"
)

// ColumnDef defines one column of a row shape.
type ColumnDef struct {
	Name string
	Type string
}

// RowSchema is the row shape handed to a sink at startup.
type RowSchema struct {
	Columns []ColumnDef
}

// Row is a transient, per-iteration value produced by a plan node. It carries
// the identifier of the relation it was scanned from and its column values in
// positional order. The executor never holds a row past the iteration that
// produced it.
type Row struct {
	// Relation is the source relation tag, or guard.InvalidRelation when
	// the row did not come from a single base relation (joins, subqueries,
	// computed rows). Untagged rows are never inspected.
	Relation guard.RelationID

	// Values are the column values, positionally.
	Values []any
}

// Text renders the value at the given 1-based ordinal as text, the form the
// sentinel comparison runs against. ok is false when the ordinal is out of
// range, the value is NULL, or the value has no sensible text rendering;
// the comparison is skipped in all those cases.
func (r *Row) Text(ordinal int) (string, bool) {
	if r == nil || ordinal < 1 || ordinal > len(r.Values) {
		return "", false
	}
	v := r.Values[ordinal-1]
	if v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case []byte:
		return string(t), true
	case int:
		return strconv.Itoa(t), true
	case int8:
		return strconv.FormatInt(int64(t), 10), true
	case int16:
		return strconv.FormatInt(int64(t), 10), true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case uint32:
		return strconv.FormatUint(uint64(t), 10), true
	case uint64:
		return strconv.FormatUint(t, 10), true
	case float32:
		return strconv.FormatFloat(float64(t), 'g', -1, 32), true
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	case time.Time:
		return t.Format(time.RFC3339Nano), true
	case fmt.Stringer:
		return t.String(), true
	default:
		return "", false
	}
}

// Project returns a fresh row containing only the kept columns, in keep-list
// order. The original row is left untouched.
func (r *Row) Project(keep []int) *Row {
	clean := &Row{
		Relation: r.Relation,
		Values:   make([]any, 0, len(keep)),
	}
	for _, ordinal := range keep {
		if ordinal >= 1 && ordinal <= len(r.Values) {
			clean.Values = append(clean.Values, r.Values[ordinal-1])
		} else {
			clean.Values = append(clean.Values, nil)
		}
	}
	return clean
}
