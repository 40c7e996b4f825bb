package adapters

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rowguard-labs/rowguard/internal/engine"
	"github.com/rowguard-labs/rowguard/internal/guard"
)

// RowsPlan bridges a database/sql result cursor to the executor's PlanNode
// interface. All database/sql-backed adapters share it; each produced row
// carries the relation tag the caller supplied at construction.
type RowsPlan struct {
	rows     *sql.Rows
	relation guard.RelationID
	width    int
	done     bool
}

// NewRowsPlan wraps an open cursor. It reads the column metadata up front
// and returns the row shape alongside the plan.
func NewRowsPlan(rows *sql.Rows, relation guard.RelationID) (*RowsPlan, *engine.RowSchema, error) {
	columns, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, nil, fmt.Errorf("failed to get columns: %w", err)
	}

	schema := &engine.RowSchema{Columns: make([]engine.ColumnDef, len(columns))}
	for i, name := range columns {
		schema.Columns[i] = engine.ColumnDef{Name: name}
	}
	if types, err := rows.ColumnTypes(); err == nil {
		for i, ct := range types {
			if i < len(schema.Columns) {
				schema.Columns[i].Type = ct.DatabaseTypeName()
			}
		}
	}

	return &RowsPlan{
		rows:     rows,
		relation: relation,
		width:    len(columns),
	}, schema, nil
}

// Next fetches the next row from the cursor, or nil once exhausted.
func (p *RowsPlan) Next(ctx context.Context) (*engine.Row, error) {
	if p.done {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !p.rows.Next() {
		p.done = true
		if err := p.rows.Err(); err != nil {
			return nil, fmt.Errorf("row iteration failed: %w", err)
		}
		return nil, nil
	}

	values := make([]any, p.width)
	ptrs := make([]any, p.width)
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := p.rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	return &engine.Row{Relation: p.relation, Values: values}, nil
}

// Shutdown closes the cursor.
func (p *RowsPlan) Shutdown() error {
	p.done = true
	return p.rows.Close()
}
