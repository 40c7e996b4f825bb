// Package sql classifies statements for the rowguard session.
// It uses the vitess sqlparser to determine the operation kind, the
// referenced tables, and whether the statement scans exactly one base
// relation, the only case in which result rows get a relation tag and are
// therefore eligible for sentinel inspection. Rows produced by joins,
// unions, or subquery FROM clauses stay untagged and are never inspected.
package sql

import (
	"strings"

	"github.com/xwb1989/sqlparser"

	"github.com/rowguard-labs/rowguard/internal/engine"
	"github.com/rowguard-labs/rowguard/internal/errors"
)

// Statement is the classified form of one SQL statement.
type Statement struct {
	// Raw is the original SQL text.
	Raw string

	// Operation is the statement kind.
	Operation engine.Operation

	// Tables are the base tables referenced in the statement.
	Tables []string

	// SingleRelation is the sole base relation a SELECT scans, or empty
	// when the statement reads from joins, unions, subqueries, or no
	// table at all.
	SingleRelation string
}

// Classifier parses SQL into Statements.
type Classifier struct{}

// NewClassifier creates a new statement classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify parses one statement. Unparseable input is rejected, never
// guessed at.
func (c *Classifier) Classify(query string) (*Statement, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, errors.NewUnsupportedStatement(query, "empty statement")
	}

	// The vitess grammar has no MERGE production; classify by keyword so
	// the operation kind still comes through. MERGE rows are write-path
	// and never inspected, so the missing table list is harmless.
	if len(trimmed) >= 5 && strings.EqualFold(trimmed[:5], "MERGE") {
		return &Statement{Raw: query, Operation: engine.OpMerge}, nil
	}

	stmt, err := sqlparser.Parse(trimmed)
	if err != nil {
		return nil, errors.NewUnsupportedStatement(query, "parse error: "+err.Error())
	}

	switch s := stmt.(type) {
	case *sqlparser.Select:
		tables := collectTables(s.From)
		return &Statement{
			Raw:            query,
			Operation:      engine.OpSelect,
			Tables:         tables,
			SingleRelation: singleRelation(s.From),
		}, nil
	case *sqlparser.Union:
		return &Statement{
			Raw:       query,
			Operation: engine.OpSelect,
			Tables:    unionTables(s),
		}, nil
	case *sqlparser.Insert:
		return &Statement{
			Raw:       query,
			Operation: engine.OpInsert,
			Tables:    []string{tableName(s.Table)},
		}, nil
	case *sqlparser.Update:
		return &Statement{
			Raw:       query,
			Operation: engine.OpUpdate,
			Tables:    collectTables(s.TableExprs),
		}, nil
	case *sqlparser.Delete:
		return &Statement{
			Raw:       query,
			Operation: engine.OpDelete,
			Tables:    collectTables(s.TableExprs),
		}, nil
	default:
		return nil, errors.NewUnsupportedStatement(query, "statement kind has no execution path here")
	}
}

// singleRelation returns the table name when the FROM clause is exactly one
// aliased base table.
func singleRelation(from sqlparser.TableExprs) string {
	if len(from) != 1 {
		return ""
	}
	aliased, ok := from[0].(*sqlparser.AliasedTableExpr)
	if !ok {
		return ""
	}
	tn, ok := aliased.Expr.(sqlparser.TableName)
	if !ok {
		return "" // subquery in FROM
	}
	return tableName(tn)
}

// collectTables walks table expressions gathering base table names.
func collectTables(exprs sqlparser.TableExprs) []string {
	var tables []string
	for _, expr := range exprs {
		tables = append(tables, tablesInExpr(expr)...)
	}
	return tables
}

func tablesInExpr(expr sqlparser.TableExpr) []string {
	switch t := expr.(type) {
	case *sqlparser.AliasedTableExpr:
		if tn, ok := t.Expr.(sqlparser.TableName); ok {
			return []string{tableName(tn)}
		}
		if sub, ok := t.Expr.(*sqlparser.Subquery); ok {
			if sel, ok := sub.Select.(*sqlparser.Select); ok {
				return collectTables(sel.From)
			}
		}
		return nil
	case *sqlparser.JoinTableExpr:
		return append(tablesInExpr(t.LeftExpr), tablesInExpr(t.RightExpr)...)
	case *sqlparser.ParenTableExpr:
		return collectTables(t.Exprs)
	default:
		return nil
	}
}

func unionTables(u *sqlparser.Union) []string {
	var tables []string
	for _, side := range []sqlparser.SelectStatement{u.Left, u.Right} {
		if sel, ok := side.(*sqlparser.Select); ok {
			tables = append(tables, collectTables(sel.From)...)
		}
	}
	return tables
}

// tableName renders a possibly schema-qualified table name.
func tableName(tn sqlparser.TableName) string {
	if tn.Qualifier.String() != "" {
		return tn.Qualifier.String() + "." + tn.Name.String()
	}
	return tn.Name.String()
}
