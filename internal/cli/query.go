package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	rowsql "github.com/rowguard-labs/rowguard/internal/sql"
	"github.com/rowguard-labs/rowguard/pkg/api"
)

func (c *CLI) newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query execution commands",
		Long:  `Execute and validate SQL statements against a guarded engine.`,
	}

	cmd.AddCommand(c.newQueryExecCmd())
	cmd.AddCommand(c.newQueryValidateCmd())

	return cmd
}

func (c *CLI) newQueryExecCmd() *cobra.Command {
	var engineName string
	var limit uint64

	cmd := &cobra.Command{
		Use:   "exec <SQL>",
		Short: "Execute a SQL statement",
		Long: `Execute a SQL statement on a configured engine.

SELECT results flow through the sentinel inspection loop row by row before
they are printed.

Example:
  rowguard query exec "SELECT id, email FROM customers LIMIT 10"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runQueryExec(cmd.Context(), args[0], engineName, limit)
		},
	}

	cmd.Flags().StringVar(&engineName, "engine", "", "engine to run on (default: the sole configured engine)")
	cmd.Flags().Uint64Var(&limit, "limit", 0, "maximum rows to process (0 = no limit)")

	return cmd
}

func (c *CLI) runQueryExec(ctx context.Context, sqlQuery, engineName string, limit uint64) error {
	rt, err := c.ensureRuntime()
	if err != nil {
		return err
	}

	if engineName == "" {
		engineName, err = rt.DefaultEngine()
		if err != nil {
			return err
		}
	}
	c.debugf("executing on engine %s\n", engineName)

	sess, err := rt.OpenSession(engineName)
	if err != nil {
		return err
	}

	result, err := sess.ExecuteLimit(ctx, sqlQuery, limit)
	if err != nil {
		if c.jsonOutput {
			c.outputJSON(api.QueryResult{
				Success: false,
				Engine:  engineName,
				Error:   err.Error(),
			})
		}
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(api.QueryResult{
			Success:   true,
			QueryID:   result.QueryID,
			Engine:    engineName,
			Operation: result.Operation.String(),
			Columns:   result.Columns,
			Rows:      result.Rows,
			RowCount:  result.RowCount,
			ElapsedMs: result.Elapsed.Milliseconds(),
		})
	}

	c.printResult(result.Columns, result.Rows)
	c.printf("(%d rows, %s)\n", result.RowCount, result.Elapsed)
	return nil
}

// printResult renders a result set as aligned columns.
func (c *CLI) printResult(columns []string, rows [][]any) {
	if len(columns) == 0 && len(rows) == 0 {
		return
	}

	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = len(col)
	}
	rendered := make([][]string, len(rows))
	for i, row := range rows {
		rendered[i] = make([]string, len(row))
		for j, v := range row {
			s := renderCell(v)
			rendered[i][j] = s
			if j < len(widths) && len(s) > widths[j] {
				widths[j] = len(s)
			}
		}
	}

	if len(columns) > 0 {
		parts := make([]string, len(columns))
		for i, col := range columns {
			parts[i] = pad(col, widths[i])
		}
		c.println(strings.Join(parts, " | "))
		seps := make([]string, len(columns))
		for i := range columns {
			seps[i] = strings.Repeat("-", widths[i])
		}
		c.println(strings.Join(seps, "-+-"))
	}

	for _, row := range rendered {
		parts := make([]string, len(row))
		for i, s := range row {
			w := len(s)
			if i < len(widths) {
				w = widths[i]
			}
			parts[i] = pad(s, w)
		}
		c.println(strings.Join(parts, " | "))
	}
}

func renderCell(v any) string {
	if v == nil {
		return "NULL"
	}
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}

func pad(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}

func (c *CLI) newQueryValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <SQL>",
		Short: "Validate a statement without execution",
		Long: `Classify a SQL statement without executing it.

Useful for CI/CD pipelines and pre-flight checks.
Exit code 0 means valid, exit code 1 means invalid.

Example:
  rowguard query validate "SELECT * FROM customers"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runQueryValidate(args[0])
		},
	}
}

func (c *CLI) runQueryValidate(sqlQuery string) error {
	stmt, err := rowsql.NewClassifier().Classify(sqlQuery)
	if err != nil {
		if c.jsonOutput {
			c.outputJSON(map[string]interface{}{
				"valid":  false,
				"query":  sqlQuery,
				"errors": []string{err.Error()},
			})
		} else {
			c.errorf("invalid: %v\n", err)
		}
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(map[string]interface{}{
			"valid":           true,
			"query":           sqlQuery,
			"operation":       stmt.Operation.String(),
			"tables":          stmt.Tables,
			"single_relation": stmt.SingleRelation,
		})
	}

	c.printf("valid: %s", stmt.Operation)
	if len(stmt.Tables) > 0 {
		c.printf(" on %s", strings.Join(stmt.Tables, ", "))
	}
	c.println("")
	return nil
}
