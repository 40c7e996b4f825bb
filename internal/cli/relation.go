package cli

import (
	"github.com/spf13/cobra"

	"github.com/rowguard-labs/rowguard/pkg/api"
)

func (c *CLI) newRelationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relation",
		Short: "Relation registry commands",
		Long: `Manage the relation registry.

The registry assigns each guarded relation a stable numeric identifier; the
guard rule points at that identifier, so it must never change once assigned.`,
	}

	cmd.AddCommand(c.newRelationRegisterCmd())
	cmd.AddCommand(c.newRelationListCmd())

	return cmd
}

func (c *CLI) newRelationRegisterCmd() *cobra.Command {
	var engineName string

	cmd := &cobra.Command{
		Use:   "register <name>",
		Short: "Register a relation",
		Long: `Register a relation name and print its assigned identifier.

Registering an existing name returns its existing identifier.

Example:
  rowguard relation register customers --engine sqlite`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := c.ensureRuntime()
			if err != nil {
				return err
			}
			id, err := rt.Relations.Register(cmd.Context(), args[0], engineName)
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return c.outputJSON(api.Relation{
					ID:     uint32(id),
					Name:   args[0],
					Engine: engineName,
				})
			}
			c.printf("registered %s as relation %d\n", args[0], id)
			return nil
		},
	}

	cmd.Flags().StringVar(&engineName, "engine", "", "engine the relation lives on")

	return cmd
}

func (c *CLI) newRelationListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered relations",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := c.ensureRuntime()
			if err != nil {
				return err
			}
			rels, err := rt.Relations.List(cmd.Context())
			if err != nil {
				return err
			}

			if c.jsonOutput {
				out := make([]api.Relation, len(rels))
				for i, rel := range rels {
					out[i] = api.Relation{
						ID:        uint32(rel.ID),
						Name:      rel.Name,
						Engine:    rel.Engine,
						CreatedAt: rel.CreatedAt,
					}
				}
				return c.outputJSON(out)
			}

			if len(rels) == 0 {
				c.println("no relations registered")
				return nil
			}
			for _, rel := range rels {
				c.printf("%8d  %-30s  %s\n", rel.ID, rel.Name, rel.Engine)
			}
			return nil
		},
	}
}
