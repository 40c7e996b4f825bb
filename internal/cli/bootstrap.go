package cli

import (
	"github.com/spf13/cobra"

	"github.com/rowguard-labs/rowguard/internal/bootstrap"
)

func (c *CLI) newBootstrapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Provision relations and canary rows from a manifest",
		Long: `Provision the relation registry and plant canary rows from a declarative
YAML manifest.

The manifest is validated as a whole before anything is touched; apply is
idempotent for already registered relations.`,
	}

	cmd.AddCommand(c.newBootstrapInitCmd())
	cmd.AddCommand(c.newBootstrapValidateCmd())
	cmd.AddCommand(c.newBootstrapApplyCmd())

	return cmd
}

func (c *CLI) newBootstrapInitCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate an example manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			b := bootstrap.NewBootstrapper(nil, nil)
			path, err := b.Init(dir)
			if err != nil {
				return err
			}
			c.printf("wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "directory to write the manifest into")

	return cmd
}

func (c *CLI) newBootstrapValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <manifest>",
		Short: "Dry-run validation of a manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := c.ensureRuntime()
			if err != nil {
				return err
			}
			m, err := bootstrap.LoadManifest(args[0])
			if err != nil {
				return err
			}
			if err := m.Validate(rt.Engines); err != nil {
				return err
			}
			c.printf("manifest valid: %d relations, %d canaries\n", len(m.Relations), len(m.Canaries))
			return nil
		},
	}
}

func (c *CLI) newBootstrapApplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply <manifest>",
		Short: "Apply a manifest",
		Long: `Validate a manifest, register its relations, and plant its canary rows.

Example:
  rowguard bootstrap apply rowguard.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := c.ensureRuntime()
			if err != nil {
				return err
			}
			b := bootstrap.NewBootstrapper(rt.Relations, rt.Engines)
			if err := b.ValidateAndApply(cmd.Context(), args[0]); err != nil {
				return err
			}
			c.println("manifest applied")
			return nil
		},
	}
}
