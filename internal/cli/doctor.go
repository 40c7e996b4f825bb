package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rowguard-labs/rowguard/internal/status"
)

func (c *CLI) newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose configuration and connectivity",
		Long: `Run health checks against the relation registry and every configured
engine, and report whether the guard is armed.

Exit code 0 means everything is ready.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := c.ensureRuntime()
			if err != nil {
				return err
			}

			doctor := status.NewDoctor(rt.Relations, rt.Engines, rt.Rule)
			report := doctor.Check(cmd.Context())

			if c.jsonOutput {
				if err := c.outputJSON(report); err != nil {
					return err
				}
			} else {
				c.printf("%s", report.String())
			}

			if !report.Ready {
				return fmt.Errorf("doctor: %s", report.Reason)
			}
			return nil
		},
	}
}
