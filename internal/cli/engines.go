package cli

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/rowguard-labs/rowguard/pkg/api"
)

func (c *CLI) newEnginesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "engines",
		Short: "List configured engines and their health",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := c.ensureRuntime()
			if err != nil {
				return err
			}

			health := rt.Engines.CheckAllHealth(cmd.Context())
			names := make([]string, 0, len(health))
			for name := range health {
				names = append(names, name)
			}
			sort.Strings(names)

			if c.jsonOutput {
				out := make([]api.EngineStatus, 0, len(names))
				for _, name := range names {
					status := api.EngineStatus{Name: name, Healthy: health[name] == nil}
					if health[name] != nil {
						status.Error = health[name].Error()
					}
					out = append(out, status)
				}
				return c.outputJSON(out)
			}

			if len(names) == 0 {
				c.println("no engines configured")
				return nil
			}
			for _, name := range names {
				if health[name] == nil {
					c.printf("%-12s available\n", name)
				} else {
					c.printf("%-12s unavailable: %v\n", name, health[name])
				}
			}
			return nil
		},
	}
}
