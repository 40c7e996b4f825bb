// Package cli provides the command-line interface for rowguard.
// The CLI is a control interface for configuring, provisioning, querying,
// and diagnosing guarded engines.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rowguard-labs/rowguard/internal/config"
	"github.com/rowguard-labs/rowguard/internal/errors"
	"github.com/rowguard-labs/rowguard/internal/guard"
)

// Exit codes.
const (
	ExitSuccess    = 0
	ExitValidation = 1
	ExitSession    = 2
	ExitEngine     = 3
	ExitInternal   = 4
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// CLI holds the command-line interface state.
type CLI struct {
	rootCmd *cobra.Command
	cfg     *config.Config
	runtime *Runtime

	// Global flags
	configPath string
	jsonOutput bool
	quiet      bool
	debug      bool
}

// New creates a new CLI instance.
func New() *CLI {
	cli := &CLI{}
	cli.rootCmd = cli.newRootCmd()
	return cli
}

// Execute runs the CLI and returns the process exit code.
func (c *CLI) Execute() int {
	err := c.rootCmd.Execute()
	if c.runtime != nil {
		c.runtime.Close()
	}
	if err != nil {
		c.errorf("%v\n", err)
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// exitCodeFor maps an error to a process exit code. A sentinel abort maps
// to the internal-error code so the exit status is as uninformative as the
// message.
func exitCodeFor(err error) int {
	if _, aborted := guard.AsAbort(err); aborted {
		return ExitInternal
	}
	switch errors.CodeOf(err) {
	case errors.CodeValidation:
		return ExitValidation
	case errors.CodeSession:
		return ExitSession
	case errors.CodeEngine:
		return ExitEngine
	default:
		return ExitInternal
	}
}

func (c *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rowguard",
		Short: "Rowguard - sentinel-row exfiltration tripwire for SQL engines",
		Long: `Rowguard executes SQL against configured engines with a sentinel tripwire
on the read path.

It provides:
  • Canary row provisioning from a declarative manifest
  • A stable relation registry guarded rules point at
  • Per-row inspection of SELECT results against the sentinel value
  • Statement- or connection-scoped abort on a match

This CLI is a control interface for provisioning, querying, and diagnostics.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.initConfig()
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: ~/.rowguard/config.yaml)")
	cmd.PersistentFlags().BoolVar(&c.jsonOutput, "json", false, "machine-readable JSON output")
	cmd.PersistentFlags().BoolVar(&c.quiet, "quiet", false, "suppress non-essential output")
	cmd.PersistentFlags().BoolVar(&c.debug, "debug", false, "verbose debug logs")

	// Add command groups
	cmd.AddCommand(c.newQueryCmd())
	cmd.AddCommand(c.newRelationCmd())
	cmd.AddCommand(c.newEnginesCmd())
	cmd.AddCommand(c.newBootstrapCmd())
	cmd.AddCommand(c.newDoctorCmd())
	cmd.AddCommand(c.newVersionCmd())

	return cmd
}

func (c *CLI) initConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

// ensureRuntime builds the process runtime on first use. Commands that only
// format local data (version) never pay for engine connections.
func (c *CLI) ensureRuntime() (*Runtime, error) {
	if c.runtime != nil {
		return c.runtime, nil
	}
	rt, err := NewRuntime(c.cfg)
	if err != nil {
		return nil, err
	}
	c.runtime = rt
	return rt, nil
}

// Helper functions for output

func (c *CLI) printf(format string, args ...interface{}) {
	if !c.quiet {
		fmt.Printf(format, args...)
	}
}

func (c *CLI) println(args ...interface{}) {
	if !c.quiet {
		fmt.Println(args...)
	}
}

func (c *CLI) errorf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
}

func (c *CLI) debugf(format string, args ...interface{}) {
	if c.debug {
		fmt.Printf("[DEBUG] "+format, args...)
	}
}

func (c *CLI) outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
