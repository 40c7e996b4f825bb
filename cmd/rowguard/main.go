// Package main is the entrypoint for the rowguard CLI.
package main

import (
	"os"

	"github.com/rowguard-labs/rowguard/internal/cli"
)

// Build-time version information, injected via -ldflags.
var (
	version   = ""
	gitCommit = ""
	buildDate = ""
)

func main() {
	cli.SetVersionInfo(version, gitCommit, buildDate)
	os.Exit(cli.New().Execute())
}
