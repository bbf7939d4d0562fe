// Package main is the entrypoint for the tabula CLI.
// The CLI provides commands for serving the gateway, asking questions,
// running the evaluation harness, and diagnostics.
package main

import (
	"os"

	"github.com/tabula-labs/tabula/internal/cli"
)

// Version information (set at build time via ldflags)
var (
	version = ""
	commit  = ""
	date    = ""
)

func main() {
	cli.SetVersionInfo(version, commit, date)
	os.Exit(cli.New().Execute())
}
