// Package main is the entry point for the performia CLI.
//
// Usage:
//
//	performia [flags] <command> [args]
//
// Commands:
//
//	run      - Run a performance session from a config file
//	map      - Song map tooling (validate, convert, click)
//	monitor  - Live telemetry dashboard for a running session
//	version  - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/PerformanceSuite/Performia-sub001/cmd/performia/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
