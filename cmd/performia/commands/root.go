package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "performia",
	Short: "Live accompaniment engine",
	Long: `performia - a live accompaniment engine.

The engine listens to a performer, tracks their position within a
pre-computed song map, and conducts an ensemble of autonomous agents
(bass, drums, harmony) that play along through an external synthesis
renderer.

Examples:
  # Generate a rehearsal map and validate it
  performia map click --bpm 120 --beats 64 -o song.json
  performia map validate song.json

  # Run a session
  performia run -f config.yaml

  # Watch a running session
  performia monitor --url ws://localhost:8090/telemetry`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
