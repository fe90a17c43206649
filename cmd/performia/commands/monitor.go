package commands

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/PerformanceSuite/Performia-sub001/pkg/cli"
	"github.com/PerformanceSuite/Performia-sub001/pkg/telemetry"
)

var (
	monitorURL   string
	monitorWidth int
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live telemetry dashboard",
	Long: `Connect to a running session's telemetry endpoint and render a
live status panel until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		snaps, err := telemetry.Stream(ctx, monitorURL)
		if err != nil {
			return err
		}

		dash := cli.NewDashboard("performia")
		out := cmd.OutOrStdout()
		first := true
		lines := 0
		for snap := range snaps {
			panel := dash.Render(snap, monitorWidth)
			if !first {
				// Redraw in place.
				fmt.Fprintf(out, "\033[%dA", lines)
			}
			fmt.Fprintln(out, panel)
			lines = 1
			for _, c := range panel {
				if c == '\n' {
					lines++
				}
			}
			first = false
		}
		return nil
	},
}

func init() {
	monitorCmd.Flags().StringVar(&monitorURL, "url", "ws://localhost:8090/telemetry", "telemetry websocket URL")
	monitorCmd.Flags().IntVar(&monitorWidth, "width", 60, "panel width")
	rootCmd.AddCommand(monitorCmd)
}
