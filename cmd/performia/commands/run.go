package commands

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/PerformanceSuite/Performia-sub001/pkg/session"
	"github.com/PerformanceSuite/Performia-sub001/pkg/telemetry"
)

var runConfigPath string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a performance session",
	Long: `Run a performance session from a YAML config file.

The session runs until the audio source drains or an interrupt is
received. With telemetry.listen configured, a websocket endpoint
serves live counters at /telemetry for the monitor command.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := session.LoadConfig(runConfigPath)
		if err != nil {
			return err
		}

		s, err := session.New(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		if addr := cfg.Telemetry.Listen; addr != "" {
			mux := http.NewServeMux()
			interval := time.Duration(cfg.Telemetry.IntervalMS) * time.Millisecond
			mux.Handle("/telemetry", telemetry.NewServer(s.Snapshot, interval))
			go func() {
				if err := http.ListenAndServe(addr, mux); err != nil {
					slog.Error("telemetry server failed", "addr", addr, "err", err)
				}
			}()
			slog.Info("telemetry listening", "addr", addr)
		}

		if err := s.Start(); err != nil {
			return err
		}

		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
		select {
		case <-s.Done():
		case <-interrupt:
			slog.Info("interrupted")
		}
		if err := s.Stop(); err != nil {
			return err
		}

		snap := s.Snapshot()
		fmt.Fprintf(cmd.OutOrStdout(),
			"processed %.1fs of audio, %d cycles, %d resyncs, %d queue overflows\n",
			snap.SampleTime, snap.Cycles, snap.Resyncs, snap.Overflows)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "config.yaml", "session config file")
	rootCmd.AddCommand(runCmd)
}
