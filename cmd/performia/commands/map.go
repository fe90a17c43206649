package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PerformanceSuite/Performia-sub001/pkg/songmap"
)

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Song map tooling",
}

var mapValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a song map artifact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := songmap.Load(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(),
			"%s: %q, %.1fs, %d beats, %d chords, %d sections, %d anchors\n",
			args[0], m.Title, m.Duration, len(m.Beats), len(m.Chords), len(m.Sections), len(m.Anchors))
		return nil
	},
}

var mapConvertCmd = &cobra.Command{
	Use:   "convert <in> <out>",
	Short: "Convert a song map between JSON and msgpack",
	Long: `Convert a song map between the JSON interchange format (.json)
and the compact binary format (.smp). The direction follows the file
extensions.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := songmap.Load(args[0])
		if err != nil {
			return err
		}
		return writeMap(m, args[1])
	},
}

var (
	clickBPM    float64
	clickBeats  int
	clickOut    string
	clickChords []string
)

var mapClickCmd = &cobra.Command{
	Use:   "click",
	Short: "Generate a constant-tempo rehearsal map",
	RunE: func(cmd *cobra.Command, args []string) error {
		m := songmap.GenerateClick(clickBPM, clickBeats, clickChords)
		return writeMap(m, clickOut)
	},
}

func writeMap(m *songmap.Map, path string) error {
	format := songmap.FormatJSON
	if strings.EqualFold(filepath.Ext(path), ".smp") {
		format = songmap.FormatMsgpack
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return songmap.Encode(f, m, format)
}

func init() {
	mapClickCmd.Flags().Float64Var(&clickBPM, "bpm", 120, "tempo")
	mapClickCmd.Flags().IntVar(&clickBeats, "beats", 64, "length in beats")
	mapClickCmd.Flags().StringSliceVar(&clickChords, "chords", []string{"C", "F", "G", "C"}, "chord loop, one per bar")
	mapClickCmd.Flags().StringVarP(&clickOut, "out", "o", "click.json", "output path")

	mapCmd.AddCommand(mapValidateCmd, mapConvertCmd, mapClickCmd)
	rootCmd.AddCommand(mapCmd)
}
