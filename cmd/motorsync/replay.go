package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"motorsync/internal/sim"
)

var (
	replayInput string
	replaySpeed float64
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a reading log file",
	Long:  "replay feeds persisted readings from a JSONL log back through a writer at configurable speed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}
		return sim.ReplayLogFile(replayInput, sim.NewStdoutWriter(), replaySpeed)
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to reading log file (JSONL)")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier")
	replayCmd.MarkFlagRequired("input")
}
