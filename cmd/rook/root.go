package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rook",
	Short: "Marketing scenario orchestrator",
	Long: `Rook turns a marketing scenario into an action plan, derived tasks,
and a merged client email, coordinating several model calls per run.

A run walks a fixed stage sequence: planning, task derivation, parallel
email drafting, merging, and a human approval gate. Confident plans are
auto-approved; everything else pauses for review. Runs are persisted and
can be inspected, exported, and resumed at any point.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(decideCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
