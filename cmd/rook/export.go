package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export a run's full record as JSON",
	Long: `Export the complete persisted record of a run: plan, call history,
drafts, merged email, decisions, and stage trace. The export is also the
resume state; re-importing it is never needed because runs resume
directly from the database.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Write to a file instead of stdout")
}

func runExport(cmd *cobra.Command, args []string) error {
	db, err := openRunStore()
	if err != nil {
		return err
	}
	defer db.Close()

	rec, err := db.GetRun(args[0])
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}

	if exportOut == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(exportOut, data, 0644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Printf("exported run %s to %s\n", args[0], exportOut)
	return nil
}
