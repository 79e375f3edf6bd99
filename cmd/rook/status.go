package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rookhq/rook/internal/state"
	"github.com/rookhq/rook/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Show recorded runs",
	Long: `Display persisted runs from the project database.

Without arguments, lists recent runs. With a run ID, shows that run's
stage trace and call history.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	dbPath := state.DefaultDBPath(cwd)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No runs recorded. Start one with 'rook run <scenario>'.")
		return nil
	}

	db, err := state.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open run database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate run database: %w", err)
	}

	if len(args) == 1 {
		return showRun(db, args[0])
	}
	return listRuns(db)
}

func listRuns(db *state.DB) error {
	runs, err := db.ListRuns()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded. Start one with 'rook run <scenario>'.")
		return nil
	}

	fmt.Printf("%-10s %-20s %-14s %-9s %s\n", "RUN", "SCENARIO", "STAGE", "DECISION", "UPDATED")
	for _, r := range runs {
		stage := stageColor(models.Stage(r.Stage)).Sprintf("%-14s", r.Stage)
		fmt.Printf("%-10s %-20s %s %-9s %s\n",
			r.ID, r.ScenarioID, stage, r.Decision, r.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func showRun(db *state.DB, runID string) error {
	rec, err := db.GetRun(runID)
	if err != nil {
		return err
	}

	fmt.Printf("run %s (%s)\n", rec.ID, rec.ScenarioID)
	fmt.Printf("stage: %s   decision: %s   plan retries: %d\n", stageColor(rec.Stage).Sprint(rec.Stage), rec.Decision, rec.PlanRetries)
	if rec.FailureReason != "" {
		color.New(color.FgRed).Printf("failure: %s\n", rec.FailureReason)
	}
	if rec.Plan != nil && rec.Plan.Summary != "" {
		fmt.Printf("plan: %s\n", rec.Plan.Summary)
	}

	if len(rec.Trace) > 0 {
		fmt.Println("\ntrace:")
		for _, e := range rec.Trace {
			fmt.Printf("  %2d. %-14s -> %-14s %s\n", e.Seq, e.From, e.To, e.Note)
		}
	}

	if len(rec.Calls) > 0 {
		fmt.Println("\ncalls:")
		for i, c := range rec.Calls {
			status := color.New(color.FgGreen).Sprint("ok")
			if !c.OK() {
				status = color.New(color.FgRed).Sprint(c.FailureKind)
			}
			fmt.Printf("  %2d. %-14s %-18s attempts=%d credential=%s\n", i+1, c.Stage, status, c.Attempts, c.CredentialID)
		}
	}
	return nil
}

func stageColor(s models.Stage) *color.Color {
	switch s {
	case models.StageOutput:
		return color.New(color.FgGreen)
	case models.StageFailed:
		return color.New(color.FgRed)
	case models.StageApprovalGate, models.StageRejected:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgCyan)
	}
}
