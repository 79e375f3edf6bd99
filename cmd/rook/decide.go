package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rookhq/rook/internal/notify"
	"github.com/rookhq/rook/pkg/models"
)

var (
	decideApprove bool
	decideReject  bool
	decideReason  string
	decideFile    bool
)

var decideCmd = &cobra.Command{
	Use:   "decide <run-id>",
	Short: "Approve or reject a paused run",
	Long: `Answer the approval gate for a paused run.

Approval finishes the run and delivers the merged email. A first
rejection queues the run for replanning (continue it with 'rook resume');
a second rejection fails it.

With --file the decision is written to .rook/decisions/ for a run that is
waiting in another process (started with 'rook run --wait').`,
	Args: cobra.ExactArgs(1),
	RunE: runDecide,
}

func init() {
	decideCmd.Flags().BoolVar(&decideApprove, "approve", false, "Approve the run")
	decideCmd.Flags().BoolVar(&decideReject, "reject", false, "Reject the run")
	decideCmd.Flags().StringVar(&decideReason, "reason", "", "Reason for the decision")
	decideCmd.Flags().BoolVar(&decideFile, "file", false, "Write a decision file instead of deciding in-process")
}

func runDecide(cmd *cobra.Command, args []string) error {
	runID := args[0]

	if decideApprove == decideReject {
		return fmt.Errorf("pass exactly one of --approve or --reject")
	}
	if decideReject && decideReason == "" {
		return fmt.Errorf("--reject requires --reason so replanning has feedback")
	}

	if decideFile {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		dir := notify.DecisionDir(cwd)
		if err := notify.WriteDecision(dir, runID, decideApprove, decideReason); err != nil {
			return fmt.Errorf("write decision file: %w", err)
		}
		fmt.Printf("decision recorded in %s\n", dir)
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	orch, db, _, err := buildOrchestrator(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	rec, err := orch.Decide(runID, decideApprove, decideReason)
	if err != nil {
		return err
	}

	switch rec.Stage {
	case models.StageOutput:
		color.New(color.FgGreen).Println("✓ approved and delivered")
		if rec.Merged != nil {
			fmt.Printf("\nTo: %s\nSubject: %s\n\n%s\n", rec.Merged.To, rec.Merged.Subject, rec.Merged.Body)
		}
	case models.StagePlanning:
		color.New(color.FgYellow).Printf("rejected; replan with: rook resume %s <scenario>\n", rec.ID)
	case models.StageFailed:
		color.New(color.FgRed).Printf("✗ failed: %s\n", rec.FailureReason)
	}
	return nil
}
