package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rookhq/rook/internal/llm"
	"github.com/rookhq/rook/internal/notify"
	"github.com/rookhq/rook/internal/orchestrator"
	"github.com/rookhq/rook/internal/scenario"
	"github.com/rookhq/rook/internal/tui"
	"github.com/rookhq/rook/pkg/models"
)

var (
	runInteractive bool
	runWait        time.Duration
	runWidth       int
)

var runCmd = &cobra.Command{
	Use:   "run <scenario.yaml>",
	Short: "Run a scenario end to end",
	Long: `Run a marketing scenario through the full stage sequence.

The scenario file (YAML or JSON) provides the inputs and analytics
snapshot. The run plans, derives tasks, drafts the client email in
parallel, merges the drafts, and stops at the approval gate unless the
plan is confident enough to auto-approve.

Approval modes when a run pauses:
  (default)       the run stays paused; answer later with 'rook decide'
  --interactive   review the plan and email in a terminal UI
  --wait <dur>    watch .rook/decisions/ for a decision file`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVarP(&runInteractive, "interactive", "i", false, "Review paused runs in a terminal UI")
	runCmd.Flags().DurationVar(&runWait, "wait", 0, "Wait for a decision file for up to this long")
	runCmd.Flags().IntVar(&runWidth, "width", 0, "Override the drafting worker count")
}

func runRun(cmd *cobra.Command, args []string) error {
	sc, err := scenario.Load(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runWidth > 0 {
		cfg.Run.DraftWidth = runWidth
	}

	var extra []orchestrator.Option
	switch {
	case runInteractive:
		extra = append(extra, orchestrator.WithDecider(tui.NewDecider(cfg.Run.ConfidenceThreshold)))
	case runWait > 0:
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		dir := notify.DecisionDir(cwd)
		extra = append(extra, orchestrator.WithDecider(notify.NewFileDecider(dir, runWait, cfg.Run.ConfidenceThreshold)))
	}

	orch, db, client, err := buildOrchestrator(cfg, extra...)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rec, err := orch.Run(ctx, sc)
	if rec != nil {
		printRunOutcome(rec, err)
		printTokenUsage(client)
	}
	if err != nil && !errors.Is(err, orchestrator.ErrRunPaused) {
		return err
	}
	return nil
}

// printRunOutcome renders the terminal or paused state of a run.
func printRunOutcome(rec *models.RunRecord, runErr error) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	fmt.Printf("run %s (%s)\n", rec.ID, rec.ScenarioID)

	switch {
	case rec.Stage == models.StageOutput:
		green.Println("✓ complete")
		if rec.Merged != nil {
			fmt.Printf("\nTo: %s\nSubject: %s\n\n%s\n", rec.Merged.To, rec.Merged.Subject, rec.Merged.Body)
		}
	case rec.Stage == models.StageFailed:
		red.Printf("✗ failed: %s\n", rec.FailureReason)
	case errors.Is(runErr, orchestrator.ErrRunPaused):
		yellow.Println("⏸ paused at the approval gate")
		if rec.Plan != nil && rec.Plan.Summary != "" {
			fmt.Printf("plan: %s\n", rec.Plan.Summary)
		}
		if rec.Merged != nil {
			fmt.Printf("subject: %s\n", rec.Merged.Subject)
		}
		fmt.Printf("\nDecide with:\n  rook decide %s --approve\n  rook decide %s --reject --reason \"...\"\n", rec.ID, rec.ID)
	default:
		yellow.Printf("stopped at %s\n", rec.Stage)
	}
}

// printTokenUsage summarizes model token consumption for the invocation.
func printTokenUsage(client *llm.Client) {
	in, out := client.Tracker().Total()
	if calls := client.Tracker().Calls(); calls > 0 {
		fmt.Printf("\n%d model call(s), %d input / %d output tokens\n", calls, in, out)
	}
}
