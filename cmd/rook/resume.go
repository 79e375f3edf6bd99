package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rookhq/rook/internal/notify"
	"github.com/rookhq/rook/internal/orchestrator"
	"github.com/rookhq/rook/internal/scenario"
	"github.com/rookhq/rook/internal/tui"
)

var (
	resumeInteractive bool
	resumeWait        bool
)

var resumeCmd = &cobra.Command{
	Use:   "resume <run-id> <scenario.yaml>",
	Short: "Continue a persisted run from its recorded stage",
	Long: `Continue a run from where it stopped: a crash, a pause, or a
rejection awaiting replanning. Completed stages are never re-executed.

The scenario file must be the one the run was started with.`,
	Args: cobra.ExactArgs(2),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().BoolVarP(&resumeInteractive, "interactive", "i", false, "Review paused runs in a terminal UI")
	resumeCmd.Flags().BoolVar(&resumeWait, "wait", false, "Watch .rook/decisions/ when the run pauses")
}

func runResume(cmd *cobra.Command, args []string) error {
	sc, err := scenario.Load(args[1])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var extra []orchestrator.Option
	switch {
	case resumeInteractive:
		extra = append(extra, orchestrator.WithDecider(tui.NewDecider(cfg.Run.ConfidenceThreshold)))
	case resumeWait:
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		extra = append(extra, orchestrator.WithDecider(notify.NewFileDecider(notify.DecisionDir(cwd), 0, cfg.Run.ConfidenceThreshold)))
	}

	orch, db, client, err := buildOrchestrator(cfg, extra...)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rec, err := orch.Resume(ctx, args[0], sc)
	if rec != nil {
		printRunOutcome(rec, err)
		printTokenUsage(client)
	}
	if err != nil && !errors.Is(err, orchestrator.ErrRunPaused) {
		return err
	}
	return nil
}
