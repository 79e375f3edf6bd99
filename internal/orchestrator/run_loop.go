package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/rookhq/rook/internal/llm"
	"github.com/rookhq/rook/internal/scenario"
	"github.com/rookhq/rook/internal/tools"
	"github.com/rookhq/rook/pkg/models"
)

// ErrRunPaused is returned by Run and Resume when the run halts at the
// approval gate waiting for an external decision.
var ErrRunPaused = errors.New("orchestrator: run paused at approval gate")

// Run executes the scenario from a fresh record and advances it until a
// terminal stage or the approval-gate pause. The returned record is always
// the persisted state, even when an error is returned alongside it.
func (o *Orchestrator) Run(ctx context.Context, sc *scenario.Scenario) (*models.RunRecord, error) {
	rec := o.newRecord(sc.Name)
	if err := o.store.SaveRun(rec); err != nil {
		return rec, fmt.Errorf("persist new run: %w", err)
	}
	log.Printf("[orchestrator] run %s started for scenario %q", rec.ID, sc.Name)
	return rec, o.advance(ctx, rec, sc)
}

// advance drives the record from its current stage until it is terminal
// or paused. Every transition is persisted before the destination stage's
// side effects begin, so a crash mid-stage replays from the last recorded
// transition, never from a half-applied one.
func (o *Orchestrator) advance(ctx context.Context, rec *models.RunRecord, sc *scenario.Scenario) error {
	for !rec.Stage.Terminal() {
		var err error
		switch rec.Stage {
		case models.StagePlanning:
			err = o.stagePlanning(ctx, rec, sc)
		case models.StageTaskDerivation:
			err = o.stageTaskDerivation(rec, sc)
		case models.StageDrafting:
			err = o.stageDrafting(ctx, rec, sc)
		case models.StageMerging:
			err = o.stageMerging(ctx, rec)
		case models.StageApprovalGate:
			err = o.stageApprovalGate(rec)
		case models.StageRejected:
			err = o.stageRejected(rec)
		default:
			err = fmt.Errorf("run %s in unknown stage %q", rec.ID, rec.Stage)
		}
		if err != nil {
			return err
		}
	}
	if rec.Stage == models.StageFailed {
		log.Printf("[orchestrator] run %s failed: %s", rec.ID, rec.FailureReason)
	} else {
		log.Printf("[orchestrator] run %s complete", rec.ID)
	}
	return nil
}

// transition appends the trace entry and persists the record. Destination
// stage side effects must not start until this returns.
func (o *Orchestrator) transition(rec *models.RunRecord, to models.Stage, note string) error {
	if !models.CanTransition(rec.Stage, to) {
		return fmt.Errorf("illegal transition %s -> %s for run %s", rec.Stage, to, rec.ID)
	}
	rec.AppendTrace(to, note)
	if err := o.store.SaveRun(rec); err != nil {
		return fmt.Errorf("persist transition to %s: %w", to, err)
	}
	log.Printf("[orchestrator] run %s: %s", rec.ID, note)
	return nil
}

// fail moves the run to Failed with a recorded reason.
func (o *Orchestrator) fail(rec *models.RunRecord, reason string) error {
	rec.FailureReason = reason
	return o.transition(rec, models.StageFailed, reason)
}

// stagePlanning issues the planning call and parses the structured plan.
// A schema violation gets exactly one in-stage retry; any other terminal
// failure fails the run.
func (o *Orchestrator) stagePlanning(ctx context.Context, rec *models.RunRecord, sc *scenario.Scenario) error {
	if rec.Plan != nil {
		// Resume after a crash between planning and derivation.
		return o.transition(rec, models.StageTaskDerivation, "plan already recorded, deriving tasks")
	}

	insights := tools.Analyze(sc.Analytics)
	req := llm.CallRequest{
		ScenarioID: rec.ScenarioID,
		System:     planSystemPrompt,
		Prompt:     buildPlanPrompt(sc, insights, rec.PlanContext),
		MaxTokens:  o.opts.planTokens,
		MaxRetries: o.opts.maxCallRetries,
		Validate:   planValidator,
	}

	res := o.exec.Execute(ctx, req)
	rec.Calls = append(rec.Calls, callRecord(models.StagePlanning, res))
	if !res.OK() && res.Failure.Kind == llm.FailureSchemaViolation {
		log.Printf("[orchestrator] run %s: plan schema violation, retrying once", rec.ID)
		res = o.exec.Execute(ctx, req)
		rec.Calls = append(rec.Calls, callRecord(models.StagePlanning, res))
	}
	if !res.OK() {
		return o.fail(rec, failureReason("planning", res))
	}

	plan, err := parsePlan(res.Text)
	if err != nil {
		// Validate already ran in the executor, so this only trips if
		// the two parses diverge.
		return o.fail(rec, fmt.Sprintf("planning produced unusable plan: %v", err))
	}
	rec.Plan = plan
	note := fmt.Sprintf("plan ready: %d actions, min confidence %.2f", len(plan.Actions), plan.MinConfidence())
	return o.transition(rec, models.StageTaskDerivation, note)
}

// stageTaskDerivation converts the plan into task-service calls and
// applies its budget adjustments. Deterministic; no model calls.
func (o *Orchestrator) stageTaskDerivation(rec *models.RunRecord, sc *scenario.Scenario) error {
	if rec.Plan == nil {
		return o.fail(rec, "task derivation reached without a plan")
	}
	if len(rec.TaskAcks) == 0 && len(rec.BudgetAcks) == 0 {
		for _, req := range tools.DeriveTasks(*rec.Plan) {
			var ack models.TaskAck
			if req.TaskID != "" {
				ack = o.opts.tasks.Reassign(req.TaskID, req.Assignee)
			} else {
				ack = o.opts.tasks.CreateTask(req)
			}
			rec.TaskAcks = append(rec.TaskAcks, ack)
		}
		budgets := o.opts.budgets
		if budgets == nil {
			budgets = tools.NewAnalyticsAPI(sc.Analytics)
		}
		rec.BudgetAcks = tools.ApplyBudgetActions(*rec.Plan, budgets)
	}
	note := fmt.Sprintf("derived %d task calls, %d budget changes", len(rec.TaskAcks), len(rec.BudgetAcks))
	return o.transition(rec, models.StageDrafting, note)
}

// stageDrafting fans the email prompt out to the worker pool and records
// every worker's terminal result in completion order.
func (o *Orchestrator) stageDrafting(ctx context.Context, rec *models.RunRecord, sc *scenario.Scenario) error {
	if len(rec.Drafts) == 0 {
		req := llm.CallRequest{
			ScenarioID: rec.ScenarioID,
			System:     draftSystemPrompt,
			Prompt:     buildDraftPrompt(sc, rec.Plan, rec.TaskAcks),
			MaxTokens:  o.opts.draftTokens,
			MaxRetries: o.opts.maxCallRetries,
		}
		ds := o.pool.Draft(ctx, req)
		for _, res := range ds.Results {
			rec.Drafts = append(rec.Drafts, callRecord(models.StageDrafting, res))
			rec.Calls = append(rec.Calls, callRecord(models.StageDrafting, res))
		}
	}
	ok := 0
	for _, d := range rec.Drafts {
		if d.OK() {
			ok++
		}
	}
	if len(rec.Drafts) > 0 && ok == 0 {
		// Every worker exhausted its own retries; this needs human
		// attention, not a batch retry or a doomed merge.
		return o.fail(rec, "no viable drafts: every drafting worker failed")
	}
	note := fmt.Sprintf("drafting done: %d/%d succeeded", ok, len(rec.Drafts))
	return o.transition(rec, models.StageMerging, note)
}

// stageMerging reconciles the surviving drafts into the final email. Zero
// survivors fails the run; one survivor passes through untouched.
func (o *Orchestrator) stageMerging(ctx context.Context, rec *models.RunRecord) error {
	if rec.Merged == nil {
		var survivors []llm.CallResult
		for _, d := range rec.Drafts {
			if d.OK() {
				survivors = append(survivors, llm.CallResult{
					Text:         d.Text,
					CredentialID: d.CredentialID,
					Attempts:     d.Attempts,
				})
			}
		}

		res, err := o.merger.Merge(ctx, rec.ScenarioID, survivors)
		if errors.Is(err, ErrNoViableDrafts) {
			return o.fail(rec, "no viable drafts: every drafting worker failed")
		}
		if len(survivors) > 1 {
			rec.Calls = append(rec.Calls, callRecord(models.StageMerging, res))
		}
		if err != nil {
			return o.fail(rec, failureReason("merging", res))
		}

		subjectHint := ""
		if rec.Plan != nil && rec.Plan.Summary != "" {
			subjectHint = rec.Plan.Summary
		}
		draft := tools.ParseDraft(res.Text, subjectHint, o.opts.defaultTo)
		rec.Merged = &draft
	}
	note := "merge complete"
	if rec.Merged.Subject != "" {
		note = fmt.Sprintf("merge complete: %q", rec.Merged.Subject)
	}
	return o.transition(rec, models.StageApprovalGate, note)
}

// callRecord converts an executor result into its persisted form.
func callRecord(stage models.Stage, res llm.CallResult) models.CallRecord {
	rec := models.CallRecord{
		Stage:        stage,
		Text:         res.Text,
		CredentialID: res.CredentialID,
		Attempts:     res.Attempts,
	}
	if res.Failure != nil {
		rec.FailureKind = string(res.Failure.Kind)
		rec.FailureMessage = res.Failure.Message
	}
	return rec
}

// failureReason renders a terminal call failure as a run failure reason.
func failureReason(stage string, res llm.CallResult) string {
	if res.Failure == nil {
		return stage + " failed"
	}
	switch res.Failure.Kind {
	case llm.FailureCapacityExhausted:
		return fmt.Sprintf("%s: no credentials available (all cooling down or exhausted) after %d attempts", stage, res.Attempts)
	case llm.FailureSchemaViolation:
		return fmt.Sprintf("%s: model output failed schema validation after retry: %s", stage, res.Failure.Message)
	default:
		return fmt.Sprintf("%s: %s after %d attempts: %s", stage, res.Failure.Kind, res.Attempts, res.Failure.Message)
	}
}
