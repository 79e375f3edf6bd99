package orchestrator

import (
	"errors"
	"fmt"
	"log"

	"github.com/rookhq/rook/pkg/models"
)

// ErrNotAwaitingDecision is returned when a decision arrives for a run
// that is not paused at the approval gate. A decision binds exactly once
// per pause; a second decision for the same pause gets this error.
var ErrNotAwaitingDecision = errors.New("orchestrator: run is not awaiting a decision")

// stageApprovalGate auto-approves when every plan action clears the
// confidence threshold. Otherwise the run pauses: if an in-process decider
// is configured it is consulted immediately, else the pause persists until
// an external Decide call.
func (o *Orchestrator) stageApprovalGate(rec *models.RunRecord) error {
	if rec.Decision != models.DecisionPending {
		// Resume after a decision was applied but before its follow-up
		// transition was driven.
		return o.driveDecision(rec)
	}

	if rec.Plan != nil && rec.Plan.AutoApprovable(o.opts.threshold) {
		rec.Decision = models.DecisionApproved
		rec.DecisionReason = fmt.Sprintf("auto-approved: all action confidence >= %.2f", o.opts.threshold)
		return o.approveAndDeliver(rec)
	}

	// The pause itself is persisted so an external decider sees the
	// awaiting-decision state.
	if err := o.store.SaveRun(rec); err != nil {
		return fmt.Errorf("persist approval pause: %w", err)
	}
	var low int
	if rec.Plan != nil {
		low = len(rec.Plan.LowConfidenceActions(o.opts.threshold))
	}
	log.Printf("[orchestrator] run %s paused for approval (%d low-confidence actions)", rec.ID, low)

	if o.opts.decider == nil {
		return ErrRunPaused
	}
	approve, reason, err := o.opts.decider.Decide(rec)
	if err != nil {
		return fmt.Errorf("decider: %w", err)
	}
	return o.applyDecision(rec, approve, reason)
}

// applyDecision binds the gate decision and drives its immediate
// consequence. It refuses to apply twice for the same pause.
func (o *Orchestrator) applyDecision(rec *models.RunRecord, approve bool, reason string) error {
	if !rec.AwaitingDecision() {
		return ErrNotAwaitingDecision
	}
	if approve {
		rec.Decision = models.DecisionApproved
		rec.DecisionReason = reason
		return o.approveAndDeliver(rec)
	}
	rec.Decision = models.DecisionRejected
	rec.DecisionReason = reason
	if reason != "" {
		rec.PlanContext = append(rec.PlanContext, reason)
	} else {
		rec.PlanContext = append(rec.PlanContext, "artifact rejected without a stated reason")
	}
	return o.driveDecision(rec)
}

// driveDecision advances a decided gate: approval delivers, a first
// rejection takes the single retry edge, a second rejection fails the run.
func (o *Orchestrator) driveDecision(rec *models.RunRecord) error {
	switch rec.Decision {
	case models.DecisionApproved:
		return o.approveAndDeliver(rec)
	case models.DecisionRejected:
		if rec.PlanRetries >= o.opts.maxPlanRetries {
			return o.fail(rec, fmt.Sprintf("rejected again after %d replanning cycle(s): %s", rec.PlanRetries, rec.DecisionReason))
		}
		rec.PlanRetries++
		if err := o.transition(rec, models.StageRejected, "artifact rejected: "+rec.DecisionReason); err != nil {
			return err
		}
		// Take the backward edge immediately so the record never rests
		// at rejected; the replan itself waits for a Resume with the
		// scenario input.
		return o.stageRejected(rec)
	default:
		return ErrRunPaused
	}
}

// approveAndDeliver moves the run to Output and sends the merged email.
// The transition is recorded before delivery, so a crash between the two
// preserves the approval and drops at most the send.
func (o *Orchestrator) approveAndDeliver(rec *models.RunRecord) error {
	if err := o.transition(rec, models.StageOutput, "approved: "+rec.DecisionReason); err != nil {
		return err
	}
	if rec.Merged != nil {
		ack := o.opts.email.Send(*rec.Merged)
		if !ack.Accepted {
			log.Printf("[orchestrator] run %s: email delivery rejected: %s", rec.ID, ack.Reason)
		}
	}
	return o.store.SaveRun(rec)
}

// stageRejected resets the per-cycle artifacts and takes the single legal
// backward edge to Planning. The rejection reason stays in PlanContext so
// the replan sees it; the call history stays intact.
func (o *Orchestrator) stageRejected(rec *models.RunRecord) error {
	rec.Plan = nil
	rec.TaskAcks = nil
	rec.BudgetAcks = nil
	rec.Drafts = nil
	rec.Merged = nil
	rec.Decision = models.DecisionPending
	rec.DecisionReason = ""
	return o.transition(rec, models.StagePlanning, fmt.Sprintf("replanning (cycle %d) with rejection feedback", rec.PlanRetries))
}
