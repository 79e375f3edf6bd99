package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rookhq/rook/internal/scenario"
	"github.com/rookhq/rook/pkg/models"
)

// Decide applies an external approval decision to a paused run. Approval
// drives the run to Output (including email delivery); a rejection within
// the retry budget takes the backward edge to Planning, ready for Resume
// to replan with the rejection feedback; a rejection past the budget
// fails the run. Applying a decision to a run that is not paused returns
// ErrNotAwaitingDecision.
func (o *Orchestrator) Decide(runID string, approve bool, reason string) (*models.RunRecord, error) {
	rec, err := o.store.GetRun(runID)
	if err != nil {
		return nil, err
	}
	if err := o.applyDecision(rec, approve, reason); err != nil {
		return rec, err
	}
	return rec, nil
}

// Resume continues a persisted run from its recorded stage. Completed
// stages are never re-executed: each stage checks its recorded artifact
// before doing work, so resuming is idempotent. A run still awaiting a
// decision resumes straight back into the pause.
func (o *Orchestrator) Resume(ctx context.Context, runID string, sc *scenario.Scenario) (*models.RunRecord, error) {
	rec, err := o.store.GetRun(runID)
	if err != nil {
		return nil, err
	}
	if rec.Stage.Terminal() {
		return rec, nil
	}
	if sc.Name != rec.ScenarioID {
		return rec, fmt.Errorf("scenario %q does not match run %s (recorded scenario %q)", sc.Name, rec.ID, rec.ScenarioID)
	}
	return rec, o.advance(ctx, rec, sc)
}

// Export returns the persisted record for a run. The record is the
// complete replay state: serializing it and loading it back is enough to
// resume the run.
func (o *Orchestrator) Export(runID string) (*models.RunRecord, error) {
	return o.store.GetRun(runID)
}

// ExportJSON renders a run's record as indented JSON.
func (o *Orchestrator) ExportJSON(runID string) ([]byte, error) {
	rec, err := o.store.GetRun(runID)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(rec, "", "  ")
}
