package models

import "time"

// Stage is one node in the run state machine's fixed sequence.
type Stage string

const (
	// StagePlanning produces the structured plan.
	StagePlanning Stage = "planning"
	// StageTaskDerivation converts plan actions into task-service requests.
	StageTaskDerivation Stage = "task_derivation"
	// StageDrafting fans out parallel email drafts.
	StageDrafting Stage = "drafting"
	// StageMerging reconciles drafts into one artifact.
	StageMerging Stage = "merging"
	// StageApprovalGate is the human checkpoint before output.
	StageApprovalGate Stage = "approval_gate"
	// StageOutput is the successful terminal stage.
	StageOutput Stage = "output"
	// StageRejected records an approval rejection before the retry edge.
	StageRejected Stage = "rejected"
	// StageFailed is the failed terminal stage.
	StageFailed Stage = "failed"
)

// Terminal reports whether the stage ends the run.
func (s Stage) Terminal() bool {
	return s == StageOutput || s == StageFailed
}

// stageOrder fixes the forward sequence for transition validation.
// Rejected sits between ApprovalGate and the retry edge back to Planning.
var stageOrder = map[Stage]int{
	StagePlanning:       0,
	StageTaskDerivation: 1,
	StageDrafting:       2,
	StageMerging:        3,
	StageApprovalGate:   4,
	StageRejected:       5,
	StageOutput:         6,
	StageFailed:         6,
}

// CanTransition reports whether moving from one stage to another is legal.
// Stages only advance forward, except the single Rejected → Planning edge;
// Failed is reachable from anywhere.
func CanTransition(from, to Stage) bool {
	if to == StageFailed {
		return true
	}
	if from == StageRejected && to == StagePlanning {
		return true
	}
	fo, ok1 := stageOrder[from]
	to2, ok2 := stageOrder[to]
	return ok1 && ok2 && to2 > fo
}

// Decision is the approval gate's pending/approved/rejected state.
type Decision string

const (
	// DecisionPending means no decision has been made.
	DecisionPending Decision = "pending"
	// DecisionApproved means the gate was (auto-)approved.
	DecisionApproved Decision = "approved"
	// DecisionRejected means a human rejected the artifact.
	DecisionRejected Decision = "rejected"
)

// TraceEntry is one recorded stage transition, appended before any side
// effect of the destination stage begins.
type TraceEntry struct {
	// Seq is the monotonically increasing transition sequence number.
	Seq int `json:"seq"`
	// From is the stage transitioned out of.
	From Stage `json:"from"`
	// To is the stage transitioned into.
	To Stage `json:"to"`
	// Note carries stage context (failure kind, decision reason).
	Note string `json:"note,omitempty"`
	// At is when the transition was recorded.
	At time.Time `json:"at"`
}

// CallRecord is the persisted form of one model call result.
type CallRecord struct {
	// Stage is the stage that issued the call.
	Stage Stage `json:"stage"`
	// Text is the response payload on success.
	Text string `json:"text,omitempty"`
	// FailureKind is the typed failure taxonomy value, empty on success.
	FailureKind string `json:"failure_kind,omitempty"`
	// FailureMessage is the translated failure detail.
	FailureMessage string `json:"failure_message,omitempty"`
	// CredentialID is the credential that served the call.
	CredentialID string `json:"credential_id,omitempty"`
	// Attempts is how many attempts the executor made.
	Attempts int `json:"attempts"`
}

// OK reports whether the recorded call succeeded.
func (c CallRecord) OK() bool {
	return c.FailureKind == ""
}

// RunRecord is the unit of persisted state for one scenario execution.
// It is owned solely by the run state machine and mutated only by stage
// transitions; serializing it is sufficient to replay or resume the run.
type RunRecord struct {
	// ID is the run identifier.
	ID string `json:"id"`
	// ScenarioID names the scenario this run executes.
	ScenarioID string `json:"scenario_id"`
	// Stage is the current stage.
	Stage Stage `json:"stage"`
	// Seq is the last assigned trace sequence number.
	Seq int `json:"seq"`

	// Plan is the planning stage output, once produced.
	Plan *Plan `json:"plan,omitempty"`
	// PlanContext accumulates rejection reasons fed back into replanning.
	PlanContext []string `json:"plan_context,omitempty"`
	// Calls records every model call made so far, in issue order.
	Calls []CallRecord `json:"calls,omitempty"`
	// TaskAcks records the task-service acknowledgements.
	TaskAcks []TaskAck `json:"task_acks,omitempty"`
	// BudgetAcks records the applied budget adjustments.
	BudgetAcks []BudgetAck `json:"budget_acks,omitempty"`
	// Drafts are the drafting stage results in worker completion order.
	Drafts []CallRecord `json:"drafts,omitempty"`
	// Merged is the reconciled email artifact.
	Merged *EmailDraft `json:"merged,omitempty"`

	// Decision is the approval gate state.
	Decision Decision `json:"decision"`
	// DecisionReason is the reason attached to an approval decision.
	DecisionReason string `json:"decision_reason,omitempty"`
	// PlanRetries counts Rejected → Planning cycles taken.
	PlanRetries int `json:"plan_retries"`
	// FailureReason is set when the run reaches Failed.
	FailureReason string `json:"failure_reason,omitempty"`

	// Trace is the full transition history.
	Trace []TraceEntry `json:"trace"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AppendTrace records a transition into to, advancing the sequence number
// and moving the record's stage pointer.
func (r *RunRecord) AppendTrace(to Stage, note string) TraceEntry {
	r.Seq++
	entry := TraceEntry{
		Seq:  r.Seq,
		From: r.Stage,
		To:   to,
		Note: note,
		At:   time.Now().UTC(),
	}
	r.Trace = append(r.Trace, entry)
	r.Stage = to
	r.UpdatedAt = entry.At
	return entry
}

// AwaitingDecision reports whether the run is paused at the approval gate.
func (r *RunRecord) AwaitingDecision() bool {
	return r.Stage == StageApprovalGate && r.Decision == DecisionPending
}
