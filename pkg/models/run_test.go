package models

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Stage
		want     bool
	}{
		{StagePlanning, StageTaskDerivation, true},
		{StageTaskDerivation, StageDrafting, true},
		{StageDrafting, StageMerging, true},
		{StageMerging, StageApprovalGate, true},
		{StageApprovalGate, StageOutput, true},
		{StageApprovalGate, StageRejected, true},
		{StageRejected, StagePlanning, true},
		{StagePlanning, StageFailed, true},
		{StageMerging, StageFailed, true},

		{StageDrafting, StagePlanning, false},
		{StageOutput, StagePlanning, false},
		{StageApprovalGate, StageDrafting, false},
		{StagePlanning, StagePlanning, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestStageTerminal(t *testing.T) {
	for _, s := range []Stage{StagePlanning, StageTaskDerivation, StageDrafting, StageMerging, StageApprovalGate, StageRejected} {
		if s.Terminal() {
			t.Errorf("%s reported terminal", s)
		}
	}
	for _, s := range []Stage{StageOutput, StageFailed} {
		if !s.Terminal() {
			t.Errorf("%s not reported terminal", s)
		}
	}
}

func TestAppendTraceAdvancesSeqAndStage(t *testing.T) {
	r := &RunRecord{ID: "r1", Stage: StagePlanning, Decision: DecisionPending}

	e1 := r.AppendTrace(StageTaskDerivation, "plan ready")
	if e1.Seq != 1 || e1.From != StagePlanning || e1.To != StageTaskDerivation {
		t.Errorf("entry 1 = %+v", e1)
	}
	if r.Stage != StageTaskDerivation {
		t.Errorf("stage = %s after trace", r.Stage)
	}

	e2 := r.AppendTrace(StageDrafting, "tasks derived")
	if e2.Seq != 2 || e2.From != StageTaskDerivation {
		t.Errorf("entry 2 = %+v", e2)
	}
	if len(r.Trace) != 2 || r.Seq != 2 {
		t.Errorf("trace len %d seq %d, want 2/2", len(r.Trace), r.Seq)
	}
	if r.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}
}

func TestAwaitingDecision(t *testing.T) {
	r := &RunRecord{Stage: StageApprovalGate, Decision: DecisionPending}
	if !r.AwaitingDecision() {
		t.Error("pending gate not awaiting decision")
	}
	r.Decision = DecisionApproved
	if r.AwaitingDecision() {
		t.Error("approved gate still awaiting decision")
	}
	r = &RunRecord{Stage: StageDrafting, Decision: DecisionPending}
	if r.AwaitingDecision() {
		t.Error("drafting run awaiting decision")
	}
}
