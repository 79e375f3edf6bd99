package orchestrator

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rookhq/rook/internal/llm"
	"github.com/rookhq/rook/internal/scenario"
	"github.com/rookhq/rook/internal/state"
	"github.com/rookhq/rook/internal/tools"
	"github.com/rookhq/rook/pkg/models"
)

const goodPlanJSON = `{"actions": [
  {"action": "create_task", "task": "Refresh ad creatives", "assignee": "dana", "confidence": 0.9},
  {"action": "adjust_budget", "details": {"campaign_id": "c1", "adjustment": -0.2}, "reason": "CPA over target", "confidence": 0.8}
], "summary": "Cut spend and refresh creatives"}`

const timidPlanJSON = `{"actions": [
  {"action": "create_task", "task": "Maybe pause everything", "confidence": 0.6}
], "summary": "Uncertain next steps"}`

const draftText = "Campaign update: spend adjusted\n\nHi team, we cut daily spend by 20% and opened a creative refresh task."

// scriptedExecutor routes calls by stage (keyed on the system prompt) and
// consumes a per-stage queue of results. An exhausted queue replays its
// last entry. Successful results still run the request's Validate, the
// same way the real executor does.
type scriptedExecutor struct {
	mu     sync.Mutex
	queues map[string][]llm.CallResult
	counts map[string]int
	// lastPlanPrompt captures the most recent planning prompt.
	lastPlanPrompt string
}

func newScriptedExecutor() *scriptedExecutor {
	return &scriptedExecutor{
		queues: make(map[string][]llm.CallResult),
		counts: make(map[string]int),
	}
}

func ok(text string) llm.CallResult {
	return llm.CallResult{Text: text, CredentialID: "key-1", Attempts: 1}
}

func failed(kind llm.FailureKind, msg string) llm.CallResult {
	return llm.CallResult{Failure: &llm.Failure{Kind: kind, Message: msg}, CredentialID: "key-1", Attempts: 1}
}

func (s *scriptedExecutor) push(system string, results ...llm.CallResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queues[system] = append(s.queues[system], results...)
}

func (s *scriptedExecutor) count(system string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[system]
}

func (s *scriptedExecutor) Execute(_ context.Context, req llm.CallRequest) llm.CallResult {
	s.mu.Lock()
	s.counts[req.System]++
	if req.System == planSystemPrompt {
		s.lastPlanPrompt = req.Prompt
	}
	q := s.queues[req.System]
	var res llm.CallResult
	switch len(q) {
	case 0:
		res = failed(llm.FailureTransient, "no scripted result")
	case 1:
		res = q[0]
	default:
		res = q[0]
		s.queues[req.System] = q[1:]
	}
	s.mu.Unlock()

	if res.OK() && req.Validate != nil {
		if err := req.Validate(res.Text); err != nil {
			return llm.CallResult{
				Failure:      &llm.Failure{Kind: llm.FailureSchemaViolation, Message: err.Error()},
				CredentialID: res.CredentialID,
				Attempts:     res.Attempts,
			}
		}
	}
	return res
}

var _ llm.CallExecutor = (*scriptedExecutor)(nil)

func testScenario() *scenario.Scenario {
	return &scenario.Scenario{
		Name:   "campaign_spike",
		Inputs: map[string]any{"observation": "CPA doubled overnight"},
		Analytics: scenario.Analytics{Campaigns: []scenario.Campaign{
			{CampaignID: "c1", CPA: 42, TargetCPA: 25, Trend: "down", DailySpend: 500},
		}},
		SubjectHint: "Campaign performance update",
	}
}

type fixture struct {
	exec  *scriptedExecutor
	store *state.DB
	tasks *tools.InMemoryTaskAPI
	email *tools.SimulatedEmailAPI
	orch  *Orchestrator
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	db, err := state.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	f := &fixture{
		exec:  newScriptedExecutor(),
		store: db,
		tasks: tools.NewInMemoryTaskAPI(),
		email: tools.NewSimulatedEmailAPI(),
	}
	all := append([]Option{
		WithTaskService(f.tasks),
		WithEmailSender(f.email),
	}, opts...)
	f.orch, err = New(RequiredConfig{Executor: f.exec, Store: db}, all...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

func TestRunAutoApprovesConfidentPlan(t *testing.T) {
	f := newFixture(t)
	f.exec.push(planSystemPrompt, ok(goodPlanJSON))
	f.exec.push(draftSystemPrompt, ok(draftText))
	f.exec.push(mergeSystemPrompt, ok("Final subject\n\nFinal merged body."))

	rec, err := f.orch.Run(context.Background(), testScenario())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.Stage != models.StageOutput {
		t.Fatalf("stage = %s, want %s (failure: %s)", rec.Stage, models.StageOutput, rec.FailureReason)
	}
	if rec.Decision != models.DecisionApproved {
		t.Errorf("decision = %s, want approved", rec.Decision)
	}
	if !strings.Contains(rec.DecisionReason, "auto-approved") {
		t.Errorf("decision reason = %q, want auto-approval", rec.DecisionReason)
	}
	if got := f.tasks.Count(); got != 1 {
		t.Errorf("tasks created = %d, want 1", got)
	}
	sent := f.email.Sent()
	if len(sent) != 1 {
		t.Fatalf("emails sent = %d, want 1", len(sent))
	}
	if sent[0].Subject != "Final subject" {
		t.Errorf("sent subject = %q", sent[0].Subject)
	}
	if rec.Merged == nil || rec.Merged.Subject != "Final subject" {
		t.Errorf("merged draft = %+v", rec.Merged)
	}
}

func TestTraceRecordsEveryTransitionInOrder(t *testing.T) {
	f := newFixture(t)
	f.exec.push(planSystemPrompt, ok(goodPlanJSON))
	f.exec.push(draftSystemPrompt, ok(draftText))
	f.exec.push(mergeSystemPrompt, ok("Subject\n\nBody."))

	rec, err := f.orch.Run(context.Background(), testScenario())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []models.Stage{
		models.StageTaskDerivation,
		models.StageDrafting,
		models.StageMerging,
		models.StageApprovalGate,
		models.StageOutput,
	}
	if len(rec.Trace) != len(want) {
		t.Fatalf("trace length = %d, want %d: %+v", len(rec.Trace), len(want), rec.Trace)
	}
	for i, entry := range rec.Trace {
		if entry.To != want[i] {
			t.Errorf("trace[%d].To = %s, want %s", i, entry.To, want[i])
		}
		if entry.Seq != i+1 {
			t.Errorf("trace[%d].Seq = %d, want %d", i, entry.Seq, i+1)
		}
	}
}

func TestRunPausesBelowThreshold(t *testing.T) {
	f := newFixture(t)
	f.exec.push(planSystemPrompt, ok(timidPlanJSON))
	f.exec.push(draftSystemPrompt, ok(draftText))
	f.exec.push(mergeSystemPrompt, ok("Subject\n\nBody."))

	rec, err := f.orch.Run(context.Background(), testScenario())
	if !errors.Is(err, ErrRunPaused) {
		t.Fatalf("Run error = %v, want ErrRunPaused", err)
	}
	if !rec.AwaitingDecision() {
		t.Fatalf("run not awaiting decision: stage=%s decision=%s", rec.Stage, rec.Decision)
	}

	// Approving completes the run and delivers the email.
	rec, err = f.orch.Decide(rec.ID, true, "looks good")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if rec.Stage != models.StageOutput {
		t.Errorf("stage after approval = %s, want output", rec.Stage)
	}
	if len(f.email.Sent()) != 1 {
		t.Errorf("emails sent = %d, want 1", len(f.email.Sent()))
	}

	// A decision binds exactly once per pause.
	if _, err := f.orch.Decide(rec.ID, false, "too late"); !errors.Is(err, ErrNotAwaitingDecision) {
		t.Errorf("second Decide error = %v, want ErrNotAwaitingDecision", err)
	}
}

func TestRejectReplansOnceThenFails(t *testing.T) {
	f := newFixture(t)
	f.exec.push(planSystemPrompt, ok(timidPlanJSON), ok(timidPlanJSON))
	f.exec.push(draftSystemPrompt, ok(draftText))
	f.exec.push(mergeSystemPrompt, ok("Subject\n\nBody."))

	sc := testScenario()
	rec, err := f.orch.Run(context.Background(), sc)
	if !errors.Is(err, ErrRunPaused) {
		t.Fatalf("Run error = %v, want ErrRunPaused", err)
	}

	// A rejection takes the backward edge straight to Planning; the
	// record never rests at rejected.
	rec, err = f.orch.Decide(rec.ID, false, "plan is too timid")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if rec.Stage != models.StagePlanning {
		t.Fatalf("stage after rejection = %s, want planning", rec.Stage)
	}
	if rec.Plan != nil {
		t.Errorf("plan not cleared for replanning: %+v", rec.Plan)
	}
	if rec.PlanRetries != 1 {
		t.Errorf("plan retries = %d, want 1", rec.PlanRetries)
	}
	exported, err := f.orch.Export(rec.ID)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if exported.Stage != models.StagePlanning {
		t.Errorf("persisted stage after rejection = %s, want planning", exported.Stage)
	}

	// Resuming replans with the rejection reason fed back in.
	rec, err = f.orch.Resume(context.Background(), rec.ID, sc)
	if !errors.Is(err, ErrRunPaused) {
		t.Fatalf("Resume error = %v, want ErrRunPaused", err)
	}
	if !strings.Contains(f.exec.lastPlanPrompt, "plan is too timid") {
		t.Errorf("replanning prompt missing rejection feedback:\n%s", f.exec.lastPlanPrompt)
	}
	if got := f.exec.count(planSystemPrompt); got != 2 {
		t.Errorf("planning calls = %d, want 2", got)
	}

	// A second rejection exhausts the retry budget.
	rec, err = f.orch.Decide(rec.ID, false, "still too timid")
	if err != nil {
		t.Fatalf("second Decide: %v", err)
	}
	if rec.Stage != models.StageFailed {
		t.Errorf("stage after second rejection = %s, want failed", rec.Stage)
	}
	if !strings.Contains(rec.FailureReason, "rejected again") {
		t.Errorf("failure reason = %q", rec.FailureReason)
	}
}

func TestResumeDoesNotReExecuteCompletedStages(t *testing.T) {
	f := newFixture(t)
	f.exec.push(planSystemPrompt, ok(timidPlanJSON))
	f.exec.push(draftSystemPrompt, ok(draftText))
	f.exec.push(mergeSystemPrompt, ok("Subject\n\nBody."))

	sc := testScenario()
	rec, err := f.orch.Run(context.Background(), sc)
	if !errors.Is(err, ErrRunPaused) {
		t.Fatalf("Run error = %v, want ErrRunPaused", err)
	}
	planCalls := f.exec.count(planSystemPrompt)
	draftCalls := f.exec.count(draftSystemPrompt)

	// Resume lands back in the same pause without repeating any work.
	if _, err := f.orch.Resume(context.Background(), rec.ID, sc); !errors.Is(err, ErrRunPaused) {
		t.Fatalf("Resume error = %v, want ErrRunPaused", err)
	}
	if got := f.exec.count(planSystemPrompt); got != planCalls {
		t.Errorf("planning calls after resume = %d, want %d", got, planCalls)
	}
	if got := f.exec.count(draftSystemPrompt); got != draftCalls {
		t.Errorf("draft calls after resume = %d, want %d", got, draftCalls)
	}
}

func TestResumeOfTerminalRunIsIdentity(t *testing.T) {
	f := newFixture(t)
	f.exec.push(planSystemPrompt, ok(goodPlanJSON))
	f.exec.push(draftSystemPrompt, ok(draftText))
	f.exec.push(mergeSystemPrompt, ok("Subject\n\nBody."))

	sc := testScenario()
	rec, err := f.orch.Run(context.Background(), sc)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	before := f.exec.count(planSystemPrompt) + f.exec.count(draftSystemPrompt) + f.exec.count(mergeSystemPrompt)

	again, err := f.orch.Resume(context.Background(), rec.ID, sc)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if again.Stage != models.StageOutput {
		t.Errorf("stage = %s, want output", again.Stage)
	}
	after := f.exec.count(planSystemPrompt) + f.exec.count(draftSystemPrompt) + f.exec.count(mergeSystemPrompt)
	if after != before {
		t.Errorf("resume of terminal run made %d extra calls", after-before)
	}
}

func TestPlanningSchemaViolationRetriesOnce(t *testing.T) {
	f := newFixture(t)
	f.exec.push(planSystemPrompt, ok("sorry, I cannot produce JSON"), ok(goodPlanJSON))
	f.exec.push(draftSystemPrompt, ok(draftText))
	f.exec.push(mergeSystemPrompt, ok("Subject\n\nBody."))

	rec, err := f.orch.Run(context.Background(), testScenario())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.Stage != models.StageOutput {
		t.Fatalf("stage = %s, want output (failure: %s)", rec.Stage, rec.FailureReason)
	}
	if got := f.exec.count(planSystemPrompt); got != 2 {
		t.Errorf("planning calls = %d, want 2", got)
	}
	if len(rec.Calls) < 2 || rec.Calls[0].FailureKind != string(llm.FailureSchemaViolation) {
		t.Errorf("first recorded call = %+v, want schema violation", rec.Calls[0])
	}
}

func TestPlanningSchemaViolationTwiceFailsRun(t *testing.T) {
	f := newFixture(t)
	f.exec.push(planSystemPrompt, ok("not json"), ok("still not json"))

	rec, err := f.orch.Run(context.Background(), testScenario())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.Stage != models.StageFailed {
		t.Fatalf("stage = %s, want failed", rec.Stage)
	}
	if !strings.Contains(rec.FailureReason, "schema") {
		t.Errorf("failure reason = %q", rec.FailureReason)
	}
}

func TestAllDraftsFailedFailsRun(t *testing.T) {
	f := newFixture(t)
	f.exec.push(planSystemPrompt, ok(goodPlanJSON))
	f.exec.push(draftSystemPrompt, failed(llm.FailureTransient, "boom"))

	rec, err := f.orch.Run(context.Background(), testScenario())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.Stage != models.StageFailed {
		t.Fatalf("stage = %s, want failed", rec.Stage)
	}
	if !strings.Contains(rec.FailureReason, "no viable drafts") {
		t.Errorf("failure reason = %q", rec.FailureReason)
	}
	// The failure is Drafting's own; Merging never ran.
	for _, entry := range rec.Trace {
		if entry.To == models.StageMerging {
			t.Errorf("trace records a merging transition for an all-failure draft set: %+v", rec.Trace)
		}
	}
}

func TestCapacityExhaustedPlanningFailsRun(t *testing.T) {
	f := newFixture(t)
	f.exec.push(planSystemPrompt, failed(llm.FailureCapacityExhausted, "pool empty"))

	rec, err := f.orch.Run(context.Background(), testScenario())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.Stage != models.StageFailed {
		t.Fatalf("stage = %s, want failed", rec.Stage)
	}
	if !strings.Contains(rec.FailureReason, "no credentials available") {
		t.Errorf("failure reason = %q", rec.FailureReason)
	}
}

func TestSingleSurvivingDraftSkipsMergeCall(t *testing.T) {
	f := newFixture(t, WithDraftWidth(2))
	f.exec.push(planSystemPrompt, ok(goodPlanJSON))
	f.exec.push(draftSystemPrompt,
		failed(llm.FailureRateLimited, "429"),
		ok("Lone subject\n\nLone body."),
	)

	rec, err := f.orch.Run(context.Background(), testScenario())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.Stage != models.StageOutput {
		t.Fatalf("stage = %s, want output (failure: %s)", rec.Stage, rec.FailureReason)
	}
	if got := f.exec.count(mergeSystemPrompt); got != 0 {
		t.Errorf("merge calls = %d, want 0 for a single survivor", got)
	}
	if rec.Merged == nil || rec.Merged.Body != "Lone body." {
		t.Errorf("merged = %+v, want lone draft verbatim", rec.Merged)
	}
}

func TestAdjustBudgetActionsApplied(t *testing.T) {
	sc := testScenario()
	analytics := tools.NewAnalyticsAPI(sc.Analytics)
	f := newFixture(t, WithAnalytics(analytics))
	f.exec.push(planSystemPrompt, ok(goodPlanJSON))
	f.exec.push(draftSystemPrompt, ok(draftText))
	f.exec.push(mergeSystemPrompt, ok("Subject\n\nBody."))

	rec, err := f.orch.Run(context.Background(), sc)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.Stage != models.StageOutput {
		t.Fatalf("stage = %s, want output (failure: %s)", rec.Stage, rec.FailureReason)
	}

	if len(rec.BudgetAcks) != 1 {
		t.Fatalf("budget acks = %+v, want 1", rec.BudgetAcks)
	}
	ack := rec.BudgetAcks[0]
	if !ack.Accepted || ack.CampaignID != "c1" {
		t.Errorf("budget ack = %+v, want accepted change to c1", ack)
	}
	if ack.OldSpend != 500 || math.Abs(ack.NewSpend-400) > 1e-6 {
		t.Errorf("budget ack spend = %.2f -> %.2f, want 500 -> 400", ack.OldSpend, ack.NewSpend)
	}
	got := analytics.Fetch()
	if spend := got.Campaigns[0].DailySpend; math.Abs(spend-400) > 1e-6 {
		t.Errorf("daily spend after run = %.2f, want 400", spend)
	}
}

// inProcessDecider approves or rejects immediately, standing in for the TUI.
type inProcessDecider struct {
	approve bool
	reason  string
	calls   int
}

func (d *inProcessDecider) Decide(*models.RunRecord) (bool, string, error) {
	d.calls++
	return d.approve, d.reason, nil
}

func TestInProcessDeciderApproves(t *testing.T) {
	dec := &inProcessDecider{approve: true, reason: "reviewed interactively"}
	f := newFixture(t, WithDecider(dec))
	f.exec.push(planSystemPrompt, ok(timidPlanJSON))
	f.exec.push(draftSystemPrompt, ok(draftText))
	f.exec.push(mergeSystemPrompt, ok("Subject\n\nBody."))

	rec, err := f.orch.Run(context.Background(), testScenario())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.Stage != models.StageOutput {
		t.Errorf("stage = %s, want output", rec.Stage)
	}
	if dec.calls != 1 {
		t.Errorf("decider calls = %d, want 1", dec.calls)
	}
}

func TestAutoApprovalNeverConsultsDecider(t *testing.T) {
	dec := &inProcessDecider{approve: false, reason: "should not be asked"}
	f := newFixture(t, WithDecider(dec))
	f.exec.push(planSystemPrompt, ok(goodPlanJSON))
	f.exec.push(draftSystemPrompt, ok(draftText))
	f.exec.push(mergeSystemPrompt, ok("Subject\n\nBody."))

	rec, err := f.orch.Run(context.Background(), testScenario())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.Stage != models.StageOutput {
		t.Errorf("stage = %s, want output", rec.Stage)
	}
	if dec.calls != 0 {
		t.Errorf("decider calls = %d, want 0 for auto-approval", dec.calls)
	}
}

func TestExportRoundTrips(t *testing.T) {
	f := newFixture(t)
	f.exec.push(planSystemPrompt, ok(goodPlanJSON))
	f.exec.push(draftSystemPrompt, ok(draftText))
	f.exec.push(mergeSystemPrompt, ok("Subject\n\nBody."))

	rec, err := f.orch.Run(context.Background(), testScenario())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	exported, err := f.orch.Export(rec.ID)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if exported.Stage != rec.Stage || exported.Seq != rec.Seq {
		t.Errorf("exported stage/seq = %s/%d, want %s/%d", exported.Stage, exported.Seq, rec.Stage, rec.Seq)
	}
	if len(exported.Trace) != len(rec.Trace) {
		t.Errorf("exported trace length = %d, want %d", len(exported.Trace), len(rec.Trace))
	}
	if _, err := f.orch.ExportJSON(rec.ID); err != nil {
		t.Errorf("ExportJSON: %v", err)
	}
}
