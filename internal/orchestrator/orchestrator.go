// Package orchestrator drives a scenario run through the fixed stage
// sequence: Planning, TaskDerivation, Drafting, Merging, ApprovalGate,
// then Output or Failed. It owns the RunRecord and is the only component
// with cross-cutting visibility.
package orchestrator

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rookhq/rook/internal/llm"
	"github.com/rookhq/rook/internal/state"
	"github.com/rookhq/rook/internal/tools"
	"github.com/rookhq/rook/pkg/models"
)

// RequiredConfig contains the minimal required dependencies for an
// Orchestrator. All fields are required and have no defaults.
type RequiredConfig struct {
	// Executor issues all model calls.
	Executor llm.CallExecutor
	// Store persists run records for replay and resume.
	Store state.RunStore
}

// Option configures an Orchestrator. Use With* functions to create Options.
type Option func(*orchestratorOptions)

type orchestratorOptions struct {
	tasks          tools.TaskService
	email          tools.EmailSender
	budgets        tools.BudgetService
	width          int
	threshold      float64
	maxPlanRetries int
	maxCallRetries int
	planTokens     int64
	draftTokens    int64
	mergeTokens    int64
	defaultTo      string
	decider        Decider
	newID          func() string
}

// WithTaskService sets the external task-creation service.
func WithTaskService(ts tools.TaskService) Option {
	return func(o *orchestratorOptions) { o.tasks = ts }
}

// WithEmailSender sets the external email delivery service.
func WithEmailSender(es tools.EmailSender) Option {
	return func(o *orchestratorOptions) { o.email = es }
}

// WithAnalytics sets the analytics service that applies adjust_budget
// actions. Without one, each run gets a simulated service over its
// scenario's snapshot.
func WithAnalytics(bs tools.BudgetService) Option {
	return func(o *orchestratorOptions) { o.budgets = bs }
}

// WithDraftWidth sets the number of parallel drafting workers.
func WithDraftWidth(n int) Option {
	return func(o *orchestratorOptions) { o.width = n }
}

// WithConfidenceThreshold sets the auto-approval confidence threshold.
func WithConfidenceThreshold(t float64) Option {
	return func(o *orchestratorOptions) { o.threshold = t }
}

// WithMaxPlanRetries bounds the automatic Rejected → Planning cycles.
func WithMaxPlanRetries(n int) Option {
	return func(o *orchestratorOptions) { o.maxPlanRetries = n }
}

// WithMaxCallRetries sets the per-call retry budget passed to the executor.
func WithMaxCallRetries(n int) Option {
	return func(o *orchestratorOptions) { o.maxCallRetries = n }
}

// WithTokenBudgets sets the per-stage output token budgets. The budgets
// themselves come from configuration; tuning them is external.
func WithTokenBudgets(plan, draft, merge int64) Option {
	return func(o *orchestratorOptions) {
		o.planTokens = plan
		o.draftTokens = draft
		o.mergeTokens = merge
	}
}

// WithDefaultRecipient sets the fallback email recipient.
func WithDefaultRecipient(to string) Option {
	return func(o *orchestratorOptions) { o.defaultTo = to }
}

// WithDecider sets an in-process decider consulted when a run pauses at
// the approval gate (the interactive TUI). Without one, the run stays
// paused until an external Decide call.
func WithDecider(d Decider) Option {
	return func(o *orchestratorOptions) { o.decider = d }
}

// withIDGenerator overrides run ID generation, for tests.
func withIDGenerator(fn func() string) Option {
	return func(o *orchestratorOptions) { o.newID = fn }
}

// Decider supplies an approval decision for a paused run.
type Decider interface {
	// Decide is called with the paused run's record and returns the
	// human's decision. Returning an error leaves the run paused.
	Decide(rec *models.RunRecord) (approve bool, reason string, err error)
}

// Orchestrator coordinates runs. It is safe to share one instance across
// sequential runs; each run's RunRecord is owned by exactly one Run.
type Orchestrator struct {
	exec  llm.CallExecutor
	store state.RunStore
	opts  orchestratorOptions

	pool   *Pool
	merger *Merger
}

// New creates an Orchestrator with the given required config and options.
func New(req RequiredConfig, opts ...Option) (*Orchestrator, error) {
	if req.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if req.Store == nil {
		return nil, fmt.Errorf("run store is required")
	}

	o := &Orchestrator{
		exec:  req.Executor,
		store: req.Store,
		opts: orchestratorOptions{
			tasks:          tools.NewInMemoryTaskAPI(),
			email:          tools.NewSimulatedEmailAPI(),
			width:          3,
			threshold:      0.75,
			maxPlanRetries: 1,
			maxCallRetries: 4,
			planTokens:     2000,
			draftTokens:    250,
			mergeTokens:    400,
			defaultTo:      "client@example.com",
			newID:          func() string { return uuid.New().String()[:8] },
		},
	}
	for _, opt := range opts {
		opt(&o.opts)
	}
	if o.opts.width < 1 {
		return nil, fmt.Errorf("draft width must be at least 1")
	}

	o.pool = NewPool(o.exec, o.opts.width)
	o.merger = NewMerger(o.exec, o.opts.mergeTokens, o.opts.maxCallRetries)
	return o, nil
}

// newRecord builds a fresh RunRecord for a scenario.
func (o *Orchestrator) newRecord(scenarioID string) *models.RunRecord {
	now := time.Now().UTC()
	return &models.RunRecord{
		ID:         o.opts.newID(),
		ScenarioID: scenarioID,
		Stage:      models.StagePlanning,
		Decision:   models.DecisionPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
