// Package models defines the shared domain types for Rook runs.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ActionType identifies what kind of operation a plan action requests.
type ActionType string

const (
	// ActionCreateTask requests creation of a task in the task service.
	ActionCreateTask ActionType = "create_task"
	// ActionReassignTask requests moving a task to another assignee.
	ActionReassignTask ActionType = "reassign_task"
	// ActionAdjustBudget requests a relative change to a campaign's daily spend.
	ActionAdjustBudget ActionType = "adjust_budget"
	// ActionDraftEmail requests a client-facing email draft.
	ActionDraftEmail ActionType = "draft_email"
	// ActionSchedulePost requests scheduling a content post.
	ActionSchedulePost ActionType = "schedule_post"
	// ActionPauseCampaign requests pausing a campaign.
	ActionPauseCampaign ActionType = "pause_campaign"
	// ActionRunAnalysis requests a follow-up analysis pass.
	ActionRunAnalysis ActionType = "run_analysis"
)

// Valid returns true if the action type is a known canonical value.
func (t ActionType) Valid() bool {
	switch t {
	case ActionCreateTask, ActionReassignTask, ActionAdjustBudget,
		ActionDraftEmail, ActionSchedulePost, ActionPauseCampaign, ActionRunAnalysis:
		return true
	default:
		return false
	}
}

// Action is one proposed step in a plan, normalized to the canonical schema.
type Action struct {
	// Type is the canonical action type.
	Type ActionType `json:"action_type"`
	// Details carries action-specific parameters (campaign_id, adjustment, ...).
	Details map[string]any `json:"details,omitempty"`
	// Reason explains why the planner proposed this action.
	Reason string `json:"reason,omitempty"`
	// Confidence is the planner's confidence in [0,1].
	Confidence float64 `json:"confidence"`
	// Task is the task description for create_task actions.
	Task string `json:"task,omitempty"`
	// TaskID references an existing task for reassign_task actions.
	TaskID string `json:"task_id,omitempty"`
	// Assignee is who the resulting task should be assigned to.
	Assignee string `json:"assignee,omitempty"`
}

// DetailString returns the named detail as a string, or "" when absent.
func (a Action) DetailString(key string) string {
	v, ok := a.Details[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// DetailFloat returns the named detail as a float64.
// The second return value reports whether the detail was present and numeric.
func (a Action) DetailFloat(key string) (float64, bool) {
	switch v := a.Details[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Plan is the structured output of the planning stage.
type Plan struct {
	// Actions are the proposed steps, in planner order.
	Actions []Action `json:"actions"`
	// Summary is the planner's one-paragraph rationale.
	Summary string `json:"summary,omitempty"`
}

// MinConfidence returns the lowest confidence across all actions.
// An empty plan reports 0.
func (p Plan) MinConfidence() float64 {
	if len(p.Actions) == 0 {
		return 0
	}
	min := p.Actions[0].Confidence
	for _, a := range p.Actions[1:] {
		if a.Confidence < min {
			min = a.Confidence
		}
	}
	return min
}

// LowConfidenceActions returns the actions whose confidence is below threshold.
func (p Plan) LowConfidenceActions(threshold float64) []Action {
	var low []Action
	for _, a := range p.Actions {
		if a.Confidence < threshold {
			low = append(low, a)
		}
	}
	return low
}

// AutoApprovable returns true when every action meets the confidence threshold.
// An empty plan is never auto-approvable.
func (p Plan) AutoApprovable(threshold float64) bool {
	if len(p.Actions) == 0 {
		return false
	}
	for _, a := range p.Actions {
		if a.Confidence < threshold {
			return false
		}
	}
	return true
}

// Validate checks the minimal plan schema: at least one action, each with a
// known type and a confidence in [0,1].
func (p Plan) Validate() error {
	if len(p.Actions) == 0 {
		return fmt.Errorf("plan has no actions")
	}
	for i, a := range p.Actions {
		if !a.Type.Valid() {
			return fmt.Errorf("action %d: unknown action type %q", i, a.Type)
		}
		if a.Confidence < 0 || a.Confidence > 1 {
			return fmt.Errorf("action %d: confidence %v outside [0,1]", i, a.Confidence)
		}
	}
	return nil
}

// actionTypeSynonyms maps model-emitted action names onto the canonical set.
// Planners trained on board tools tend to emit card vocabulary.
var actionTypeSynonyms = map[string]ActionType{
	"move_card":     ActionCreateTask,
	"create_card":   ActionCreateTask,
	"add_comment":   ActionCreateTask,
	"set_due_date":  ActionCreateTask,
	"investigation": ActionCreateTask,
	"analysis":      ActionCreateTask,
	"audit":         ActionCreateTask,
	"assign_member": ActionReassignTask,
	"communication": ActionDraftEmail,
	"send_email":    ActionDraftEmail,
}

// NormalizeActionType maps a raw model-emitted action name onto the canonical
// set, defaulting to create_task for anything unrecognized.
func NormalizeActionType(raw string) ActionType {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if t := ActionType(raw); t.Valid() {
		return t
	}
	if t, ok := actionTypeSynonyms[raw]; ok {
		return t
	}
	return ActionCreateTask
}
