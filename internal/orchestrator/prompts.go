package orchestrator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rookhq/rook/internal/llm"
	"github.com/rookhq/rook/internal/scenario"
	"github.com/rookhq/rook/internal/tools"
	"github.com/rookhq/rook/pkg/models"
)

const planSystemPrompt = `You are a marketing operations planner. Given a scenario and
analytics insights, produce a JSON action plan. Respond with a single JSON object:
{"actions": [{"action": "...", "details": {...}, "reason": "...", "confidence": 0.0}],
"summary": "..."}.
Allowed actions: create_task, reassign_task, adjust_budget, draft_email,
schedule_post, pause_campaign, run_analysis. Confidence is your own certainty
in [0,1]. Respond with JSON only, no commentary.`

const draftSystemPrompt = `You are drafting a short status email to a marketing client.
Write the subject on the first line, then a blank line, then the body. Be concrete
about what was done and what happens next. No markdown, no signature block.`

const mergeSystemPrompt = `You are an editor combining candidate emails into one
final email. Output the email only: subject on the first line, then a blank line,
then the body.`

// buildPlanPrompt renders the scenario, its insights, and any feedback from
// previously rejected plans into the planning prompt.
func buildPlanPrompt(sc *scenario.Scenario, insights tools.Insights, planContext []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scenario: %s\n", sc.Name)
	if len(sc.Inputs) > 0 {
		inputs, _ := json.Marshal(sc.Inputs)
		fmt.Fprintf(&b, "Inputs: %s\n", inputs)
	}
	if len(insights.Risks) > 0 {
		b.WriteString("\nRisks:\n")
		for _, r := range insights.Risks {
			fmt.Fprintf(&b, "- [%s urgency=%d] campaign %s: %s\n", r.Issue, r.Urgency, r.CampaignID, r.Note)
		}
	}
	if len(insights.CampaignInsights) > 0 {
		b.WriteString("\nAnalytics insights:\n")
		for _, in := range insights.CampaignInsights {
			fmt.Fprintf(&b, "- campaign %s: %s (confidence %.1f)\n", in.CampaignID, in.Recommendation, in.Confidence)
		}
	}
	if sc.Notes != "" {
		fmt.Fprintf(&b, "\nNotes: %s\n", sc.Notes)
	}
	for _, fb := range planContext {
		fmt.Fprintf(&b, "\nA previous plan was rejected: %s\nAddress this feedback in the new plan.\n", fb)
	}
	b.WriteString("\nProduce the action plan now.")
	return b.String()
}

// buildDraftPrompt renders the approved-so-far context into the email
// drafting prompt shared by all pool workers.
func buildDraftPrompt(sc *scenario.Scenario, plan *models.Plan, acks []models.TaskAck) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scenario: %s\n", sc.Name)
	if plan != nil && plan.Summary != "" {
		fmt.Fprintf(&b, "Plan summary: %s\n", plan.Summary)
	}
	if plan != nil && len(plan.Actions) > 0 {
		b.WriteString("Actions taken:\n")
		for _, a := range plan.Actions {
			line := string(a.Type)
			if a.Task != "" {
				line += ": " + a.Task
			} else if a.Reason != "" {
				line += ": " + a.Reason
			}
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}
	if len(acks) > 0 {
		b.WriteString("Task system results:\n")
		for _, ack := range acks {
			if ack.Accepted {
				fmt.Fprintf(&b, "- task %s created\n", ack.TaskID)
			} else {
				fmt.Fprintf(&b, "- task rejected: %s\n", ack.Reason)
			}
		}
	}
	if sc.SubjectHint != "" {
		fmt.Fprintf(&b, "Suggested subject: %s\n", sc.SubjectHint)
	}
	b.WriteString("\nWrite the client email now.")
	return b.String()
}

// parsePlan extracts and normalizes a Plan from raw model output. It
// tolerates fenced output, prose around the JSON, and the loose action
// shapes models produce (bare strings, lists, alternate key names).
func parsePlan(text string) (*models.Plan, error) {
	var raw struct {
		Actions []any  `json:"actions"`
		Summary string `json:"summary"`
	}
	if err := llm.ExtractJSON(text, &raw); err != nil {
		return nil, fmt.Errorf("plan is not valid JSON: %w", err)
	}
	plan := &models.Plan{Summary: raw.Summary}
	for _, ra := range raw.Actions {
		plan.Actions = append(plan.Actions, models.NormalizeRawAction(ra))
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return plan, nil
}

// planValidator adapts parsePlan into the executor's payload check so a
// malformed plan surfaces as a schema violation rather than a retry.
func planValidator(text string) error {
	_, err := parsePlan(text)
	return err
}
