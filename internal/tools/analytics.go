// Package tools holds the external service boundaries the orchestrator
// talks to: the task service, the email sender, and the analytics API.
// The shipped implementations are simulated in-memory services; the
// interfaces are what the core depends on.
package tools

import (
	"fmt"
	"sync"

	"github.com/rookhq/rook/internal/scenario"
	"github.com/rookhq/rook/pkg/models"
)

// BudgetService is the analytics boundary task derivation uses to apply
// a plan's budget adjustments.
type BudgetService interface {
	AdjustBudget(campaignID string, adjustment float64) (BudgetChange, error)
}

// Insight is a per-campaign recommendation derived from metrics.
type Insight struct {
	CampaignID     string  `json:"campaign_id"`
	Recommendation string  `json:"recommendation"`
	Confidence     float64 `json:"confidence"`
}

// Risk flags a campaign metric breaching its target.
type Risk struct {
	CampaignID string `json:"campaign_id"`
	Issue      string `json:"issue"`
	Urgency    int    `json:"urgency"`
	Note       string `json:"note"`
}

// Insights is the derived view of an analytics snapshot fed into planning.
type Insights struct {
	CampaignInsights []Insight `json:"campaign_insights"`
	Risks            []Risk    `json:"risks"`
}

// Analyze derives insights and risks from a campaign snapshot. A CPA over
// target is a high-urgency risk; a downward trend suggests creative fatigue.
func Analyze(a scenario.Analytics) Insights {
	var out Insights
	for _, c := range a.Campaigns {
		if c.TargetCPA > 0 && c.CPA > c.TargetCPA {
			out.Risks = append(out.Risks, Risk{
				CampaignID: c.CampaignID,
				Issue:      "high_cpa",
				Urgency:    8,
				Note:       fmt.Sprintf("CPA %.2f > target %.2f", c.CPA, c.TargetCPA),
			})
		}
		if c.Trend == "down" {
			out.CampaignInsights = append(out.CampaignInsights, Insight{
				CampaignID:     c.CampaignID,
				Recommendation: "investigate_creatives",
				Confidence:     0.6,
			})
		}
	}
	return out
}

// BudgetChange reports the result of a budget adjustment.
type BudgetChange struct {
	CampaignID string  `json:"campaign_id"`
	OldSpend   float64 `json:"old_spend"`
	NewSpend   float64 `json:"new_spend"`
}

// AnalyticsAPI is a simulated analytics service over a scenario snapshot.
type AnalyticsAPI struct {
	mu   sync.Mutex
	data scenario.Analytics
}

// NewAnalyticsAPI creates an analytics service over the given snapshot.
func NewAnalyticsAPI(data scenario.Analytics) *AnalyticsAPI {
	return &AnalyticsAPI{data: data}
}

// Fetch returns the current snapshot.
func (a *AnalyticsAPI) Fetch() scenario.Analytics {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.data
}

// AdjustBudget applies a relative adjustment (-0.2 = cut 20%) to a
// campaign's daily spend.
func (a *AnalyticsAPI) AdjustBudget(campaignID string, adjustment float64) (BudgetChange, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, c := range a.data.Campaigns {
		if c.CampaignID == campaignID {
			old := c.DailySpend
			a.data.Campaigns[i].DailySpend = old * (1 + adjustment)
			return BudgetChange{CampaignID: campaignID, OldSpend: old, NewSpend: a.data.Campaigns[i].DailySpend}, nil
		}
	}
	return BudgetChange{}, fmt.Errorf("campaign %q not found", campaignID)
}

// Compile-time verification.
var _ BudgetService = (*AnalyticsAPI)(nil)

// ApplyBudgetActions executes the plan's adjust_budget actions against the
// analytics service, one ack per action, in plan order. Actions missing a
// campaign or adjustment are acked as rejected, not skipped, so the run
// record shows every budget action the plan asked for.
func ApplyBudgetActions(plan models.Plan, budgets BudgetService) []models.BudgetAck {
	var acks []models.BudgetAck
	for _, a := range plan.Actions {
		if a.Type != models.ActionAdjustBudget {
			continue
		}
		campaignID := a.DetailString("campaign_id")
		if campaignID == "" {
			campaignID = a.DetailString("campaign")
		}
		adjustment, ok := a.DetailFloat("adjustment")
		if campaignID == "" || !ok {
			acks = append(acks, models.BudgetAck{
				CampaignID: campaignID,
				Reason:     "adjust_budget action missing campaign_id or adjustment",
			})
			continue
		}
		change, err := budgets.AdjustBudget(campaignID, adjustment)
		if err != nil {
			acks = append(acks, models.BudgetAck{CampaignID: campaignID, Reason: err.Error()})
			continue
		}
		acks = append(acks, models.BudgetAck{
			Accepted:   true,
			CampaignID: change.CampaignID,
			OldSpend:   change.OldSpend,
			NewSpend:   change.NewSpend,
		})
	}
	return acks
}
