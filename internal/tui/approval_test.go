package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rookhq/rook/pkg/models"
)

func pausedRecord() *models.RunRecord {
	return &models.RunRecord{
		ID:         "run1",
		ScenarioID: "campaign_spike",
		Stage:      models.StageApprovalGate,
		Decision:   models.DecisionPending,
		Plan: &models.Plan{
			Summary: "Cut spend and refresh creatives",
			Actions: []models.Action{
				{Type: models.ActionAdjustBudget, Confidence: 0.8},
				{Type: models.ActionCreateTask, Task: "Refresh creatives", Confidence: 0.6},
			},
		},
		Merged: &models.EmailDraft{
			Subject: "Campaign update",
			Body:    "We cut spend by 20%.\nA creative refresh is underway.",
		},
	}
}

func key(s string) tea.KeyMsg {
	if len(s) == 1 {
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{}
}

func TestApprovalViewShowsPlanAndEmail(t *testing.T) {
	m := NewApprovalModel(pausedRecord(), 0.75)
	view := m.View()

	for _, want := range []string{"run1", "campaign_spike", "Cut spend and refresh creatives", "Campaign update", "below the 0.75 confidence threshold"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestApproveWithY(t *testing.T) {
	m := NewApprovalModel(pausedRecord(), 0.75)

	updated, cmd := m.Update(key("y"))
	am := updated.(*ApprovalModel)
	if cmd == nil {
		t.Fatal("no quit command after approval")
	}
	res := am.Result()
	if !res.Approved {
		t.Error("not approved after y")
	}
}

func TestRejectAsksForReason(t *testing.T) {
	m := NewApprovalModel(pausedRecord(), 0.75)

	updated, _ := m.Update(key("n"))
	am := updated.(*ApprovalModel)
	if am.state != stateEnteringReason {
		t.Fatalf("state = %d, want reason entry", am.state)
	}
	if !strings.Contains(am.View(), "Rejection reason") {
		t.Error("view missing reason prompt")
	}

	// Type a reason and submit.
	for _, r := range "too timid" {
		model, _ := am.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		am = model.(*ApprovalModel)
	}
	model, cmd := am.Update(key("enter"))
	am = model.(*ApprovalModel)
	if cmd == nil {
		t.Fatal("no quit command after reason submission")
	}
	res := am.Result()
	if res.Approved || res.Reason != "too timid" {
		t.Errorf("result = %+v", res)
	}
}

func TestRejectWithEmptyReasonUsesDefault(t *testing.T) {
	m := NewApprovalModel(pausedRecord(), 0.75)
	updated, _ := m.Update(key("n"))
	am := updated.(*ApprovalModel)

	model, _ := am.Update(key("enter"))
	am = model.(*ApprovalModel)
	res := am.Result()
	if res.Approved || res.Reason != "rejected by reviewer" {
		t.Errorf("result = %+v", res)
	}
}

func TestEscReturnsToReview(t *testing.T) {
	m := NewApprovalModel(pausedRecord(), 0.75)
	updated, _ := m.Update(key("n"))
	am := updated.(*ApprovalModel)

	model, _ := am.Update(key("esc"))
	am = model.(*ApprovalModel)
	if am.state != stateReviewing {
		t.Errorf("state = %d, want reviewing after esc", am.state)
	}
}
