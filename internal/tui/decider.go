package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rookhq/rook/pkg/models"
)

// Decider runs the approval UI for each paused run. It satisfies the
// orchestrator's decider contract.
type Decider struct {
	threshold float64
	// newProgram is swappable for tests.
	newProgram func(tea.Model) *tea.Program
}

// NewDecider creates an interactive decider using the confidence
// threshold for the low-confidence action listing.
func NewDecider(threshold float64) *Decider {
	return &Decider{
		threshold: threshold,
		newProgram: func(m tea.Model) *tea.Program {
			return tea.NewProgram(m)
		},
	}
}

// Decide blocks on the approval UI and returns the reviewer's decision.
func (d *Decider) Decide(rec *models.RunRecord) (bool, string, error) {
	model := NewApprovalModel(rec, d.threshold)
	final, err := d.newProgram(model).Run()
	if err != nil {
		return false, "", fmt.Errorf("approval ui: %w", err)
	}
	m, ok := final.(*ApprovalModel)
	if !ok {
		return false, "", fmt.Errorf("approval ui returned unexpected model")
	}
	res := m.Result()
	return res.Approved, res.Reason, nil
}
