// Package tui provides the terminal user interface for Rook's approval gate.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rookhq/rook/pkg/models"
)

// Result holds the outcome of an interactive review.
type Result struct {
	Approved bool
	Reason   string
}

// approvalState tracks which part of the review flow is active.
type approvalState int

const (
	stateReviewing approvalState = iota
	stateEnteringReason
	stateDone
)

// ApprovalModel displays a paused run's plan and merged email and prompts
// for approval. Rejection asks for a reason, which feeds back into
// replanning.
type ApprovalModel struct {
	rec       *models.RunRecord
	threshold float64

	state        approvalState
	result       Result
	reasonInput  textinput.Model
	width        int
	height       int
	scrollOffset int
	bodyLines    []string

	titleStyle  lipgloss.Style
	headerStyle lipgloss.Style
	warnStyle   lipgloss.Style
	promptStyle lipgloss.Style
	dimStyle    lipgloss.Style
}

// NewApprovalModel creates the review model for a paused run.
func NewApprovalModel(rec *models.RunRecord, threshold float64) *ApprovalModel {
	ti := textinput.New()
	ti.Placeholder = "Why is this plan being rejected?"
	ti.CharLimit = 300
	ti.Width = 60

	m := &ApprovalModel{
		rec:         rec,
		threshold:   threshold,
		reasonInput: ti,
		width:       80,
		height:      24,

		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Background(lipgloss.Color("236")).
			Padding(0, 2),
		headerStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true),
		warnStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")),
		promptStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true),
		dimStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),
	}
	if rec.Merged != nil {
		m.bodyLines = strings.Split(rec.Merged.Body, "\n")
	}
	return m
}

// Result returns the review outcome once the model has quit.
func (m *ApprovalModel) Result() Result {
	return m.result
}

// Init implements tea.Model.
func (m *ApprovalModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *ApprovalModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.reasonInput.Width = min(msg.Width-4, 80)
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case stateReviewing:
			return m.updateReviewing(msg)
		case stateEnteringReason:
			return m.updateReason(msg)
		}
	}
	return m, nil
}

func (m *ApprovalModel) updateReviewing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m.result = Result{Approved: true, Reason: "approved by reviewer"}
		m.state = stateDone
		return m, tea.Quit
	case "n", "N":
		m.state = stateEnteringReason
		return m, m.reasonInput.Focus()
	case "up", "k":
		if m.scrollOffset > 0 {
			m.scrollOffset--
		}
	case "down", "j":
		if m.scrollOffset < max(0, len(m.bodyLines)-m.bodyHeight()) {
			m.scrollOffset++
		}
	case "ctrl+c", "q":
		m.result = Result{Approved: false, Reason: "review aborted"}
		m.state = stateDone
		return m, tea.Quit
	}
	return m, nil
}

func (m *ApprovalModel) updateReason(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		reason := strings.TrimSpace(m.reasonInput.Value())
		if reason == "" {
			reason = "rejected by reviewer"
		}
		m.result = Result{Approved: false, Reason: reason}
		m.state = stateDone
		return m, tea.Quit
	case "esc":
		m.state = stateReviewing
		m.reasonInput.Reset()
		m.reasonInput.Blur()
		return m, nil
	case "ctrl+c":
		m.result = Result{Approved: false, Reason: "review aborted"}
		m.state = stateDone
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.reasonInput, cmd = m.reasonInput.Update(msg)
	return m, cmd
}

func (m *ApprovalModel) bodyHeight() int {
	h := m.height - 16
	if h < 4 {
		h = 4
	}
	return h
}

// View implements tea.Model.
func (m *ApprovalModel) View() string {
	if m.state == stateDone {
		return ""
	}

	var sb strings.Builder

	sb.WriteString(m.titleStyle.Render(" Approval Required "))
	sb.WriteString("\n\n")

	sb.WriteString(m.headerStyle.Render("Run: "))
	sb.WriteString(m.rec.ID)
	sb.WriteString("   ")
	sb.WriteString(m.headerStyle.Render("Scenario: "))
	sb.WriteString(m.rec.ScenarioID)
	sb.WriteString("\n")

	if m.rec.Plan != nil {
		if m.rec.Plan.Summary != "" {
			sb.WriteString(m.headerStyle.Render("Plan: "))
			sb.WriteString(m.rec.Plan.Summary)
			sb.WriteString("\n")
		}
		low := m.rec.Plan.LowConfidenceActions(m.threshold)
		if len(low) > 0 {
			sb.WriteString(m.warnStyle.Render(fmt.Sprintf("%d action(s) below the %.2f confidence threshold:", len(low), m.threshold)))
			sb.WriteString("\n")
			for _, a := range low {
				line := fmt.Sprintf("  - %s (%.2f)", a.Type, a.Confidence)
				if a.Task != "" {
					line += ": " + a.Task
				}
				sb.WriteString(m.warnStyle.Render(line))
				sb.WriteString("\n")
			}
		}
	}
	sb.WriteString("\n")

	if m.rec.Merged != nil {
		sb.WriteString(m.headerStyle.Render("Subject: "))
		sb.WriteString(m.rec.Merged.Subject)
		sb.WriteString("\n")
		sb.WriteString(strings.Repeat("-", min(m.width, 80)))
		sb.WriteString("\n")

		h := m.bodyHeight()
		start := m.scrollOffset
		end := min(start+h, len(m.bodyLines))
		for i := start; i < end; i++ {
			sb.WriteString(m.bodyLines[i])
			sb.WriteString("\n")
		}
		if len(m.bodyLines) > h {
			sb.WriteString(m.dimStyle.Render(fmt.Sprintf("--- %d/%d lines ---", end, len(m.bodyLines))))
			sb.WriteString("\n")
		}
		sb.WriteString(strings.Repeat("-", min(m.width, 80)))
		sb.WriteString("\n\n")
	}

	if m.state == stateEnteringReason {
		sb.WriteString(m.promptStyle.Render("Rejection reason:"))
		sb.WriteString("\n")
		sb.WriteString(m.reasonInput.View())
		sb.WriteString("\n")
		sb.WriteString(m.dimStyle.Render("(Enter to submit, Esc to go back)"))
	} else {
		sb.WriteString(m.promptStyle.Render("Approve this email? [Y]es / [N]o"))
		sb.WriteString("\n")
		sb.WriteString(m.dimStyle.Render("(j/k to scroll the body, q to abort)"))
	}

	return sb.String()
}
