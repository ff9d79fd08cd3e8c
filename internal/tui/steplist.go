package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/waabox/deploydeck/internal/domain"
	"github.com/waabox/deploydeck/internal/store"
)

// StepListModel renders the pipeline strip. It holds no selection of its
// own: the selection lives in store.Steps so that it survives step updates.
type StepListModel struct {
	steps  store.Steps
	styles styles
}

// NewStepListModel creates a step list model.
func NewStepListModel(steps store.Steps) StepListModel {
	return StepListModel{steps: steps, styles: newStyles()}
}

// View renders the steps left to right, the selected one underlined.
func (m StepListModel) View() string {
	if m.steps.Len() == 0 {
		return m.styles.muted.Render("No steps loaded.")
	}
	selected := m.steps.SelectedIndex()
	parts := make([]string, 0, m.steps.Len())
	for i, s := range m.steps.List() {
		name := lipgloss.NewStyle().Foreground(stepColor(s)).Render(truncate(s.Name, 20))
		if i == selected {
			name = m.styles.selected.Render("[" + truncate(s.Name, 20) + "]")
		}
		parts = append(parts, statusStyle(s.Status).Render(statusIcon(s.Status))+" "+name)
	}
	return strings.Join(parts, m.styles.muted.Render(" → "))
}

// OutputView renders the header and output of the selected step. spin is
// shown in place of the output while the step runs without output yet.
func (m StepListModel) OutputView(spin string) string {
	s, ok := m.steps.Selected()
	if !ok {
		return m.styles.muted.Render("Select a step to see its output.")
	}
	header := fmt.Sprintf("%s  %s %s  %s",
		m.styles.section.Render(s.Name),
		statusIcon(s.Status),
		statusStyle(s.Status).Render(string(s.Status)),
		formatDuration(s),
	)
	body := s.Output
	if body == "" {
		switch s.Status {
		case domain.StatusRunning:
			body = spin + " running..."
		case domain.StatusPending:
			body = m.styles.muted.Render("Waiting to start.")
		default:
			body = m.styles.muted.Render("No output.")
		}
	}
	return header + "\n" + body
}

func formatDuration(s domain.PipelineStep) string {
	if s.Duration <= 0 {
		return "--"
	}
	return s.Elapsed().Round(100 * time.Millisecond).String()
}
