package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/waabox/deploydeck/internal/domain"
)

var (
	blue   = lipgloss.Color("33")
	yellow = lipgloss.Color("220")
	green  = lipgloss.Color("70")
	red    = lipgloss.Color("160")
	gray   = lipgloss.Color("245")
	dark   = lipgloss.Color("240")
)

type styles struct {
	title     lipgloss.Style
	section   lipgloss.Style
	muted     lipgloss.Style
	selected  lipgloss.Style
	errorLine lipgloss.Style
	badgeOn   lipgloss.Style
	badgeOff  lipgloss.Style
	userName  lipgloss.Style
	aiName    lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:     lipgloss.NewStyle().Bold(true).Foreground(blue),
		section:   lipgloss.NewStyle().Bold(true),
		muted:     lipgloss.NewStyle().Foreground(gray),
		selected:  lipgloss.NewStyle().Bold(true).Underline(true),
		errorLine: lipgloss.NewStyle().Foreground(red).Bold(true),
		badgeOn:   lipgloss.NewStyle().Foreground(green).Bold(true),
		badgeOff:  lipgloss.NewStyle().Foreground(yellow).Bold(true),
		userName:  lipgloss.NewStyle().Foreground(blue).Bold(true),
		aiName:    lipgloss.NewStyle().Foreground(green).Bold(true),
	}
}

// defaultStepColors is used when the server does not send a colour.
var defaultStepColors = map[string]lipgloss.Color{
	"init":        blue,
	"dockerfile":  yellow,
	"build":       dark,
	"vm_access":   green,
	"pull_images": yellow,
}

// stepColor returns the server colour when present, else the default for the
// step id, else gray.
func stepColor(s domain.PipelineStep) lipgloss.Color {
	if s.Color != "" {
		return lipgloss.Color(s.Color)
	}
	if c, ok := defaultStepColors[s.ID]; ok {
		return c
	}
	return gray
}

func statusIcon(s domain.StepStatus) string {
	switch s {
	case domain.StatusCompleted:
		return "✓"
	case domain.StatusFailed:
		return "✗"
	case domain.StatusRunning:
		return "▶"
	default:
		return "○"
	}
}

func statusStyle(s domain.StepStatus) lipgloss.Style {
	switch s {
	case domain.StatusCompleted:
		return lipgloss.NewStyle().Foreground(green)
	case domain.StatusFailed:
		return lipgloss.NewStyle().Foreground(red)
	case domain.StatusRunning:
		return lipgloss.NewStyle().Foreground(blue).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(gray)
	}
}

func levelStyle(level domain.LogLevel) lipgloss.Style {
	switch level {
	case domain.LevelError:
		return lipgloss.NewStyle().Foreground(red).Bold(true)
	case domain.LevelWarning:
		return lipgloss.NewStyle().Foreground(yellow)
	case domain.LevelDebug:
		return lipgloss.NewStyle().Foreground(gray)
	default:
		return lipgloss.NewStyle().Foreground(blue)
	}
}

// truncate shortens s to at most max terminal cells, ending in "…".
func truncate(s string, max int) string {
	if ansi.StringWidth(s) <= max {
		return s
	}
	return ansi.Truncate(s, max, "…")
}
