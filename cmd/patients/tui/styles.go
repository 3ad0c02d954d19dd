package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/marshallshelly/patient-records/pkg/patient"
)

var (
	// Color palette
	colorPrimary   = lipgloss.Color("#0EA5E9")
	colorSecondary = lipgloss.Color("#14B8A6")
	colorSuccess   = lipgloss.Color("#10B981")
	colorWarning   = lipgloss.Color("#F59E0B")
	colorDanger    = lipgloss.Color("#EF4444")
	colorInfo      = lipgloss.Color("#3B82F6")
	colorMuted     = lipgloss.Color("#6B7280")
	colorText      = lipgloss.Color("#F3F4F6")
	colorBorder    = lipgloss.Color("#4B5563")

	// Title styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true)

	// Status styles
	successStyle = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(colorWarning).
			Bold(true)

	dangerStyle = lipgloss.NewStyle().
			Foreground(colorDanger).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(colorInfo)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	// List styles
	selectedItemStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true).
				PaddingLeft(2)

	unselectedItemStyle = lipgloss.NewStyle().
				Foreground(colorText).
				PaddingLeft(4)

	// Box styles
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(1, 2)

	// Button styles
	activeButtonStyle = lipgloss.NewStyle().
				Foreground(colorText).
				Background(colorPrimary).
				Padding(0, 3).
				Bold(true)

	inactiveButtonStyle = lipgloss.NewStyle().
				Foreground(colorMuted).
				Background(lipgloss.Color("#1F2937")).
				Padding(0, 3)

	// Form styles
	labelStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Width(14)

	focusedLabelStyle = lipgloss.NewStyle().
				Foreground(colorSecondary).
				Bold(true).
				Width(14)

	// Help styles
	helpStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			MarginTop(1)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(colorPrimary)

	// Error styles
	errorStyle = lipgloss.NewStyle().
			Foreground(colorDanger).
			Bold(true)
)

// tableStyles colors the patient grid.
func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorBorder).
		BorderBottom(true).
		Bold(true).
		Foreground(colorPrimary)
	s.Selected = s.Selected.
		Foreground(colorText).
		Background(lipgloss.Color("#075985")).
		Bold(false)
	return s
}

// FormatRisk returns a styled high-risk label
func FormatRisk(label string) string {
	switch label {
	case "Yes":
		return dangerStyle.Render("● " + label)
	case "No":
		return successStyle.Render("○ " + label)
	default:
		return mutedStyle.Render(label)
	}
}

// FormatSummary renders the one-line table summary
func FormatSummary(s patient.Summary) string {
	avg := "n/a"
	if s.AverageBMI.Valid {
		avg = s.AverageBMI.Fixed(1)
	}
	line := fmt.Sprintf("%d patient(s) • ", s.Total) +
		dangerStyle.Render(fmt.Sprintf("%d high risk", s.HighRisk)) +
		fmt.Sprintf(" • average BMI %s", avg)
	return infoStyle.Render(line)
}

// FormatKey formats a help key
func FormatKey(key, description string) string {
	return helpKeyStyle.Render(key) + " " + mutedStyle.Render(description)
}
