package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Out receives everything printed by this package except errors.
var Out io.Writer = os.Stdout

// ErrOut receives error messages.
var ErrOut io.Writer = os.Stderr

var (
	// Color styles for terminal output
	colorSuccess = lipgloss.Color("#10B981")
	colorWarning = lipgloss.Color("#F59E0B")
	colorError   = lipgloss.Color("#EF4444")
	colorInfo    = lipgloss.Color("#3B82F6")
	colorMuted   = lipgloss.Color("#6B7280")
	colorPrimary = lipgloss.Color("#0EA5E9")

	successStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(colorInfo)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	primaryStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
)

// Success prints a success message
func Success(format string, args ...any) {
	fmt.Fprint(Out, successStyle.Render("✓ "))
	fmt.Fprintf(Out, format+"\n", args...)
}

// Warning prints a warning message
func Warning(format string, args ...any) {
	fmt.Fprint(Out, warningStyle.Render("⚠ "))
	fmt.Fprintf(Out, format+"\n", args...)
}

// Error prints an error message
func Error(format string, args ...any) {
	fmt.Fprint(ErrOut, errorStyle.Render("✗ "))
	fmt.Fprintf(ErrOut, format+"\n", args...)
}

// Info prints an info message
func Info(format string, args ...any) {
	fmt.Fprint(Out, infoStyle.Render("ℹ "))
	fmt.Fprintf(Out, format+"\n", args...)
}

// Muted prints a muted message
func Muted(format string, args ...any) {
	fmt.Fprintln(Out, mutedStyle.Render(fmt.Sprintf(format, args...)))
}

// Primary prints a primary message
func Primary(format string, args ...any) {
	fmt.Fprintln(Out, primaryStyle.Render(fmt.Sprintf(format, args...)))
}

// Section prints a section header
func Section(title string) {
	fmt.Fprintln(Out)
	fmt.Fprintln(Out, primaryStyle.Render(title))
	fmt.Fprintln(Out, mutedStyle.Render(strings.Repeat("═", lipgloss.Width(title))))
	fmt.Fprintln(Out)
}

// RiskLabel colors a "Yes"/"No" high-risk label
func RiskLabel(label string) string {
	switch label {
	case "Yes":
		return errorStyle.Render("● " + label)
	case "No":
		return successStyle.Render("○ " + label)
	default:
		return mutedStyle.Render("• " + label)
	}
}
