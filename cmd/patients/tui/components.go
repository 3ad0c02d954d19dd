package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/marshallshelly/patient-records/pkg/patient"
)

// ConfirmationDialog represents a yes/no confirmation dialog
type ConfirmationDialog struct {
	Title       string
	Message     string
	YesSelected bool
	OnConfirm   func() tea.Cmd
	OnCancel    func() tea.Cmd
}

// NewConfirmationDialog creates a new confirmation dialog
func NewConfirmationDialog(title, message string) ConfirmationDialog {
	return ConfirmationDialog{
		Title:       title,
		Message:     message,
		YesSelected: false,
	}
}

// Update handles confirmation dialog updates
func (d *ConfirmationDialog) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "left", "h":
			d.YesSelected = true
			return nil
		case "right", "l":
			d.YesSelected = false
			return nil
		case "y":
			d.YesSelected = true
			return d.confirm()
		case "n":
			d.YesSelected = false
			return d.cancel()
		case "enter":
			if d.YesSelected {
				return d.confirm()
			}
			return d.cancel()
		}
	}
	return nil
}

func (d *ConfirmationDialog) confirm() tea.Cmd {
	if d.OnConfirm != nil {
		return d.OnConfirm()
	}
	return nil
}

func (d *ConfirmationDialog) cancel() tea.Cmd {
	if d.OnCancel != nil {
		return d.OnCancel()
	}
	return nil
}

// View renders the confirmation dialog
func (d ConfirmationDialog) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(d.Title))
	b.WriteString("\n\n")
	b.WriteString(d.Message)
	b.WriteString("\n\n")

	yesButton := inactiveButtonStyle.Render("Yes")
	noButton := inactiveButtonStyle.Render("No")

	if d.YesSelected {
		yesButton = activeButtonStyle.Render("Yes")
	} else {
		noButton = activeButtonStyle.Render("No")
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Left, yesButton, "  ", noButton))
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render(FormatKey("←/→", "navigate") + " • " + FormatKey("enter", "confirm") + " • " + FormatKey("y/n", "answer") + " • " + FormatKey("esc", "cancel")))

	return boxStyle.Render(b.String())
}

// MenuItem is one entry of the main menu
type MenuItem struct {
	Key    string
	Label  string
	Detail string
	Action Action
}

func (i MenuItem) FilterValue() string { return i.Label }
func (i MenuItem) Title() string       { return fmt.Sprintf("%s. %s", i.Key, i.Label) }
func (i MenuItem) Description() string { return mutedStyle.Render(i.Detail) }

// MenuItemDelegate renders menu items
type MenuItemDelegate struct{}

func (d MenuItemDelegate) Height() int                             { return 2 }
func (d MenuItemDelegate) Spacing() int                            { return 1 }
func (d MenuItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d MenuItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	i, ok := item.(MenuItem)
	if !ok {
		return
	}

	var s string
	if index == m.Index() {
		s = selectedItemStyle.Render("▸ " + i.Title() + "\n  " + i.Description())
	} else {
		s = unselectedItemStyle.Render("  " + i.Title() + "\n  " + i.Description())
	}

	_, _ = fmt.Fprint(w, s)
}

const (
	fieldName = iota
	fieldAge
	fieldHeight
	fieldWeight
	fieldCondition
	fieldCount
)

var fieldLabels = [fieldCount]string{"Name", "Age", "Height (cm)", "Weight (kg)", "Condition"}

// PatientForm edits the five input fields of a patient
type PatientForm struct {
	Title  string
	ID     int // 0 when adding
	Err    string
	orig   patient.Patient
	inputs []textinput.Model
	focus  int
}

// NewPatientForm creates a form prefilled from p
func NewPatientForm(title string, id int, p patient.Patient) PatientForm {
	values := [fieldCount]string{p.Name, p.Age.String(), p.HeightCM.String(), p.WeightKG.String(), p.Condition}
	placeholders := [fieldCount]string{"required", "years", "30-250", "1-400", "e.g. High blood pressure"}

	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 64
		ti.Width = 32
		ti.SetValue(values[i])
		inputs[i] = ti
	}
	inputs[fieldName].Focus()

	return PatientForm{Title: title, ID: id, orig: p, inputs: inputs}
}

// Update moves focus with tab/shift+tab/up/down and forwards everything else
// to the focused input.
func (f *PatientForm) Update(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "tab", "down":
			return f.setFocus((f.focus + 1) % fieldCount)
		case "shift+tab", "up":
			return f.setFocus((f.focus + fieldCount - 1) % fieldCount)
		}
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (f *PatientForm) setFocus(i int) tea.Cmd {
	f.inputs[f.focus].Blur()
	f.focus = i
	return f.inputs[f.focus].Focus()
}

// Value returns the text of field i
func (f PatientForm) Value(i int) string {
	return f.inputs[i].Value()
}

// SetValue replaces the text of field i
func (f *PatientForm) SetValue(i int, s string) {
	f.inputs[i].SetValue(s)
}

// Patient parses and validates the form.
func (f PatientForm) Patient() (patient.Patient, error) {
	p := patient.Patient{
		Name:      f.Value(fieldName),
		Condition: f.Value(fieldCondition),
	}
	numbers := []struct {
		field int
		dst   *patient.Number
	}{
		{fieldAge, &p.Age},
		{fieldHeight, &p.HeightCM},
		{fieldWeight, &p.WeightKG},
	}
	for _, n := range numbers {
		raw := f.Value(n.field)
		num := patient.ParseNumber(raw)
		if !num.Valid && strings.TrimSpace(raw) != "" {
			return p, fmt.Errorf("%s must be a number", fieldLabels[n.field])
		}
		*n.dst = num
	}

	p = p.Trimmed()
	return p, patient.ValidateChange(f.orig, p)
}

// View renders the form
func (f PatientForm) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(f.Title))
	b.WriteString("\n")
	for i, in := range f.inputs {
		label := labelStyle.Render(fieldLabels[i])
		if i == f.focus {
			label = focusedLabelStyle.Render(fieldLabels[i])
		}
		b.WriteString(label + in.View() + "\n")
	}
	if f.Err != "" {
		b.WriteString("\n" + errorStyle.Render("✗ "+f.Err) + "\n")
	}
	b.WriteString(helpStyle.Render(
		FormatKey("tab/↑/↓", "field") + " • " +
			FormatKey("enter", "save") + " • " +
			FormatKey("esc", "cancel"),
	))
	return boxStyle.Render(b.String())
}

// LogView displays recent activity
type LogView struct {
	Logs   []string
	MaxLen int
}

// NewLogView creates a new log view
func NewLogView(maxLen int) LogView {
	return LogView{
		Logs:   make([]string, 0),
		MaxLen: maxLen,
	}
}

// AddLog adds a log entry
func (l *LogView) AddLog(entry string) {
	l.Logs = append(l.Logs, entry)
	if len(l.Logs) > l.MaxLen {
		l.Logs = l.Logs[1:]
	}
}

// Last returns the newest entry
func (l LogView) Last() string {
	if len(l.Logs) == 0 {
		return ""
	}
	return l.Logs[len(l.Logs)-1]
}

// View renders the log view
func (l LogView) View() string {
	if len(l.Logs) == 0 {
		return mutedStyle.Render("No activity yet")
	}

	var b strings.Builder
	for _, log := range l.Logs {
		b.WriteString(mutedStyle.Render("• "))
		b.WriteString(log)
		b.WriteString("\n")
	}

	return strings.TrimSuffix(b.String(), "\n")
}
