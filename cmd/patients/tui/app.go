package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/marshallshelly/patient-records/pkg/patient"
	"github.com/marshallshelly/patient-records/pkg/tabular"
)

// Mode represents the current screen of the UI
type Mode int

const (
	ModeMenu Mode = iota
	ModeTable
	ModeForm
	ModeSearch
	ModeConfirm
)

// Action is what a menu entry or a table selection does
type Action string

const (
	ActionView   Action = "view"
	ActionAdd    Action = "add"
	ActionEdit   Action = "edit"
	ActionRemove Action = "remove"
	ActionSearch Action = "search"
	ActionExport Action = "export"
	ActionReset  Action = "reset"
	ActionQuit   Action = "quit"
)

var menuItems = []MenuItem{
	{Key: "1", Label: "View patients", Detail: "All patients with BMI and high-risk flag", Action: ActionView},
	{Key: "2", Label: "Add patient", Detail: "Append a patient and recompute the table", Action: ActionAdd},
	{Key: "3", Label: "Edit patient", Detail: "Change a patient's details", Action: ActionEdit},
	{Key: "4", Label: "Remove patient", Detail: "Delete a patient; IDs are renumbered", Action: ActionRemove},
	{Key: "5", Label: "Search", Detail: "By exact name, partial name or patient ID", Action: ActionSearch},
	{Key: "6", Label: "Export", Detail: "Write CSV and Excel files", Action: ActionExport},
	{Key: "7", Label: "Reset table", Detail: "Restore the startup sample patients", Action: ActionReset},
	{Key: "8", Label: "Quit", Detail: "Leave the program", Action: ActionQuit},
}

// Options wires the UI to its surroundings.
type Options struct {
	// Save is called with every new current table.
	Save func(patient.Table) error
	// CSVPath and XLSXPath are the export targets; an empty path is skipped.
	CSVPath  string
	XLSXPath string
}

// Model is the Bubbletea model for the interactive patient table
type Model struct {
	mode    Mode
	table   patient.Table
	opts    Options
	menu    list.Model
	grid    table.Model
	pick    Action // what enter does in ModeTable
	form    PatientForm
	confirm ConfirmationDialog

	searchMode  int
	searchInput textinput.Model
	results     []patient.Record
	searched    bool

	logs   LogView
	width  int
	height int
}

// Messages
type confirmedMsg struct {
	action Action
	id     int
}

type cancelledMsg struct{}

// NewModel creates a UI model starting from t
func NewModel(t patient.Table, opts Options) Model {
	items := make([]list.Item, len(menuItems))
	for i, it := range menuItems {
		items[i] = it
	}
	l := list.New(items, MenuItemDelegate{}, 60, 30)
	l.Title = "Patient Records"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.Styles.Title = titleStyle

	grid := table.New(
		table.WithColumns(gridColumns()),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	grid.SetStyles(tableStyles())

	in := textinput.New()
	in.Placeholder = "query"
	in.CharLimit = 64
	in.Width = 32

	m := Model{
		mode:        ModeMenu,
		opts:        opts,
		menu:        l,
		grid:        grid,
		searchInput: in,
		logs:        NewLogView(5),
	}
	m.setTable(t)
	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.EnterAltScreen
}

// Table returns the current table
func (m Model) Table() patient.Table {
	return m.table
}

// Mode returns the current screen
func (m Model) Mode() Mode {
	return m.mode
}

func gridColumns() []table.Column {
	return []table.Column{
		{Title: "ID", Width: 4},
		{Title: "Name", Width: 16},
		{Title: "Age", Width: 5},
		{Title: "Height", Width: 7},
		{Title: "Weight", Width: 7},
		{Title: "Condition", Width: 22},
		{Title: "BMI", Width: 6},
		{Title: "High risk", Width: 9},
	}
}

func gridRows(rows []patient.Record) []table.Row {
	out := make([]table.Row, len(rows))
	for i, r := range rows {
		out[i] = table.Row{
			strconv.Itoa(r.ID),
			r.Name,
			r.Age.String(),
			r.HeightCM.String(),
			r.WeightKG.String(),
			r.Condition,
			r.BMI.Fixed(1),
			r.RiskLabel(),
		}
	}
	return out
}

// setTable replaces the current table and refreshes the grid.
func (m *Model) setTable(t patient.Table) {
	m.table = t
	m.grid.SetRows(gridRows(t.Rows()))
	if c := m.grid.Cursor(); c >= t.Len() && t.Len() > 0 {
		m.grid.SetCursor(t.Len() - 1)
	}
}

// commit makes t current and persists it.
func (m *Model) commit(t patient.Table, event string) {
	m.setTable(t)
	if m.opts.Save != nil {
		if err := m.opts.Save(t); err != nil {
			m.logs.AddLog(errorStyle.Render("Save failed: " + err.Error()))
			return
		}
	}
	m.logs.AddLog(successStyle.Render("✓ ") + event)
}

// selectedID returns the patient ID under the grid cursor.
func (m Model) selectedID() (int, bool) {
	row := m.grid.SelectedRow()
	if row == nil {
		return 0, false
	}
	id, err := strconv.Atoi(row[0])
	return id, err == nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.menu.SetSize(msg.Width-4, msg.Height-8)
		m.grid.SetHeight(max(3, msg.Height-12))
		return m, nil

	case confirmedMsg:
		m.mode = ModeMenu
		switch msg.action {
		case ActionReset:
			m.commit(patient.Reset(), "Table reset to the startup patients")
		case ActionRemove:
			if next, ok := patient.Remove(m.table, msg.id); ok {
				m.commit(next, fmt.Sprintf("Removed patient %d", msg.id))
				m.mode = ModeTable
			}
		}
		return m, nil

	case cancelledMsg:
		m.mode = ModeMenu
		if m.pick == ActionRemove {
			m.mode = ModeTable
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case ModeMenu:
			return m.updateMenu(msg)
		case ModeTable:
			return m.updateTable(msg)
		case ModeForm:
			return m.updateForm(msg)
		case ModeSearch:
			return m.updateSearch(msg)
		case ModeConfirm:
			if msg.String() == "esc" || msg.String() == "q" {
				return m, func() tea.Msg { return cancelledMsg{} }
			}
			return m, m.confirm.Update(msg)
		}
	}

	return m, nil
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "q", "esc":
		return m, tea.Quit
	case "enter", " ":
		if it, ok := m.menu.SelectedItem().(MenuItem); ok {
			return m.run(it.Action)
		}
		return m, nil
	default:
		for i, it := range menuItems {
			if it.Key == key {
				m.menu.Select(i)
				return m.run(it.Action)
			}
		}
	}

	var cmd tea.Cmd
	m.menu, cmd = m.menu.Update(msg)
	return m, cmd
}

// run starts a menu action.
func (m Model) run(a Action) (tea.Model, tea.Cmd) {
	switch a {
	case ActionView, ActionEdit, ActionRemove:
		m.mode = ModeTable
		m.pick = a
		m.grid.Focus()
	case ActionAdd:
		return m.openForm(0, patient.Patient{})
	case ActionSearch:
		m.mode = ModeSearch
		m.searched = false
		m.results = nil
		return m, m.searchInput.Focus()
	case ActionExport:
		m.export()
	case ActionReset:
		m.pick = ActionReset
		m.openConfirm("Reset Table",
			"Discard all changes and restore the startup patients?",
			confirmedMsg{action: ActionReset})
	case ActionQuit:
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateTable(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		m.mode = ModeMenu
		return m, nil
	case "a":
		return m.openForm(0, patient.Patient{})
	case "e":
		return m.editSelected()
	case "x", "delete":
		return m.removeSelected()
	case "enter":
		switch m.pick {
		case ActionEdit:
			return m.editSelected()
		case ActionRemove:
			return m.removeSelected()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.grid, cmd = m.grid.Update(msg)
	return m, cmd
}

func (m Model) editSelected() (tea.Model, tea.Cmd) {
	id, ok := m.selectedID()
	if !ok {
		return m, nil
	}
	r, _ := m.table.Row(id)
	return m.openForm(id, r.Patient)
}

func (m Model) removeSelected() (tea.Model, tea.Cmd) {
	id, ok := m.selectedID()
	if !ok {
		return m, nil
	}
	r, _ := m.table.Row(id)
	m.pick = ActionRemove
	m.openConfirm("Remove Patient",
		fmt.Sprintf("Remove patient %d (%s)?\nRemaining patients are renumbered.", id, r.Name),
		confirmedMsg{action: ActionRemove, id: id})
	return m, nil
}

func (m *Model) openConfirm(title, message string, onYes confirmedMsg) {
	m.confirm = NewConfirmationDialog(title, message)
	m.confirm.OnConfirm = func() tea.Cmd {
		return func() tea.Msg { return onYes }
	}
	m.confirm.OnCancel = func() tea.Cmd {
		return func() tea.Msg { return cancelledMsg{} }
	}
	m.mode = ModeConfirm
}

func (m Model) openForm(id int, p patient.Patient) (tea.Model, tea.Cmd) {
	title := "Add Patient"
	if id > 0 {
		title = fmt.Sprintf("Edit Patient %d", id)
	}
	m.form = NewPatientForm(title, id, p)
	m.mode = ModeForm
	return m, textinput.Blink
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = ModeMenu
		if m.form.ID > 0 {
			m.mode = ModeTable
		}
		return m, nil
	case "enter":
		p, err := m.form.Patient()
		if err != nil {
			m.form.Err = err.Error()
			return m, nil
		}
		if m.form.ID > 0 {
			next, ok := patient.Update(m.table, m.form.ID, p)
			if !ok {
				m.form.Err = fmt.Sprintf("patient %d no longer exists", m.form.ID)
				return m, nil
			}
			r, _ := next.Row(m.form.ID)
			m.commit(next, fmt.Sprintf("Updated patient %d (BMI %s, high risk %s)", r.ID, r.BMI.Fixed(1), FormatRisk(r.RiskLabel())))
			m.mode = ModeTable
			return m, nil
		}

		next := patient.AddPatient(m.table, p)
		m.commit(next, fmt.Sprintf("Added %s as patient %d", p.Name, next.Len()))
		m.grid.SetCursor(next.Len() - 1)
		m.pick = ActionView
		m.mode = ModeTable
		return m, nil
	}

	return m, m.form.Update(msg)
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searchInput.Blur()
		m.mode = ModeMenu
		return m, nil
	case "tab":
		m.searchMode = (m.searchMode + 1) % len(patient.Modes())
		return m, nil
	case "shift+tab":
		n := len(patient.Modes())
		m.searchMode = (m.searchMode + n - 1) % n
		return m, nil
	case "enter":
		m.results = patient.Search(m.table, m.currentSearchMode(), m.searchInput.Value())
		m.searched = true
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m Model) currentSearchMode() patient.SearchMode {
	return patient.Modes()[m.searchMode]
}

// export writes the CSV file, then the workbook. A failed workbook is
// reported and skipped.
func (m *Model) export() {
	if m.opts.CSVPath != "" {
		if err := tabular.Export(m.opts.CSVPath, m.table); err != nil {
			m.logs.AddLog(errorStyle.Render("CSV export failed: " + err.Error()))
			return
		}
		m.logs.AddLog(successStyle.Render("✓ ") + "Exported to " + m.opts.CSVPath)
	}
	if m.opts.XLSXPath != "" {
		if err := tabular.Export(m.opts.XLSXPath, m.table); err != nil {
			m.logs.AddLog(warningStyle.Render("⚠ ") + "Excel export skipped: " + err.Error())
			return
		}
		m.logs.AddLog(successStyle.Render("✓ ") + "Exported to " + m.opts.XLSXPath)
	}
}

// View renders the UI
func (m Model) View() string {
	var body string
	switch m.mode {
	case ModeMenu:
		body = lipgloss.JoinVertical(lipgloss.Left,
			m.menu.View(),
			helpStyle.Render(
				FormatKey("↑/↓", "navigate")+" • "+
					FormatKey("enter/1-8", "select")+" • "+
					FormatKey("q", "quit"),
			),
		)

	case ModeTable:
		body = m.tableView()

	case ModeForm:
		body = m.form.View()

	case ModeSearch:
		body = m.searchView()

	case ModeConfirm:
		return lipgloss.Place(
			m.width,
			m.height,
			lipgloss.Center,
			lipgloss.Center,
			m.confirm.View(),
		)

	default:
		return "Unknown mode"
	}

	return lipgloss.JoinVertical(lipgloss.Left, body, "", m.logs.View())
}

func (m Model) tableView() string {
	title := "Patients"
	hint := FormatKey("a", "add") + " • " + FormatKey("e", "edit") + " • " + FormatKey("x", "remove")
	switch m.pick {
	case ActionEdit:
		title = "Select a patient to edit"
		hint = FormatKey("enter", "edit")
	case ActionRemove:
		title = "Select a patient to remove"
		hint = FormatKey("enter", "remove")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	if m.table.Len() == 0 {
		b.WriteString(warningStyle.Render("No patients"))
	} else {
		b.WriteString(m.grid.View())
	}
	b.WriteString("\n\n")
	b.WriteString(FormatSummary(patient.Summarize(m.table)))
	b.WriteString(helpStyle.Render("\n" + FormatKey("↑/↓", "navigate") + " • " + hint + " • " + FormatKey("esc", "back")))
	return b.String()
}

func (m Model) searchView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Search Patients"))
	b.WriteString("\n")

	var modes []string
	for i, mode := range patient.Modes() {
		if i == m.searchMode {
			modes = append(modes, activeButtonStyle.Render(string(mode)))
		} else {
			modes = append(modes, inactiveButtonStyle.Render(string(mode)))
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Left, modes...))
	b.WriteString("\n\n")
	b.WriteString(focusedLabelStyle.Render("Query") + m.searchInput.View())
	b.WriteString("\n\n")

	switch {
	case !m.searched:
		b.WriteString(subtitleStyle.Render("Press enter to search"))
	case len(m.results) == 0:
		b.WriteString(warningStyle.Render("No matching patient found."))
	default:
		results := table.New(
			table.WithColumns(gridColumns()),
			table.WithRows(gridRows(m.results)),
			table.WithHeight(len(m.results)+1),
		)
		results.SetStyles(tableStyles())
		b.WriteString(results.View())
		b.WriteString("\n")
		b.WriteString(infoStyle.Render(fmt.Sprintf("%d match(es)", len(m.results))))
	}

	b.WriteString(helpStyle.Render("\n" +
		FormatKey("tab", "mode") + " • " +
		FormatKey("enter", "search") + " • " +
		FormatKey("esc", "back"),
	))
	return b.String()
}

// RunUI starts the interactive patient UI and returns the final table
func RunUI(t patient.Table, opts Options) (patient.Table, error) {
	p := tea.NewProgram(NewModel(t, opts))
	final, err := p.Run()
	if err != nil {
		return t, err
	}
	if fm, ok := final.(Model); ok {
		return fm.Table(), nil
	}
	return t, nil
}
