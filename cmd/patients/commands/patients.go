package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/marshallshelly/patient-records/cmd/patients/output"
	"github.com/marshallshelly/patient-records/pkg/patient"
	"github.com/marshallshelly/patient-records/pkg/tabular"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Add/edit flags
	formName      string
	formAge       string
	formHeight    string
	formWeight    string
	formCondition string

	// Search flags
	searchMode string

	// Reset flags
	skipConfirm bool
)

// listCmd shows the current table
var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "Show all patients",
	Long: `Show every patient with BMI and high-risk flag, followed by a summary.

Examples:
  patients list                       # Table output
  patients list --json                # Output in JSON format`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := loadTable()
		if err != nil {
			return err
		}
		if jsonOutput {
			return printRows(t.Rows())
		}
		output.Section("Patient Records")
		if err := printRows(t.Rows()); err != nil {
			return err
		}
		return printSummary(t)
	},
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a patient",
	Long: `Append a patient. The new patient gets the next ID and every BMI and
high-risk flag is recomputed.

Examples:
  patients add --name Zara --age 40 --height 160 --weight 120
  patients add --name Omar --condition "High blood pressure"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := readPatient(patient.Patient{}, cmd.Flags().Changed)
		if err != nil {
			return err
		}

		t, err := loadTable()
		if err != nil {
			return err
		}
		t = patient.AddPatient(t, p)
		if err := saveTable(t); err != nil {
			return err
		}

		r, _ := t.Row(t.Len())
		logger.Info("patient added", zap.Int("id", r.ID), zap.String("name", r.Name))
		if jsonOutput {
			return printJSON(r)
		}
		output.Success("Patient %s added with ID %d", r.Name, r.ID)
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit a patient",
	Long: `Change fields of an existing patient. Only the flags given are changed.

Examples:
  patients edit 3 --weight 120
  patients edit 1 --condition ""      # Clear the condition`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		t, err := loadTable()
		if err != nil {
			return err
		}
		current, ok := t.Row(id)
		if !ok {
			return fmt.Errorf("patient %d not found", id)
		}

		p, err := readPatient(current.Patient, cmd.Flags().Changed)
		if err != nil {
			return err
		}
		t, _ = patient.Update(t, id, p)
		if err := saveTable(t); err != nil {
			return err
		}

		r, _ := t.Row(id)
		logger.Info("patient updated", zap.Int("id", id))
		if jsonOutput {
			return printJSON(r)
		}
		output.Success("Patient %d updated (BMI %s, high risk %s)", id, dash(r.BMI.Fixed(1)), r.RiskLabel())
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Remove a patient",
	Long: `Remove a patient. Remaining patients are renumbered from 1.

Examples:
  patients remove 2`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		t, err := loadTable()
		if err != nil {
			return err
		}
		r, ok := t.Row(id)
		if !ok {
			return fmt.Errorf("patient %d not found", id)
		}
		t, _ = patient.Remove(t, id)
		if err := saveTable(t); err != nil {
			return err
		}

		logger.Info("patient removed", zap.Int("id", id), zap.String("name", r.Name))
		output.Success("Removed %s; %d patient(s) remain", r.Name, t.Len())
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search patients",
	Long: `Search by exact name, partial name or patient ID. Name matching ignores
case.

Modes:
  "Exact Name" (exact), "Partial Name" (partial), "Patient ID" (id)

Examples:
  patients search kapil
  patients search --mode partial ab
  patients search --mode id 2`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, ok := patient.ParseSearchMode(searchMode)
		if !ok {
			return fmt.Errorf("unknown search mode %q (use one of: %s)", searchMode, modeList())
		}
		var query string
		if len(args) == 1 {
			query = args[0]
		}

		t, err := loadTable()
		if err != nil {
			return err
		}
		found := patient.Search(t, mode, query)
		logger.Debug("search", zap.String("mode", string(mode)), zap.String("query", query), zap.Int("matches", len(found)))

		if len(found) == 0 && !jsonOutput {
			output.Warning("No matching patient found.")
			return nil
		}
		return printRows(found)
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show patient totals and average BMI",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := loadTable()
		if err != nil {
			return err
		}
		return printSummary(t)
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the startup table",
	Long: `Discard all changes and restore the startup table of sample patients.

Examples:
  patients reset --yes`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !skipConfirm {
			output.Warning("This replaces the current table. Re-run with --yes to confirm.")
			return nil
		}
		t := patient.Reset()
		if err := saveTable(t); err != nil {
			return err
		}
		logger.Info("table reset", zap.Int("rows", t.Len()))
		output.Success("Table reset to %d sample patients", t.Len())
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the table with a CSV or Excel file",
	Long: `Load patients from a .csv or .xlsx file and make them the current table.
IDs, BMI and high-risk flags are recomputed; those columns in the file are
ignored.

Examples:
  patients import ward-b.csv
  patients import patients.xlsx`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := tabular.Import(args[0])
		if err != nil {
			return err
		}
		if err := saveTable(t); err != nil {
			return err
		}
		logger.Info("table imported", zap.String("path", args[0]), zap.Int("rows", t.Len()))
		output.Success("Imported %d patient(s) from %s", t.Len(), args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd, addCmd, editCmd, removeCmd, searchCmd, summaryCmd, resetCmd, importCmd)

	for _, cmd := range []*cobra.Command{addCmd, editCmd} {
		cmd.Flags().StringVar(&formName, "name", "", "Patient name")
		cmd.Flags().StringVar(&formAge, "age", "", "Age in years")
		cmd.Flags().StringVar(&formHeight, "height", "", "Height in centimetres")
		cmd.Flags().StringVar(&formWeight, "weight", "", "Weight in kilograms")
		cmd.Flags().StringVar(&formCondition, "condition", "", "Medical condition")
	}

	searchCmd.Flags().StringVarP(&searchMode, "mode", "m", string(patient.ExactName), "Search mode: exact, partial or id")
	resetCmd.Flags().BoolVarP(&skipConfirm, "yes", "y", false, "Skip confirmation")
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid patient ID %q", s)
	}
	return id, nil
}

func modeList() string {
	names := make([]string, 0, len(patient.Modes()))
	for _, m := range patient.Modes() {
		names = append(names, string(m))
	}
	return strings.Join(names, ", ")
}
