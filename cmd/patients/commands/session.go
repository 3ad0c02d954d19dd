package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"text/tabwriter"

	"github.com/marshallshelly/patient-records/cmd/patients/output"
	"github.com/marshallshelly/patient-records/pkg/patient"
	"github.com/marshallshelly/patient-records/pkg/tabular"
	"go.uber.org/zap"
)

// loadTable returns the current table from the data file, or the startup
// table when the file does not exist yet.
func loadTable() (patient.Table, error) {
	if cfg.DataFile == "" {
		return patient.Initial(), nil
	}

	t, err := tabular.Import(cfg.DataFile)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("data file not found, using startup table", zap.String("path", cfg.DataFile))
		return patient.Initial(), nil
	}
	if err != nil {
		return patient.Table{}, fmt.Errorf("failed to load %s: %w", cfg.DataFile, err)
	}
	logger.Debug("table loaded", zap.String("path", cfg.DataFile), zap.Int("rows", t.Len()))
	return t, nil
}

// saveTable makes t the current table.
func saveTable(t patient.Table) error {
	if cfg.DataFile == "" {
		return nil
	}
	if err := tabular.Export(cfg.DataFile, t); err != nil {
		return fmt.Errorf("failed to save %s: %w", cfg.DataFile, err)
	}
	logger.Debug("table saved", zap.String("path", cfg.DataFile), zap.Int("rows", t.Len()))
	return nil
}

// printRows writes rows as an aligned table, or as JSON with --json.
func printRows(rows []patient.Record) error {
	if jsonOutput {
		if rows == nil {
			rows = []patient.Record{}
		}
		return printJSON(rows)
	}

	if len(rows) == 0 {
		output.Warning("No patients")
		return nil
	}

	w := tabwriter.NewWriter(output.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tAGE\tHEIGHT (CM)\tWEIGHT (KG)\tCONDITION\tBMI\tHIGH RISK")
	_, _ = fmt.Fprintln(w, "--\t----\t---\t-----------\t-----------\t---------\t---\t---------")

	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.Name,
			dash(r.Age.String()),
			dash(r.HeightCM.String()),
			dash(r.WeightKG.String()),
			dash(r.Condition),
			dash(r.BMI.Fixed(1)),
			output.RiskLabel(r.RiskLabel()),
		)
	}
	return w.Flush()
}

func printSummary(t patient.Table) error {
	s := patient.Summarize(t)
	if jsonOutput {
		return printJSON(s)
	}

	avg := "n/a"
	if s.AverageBMI.Valid {
		avg = s.AverageBMI.Fixed(1)
	}
	fmt.Fprintln(output.Out)
	output.Primary("Summary")
	output.Info("Total patients: %d", s.Total)
	output.Info("High-risk patients: %d", s.HighRisk)
	output.Info("Average BMI: %s", avg)
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(output.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// readPatient builds a patient from the add/edit flags. Only flags the user
// set replace fields of base.
func readPatient(base patient.Patient, set func(string) bool) (patient.Patient, error) {
	p := base
	if set("name") {
		p.Name = formName
	}
	if set("condition") {
		p.Condition = formCondition
	}

	numbers := []struct {
		flag  string
		value string
		dst   *patient.Number
	}{
		{"age", formAge, &p.Age},
		{"height", formHeight, &p.HeightCM},
		{"weight", formWeight, &p.WeightKG},
	}
	for _, n := range numbers {
		if !set(n.flag) {
			continue
		}
		num, err := parseNumberFlag(n.flag, n.value)
		if err != nil {
			return p, err
		}
		*n.dst = num
	}

	p = p.Trimmed()
	if err := patient.ValidateChange(base, p); err != nil {
		return p, err
	}
	return p, nil
}

// parseNumberFlag accepts an empty value as "not recorded" but rejects text
// that is not a number.
func parseNumberFlag(name, value string) (patient.Number, error) {
	n := patient.ParseNumber(value)
	if !n.Valid && strings.TrimSpace(value) != "" {
		return n, fmt.Errorf("--%s must be a number, got %q", name, value)
	}
	return n, nil
}
