// Package tabular converts patient tables to and from row-oriented files:
// comma-separated text and XLSX workbooks. Both formats share one header and
// column order.
package tabular

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/marshallshelly/patient-records/pkg/patient"
)

// Column names, in file order.
const (
	ColPatientID = "Patient_ID"
	ColName      = "Name"
	ColAge       = "Age"
	ColHeight    = "Height_cm"
	ColWeight    = "Weight_kg"
	ColCondition = "Condition"
	ColBMI       = "BMI"
	ColHighRisk  = "High_risk"
)

// Header is the header row written by every export.
var Header = []string{ColPatientID, ColName, ColAge, ColHeight, ColWeight, ColCondition, ColBMI, ColHighRisk}

// SheetName is the worksheet that holds the table in an XLSX workbook.
const SheetName = "patients"

// ErrUnsupportedFormat is returned for a file extension with no codec.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Format identifies a file codec.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatFromPath picks a format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// Export writes t to path in the format implied by its extension. The file
// is written next to path and renamed into place, so readers never see a
// partial file.
func Export(path string, t patient.Table) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	switch format {
	case FormatCSV:
		err = WriteCSV(f, t)
	case FormatXLSX:
		err = WriteXLSX(f, t)
	}
	if err == nil {
		err = f.Chmod(0o644)
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close %s: %w", path, cerr)
	}
	if err != nil {
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// Import reads a table from path in the format implied by its extension.
func Import(path string) (patient.Table, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return patient.Table{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return patient.Table{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if format == FormatXLSX {
		return ReadXLSX(f)
	}
	return ReadCSV(f)
}

// record renders one row as text cells in Header order.
func record(r patient.Record) []string {
	return []string{
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

// fromRows builds a table from file rows. When the first row names a Name
// column, columns are located by header and derived columns are ignored;
// otherwise every row is a positional (name, age, height, weight, condition)
// tuple.
func fromRows(rows [][]string) patient.Table {
	if len(rows) == 0 {
		return patient.FromPatients(nil)
	}

	index := make(map[string]int)
	for i, h := range rows[0] {
		index[strings.TrimSpace(h)] = i
	}
	if _, ok := index[ColName]; !ok {
		return patient.FromRaw(rows)
	}

	source := []string{ColName, ColAge, ColHeight, ColWeight, ColCondition}
	raw := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		fields := make([]string, len(source))
		for i, col := range source {
			if j, ok := index[col]; ok && j < len(row) {
				fields[i] = row[j]
			}
		}
		raw = append(raw, fields)
	}
	return patient.FromRaw(raw)
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
