package tabular

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/marshallshelly/patient-records/pkg/patient"
)

// WriteCSV writes the header and one line per record.
func WriteCSV(w io.Writer, t patient.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range t.Rows() {
		if err := cw.Write(record(r)); err != nil {
			return fmt.Errorf("failed to write csv row %d: %w", r.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// ReadCSV reads a table written by WriteCSV, or headerless rows of
// (name, age, height_cm, weight_kg, condition).
func ReadCSV(r io.Reader) (patient.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return patient.Table{}, fmt.Errorf("failed to read csv: %w", err)
	}
	return fromRows(rows), nil
}
