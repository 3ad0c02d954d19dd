package tabular

import (
	"bytes"
	"fmt"
	"io"

	"github.com/marshallshelly/patient-records/pkg/patient"
	"github.com/xuri/excelize/v2"
)

// columnWidths follows Header.
var columnWidths = []float64{12, 20, 8, 12, 12, 24, 8, 10}

// XLSX renders t as a workbook with a single "patients" sheet.
func XLSX(t patient.Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteXLSX writes t as a workbook with a single "patients" sheet. Numeric
// cells are stored as numbers; undefined values are left blank.
func WriteXLSX(w io.Writer, t patient.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(SheetName); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to remove default sheet: %w", err)
	}
	index, err := f.GetSheetIndex(SheetName)
	if err != nil {
		return fmt.Errorf("failed to locate sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range Header {
		if err := setCell(f, col+1, 1, header); err != nil {
			return err
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(SheetName, name, name, columnWidths[col]); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(Header), 1)
	if err := f.SetCellStyle(SheetName, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}

	for i, r := range t.Rows() {
		row := i + 2
		values := []any{
			r.ID,
			r.Name,
			cellNumber(r.Age),
			cellNumber(r.HeightCM),
			cellNumber(r.WeightKG),
			r.Condition,
			cellNumber(r.BMI),
			r.RiskLabel(),
		}
		for col, v := range values {
			if v == nil {
				continue
			}
			if err := setCell(f, col+1, row, v); err != nil {
				return err
			}
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// ReadXLSX reads the "patients" sheet of a workbook, falling back to the
// first sheet when there is none.
func ReadXLSX(r io.Reader) (patient.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return patient.Table{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := SheetName
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		sheet = f.GetSheetName(0)
	}
	if sheet == "" {
		return patient.Table{}, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return patient.Table{}, fmt.Errorf("failed to read rows: %w", err)
	}
	return fromRows(rows), nil
}

func setCell(f *excelize.File, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetCellValue(SheetName, cell, value); err != nil {
		return fmt.Errorf("failed to set cell %s: %w", cell, err)
	}
	return nil
}

func cellNumber(n patient.Number) any {
	if !n.Valid {
		return nil
	}
	return n.Float
}
