package commands

import (
	"github.com/marshallshelly/patient-records/cmd/patients/output"
	"github.com/marshallshelly/patient-records/pkg/patient"
	"github.com/marshallshelly/patient-records/pkg/tabular"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Export flags
	exportCSV  string
	exportXLSX string
	skipXLSX   bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the table to CSV and Excel",
	Long: `Write the current table, including BMI and high-risk columns, to a CSV
file and an Excel workbook. A failed Excel export is reported and skipped;
the CSV file is still written.

Examples:
  patients export                               # patients.csv and patients.xlsx
  patients export --csv out.csv --xlsx out.xlsx
  patients export --no-xlsx`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := loadTable()
		if err != nil {
			return err
		}

		csvPath, xlsxPath := cfg.CSVFile, cfg.XLSXFile
		if cmd.Flags().Changed("csv") {
			csvPath = exportCSV
		}
		if cmd.Flags().Changed("xlsx") {
			xlsxPath = exportXLSX
		}
		if skipXLSX {
			xlsxPath = ""
		}
		return runExport(t, csvPath, xlsxPath)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportCSV, "csv", "", "CSV output path (default from config)")
	exportCmd.Flags().StringVar(&exportXLSX, "xlsx", "", "Excel output path (default from config)")
	exportCmd.Flags().BoolVar(&skipXLSX, "no-xlsx", false, "Skip the Excel workbook")
}

// runExport writes the CSV file, then the workbook. Workbook errors are
// warnings.
func runExport(t patient.Table, csvPath, xlsxPath string) error {
	if csvPath != "" {
		if err := tabular.Export(csvPath, t); err != nil {
			return err
		}
		logger.Info("csv exported", zap.String("path", csvPath), zap.Int("rows", t.Len()))
		output.Success("Exported %d patient(s) to %s", t.Len(), csvPath)
	}

	if xlsxPath == "" {
		return nil
	}
	if err := tabular.Export(xlsxPath, t); err != nil {
		logger.Warn("excel export failed", zap.String("path", xlsxPath), zap.Error(err))
		output.Warning("Excel export skipped: %v", err)
		return nil
	}
	logger.Info("excel exported", zap.String("path", xlsxPath), zap.Int("rows", t.Len()))
	output.Success("Exported %d patient(s) to %s", t.Len(), xlsxPath)
	return nil
}
