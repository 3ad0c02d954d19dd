package commands

import (
	"github.com/marshallshelly/patient-records/cmd/patients/output"
	"github.com/marshallshelly/patient-records/cmd/patients/tui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Open the interactive patient menu",
	Long: `Open a full-screen menu to view, add, edit, remove, search, export and
reset patients. Every change is written to the data file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := loadTable()
		if err != nil {
			return err
		}

		final, err := tui.RunUI(t, tui.Options{
			Save:     saveTable,
			CSVPath:  cfg.CSVFile,
			XLSXPath: cfg.XLSXFile,
		})
		if err != nil {
			return err
		}
		logger.Debug("ui closed", zap.Int("rows", final.Len()))
		output.Muted("%d patient(s) in %s", final.Len(), cfg.DataFile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uiCmd)
}
