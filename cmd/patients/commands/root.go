package commands

import (
	"fmt"
	"os"

	"github.com/marshallshelly/patient-records/cmd/patients/output"
	"github.com/marshallshelly/patient-records/pkg/config"
	"github.com/marshallshelly/patient-records/pkg/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	configFile string
	dataFile   string
	dbURL      string
	verbose    bool
	jsonOutput bool

	cfg    *config.Config
	logger = logging.Nop()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "patients",
	Short: "Patient records with BMI and high-risk flags",
	Long: `Maintain a small table of patient records (name, age, height, weight,
condition). Every change recomputes each patient's BMI and high-risk flag.

Features:
  - Add, edit, remove and bulk-replace patients
  - Search by exact name, partial name or patient ID
  - Export to CSV and Excel (.xlsx), import from either
  - Save and load table snapshots in PostgreSQL
  - Interactive terminal menu and an HTTP JSON API

The current table lives in the data file (--data, default patients.csv).
When the file does not exist the startup sample table is used.`,
	Version:           "0.3.0",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		output.Error("%v", err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (yaml, json or toml)")
	rootCmd.PersistentFlags().StringVar(&dataFile, "data", "", "Data file holding the current table (.csv or .xlsx; default from config)")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "Database connection URL for snapshots")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
}

// setup loads configuration and the logger. Flags override config values.
func setup(cmd *cobra.Command, args []string) error {
	c, err := config.Load(configFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("data") {
		c.DataFile = dataFile
	}
	if flags.Changed("db") {
		c.DatabaseURL = dbURL
	}
	if verbose {
		c.LogLevel = "debug"
	}

	l, err := logging.New(c.LogLevel, c.LogFormat, "patients")
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	cfg = c
	logger = l
	logger.Debug("configuration loaded",
		zap.String("command", cmd.CommandPath()),
		zap.String("data_file", cfg.DataFile),
		zap.Bool("database", cfg.HasDatabase()),
	)
	return nil
}
