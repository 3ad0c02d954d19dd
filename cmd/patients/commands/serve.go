package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/marshallshelly/patient-records/cmd/patients/output"
	"github.com/marshallshelly/patient-records/pkg/api"
	"github.com/marshallshelly/patient-records/pkg/patient"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var httpAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the table over an HTTP JSON API",
	Long: `Serve the current table over HTTP. Every change made through the API is
written back to the data file.

Examples:
  patients serve
  patients serve --addr 127.0.0.1:9000`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.HTTPAddr
		if cmd.Flags().Changed("addr") {
			addr = httpAddr
		}

		t, err := loadTable()
		if err != nil {
			return err
		}

		srv := api.NewServer(t,
			api.WithLogger(logger),
			api.WithSaveHook(func(next patient.Table) {
				if err := saveTable(next); err != nil {
					logger.Error("failed to save table", zap.Error(err))
				}
			}),
		)

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		output.Info("Serving %d patient(s) on %s (Ctrl+C to stop)", t.Len(), addr)
		return srv.Start(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&httpAddr, "addr", "", "Listen address (default from config)")
}
