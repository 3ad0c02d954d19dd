package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/marshallshelly/patient-records/cmd/patients/output"
	"github.com/marshallshelly/patient-records/pkg/patient"
	"github.com/marshallshelly/patient-records/pkg/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// dbCmd groups the snapshot commands
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Save and load table snapshots in PostgreSQL",
	Long: `Save the current table as a snapshot in PostgreSQL and load snapshots back.

Subcommands:
  push     - Save the current table as a new snapshot
  pull     - Replace the current table with a snapshot
  history  - List saved snapshots
  drop     - Delete a snapshot`,
}

var dbPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Save the current table as a new snapshot",
	Long: `Save the current table as a new snapshot.

Examples:
  patients db push --db postgres://localhost:5432/clinic`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := loadTable()
		if err != nil {
			return err
		}
		return withStore(cmd.Context(), func(ctx context.Context, s *store.Store) error {
			snap, err := s.Save(ctx, t)
			if err != nil {
				return fmt.Errorf("failed to save snapshot: %w", err)
			}
			logger.Info("snapshot saved", zap.String("id", snap.ID.String()), zap.Int("rows", snap.Rows))
			if jsonOutput {
				return printJSON(snap)
			}
			output.Success("Saved snapshot %s (%d patients)", snap.ID, snap.Rows)
			return nil
		})
	},
}

var dbPullCmd = &cobra.Command{
	Use:   "pull [snapshot-id]",
	Short: "Replace the current table with a snapshot",
	Long: `Replace the current table with a saved snapshot, the latest one by default.
BMI and high-risk flags are recomputed on load.

Examples:
  patients db pull                                        # Latest snapshot
  patients db pull 7f1c2e9a-4d0b-4a8e-9a57-2d7c4f3b1e60   # Specific snapshot`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, s *store.Store) error {
			var (
				t    patient.Table
				snap store.Snapshot
				err  error
			)
			if len(args) == 1 {
				id, perr := uuid.Parse(args[0])
				if perr != nil {
					return fmt.Errorf("invalid snapshot ID %q: %w", args[0], perr)
				}
				t, snap, err = s.Load(ctx, id)
			} else {
				t, snap, err = s.Latest(ctx)
			}
			if err != nil {
				return err
			}

			if err := saveTable(t); err != nil {
				return err
			}
			logger.Info("snapshot loaded", zap.String("id", snap.ID.String()), zap.Int("rows", t.Len()))
			output.Success("Loaded snapshot %s (%d patients)", snap.ID, t.Len())
			return nil
		})
	},
}

var dbHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved snapshots",
	Long: `List saved snapshots, newest first.

Examples:
  patients db history
  patients db history --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, s *store.Store) error {
			snaps, err := s.List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list snapshots: %w", err)
			}
			if jsonOutput {
				if snaps == nil {
					snaps = []store.Snapshot{}
				}
				return printJSON(snaps)
			}
			if len(snaps) == 0 {
				output.Warning("No snapshots found")
				return nil
			}

			w := tabwriter.NewWriter(output.Out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "SNAPSHOT\tCREATED AT\tPATIENTS\tHIGH RISK")
			_, _ = fmt.Fprintln(w, "--------\t----------\t--------\t---------")
			for _, snap := range snaps {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\n",
					snap.ID,
					snap.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					snap.Rows,
					snap.HighRisk,
				)
			}
			return w.Flush()
		})
	},
}

var dbDropCmd = &cobra.Command{
	Use:   "drop <snapshot-id>",
	Short: "Delete a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid snapshot ID %q: %w", args[0], err)
		}
		return withStore(cmd.Context(), func(ctx context.Context, s *store.Store) error {
			if err := s.Delete(ctx, id); err != nil {
				return err
			}
			logger.Info("snapshot deleted", zap.String("id", id.String()))
			output.Success("Deleted snapshot %s", id)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbPushCmd, dbPullCmd, dbHistoryCmd, dbDropCmd)
}

// withStore connects to the configured database, makes sure the snapshot
// tables exist and runs fn.
func withStore(ctx context.Context, fn func(context.Context, *store.Store) error) error {
	if !cfg.HasDatabase() {
		return fmt.Errorf("--db flag or PATIENTS_DATABASE_URL is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer s.Close()
	s.WithLockID(cfg.LockID)

	if err := s.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize snapshot tables: %w", err)
	}
	return fn(ctx, s)
}
