package root

import (
	"github.com/spf13/cobra"

	"github.com/optyshop/schemarecon/cmd/schemarecon/shared"
)

var appliedCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:   "applied",
	Short: "Show every ledger entry",
	Long: shared.CLIHelp(`
Prints the ledger entries in the order that they were recorded (finished_at,
migration_name ASC), including entries that have been marked as rolled back.

If the ledger table does not exist, this command will print nothing and exit
successfully.
	`),
	GroupID:          "reconciling",
	TraverseChildren: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := shared.State.Parse(); err != nil {
			return err
		}
		slogger, rlogger, err := shared.State.Logger()
		if err != nil {
			return err
		}
		db, dialect, err := shared.OpenDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		applied, err := shared.State.Reconciler(dialect, rlogger).Applied(ctx, db)
		if err != nil {
			return err
		}
		for _, entry := range applied {
			logger := slogger.With(
				"id", entry.ID,
				"finished_at", entry.FinishedAt,
				"checksum", entry.Checksum,
				"applied_steps", entry.AppliedSteps,
			)
			if entry.RolledBackAt != nil {
				logger = logger.With("rolled_back_at", *entry.RolledBackAt)
			}
			logger.Info(entry.Name)
		}
		return nil
	},
}
