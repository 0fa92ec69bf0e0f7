package ops

import (
	"github.com/spf13/cobra"

	"github.com/optyshop/schemarecon/cmd/schemarecon/shared"
)

var MarkRolledBackFlags struct { //nolint:gochecknoglobals
	Names *[]string
}

var markRolledBack = &cobra.Command{ //nolint:gochecknoglobals
	Use:     "mark-rolled-back target...",
	Aliases: []string{"mark-unapplied"},
	Short:   "mark ledger entries as rolled back so that targets are reconciled again",
	Long: shared.CLIHelp(`
Sets rolled_back_at on the ledger entries of the named targets. The schema is
not changed. The next "reconcile" of a rolled-back target checks every
operation again, applies whatever is missing, and revives the ledger entry.
	`),
	Example: shared.CLIExample(`
	# Re-check add_brand_columns on the next reconcile
	schemarecon ops mark-rolled-back add_brand_columns
	schemarecon ops mark-rolled-back --name add_brand_columns
	`),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		names := append(append([]string{}, *MarkRolledBackFlags.Names...), args...)
		if _, err := shared.Targets(names, false); err != nil {
			return err
		}
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

		rolledBack, err := shared.State.Reconciler(dialect, rlogger).MarkRolledBack(ctx, db, names...)
		if err != nil {
			return err
		}
		slogger.Info("marked targets as rolled back", "count", len(rolledBack))
		for _, entry := range rolledBack {
			slogger.Info("marked as rolled back",
				"target", entry.Name,
				"rolled_back_at", *entry.RolledBackAt,
			)
		}
		return nil
	},
}

func init() { //nolint:gochecknoinits
	MarkRolledBackFlags.Names = markRolledBack.Flags().StringArrayP("name", "n", nil, "names of targets to mark as rolled back")
}
