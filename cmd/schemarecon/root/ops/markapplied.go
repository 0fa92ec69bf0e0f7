package ops

import (
	"github.com/spf13/cobra"

	"github.com/optyshop/schemarecon"
	"github.com/optyshop/schemarecon/cmd/schemarecon/shared"
)

var MarkAppliedFlags struct { //nolint:gochecknoglobals
	Names *[]string
	All   *bool
}

var markApplied = &cobra.Command{ //nolint:gochecknoglobals
	Use:   "mark-applied [target...]",
	Short: "record targets as applied without checking or running them",
	Long: shared.CLIHelp(`
Writes a ledger entry for each named target without touching the schema. Use
this to adopt a database whose schema was already changed by hand; afterwards
"reconcile" returns immediately for these targets.

Targets that already have a ledger entry, and unknown names, are skipped with
a warning.
	`),
	Example: shared.CLIExample(`
	# Mark add_banner_columns as applied
	schemarecon ops mark-applied add_banner_columns
	schemarecon ops mark-applied --name add_banner_columns

	# Mark every known target as applied
	schemarecon ops mark-applied --all
	`),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		// Argument parsing
		names := append(append([]string{}, *MarkAppliedFlags.Names...), args...)
		if _, err := shared.Targets(names, *MarkAppliedFlags.All); err != nil {
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
		reconciler := shared.State.Reconciler(dialect, rlogger)

		// Execution
		var marked []schemarecon.LedgerEntry
		if *MarkAppliedFlags.All {
			slogger.Info("marking ALL as applied")
			marked, err = reconciler.MarkAllApplied(ctx, db)
		} else {
			marked, err = reconciler.MarkApplied(ctx, db, names...)
		}
		if err != nil {
			return err
		}
		slogger.Info("marked targets as applied", "count", len(marked))
		for _, entry := range marked {
			slogger.Info("marked as applied",
				"target", entry.Name,
				"checksum", entry.Checksum,
				"finished_at", entry.FinishedAt,
			)
		}
		return nil
	},
}

func init() { //nolint:gochecknoinits
	MarkAppliedFlags.Names = markApplied.Flags().StringArrayP("name", "n", nil, "names of targets to mark as applied")
	MarkAppliedFlags.All = markApplied.Flags().BoolP("all", "a", false, "if true, mark all targets as applied")
	markApplied.MarkFlagsMutuallyExclusive("name", "all")
}
