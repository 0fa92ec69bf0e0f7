package root

import (
	"github.com/spf13/cobra"

	"github.com/optyshop/schemarecon/cmd/schemarecon/shared"
)

var reconcileFlags struct { //nolint:gochecknoglobals
	All *bool
}

var reconcileCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:     "reconcile [target...]",
	Aliases: []string{"apply", "migrate"},
	Short:   "Bring the database to the state described by one or more targets",
	Long: shared.CLIHelp(`
Reconciles each named target, in the order given (or every known target, in
authoring order, with --all).

For a target that already has a ledger entry, nothing is checked and the
command moves on. Otherwise, for each operation in declared order:

  - if the column, index, foreign key or table already exists, skip it
  - if a table or column it depends on is missing, stop with an error
  - otherwise run the DDL statement
  - if the statement fails because another process created the same object
    in the meantime, tolerate it and continue

When every operation succeeded, the target is recorded in the ledger table:

  - id: a ULID
  - migration_name: the target name
  - checksum: md5 of the target's operations
  - started_at, finished_at: when the run started and finished
  - rolled_back_at: set by "schemarecon ops mark-rolled-back"
  - applied_steps_count: operations applied or tolerated by the run
  - logs: a one-line summary of the run

A failed operation stops the run. Operations after it are not attempted and
no ledger entry is written, so the next run picks up where this one stopped.
	`),
	Example: shared.CLIExample(`
	# Reconcile the banner columns
	schemarecon reconcile add_banner_columns

	# Reconcile everything, as on application startup
	DATABASE_URL=postgres://localhost:5433/optyshop schemarecon reconcile --all
	`),
	GroupID:          "reconciling",
	TraverseChildren: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := shared.State.Parse(); err != nil {
			return err
		}
		targets, err := shared.Targets(args, *reconcileFlags.All)
		if err != nil {
			return err
		}
		slogger, rlogger, err := shared.State.Logger()
		if err != nil {
			return err
		}
		db, dialect, err := shared.OpenOrCreateDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		reconciler := shared.State.Reconciler(dialect, rlogger)
		for _, target := range targets {
			result, err := reconciler.Reconcile(ctx, db, target)
			if err != nil {
				return err
			}
			slogger.Info(result.Summary())
		}

		verrs, err := reconciler.VerifyLedger(ctx, db)
		if err != nil {
			return err
		}
		for _, verr := range verrs {
			var attrs []any
			for key, val := range verr.Fields {
				attrs = append(attrs, key, val)
			}
			slogger.With(attrs...).Warn(verr.Message)
		}
		return nil
	},
}

func init() { //nolint:gochecknoinits
	reconcileFlags.All = reconcileCmd.Flags().BoolP("all", "a", false, "reconcile every known target")
}
