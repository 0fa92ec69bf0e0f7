package root

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/optyshop/schemarecon/cmd/schemarecon/shared"
)

var verifyFlags struct { //nolint:gochecknoglobals
	All *bool
}

var verifyCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:   "verify [target...]",
	Short: "Check that the database satisfies one or more targets",
	Long: shared.CLIHelp(`
Evaluates the existence check of every operation of the named targets (or of
every known target with --all) and reports each operation that is not
satisfied. It reads the database catalog, not the ledger, and never changes
anything.

If every operation is satisfied, exits with status code 0. Otherwise, exits
with status code 1. A target that verifies is one that "reconcile" would not
change.
	`),
	Example: shared.CLIExample(`
	# Check a single target
	schemarecon verify add_banner_columns

	# Check everything, e.g. in a deploy pipeline
	schemarecon verify --all --log-format json
	`),
	GroupID:          "reconciling",
	TraverseChildren: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := shared.State.Parse(); err != nil {
			return err
		}
		targets, err := shared.Targets(args, *verifyFlags.All)
		if err != nil {
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
		unsatisfied := 0
		for _, target := range targets {
			statuses, err := reconciler.Status(ctx, db, target)
			if err != nil {
				return err
			}
			for _, status := range statuses {
				if status.Satisfied {
					continue
				}
				unsatisfied++
				slogger.With("target", target.Name).Warn("not satisfied", "operation", status.Operation.String())
			}
		}
		if unsatisfied != 0 {
			return shared.Failed(fmt.Errorf("%d operation(s) not satisfied", unsatisfied))
		}
		slogger.Info("satisfied", "targets", len(targets))
		return nil
	},
}

func init() { //nolint:gochecknoinits
	verifyFlags.All = verifyCmd.Flags().BoolP("all", "a", false, "verify every known target")
}
