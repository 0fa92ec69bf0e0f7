package root

import (
	"github.com/spf13/cobra"

	"github.com/optyshop/schemarecon/cmd/schemarecon/shared"
)

var planFlags struct { //nolint:gochecknoglobals
	All *bool
}

var planCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:   "plan [target...]",
	Short: "Preview the statements reconcile would run",
	Long: shared.CLIHelp(`
Prints every operation of the named targets (or of every known target with
--all) that is not yet satisfied, together with the statement "reconcile"
would run for it. The ledger is not consulted.
	`),
	GroupID:          "reconciling",
	TraverseChildren: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := shared.State.Parse(); err != nil {
			return err
		}
		targets, err := shared.Targets(args, *planFlags.All)
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
		for _, target := range targets {
			plan, err := reconciler.Plan(ctx, db, target)
			if err != nil {
				return err
			}
			for _, op := range plan {
				statement, err := dialect.Render(op)
				if err != nil {
					slogger.With("target", target.Name, "error", err).Warn(op.String())
					continue
				}
				slogger.With("target", target.Name, "statement", statement).Info(op.String())
			}
		}
		return nil
	},
}

func init() { //nolint:gochecknoinits
	planFlags.All = planCmd.Flags().BoolP("all", "a", false, "plan every known target")
}
