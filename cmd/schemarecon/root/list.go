package root

import (
	"github.com/spf13/cobra"

	"github.com/optyshop/schemarecon/cmd/schemarecon/shared"
	"github.com/optyshop/schemarecon/internal/targets"
)

var listCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:   "list",
	Short: "List the known targets",
	Long: shared.CLIHelp(`
Prints every target compiled into this binary, in the order "reconcile --all"
applies them. With --verbose, every operation is printed as well. Does not
connect to a database.
	`),
	GroupID:          "dev",
	TraverseChildren: true,
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := shared.State.Parse(); err != nil {
			return err
		}
		slogger, _, err := shared.State.Logger()
		if err != nil {
			return err
		}
		for _, target := range targets.All() {
			slogger.With(
				"operations", len(target.Operations),
				"checksum", target.Checksum(),
			).Info(target.Name)
			for i, op := range target.Operations {
				slogger.Debug(op.String(), "target", target.Name, "step", i+1)
			}
		}
		return nil
	},
}
