package ops

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/optyshop/schemarecon/cmd/schemarecon/shared"
)

var Command = &cobra.Command{ //nolint:gochecknoglobals
	Use:     "ops",
	Aliases: []string{"op", "admin"},
	Short:   "Perform manual operations on ledger entries",
	GroupID: "ops",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 {
			return shared.ConfigError(fmt.Errorf(`invalid command: "%s"`, args[0]))
		}
		return cmd.Help()
	},
}

func init() { //nolint:gochecknoinits
	Command.AddCommand(markApplied)
	Command.AddCommand(markRolledBack)
}
