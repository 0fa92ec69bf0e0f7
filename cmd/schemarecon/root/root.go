package root

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/optyshop/schemarecon/cmd/schemarecon/root/ops"
	"github.com/optyshop/schemarecon/cmd/schemarecon/shared"
)

var Command = &cobra.Command{ //nolint:gochecknoglobals
	Version: shared.VersionString(),
	Use:     "schemarecon",
	Short:   "reconcile the optyshop database schema",
	Long: shared.CLIHelp(`
schemarecon brings a postgres, mysql or sqlite database to the state described
by the optyshop schema targets. Every operation is checked against the database
catalog first, so it is safe to run on every deploy and from several instances
at once.

Exit codes:

  0  the targets are satisfied
  1  an operation failed, or "verify" found unsatisfied operations
  2  configuration or connection error
	`),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 {
			return shared.ConfigError(fmt.Errorf(`invalid command: "%s"`, args[0]))
		}
		return cmd.Help()
	},
}

func init() { //nolint:gochecknoinits
	Command.CompletionOptions.HiddenDefaultCmd = true
	Command.TraverseChildren = true
	Command.SilenceErrors = true
	Command.SilenceUsage = true
	Command.SetVersionTemplate("{{.Version}}\n")

	shared.State.Flags.LogFormat = Command.PersistentFlags().StringP(
		"log-format",
		"l",
		"",
		fmt.Sprintf("[SCHEMARECON_LOG_FORMAT] '%s' or '%s', the log line format", shared.LogFormatText, shared.LogFormatJSON),
	)
	shared.State.Flags.Verbose = Command.PersistentFlags().BoolP(
		"verbose",
		"v",
		false,
		"[SCHEMARECON_VERBOSE] log every catalog query and DDL statement",
	)
	shared.State.Flags.Database = Command.PersistentFlags().StringP(
		"database",
		"d",
		"",
		"[SCHEMARECON_DATABASE, DATABASE_URL] a 'postgres://', 'mysql://' or 'sqlite://' connection string",
	)
	shared.State.Flags.TableName = Command.PersistentFlags().StringP(
		"table-name",
		"t",
		"",
		"[SCHEMARECON_TABLENAME] the ledger table, 'table' or 'schema.table'",
	)
	shared.State.Flags.ConfigFile = Command.PersistentFlags().StringP(
		"configfile",
		"f",
		"",
		"[SCHEMARECON_CONFIGFILE] a path to a configuration file",
	)
	shared.State.Flags.EnvFile = Command.PersistentFlags().StringP(
		"env-file",
		"e",
		"",
		"[SCHEMARECON_ENVFILE] a path to a .env file to load, defaults to ./.env",
	)

	Command.AddGroup(
		&cobra.Group{
			ID:    "reconciling",
			Title: "Reconciling:",
		},
		&cobra.Group{
			ID:    "ops",
			Title: "Operations:",
		},
		&cobra.Group{
			ID:    "dev",
			Title: "Development:",
		},
	)

	// reconciling
	Command.AddCommand(reconcileCmd)
	Command.AddCommand(verifyCmd)
	Command.AddCommand(planCmd)
	Command.AddCommand(appliedCmd)

	// ops
	Command.AddCommand(ops.Command)
	Command.AddCommand(versionCmd)

	// dev
	Command.AddCommand(listCmd)
	Command.AddCommand(configCmd)
	Command.SetHelpCommandGroupID("dev")
}
