// Package commands implements the sqlchain command line.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/satishbabariya/sqlchain/cli/internal/config"
	"github.com/satishbabariya/sqlchain/cli/internal/ui"
	"github.com/satishbabariya/sqlchain/internal/debug"
)

// cfg is loaded before any subcommand runs
var cfg = &config.Config{Dialect: "sqlite", Provider: "sqlite"}

// NewRootCommand builds the sqlchain command tree
func NewRootCommand() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "sqlchain",
		Short: "Compile query chains to SQL and run them",
		Long: `sqlchain compiles query files (a table plus where/select/order_by
stages written in a small expression language) into one SQL statement for
SQLite, PostgreSQL, MySQL or SQL Server, and runs them.

Settings come from .sqlchain.yaml, SQLCHAIN_* variables and .env files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if verbose {
				loaded.Debug = true
			}
			cfg = loaded
			debug.Init(cfg.Debug)
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every statement to stderr")

	root.AddCommand(
		NewRenderCommand(),
		NewRunCommand(),
		NewVersionCommand(),
	)
	return root
}

// Execute runs the command line
func Execute() error {
	if err := NewRootCommand().Execute(); err != nil {
		ui.PrintError("%v", err)
		return err
	}
	return nil
}
