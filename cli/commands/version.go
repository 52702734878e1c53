package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/sqlchain/cli/internal/ui"
	"github.com/satishbabariya/sqlchain/cli/internal/version"
	"github.com/satishbabariya/sqlchain/runtime/client"
)

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the sqlchain version, build details and supported providers.",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			if short {
				fmt.Fprintln(cmd.OutOrStdout(), info.String())
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Header("sqlchain", "query chains compiled to SQL"))
			fmt.Fprintln(cmd.OutOrStdout(), info.FullString())
			fmt.Fprintf(cmd.OutOrStdout(), "Providers: %v\n", client.Providers())
			return nil
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "print a single line")
	return cmd
}
