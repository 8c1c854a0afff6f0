package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X mcptoolbox/internal/cli.version=...".
var version = "0.3.0"

func (a *app) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.flags.JSON {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"name": "mcp-toolbox", "version": version})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "mcp-toolbox", version)
			return nil
		},
	}
}
