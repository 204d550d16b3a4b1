package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/airrecover/storefront/internal/version"
)

// buildVersion задаётся из main через Execute.
var buildVersion = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		v := buildVersion
		if v == "" || v == "dev" {
			v = version.GetVersion()
		}
		fmt.Fprintf(cmd.OutOrStdout(), "storefront-cli %s (commit %s, built %s)\n", v, version.GetCommit(), version.GetDate())
	},
}
