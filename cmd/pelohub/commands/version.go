package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HenryAi-SIBERMU/PeloHub/cmd/pelohub/internal/build"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if formatOutput == "json" {
			return output(cmd, build.Current(), "")
		}
		fmt.Fprintln(cmd.OutOrStdout(), build.String())
		if verbose {
			fmt.Fprintf(cmd.OutOrStdout(), "  go:     %s\n", build.Current().Go)
			if globalConfig != nil && globalConfig.Path != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  config: %s\n", globalConfig.Path)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "  config: (defaults)")
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
