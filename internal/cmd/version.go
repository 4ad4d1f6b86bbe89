package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	var extended bool
	c := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "storefront-guard %s\n", versionInfo.Version)
			if extended {
				fmt.Fprintf(out, "Commit: %s\n", versionInfo.Commit)
				fmt.Fprintf(out, "Built: %s\n", versionInfo.BuildDate)
				fmt.Fprintf(out, "Go: %s\n", runtime.Version())
			}
			return nil
		},
	}
	c.Flags().BoolVarP(&extended, "extended", "e", false, "show commit, build date and Go version")
	return c
}
