package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/partdetect/internal/buildinfo"
)

// Command prints build metadata.
func Command(build *buildinfo.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), build.String())
		},
	}
}
