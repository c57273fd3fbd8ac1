package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/partdetect/internal/conf"
)

// Command groups configuration helpers.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and write configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "write <path>",
		Short: "Write the effective configuration as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := conf.SaveYAMLConfig(args[0], settings); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration written to %s\n", args[0])
			return nil
		},
	})

	return cmd
}
