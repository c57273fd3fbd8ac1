package serve

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/partdetect/internal/app"
	"github.com/tphakala/partdetect/internal/buildinfo"
	"github.com/tphakala/partdetect/internal/conf"
)

// Command creates the command that runs the HTTP service.
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the part detection service",
		Long:  "Serve the part detection API until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context(), settings, build)
			if err != nil {
				return err
			}
			return a.Run(cmd.Context())
		},
	}

	cmd.Flags().String("port", "", "Port to listen on")
	cmd.Flags().String("media", "", "Directory for uploaded relabel images")
	_ = viper.BindPFlag("webserver.port", cmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("media.path", cmd.Flags().Lookup("media"))

	return cmd
}
