// Package cmd defines the partdetect command line.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/partdetect/cmd/config"
	"github.com/tphakala/partdetect/cmd/serve"
	"github.com/tphakala/partdetect/cmd/version"
	"github.com/tphakala/partdetect/internal/buildinfo"
	"github.com/tphakala/partdetect/internal/conf"
	"github.com/tphakala/partdetect/internal/logger"
)

// RootCommand creates and returns the root command. settings is filled in
// place before any subcommand that needs configuration runs.
func RootCommand(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "partdetect",
		Short:         "Part detection configuration service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set up the global flags for the root command.
	setupFlags(rootCmd, &configFile)

	versionCmd := version.Command(build)
	rootCmd.AddCommand(
		serve.Command(settings, build),
		config.Command(settings),
		versionCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Skip setup for the version command
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		return initialize(configFile, settings)
	}

	return rootCmd
}

// initialize loads the configuration and installs the central logger.
func initialize(configFile string, settings *conf.Settings) error {
	loaded, err := conf.Load(configFile)
	if err != nil {
		return err
	}
	*settings = *loaded

	central, err := logger.NewCentralLogger(settings.LoggingConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetGlobal(central)
	return nil
}

// setupFlags defines flags that are global to the command line interface.
// Flag values reach Settings through viper.
func setupFlags(rootCmd *cobra.Command, configFile *string) {
	rootCmd.PersistentFlags().StringVarP(configFile, "config", "c", "", "Path to the configuration file")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}
