package conf

import (
	"os"
	"path/filepath"

	"github.com/tphakala/partdetect/internal/errors"
	"github.com/tphakala/partdetect/internal/logger"
)

// GetDefaultConfigPaths returns the directories searched for config.yaml, in order:
// the working directory, $HOME/.config/partdetect and /etc/partdetect.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "get_home_directory").
			Build()
	}

	return []string{
		".",
		filepath.Join(homeDir, ".config", "partdetect"),
		"/etc/partdetect",
	}, nil
}

// LoggingConfig converts the logging settings into the central logger configuration.
// Debug mode forces the default level to debug. Output handlers accept every
// level so that per-module levels decide what is written.
func (s *Settings) LoggingConfig() *logger.LoggingConfig {
	level := s.Logging.Level
	if s.Debug {
		level = string(logger.LogLevelDebug)
	}

	cfg := &logger.LoggingConfig{
		DefaultLevel: level,
		Timezone:     s.Logging.Timezone,
		Console:      &logger.ConsoleOutput{Enabled: true, Level: string(logger.LogLevelTrace)},
		ModuleLevels: s.Logging.ModuleLevels,
	}
	if s.Logging.FileEnabled {
		cfg.FileOutput = &logger.FileOutput{Enabled: true, Path: s.Logging.FilePath, Level: string(logger.LogLevelTrace)}
	}
	return cfg
}
