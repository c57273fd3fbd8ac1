// conf/config.go
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/partdetect/internal/errors"
)

// Settings is the complete service configuration.
type Settings struct {
	Debug bool `mapstructure:"debug" yaml:"debug"`

	WebServer WebServerSettings `mapstructure:"webserver" yaml:"webserver"`
	Database  DatabaseSettings  `mapstructure:"database" yaml:"database"`
	Inference InferenceSettings `mapstructure:"inference" yaml:"inference"`
	Training  TrainingSettings  `mapstructure:"training" yaml:"training"`
	Media     MediaSettings     `mapstructure:"media" yaml:"media"`
	MQTT      MQTTSettings      `mapstructure:"mqtt" yaml:"mqtt"`
	Sentry    SentrySettings    `mapstructure:"sentry" yaml:"sentry"`
	Logging   LoggingSettings   `mapstructure:"logging" yaml:"logging"`

	ConfigFile string `mapstructure:"-" yaml:"-"` // file the settings were read from, runtime value
}

// WebServerSettings contains the HTTP listener configuration.
type WebServerSettings struct {
	Port             string        `mapstructure:"port" yaml:"port"`
	ReadTimeout      time.Duration `mapstructure:"readtimeout" yaml:"readtimeout"`
	WriteTimeout     time.Duration `mapstructure:"writetimeout" yaml:"writetimeout"`
	ScenarioCacheTTL time.Duration `mapstructure:"scenariocachettl" yaml:"scenariocachettl"` // how long the scenario list is cached
	MaxUploadSize    string        `mapstructure:"maxuploadsize" yaml:"maxuploadsize"`       // echo body limit, e.g. "10M"
	UploadRateLimit  float64       `mapstructure:"uploadratelimit" yaml:"uploadratelimit"`   // relabel uploads per second per client IP, 0 disables
	UploadBurst      int           `mapstructure:"uploadburst" yaml:"uploadburst"`
}

// DatabaseSettings selects and configures the backing store.
type DatabaseSettings struct {
	Type   string         `mapstructure:"type" yaml:"type"` // sqlite or mysql
	SQLite SQLiteSettings `mapstructure:"sqlite" yaml:"sqlite"`
	MySQL  MySQLSettings  `mapstructure:"mysql" yaml:"mysql"`
	Debug  bool           `mapstructure:"debug" yaml:"debug"` // log every statement at trace level
}

// SQLiteSettings contains settings for the SQLite database.
type SQLiteSettings struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// MySQLSettings contains settings for the MySQL database.
type MySQLSettings struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	Database string `mapstructure:"database" yaml:"database"`
}

// InferenceSettings controls how inference module endpoints are polled.
type InferenceSettings struct {
	MetricsTimeout time.Duration `mapstructure:"metrics_timeout" yaml:"metrics_timeout"`
}

// TrainingSettings points at the remote training subsystem.
type TrainingSettings struct {
	Endpoint string        `mapstructure:"endpoint" yaml:"endpoint"` // empty disables remote triggering
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// MediaSettings controls where uploaded relabel images are stored.
type MediaSettings struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// MQTTSettings contains settings for status publishing over MQTT.
type MQTTSettings struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Broker   string `mapstructure:"broker" yaml:"broker"`
	Topic    string `mapstructure:"topic" yaml:"topic"` // topic prefix
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	ClientID string `mapstructure:"clientid" yaml:"clientid"`
	QoS      byte   `mapstructure:"qos" yaml:"qos"`
	Retain   bool   `mapstructure:"retain" yaml:"retain"`
}

// SentrySettings controls optional error telemetry.
type SentrySettings struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	DSN         string `mapstructure:"dsn" yaml:"dsn"`
	Environment string `mapstructure:"environment" yaml:"environment"`
}

// LoggingSettings controls the central logger.
type LoggingSettings struct {
	Level        string            `mapstructure:"level" yaml:"level"`
	Timezone     string            `mapstructure:"timezone" yaml:"timezone"`
	FileEnabled  bool              `mapstructure:"file_enabled" yaml:"file_enabled"`
	FilePath     string            `mapstructure:"file_path" yaml:"file_path"`
	ModuleLevels map[string]string `mapstructure:"module_levels" yaml:"module_levels"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads defaults, the configuration file and PARTDETECT_ environment
// variables into a validated Settings. An empty configFile searches the
// default config paths; a missing file is not an error.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := initViper(configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal_settings").
			Build()
	}
	settings.ConfigFile = viper.ConfigFileUsed()

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper registers defaults and env bindings, then reads the config file.
func initViper(configFile string) error {
	setDefaultConfig()

	if err := bindEnvVars(); err != nil {
		GetLogger().Warn("environment configuration problems", errorField(err))
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		configPaths, err := GetDefaultConfigPaths()
		if err != nil {
			return fmt.Errorf("error getting default config paths: %w", err)
		}
		for _, path := range configPaths {
			viper.AddConfigPath(path)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			GetLogger().Info("no config file found, using defaults and environment")
			return nil
		}
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryFileParsing).
			Context("config_file", configFile).
			Build()
	}

	return nil
}

// GetSettings returns the most recently loaded settings, or nil.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveYAMLConfig writes settings to configPath atomically via a temp file rename.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryFileParsing).
			Context("operation", "marshal_settings").
			Build()
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temp config file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("error writing temp config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error closing temp config file: %w", err)
	}
	if err := os.Rename(tmpName, configPath); err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryFileIO).
			Context("config_path", configPath).
			Build()
	}
	return nil
}
