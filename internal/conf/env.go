// env.go - environment variable configuration and validation
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable override.
const EnvPrefix = "PARTDETECT"

type envBinding struct {
	ConfigKey string
	EnvVar    string
	Validate  func(string) error
}

func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "PARTDETECT_DEBUG", validateEnvBool},
		{"webserver.port", "PARTDETECT_WEBSERVER_PORT", validateEnvPort},
		{"database.type", "PARTDETECT_DATABASE_TYPE", validateEnvDatabaseType},
		{"database.sqlite.path", "PARTDETECT_DATABASE_SQLITE_PATH", nil},
		{"database.mysql.host", "PARTDETECT_DATABASE_MYSQL_HOST", nil},
		{"database.mysql.port", "PARTDETECT_DATABASE_MYSQL_PORT", validateEnvPort},
		{"database.mysql.username", "PARTDETECT_DATABASE_MYSQL_USERNAME", nil},
		{"database.mysql.password", "PARTDETECT_DATABASE_MYSQL_PASSWORD", nil},
		{"database.mysql.database", "PARTDETECT_DATABASE_MYSQL_DATABASE", nil},
		{"inference.metrics_timeout", "PARTDETECT_INFERENCE_METRICS_TIMEOUT", validateEnvDuration},
		{"training.endpoint", "PARTDETECT_TRAINING_ENDPOINT", nil},
		{"training.timeout", "PARTDETECT_TRAINING_TIMEOUT", validateEnvDuration},
		{"media.path", "PARTDETECT_MEDIA_PATH", nil},
		{"mqtt.enabled", "PARTDETECT_MQTT_ENABLED", validateEnvBool},
		{"mqtt.broker", "PARTDETECT_MQTT_BROKER", nil},
		{"mqtt.username", "PARTDETECT_MQTT_USERNAME", nil},
		{"mqtt.password", "PARTDETECT_MQTT_PASSWORD", nil},
		{"sentry.enabled", "PARTDETECT_SENTRY_ENABLED", validateEnvBool},
		{"sentry.dsn", "PARTDETECT_SENTRY_DSN", nil},
		{"logging.level", "PARTDETECT_LOGGING_LEVEL", validateEnvLogLevel},
	}
}

// bindEnvVars binds the explicit overrides and reports invalid values.
// Invalid values are still bound; ValidateSettings gets the final word.
func bindEnvVars() error {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var warnings []string
	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to bind %s: %v", binding.EnvVar, err))
			continue
		}
		if binding.Validate == nil {
			continue
		}
		if value := os.Getenv(binding.EnvVar); value != "" {
			if err := binding.Validate(value); err != nil {
				warnings = append(warnings, fmt.Sprintf("invalid %s value %q: %v", binding.EnvVar, value, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("must be a port number between 1 and 65535")
	}
	return nil
}

func validateEnvDuration(value string) error {
	if _, err := time.ParseDuration(value); err != nil {
		return fmt.Errorf("must be a duration such as 5s or 1m")
	}
	return nil
}

func validateEnvDatabaseType(value string) error {
	switch value {
	case DatabaseSQLite, DatabaseMySQL:
		return nil
	default:
		return fmt.Errorf("must be %s or %s", DatabaseSQLite, DatabaseMySQL)
	}
}

func validateEnvLogLevel(value string) error {
	if !isValidLogLevel(value) {
		return fmt.Errorf("must be one of trace, debug, info, warn, error")
	}
	return nil
}
