// conf/validate.go

package conf

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/gommon/bytes"
)

// Supported database backends.
const (
	DatabaseSQLite = "sqlite"
	DatabaseMySQL  = "mysql"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %s", strings.Join(ve.Errors, "; "))
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) error{
		validateWebServerSettings,
		validateDatabaseSettings,
		validateInferenceSettings,
		validateTrainingSettings,
		validateMQTTSettings,
		validateSentrySettings,
		validateLoggingSettings,
	}
	for _, validate := range validators {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateWebServerSettings(s *Settings) error {
	port, err := strconv.Atoi(s.WebServer.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("webserver.port must be a port number, got %q", s.WebServer.Port)
	}
	if s.WebServer.MaxUploadSize != "" {
		if size, err := bytes.Parse(s.WebServer.MaxUploadSize); err != nil || size <= 0 {
			return fmt.Errorf("webserver.maxuploadsize must be a size such as 10M, got %q", s.WebServer.MaxUploadSize)
		}
	}
	if s.WebServer.UploadRateLimit < 0 || s.WebServer.UploadBurst < 0 {
		return fmt.Errorf("webserver.uploadratelimit and webserver.uploadburst must not be negative")
	}
	return nil
}

func validateDatabaseSettings(s *Settings) error {
	switch s.Database.Type {
	case DatabaseSQLite:
		if s.Database.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path is required for sqlite")
		}
	case DatabaseMySQL:
		m := s.Database.MySQL
		if m.Host == "" || m.Database == "" || m.Username == "" {
			return fmt.Errorf("database.mysql host, database and username are required for mysql")
		}
		if m.Port < 1 || m.Port > 65535 {
			return fmt.Errorf("database.mysql.port must be a port number, got %d", m.Port)
		}
	default:
		return fmt.Errorf("database.type must be %s or %s, got %q", DatabaseSQLite, DatabaseMySQL, s.Database.Type)
	}
	return nil
}

func validateInferenceSettings(s *Settings) error {
	if s.Inference.MetricsTimeout <= 0 {
		return fmt.Errorf("inference.metrics_timeout must be positive")
	}
	return nil
}

func validateTrainingSettings(s *Settings) error {
	if s.Training.Endpoint != "" {
		u, err := url.Parse(s.Training.Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("training.endpoint must be an absolute URL, got %q", s.Training.Endpoint)
		}
	}
	if s.Training.Timeout <= 0 {
		return fmt.Errorf("training.timeout must be positive")
	}
	return nil
}

func validateMQTTSettings(s *Settings) error {
	if !s.MQTT.Enabled {
		return nil
	}
	if s.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	if s.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", s.MQTT.QoS)
	}
	return nil
}

func validateSentrySettings(s *Settings) error {
	if s.Sentry.Enabled && s.Sentry.DSN == "" {
		return fmt.Errorf("sentry.dsn is required when sentry is enabled")
	}
	return nil
}

func validateLoggingSettings(s *Settings) error {
	if !isValidLogLevel(s.Logging.Level) {
		return fmt.Errorf("logging.level %q is not a valid level", s.Logging.Level)
	}
	for module, level := range s.Logging.ModuleLevels {
		if !isValidLogLevel(level) {
			return fmt.Errorf("logging.module_levels.%s %q is not a valid level", module, level)
		}
	}
	return nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "trace", "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}
