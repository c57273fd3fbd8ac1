// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.readtimeout", 30*time.Second)
	viper.SetDefault("webserver.writetimeout", 30*time.Second)
	viper.SetDefault("webserver.scenariocachettl", 5*time.Minute)
	viper.SetDefault("webserver.maxuploadsize", "10M")
	viper.SetDefault("webserver.uploadratelimit", 5.0)
	viper.SetDefault("webserver.uploadburst", 10)

	viper.SetDefault("database.type", "sqlite")
	viper.SetDefault("database.debug", false)
	viper.SetDefault("database.sqlite.path", "partdetect.db")
	viper.SetDefault("database.mysql.host", "localhost")
	viper.SetDefault("database.mysql.port", 3306)
	viper.SetDefault("database.mysql.username", "partdetect")
	viper.SetDefault("database.mysql.password", "")
	viper.SetDefault("database.mysql.database", "partdetect")

	viper.SetDefault("inference.metrics_timeout", 5*time.Second)

	viper.SetDefault("training.endpoint", "")
	viper.SetDefault("training.timeout", 30*time.Second)

	viper.SetDefault("media.path", "media/relabel")

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.topic", "partdetect")
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.clientid", "partdetect")
	viper.SetDefault("mqtt.qos", 1)
	viper.SetDefault("mqtt.retain", false)

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.environment", "production")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.file_enabled", false)
	viper.SetDefault("logging.file_path", "logs/partdetect.log")
	viper.SetDefault("logging.module_levels", map[string]string{})
}
