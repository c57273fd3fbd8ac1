// Package mqtt publishes workflow status events to an MQTT broker.
package mqtt

import (
	"context"
	"strings"
	"time"

	"github.com/tphakala/partdetect/internal/conf"
	"github.com/tphakala/partdetect/internal/logger"
)

// Client defines the interface for MQTT client operations.
type Client interface {
	// Connect attempts to connect to the MQTT broker.
	Connect(ctx context.Context) error

	// Publish sends payload to topic, relative to the configured prefix.
	Publish(ctx context.Context, topic string, payload []byte) error

	// IsConnected returns true if the client is currently connected to the MQTT broker.
	IsConnected() bool

	// Disconnect closes the connection to the MQTT broker.
	Disconnect()
}

// MetricsRecorder receives connection and publish observations.
// *metrics.MQTTMetrics satisfies it.
type MetricsRecorder interface {
	UpdateConnectionStatus(connected bool)
	ObservePublish(elapsed time.Duration, err error)
}

type nopMetrics struct{}

func (nopMetrics) UpdateConnectionStatus(bool)         {}
func (nopMetrics) ObservePublish(time.Duration, error) {}

// Config holds the configuration for the MQTT client.
type Config struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
	Retain      bool

	ReconnectCooldown time.Duration
	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration
}

// DefaultConfig returns a Config with reasonable default values
func DefaultConfig() Config {
	return Config{
		ClientID:          "partdetect",
		QoS:               1,
		ReconnectCooldown: 5 * time.Second,
		ConnectTimeout:    30 * time.Second,
		PublishTimeout:    10 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
	}
}

// ConfigFromSettings builds a client Config from the mqtt settings section.
func ConfigFromSettings(s *conf.MQTTSettings) Config {
	cfg := DefaultConfig()
	cfg.Broker = s.Broker
	cfg.Username = s.Username
	cfg.Password = s.Password
	cfg.TopicPrefix = strings.Trim(s.Topic, "/")
	cfg.QoS = s.QoS
	cfg.Retain = s.Retain
	if s.ClientID != "" {
		cfg.ClientID = s.ClientID
	}
	return cfg
}

// FullTopic joins the configured prefix and topic.
func (c Config) FullTopic(topic string) string {
	topic = strings.Trim(topic, "/")
	if c.TopicPrefix == "" {
		return topic
	}
	return c.TopicPrefix + "/" + topic
}

// GetLogger returns the mqtt module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("mqtt")
}
