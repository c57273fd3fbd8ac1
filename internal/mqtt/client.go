package mqtt

import (
	"context"
	"net"
	"net/url"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/tphakala/partdetect/internal/errors"
	"github.com/tphakala/partdetect/internal/logger"
)

// client implements the Client interface on top of paho.
type client struct {
	config          Config
	internalClient  pahomqtt.Client
	lastConnAttempt time.Time
	mu              sync.Mutex
	log             logger.Logger
	metrics         MetricsRecorder

	// newPaho builds the underlying client; replaced in tests.
	newPaho func(*pahomqtt.ClientOptions) pahomqtt.Client
}

// NewClient creates a new MQTT client with the provided configuration.
// metrics and log may be nil.
func NewClient(cfg Config, metrics MetricsRecorder, log logger.Logger) Client {
	if log == nil {
		log = GetLogger()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &client{
		config:  cfg,
		log:     log.With(logger.String("broker", logger.RedactURLCredentials(cfg.Broker))),
		metrics: metrics,
		newPaho: pahomqtt.NewClient,
	}
}

// Connect attempts to establish a connection to the MQTT broker.
// It first resolves the broker's hostname and then attempts to connect.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if since := time.Since(c.lastConnAttempt); since < c.config.ReconnectCooldown {
		return newMQTTError("connection attempt too recent, last attempt was %v ago", since).
			Context("operation", "connect").
			Build()
	}
	c.lastConnAttempt = time.Now()

	u, err := url.Parse(c.config.Broker)
	if err != nil || u.Hostname() == "" {
		return newMQTTError("invalid broker URL %q", logger.RedactURLCredentials(c.config.Broker)).
			Category(errors.CategoryConfiguration).
			Context("operation", "connect").
			Build()
	}

	if host := u.Hostname(); net.ParseIP(host) == nil {
		if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
			return errors.New(err).
				Component("mqtt").
				Category(errors.CategoryNetwork).
				Context("operation", "resolve_broker").
				Context("host", host).
				Build()
		}
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(c.config.ConnectTimeout)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)

	c.internalClient = c.newPaho(opts)

	if err := wait(ctx, c.internalClient.Connect(), c.config.ConnectTimeout); err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryNetwork).
			Context("operation", "connect").
			Build()
	}
	c.metrics.UpdateConnectionStatus(true)
	return nil
}

// Publish sends payload to the prefixed topic using the configured QoS and
// retain flag.
func (c *client) Publish(ctx context.Context, topic string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	full := c.config.FullTopic(topic)
	if !c.IsConnected() {
		return newMQTTError("not connected to MQTT broker").
			Context("topic", full).
			Build()
	}

	start := time.Now()
	token := c.internalClient.Publish(full, c.config.QoS, c.config.Retain, payload)
	err := wait(ctx, token, c.config.PublishTimeout)
	c.metrics.ObservePublish(time.Since(start), err)
	if err != nil {
		c.log.Warn("publish failed", logger.String("topic", full), logger.Error(err))
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("topic", full).
			Build()
	}

	c.log.Debug("published", logger.String("topic", full), logger.Int("bytes", len(payload)))
	return nil
}

// IsConnected returns true if the client is currently connected to the MQTT broker.
func (c *client) IsConnected() bool {
	return c.internalClient != nil && c.internalClient.IsConnected()
}

// Disconnect closes the connection to the MQTT broker.
func (c *client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.IsConnected() {
		c.internalClient.Disconnect(uint(c.config.DisconnectTimeout.Milliseconds()))
		c.metrics.UpdateConnectionStatus(false)
		c.log.Info("disconnected from MQTT broker")
	}
}

func (c *client) onConnect(pahomqtt.Client) {
	c.log.Info("connected to MQTT broker")
	c.metrics.UpdateConnectionStatus(true)
}

func (c *client) onConnectionLost(_ pahomqtt.Client, err error) {
	c.log.Warn("connection to MQTT broker lost", logger.Error(err))
	c.metrics.UpdateConnectionStatus(false)
}

// wait blocks until token completes, ctx is done or timeout elapses.
func wait(ctx context.Context, token pahomqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return context.DeadlineExceeded
	}
}

func newMQTTError(format string, args ...any) *errors.ErrorBuilder {
	return errors.Newf(format, args...).
		Component("mqtt").
		Category(errors.CategoryMQTTPublish)
}
