// Package httpserver owns the echo instance of the part detection service:
// listener settings, shared middleware and lifecycle.
package httpserver

import (
	"net"
	"time"

	"github.com/tphakala/partdetect/internal/conf"
	"github.com/tphakala/partdetect/internal/logger"
)

// GetLogger returns the httpserver module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("httpserver")
}

// Default constants for the HTTP server.
const (
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Config holds the HTTP server configuration.
type Config struct {
	Host string // empty binds all interfaces
	Port string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:            "8080",
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// ConfigFromSettings builds a Config from the webserver settings. Zero
// values keep the defaults.
func ConfigFromSettings(s *conf.WebServerSettings) *Config {
	cfg := DefaultConfig()
	if s == nil {
		return cfg
	}
	if s.Port != "" {
		cfg.Port = s.Port
	}
	if s.ReadTimeout > 0 {
		cfg.ReadTimeout = s.ReadTimeout
	}
	if s.WriteTimeout > 0 {
		cfg.WriteTimeout = s.WriteTimeout
	}
	return cfg
}

// Address returns host:port for the listener.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}
