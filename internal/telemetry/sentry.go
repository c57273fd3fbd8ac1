// Package telemetry initialises optional Sentry error reporting and wires it
// into the errors package.
package telemetry

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/partdetect/internal/conf"
	"github.com/tphakala/partdetect/internal/errors"
	"github.com/tphakala/partdetect/internal/logger"
)

const flushTimeout = 2 * time.Second

var sentryInitialized atomic.Bool

// Options tune Sentry client creation. Transport is nil in production.
type Options struct {
	Release   string
	Transport sentry.Transport
}

// Init configures Sentry when settings.Enabled is set and installs the
// errors package reporter. A disabled configuration uninstalls it.
func Init(settings conf.SentrySettings, opts Options) error {
	if !settings.Enabled {
		errors.SetTelemetryReporter(nil)
		sentryInitialized.Store(false)
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.DSN,
		Transport:        opts.Transport,
		Environment:      settings.Environment,
		Release:          opts.Release,
		SampleRate:       1.0,
		AttachStacktrace: false,
		ServerName:       "", // keep hostnames out of events
		BeforeSend:       scrubEvent,
	})
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}

	errors.SetPrivacyScrubber(logger.RedactURLCredentials)
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	sentryInitialized.Store(true)

	logger.Global().Module("telemetry").Info("sentry telemetry enabled",
		logger.String("environment", settings.Environment))
	return nil
}

// IsEnabled reports whether Sentry was initialised.
func IsEnabled() bool {
	return sentryInitialized.Load()
}

// Flush drains buffered events; call on shutdown.
func Flush() {
	if sentryInitialized.Load() {
		sentry.Flush(flushTimeout)
	}
}

// scrubEvent removes request data and credentials before an event leaves the process.
func scrubEvent(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.ServerName = ""
	event.Request = nil
	event.User = sentry.User{}
	event.Message = logger.RedactURLCredentials(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = logger.RedactURLCredentials(event.Exception[i].Value)
	}
	return event
}
