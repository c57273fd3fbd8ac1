// Package app assembles the part detection service from its settings and
// runs it until the context ends.
package app

import (
	"context"
	"net/http"
	"time"

	api "github.com/tphakala/partdetect/internal/api/v2"
	"github.com/tphakala/partdetect/internal/buildinfo"
	"github.com/tphakala/partdetect/internal/conf"
	"github.com/tphakala/partdetect/internal/datastore"
	"github.com/tphakala/partdetect/internal/datastore/repository"
	"github.com/tphakala/partdetect/internal/errors"
	"github.com/tphakala/partdetect/internal/httpclient"
	"github.com/tphakala/partdetect/internal/httpserver"
	"github.com/tphakala/partdetect/internal/logger"
	"github.com/tphakala/partdetect/internal/mqtt"
	"github.com/tphakala/partdetect/internal/observability"
	"github.com/tphakala/partdetect/internal/partdetection"
	"github.com/tphakala/partdetect/internal/telemetry"
	"github.com/tphakala/partdetect/internal/training"
)

// GetLogger returns the app module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("app")
}

// shutdownTimeout bounds Run's cleanup after the context ends.
const shutdownTimeout = 30 * time.Second

// App is a fully wired service.
type App struct {
	settings *conf.Settings
	log      logger.Logger

	db      datastore.Manager
	http    *httpclient.Client
	mqtt    mqtt.Client // nil when mqtt is disabled
	trainer *training.RemoteTrainer
	server  *httpserver.Server
}

// New opens the database, connects to the broker when enabled and
// registers the HTTP routes. Nothing is served until Run.
func New(ctx context.Context, settings *conf.Settings, build *buildinfo.Context) (*App, error) {
	log := GetLogger()

	if err := telemetry.Init(settings.Sentry, telemetry.Options{Release: build.Version()}); err != nil {
		log.Warn("sentry disabled", logger.Error(err))
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		return nil, err
	}

	db, err := datastore.Open(settings, nil)
	if err != nil {
		return nil, err
	}
	// Created before any network client so a failure only has the database to close.
	media, err := partdetection.NewFileMediaStore(settings.Media.Path)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	a := &App{
		settings: settings,
		log:      log,
		db:       db,
		http: httpclient.New(&httpclient.Config{
			DefaultTimeout: settings.Inference.MetricsTimeout,
			UserAgent:      build.UserAgent(),
		}),
	}

	// A nil interface keeps the training package on its no-op publisher.
	var publisher training.Publisher
	if settings.MQTT.Enabled {
		a.mqtt = mqtt.NewClient(mqtt.ConfigFromSettings(&settings.MQTT), metrics.MQTT, nil)
		if err := a.mqtt.Connect(ctx); err != nil {
			// Status events are best effort; the service runs without them.
			log.Warn("mqtt broker unavailable, status events disabled until the next restart",
				logger.String("broker", logger.SanitizeURL(settings.MQTT.Broker)),
				logger.Error(err))
		}
		publisher = a.mqtt
	}

	gdb := db.DB()
	partDetections := repository.NewPartDetectionRepository(gdb)
	projects := repository.NewProjectRepository(gdb)
	deploys := repository.NewDeployStatusRepository(gdb)

	status := training.NewStatusStore(repository.NewTrainingStatusRepository(gdb), publisher, nil)
	a.trainer = training.NewRemoteTrainer(settings.Training.Endpoint, settings.Training.Timeout, a.http, status, nil)
	deployer := training.NewDeployer(training.DeployerDeps{
		Configs:   partDetections,
		Projects:  projects,
		Deploys:   deploys,
		Status:    status,
		Publisher: publisher,
	})

	recorder := metrics.PartDetection
	orchestrator := partdetection.NewOrchestrator(partdetection.OrchestratorDeps{
		Configs:  partDetections,
		Status:   status,
		Trainer:  a.trainer,
		Deployer: deployer,
		Cameras:  training.NewCameraSyncer(partDetections, publisher, nil),
		Recorder: recorder,
	})
	metricsClient := partdetection.NewMetricsClient(a.http, recorder, nil)

	a.server = httpserver.New(httpserver.ConfigFromSettings(&settings.WebServer),
		httpserver.WithMiddleware(metrics.EchoMiddleware()))

	api.New(a.server.Echo, api.Deps{
		Settings:       settings,
		PartDetections: partDetections,
		Scenarios:      repository.NewScenarioRepository(gdb),
		Workflow:       orchestrator,
		Exporter:       partdetection.NewExportReporter(partDetections, deploys, metricsClient, nil),
		Admitter:       partdetection.NewAdmissionPolicy(partDetections, repository.NewImageRepository(gdb), media, recorder, nil),
		Completions:    deployer,
		TrainingStatus: status,
		Metrics:        metrics,
		Ping:           a.ping,
	})

	log.Info("service assembled",
		logger.String("version", build.Version()),
		logger.String("database", settings.Database.Type),
		logger.Bool("mqtt", settings.MQTT.Enabled),
		logger.Bool("remote_training", settings.Training.Endpoint != ""))
	return a, nil
}

// Handler serves the API without a listener.
func (a *App) Handler() http.Handler {
	return a.server.Echo
}

// Run serves until ctx ends or the listener fails, then shuts down.
func (a *App) Run(ctx context.Context) error {
	a.server.Start()

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case runErr = <-a.server.Errors():
	}

	// ctx is already done; cleanup gets its own deadline.
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return errors.Join(runErr, a.Shutdown(shutdownCtx))
}

// Shutdown stops the listener, waits for training triggers and releases
// the broker connection and the database.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.server.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := a.trainer.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.mqtt != nil {
		a.mqtt.Disconnect()
	}
	a.http.Close()
	if err := a.db.Close(); err != nil {
		errs = append(errs, err)
	}
	telemetry.Flush()

	a.log.Info("service stopped")
	return errors.Join(errs...)
}

func (a *App) ping(ctx context.Context) error {
	sqlDB, err := a.db.DB().DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
