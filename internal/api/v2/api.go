// internal/api/v2/api.go
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"

	"github.com/tphakala/partdetect/internal/conf"
	"github.com/tphakala/partdetect/internal/datastore/entities"
	"github.com/tphakala/partdetect/internal/errors"
	"github.com/tphakala/partdetect/internal/logger"
	"github.com/tphakala/partdetect/internal/observability"
	"github.com/tphakala/partdetect/internal/partdetection"
	"github.com/tphakala/partdetect/internal/training"
)

// Workflow runs the configure, threshold and camera operations.
// *partdetection.Orchestrator satisfies it.
type Workflow interface {
	Configure(ctx context.Context, configID uint) error
	UpdateProbThreshold(ctx context.Context, configID uint, raw string) error
	UpdateCamera(ctx context.Context, configID uint) error
}

// Exporter builds export snapshots. *partdetection.ExportReporter satisfies it.
type Exporter interface {
	BuildExportSnapshot(ctx context.Context, configID uint) (*partdetection.ExportSnapshot, error)
}

// Admitter admits relabel images. *partdetection.AdmissionPolicy satisfies it.
type Admitter interface {
	Admit(ctx context.Context, req partdetection.RelabelRequest) (*partdetection.AdmitResult, error)
}

// CompletionHandler receives training and deployment completion signals.
// *training.Deployer satisfies it.
type CompletionHandler interface {
	CompleteTraining(ctx context.Context, projectID uint, ok bool) error
	CompleteDeployment(ctx context.Context, configID uint, ok bool) error
}

// TrainingStatusReader reads project training progress.
// *training.StatusStore satisfies it.
type TrainingStatusReader interface {
	GetStatus(ctx context.Context, projectID uint) (*training.Status, error)
}

// PartDetectionReader lists and loads part detections.
type PartDetectionReader interface {
	Get(ctx context.Context, id uint) (*entities.PartDetection, error)
	List(ctx context.Context) ([]entities.PartDetection, error)
}

// ScenarioLister lists preset scenarios.
type ScenarioLister interface {
	List(ctx context.Context) ([]entities.PDScenario, error)
}

// Deps are the collaborators of the Controller. Metrics and Ping are optional.
type Deps struct {
	Settings       *conf.Settings
	PartDetections PartDetectionReader
	Scenarios      ScenarioLister
	Workflow       Workflow
	Exporter       Exporter
	Admitter       Admitter
	Completions    CompletionHandler
	TrainingStatus TrainingStatusReader
	Metrics        *observability.Metrics
	// Ping checks database connectivity for the health endpoint.
	Ping func(ctx context.Context) error
}

// Controller manages the API routes and handlers
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	Settings *conf.Settings

	partDetections PartDetectionReader
	scenarios      ScenarioLister
	workflow       Workflow
	exporter       Exporter
	admitter       Admitter
	completions    CompletionHandler
	trainingStatus TrainingStatusReader
	metrics        *observability.Metrics
	ping           func(ctx context.Context) error

	scenarioCache *cache.Cache
	startTime     time.Time
	logger        logger.Logger
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithLogger replaces the api module logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Controller) {
		c.logger = log
	}
}

// New creates the API controller and registers its routes on e.
func New(e *echo.Echo, deps Deps, opts ...Option) *Controller {
	ttl := deps.Settings.WebServer.ScenarioCacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	c := &Controller{
		Echo:           e,
		Group:          e.Group("/api/v2"),
		Settings:       deps.Settings,
		partDetections: deps.PartDetections,
		scenarios:      deps.Scenarios,
		workflow:       deps.Workflow,
		exporter:       deps.Exporter,
		admitter:       deps.Admitter,
		completions:    deps.Completions,
		trainingStatus: deps.TrainingStatus,
		metrics:        deps.Metrics,
		ping:           deps.Ping,
		scenarioCache:  cache.New(ttl, 2*ttl),
		startTime:      time.Now(),
		logger:         GetLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	// Health check endpoint - publicly accessible
	c.Group.GET("/health", c.HealthCheck)

	c.initPartDetectionRoutes()
	c.initProjectRoutes()
	c.initScenarioRoutes()

	if c.metrics != nil {
		c.Echo.GET("/metrics", echo.WrapHandler(c.metrics.Handler()))
	}
}

// StatusResponse is the uniform success envelope of mutation endpoints.
type StatusResponse struct {
	Status string `json:"status"`
}

func ok(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, StatusResponse{Status: "ok"})
}

// ErrorResponse represents a standardized error response for the API
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // Unique identifier for tracking this error
	Kind          string `json:"kind,omitempty"`
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}

	resp := &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: uuid.NewString(),
	}
	if kind := partdetection.KindOf(err); kind != "" {
		resp.Kind = string(kind)
	}
	return resp
}

// HandleError writes a standardized error response and logs it.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	errorResp := NewErrorResponse(err, message, code)

	log := c.logger.WithContext(ctx.Request().Context()).With(
		logger.String("correlation_id", errorResp.CorrelationID),
		logger.String("message", message),
		logger.String("error", errorResp.Error),
		logger.Int("code", code),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("method", ctx.Request().Method),
		logger.String("ip", ctx.RealIP()))
	if code >= http.StatusInternalServerError {
		log.Error("API error")
	} else {
		log.Warn("API request rejected")
	}

	return ctx.JSON(code, errorResp)
}

// handleDomainError writes err with the status derived from its kind or
// category.
func (c *Controller) handleDomainError(ctx echo.Context, err error, message string) error {
	var pdErr *partdetection.Error
	if errors.As(err, &pdErr) && pdErr.Detail != "" {
		message = pdErr.Detail
	}
	return c.HandleError(ctx, err, message, statusFor(err))
}

// statusFor maps an error to an HTTP status. Part detection kinds win over
// generic error categories.
func statusFor(err error) int {
	if kind := partdetection.KindOf(err); kind != "" {
		switch kind {
		case partdetection.KindNotFound:
			return http.StatusNotFound
		case partdetection.KindInferenceModuleUnreachable:
			return http.StatusServiceUnavailable
		default:
			return http.StatusBadRequest
		}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}

	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		switch ee.Category {
		case errors.CategoryNotFound:
			return http.StatusNotFound
		case errors.CategoryState, errors.CategoryConflict:
			return http.StatusConflict
		case errors.CategoryValidation, errors.CategoryPrecondition:
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

// parseID reads a positive numeric path parameter.
func parseID(ctx echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return uint(id), nil
}

// GetLogger returns the api module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}
