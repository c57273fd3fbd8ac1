package api

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/tphakala/partdetect/internal/datastore/entities"
	"github.com/tphakala/partdetect/internal/datastore/repository"
	"github.com/tphakala/partdetect/internal/errors"
	"github.com/tphakala/partdetect/internal/logger"
	"github.com/tphakala/partdetect/internal/partdetection"
)

// PartDetectionResponse is the API representation of a part detection.
type PartDetectionResponse struct {
	ID                uint     `json:"id"`
	Name              string   `json:"name"`
	HasConfigured     bool     `json:"has_configured"`
	ProbThreshold     int      `json:"prob_threshold"`
	AccuracyRangeMin  int      `json:"accuracy_range_min"`
	AccuracyRangeMax  int      `json:"accuracy_range_max"`
	ProjectID         *uint    `json:"project"`
	InferenceModuleID *uint    `json:"inference_module"`
	CameraID          *uint    `json:"camera"`
	Cameras           []uint   `json:"cameras"`
	Parts             []string `json:"parts"`
}

func toPartDetectionResponse(pd *entities.PartDetection) PartDetectionResponse {
	resp := PartDetectionResponse{
		ID:                pd.ID,
		Name:              pd.Name,
		HasConfigured:     pd.HasConfigured,
		ProbThreshold:     pd.ProbThreshold,
		AccuracyRangeMin:  pd.AccuracyRangeMin,
		AccuracyRangeMax:  pd.AccuracyRangeMax,
		ProjectID:         pd.ProjectID,
		InferenceModuleID: pd.InferenceModuleID,
		CameraID:          pd.CameraID,
		Cameras:           make([]uint, 0, len(pd.Cameras)),
		Parts:             make([]string, 0, len(pd.Parts)),
	}
	for _, cam := range pd.Cameras {
		resp.Cameras = append(resp.Cameras, cam.ID)
	}
	for _, part := range pd.Parts {
		resp.Parts = append(resp.Parts, part.Name)
	}
	return resp
}

func (c *Controller) initPartDetectionRoutes() {
	bodyLimit := c.Settings.WebServer.MaxUploadSize
	if bodyLimit == "" {
		bodyLimit = "10M"
	}

	g := c.Group.Group("/part-detections")
	g.GET("", c.ListPartDetections)
	g.GET("/:id", c.GetPartDetection)
	g.GET("/:id/configure", c.Configure)
	g.GET("/:id/export", c.Export)
	g.GET("/:id/update-prob-threshold", c.UpdateProbThreshold)
	g.GET("/:id/update-cam", c.UpdateCamera)
	g.POST("/:id/upload-relabel-image", c.UploadRelabelImage, c.uploadMiddleware(bodyLimit)...)
	g.POST("/:id/deploy-complete", c.DeployComplete)
}

// uploadRateWindow is how long an idle client's limiter is kept.
const uploadRateWindow = 3 * time.Minute

// uploadMiddleware limits upload size and, when configured, the upload rate
// of each client IP.
func (c *Controller) uploadMiddleware(bodyLimit string) []echo.MiddlewareFunc {
	mw := []echo.MiddlewareFunc{middleware.BodyLimit(bodyLimit)}

	perSecond := c.Settings.WebServer.UploadRateLimit
	if perSecond <= 0 {
		return mw
	}
	burst := max(c.Settings.WebServer.UploadBurst, 1)

	limiter := middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(perSecond),
				Burst:     burst,
				ExpiresIn: uploadRateWindow,
			},
		),
		IdentifierExtractor: middleware.DefaultRateLimiterConfig.IdentifierExtractor,
		ErrorHandler: func(ctx echo.Context, err error) error {
			return c.HandleError(ctx, err, "Failed to identify client", http.StatusForbidden)
		},
		DenyHandler: func(ctx echo.Context, identifier string, err error) error {
			return c.HandleError(ctx, err, "Too many relabel uploads, try again later", http.StatusTooManyRequests)
		},
	})
	// Rate limit first so rejected clients never stream a body.
	return append([]echo.MiddlewareFunc{limiter}, mw...)
}

// ListPartDetections handles GET /api/v2/part-detections
func (c *Controller) ListPartDetections(ctx echo.Context) error {
	pds, err := c.partDetections.List(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list part detections", http.StatusInternalServerError)
	}

	resp := make([]PartDetectionResponse, 0, len(pds))
	for i := range pds {
		resp = append(resp, toPartDetectionResponse(&pds[i]))
	}
	return ctx.JSON(http.StatusOK, resp)
}

// GetPartDetection handles GET /api/v2/part-detections/:id
func (c *Controller) GetPartDetection(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return c.handleDomainError(ctx, err, "Invalid part detection id")
	}

	pd, err := c.partDetections.Get(ctx.Request().Context(), id)
	if errors.Is(err, repository.ErrPartDetectionNotFound) {
		return c.HandleError(ctx, err, "Part detection not found", http.StatusNotFound)
	}
	if err != nil {
		return c.HandleError(ctx, err, "Failed to load part detection", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, toPartDetectionResponse(pd))
}

// Configure handles GET /api/v2/part-detections/:id/configure
//
// It acknowledges once training and deployment have been triggered; callers
// poll the export endpoint for progress.
func (c *Controller) Configure(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return c.handleDomainError(ctx, err, "Invalid part detection id")
	}
	if err := c.workflow.Configure(ctx.Request().Context(), id); err != nil {
		return c.handleDomainError(ctx, err, "Failed to configure part detection")
	}
	return ok(ctx)
}

// Export handles GET /api/v2/part-detections/:id/export
func (c *Controller) Export(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return c.handleDomainError(ctx, err, "Invalid part detection id")
	}
	snapshot, err := c.exporter.BuildExportSnapshot(ctx.Request().Context(), id)
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to export part detection status")
	}
	return ctx.JSON(http.StatusOK, snapshot)
}

// UpdateProbThreshold handles GET /api/v2/part-detections/:id/update-prob-threshold?prob_threshold=N
func (c *Controller) UpdateProbThreshold(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return c.handleDomainError(ctx, err, "Invalid part detection id")
	}
	raw := ctx.QueryParam("prob_threshold")
	if err := c.workflow.UpdateProbThreshold(ctx.Request().Context(), id, raw); err != nil {
		return c.handleDomainError(ctx, err, "Failed to update prob threshold")
	}
	return ok(ctx)
}

// UpdateCamera handles GET /api/v2/part-detections/:id/update-cam
func (c *Controller) UpdateCamera(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return c.handleDomainError(ctx, err, "Invalid part detection id")
	}
	if err := c.workflow.UpdateCamera(ctx.Request().Context(), id); err != nil {
		return c.handleDomainError(ctx, err, "Failed to update cameras")
	}
	return ok(ctx)
}

// UploadRelabelImage handles POST /api/v2/part-detections/:id/upload-relabel-image
//
// Multipart fields: img (file), part_name, labels, confidence.
func (c *Controller) UploadRelabelImage(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return c.handleDomainError(ctx, err, "Invalid part detection id")
	}

	partName := strings.TrimSpace(ctx.FormValue("part_name"))
	if partName == "" {
		return c.HandleError(ctx, nil, "part_name is required", http.StatusBadRequest)
	}
	confidence, err := strconv.ParseFloat(strings.TrimSpace(ctx.FormValue("confidence")), 64)
	if err != nil || math.IsNaN(confidence) || math.IsInf(confidence, 0) {
		return c.HandleError(ctx, err, "confidence must be a number", http.StatusBadRequest)
	}
	labels := ctx.FormValue("labels")
	if labels == "" {
		return c.HandleError(ctx, nil, "labels is required", http.StatusBadRequest)
	}

	fileHeader, err := ctx.FormFile("img")
	if err != nil {
		return c.HandleError(ctx, err, "img file is required", http.StatusBadRequest)
	}
	file, err := fileHeader.Open()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to read uploaded image", http.StatusBadRequest)
	}
	defer func() { _ = file.Close() }()

	result, err := c.admitter.Admit(ctx.Request().Context(), partdetection.RelabelRequest{
		ConfigID:   id,
		PartName:   partName,
		Confidence: confidence,
		Labels:     labels,
		Image:      file,
	})
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to upload relabel image")
	}

	c.logger.Debug("relabel image admitted",
		logger.Uint("part_detection_id", id),
		logger.String("decision", string(result.Decision)),
		logger.Int("evicted", result.Evicted))
	return ok(ctx)
}

// CompletionRequest is the body of the completion callbacks.
type CompletionRequest struct {
	Success *bool `json:"success"`
}

func (c *Controller) bindCompletion(ctx echo.Context) (bool, error) {
	var req CompletionRequest
	if err := ctx.Bind(&req); err != nil {
		return false, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Success == nil {
		return false, echo.NewHTTPError(http.StatusBadRequest, "success is required")
	}
	return *req.Success, nil
}

// DeployComplete handles POST /api/v2/part-detections/:id/deploy-complete
func (c *Controller) DeployComplete(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return c.handleDomainError(ctx, err, "Invalid part detection id")
	}
	success, err := c.bindCompletion(ctx)
	if err != nil {
		return c.handleDomainError(ctx, err, "Invalid deploy completion")
	}
	if err := c.completions.CompleteDeployment(ctx.Request().Context(), id, success); err != nil {
		return c.handleDomainError(ctx, err, "Failed to record deployment completion")
	}
	return ok(ctx)
}
