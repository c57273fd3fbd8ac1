package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (c *Controller) initProjectRoutes() {
	g := c.Group.Group("/projects")
	g.GET("/:id/training-status", c.GetTrainingStatus)
	g.POST("/:id/training-complete", c.TrainingComplete)
}

// GetTrainingStatus handles GET /api/v2/projects/:id/training-status
func (c *Controller) GetTrainingStatus(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return c.handleDomainError(ctx, err, "Invalid project id")
	}
	status, err := c.trainingStatus.GetStatus(ctx.Request().Context(), id)
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to get training status")
	}
	return ctx.JSON(http.StatusOK, status)
}

// TrainingComplete handles POST /api/v2/projects/:id/training-complete
//
// The training subsystem calls it once a run finished; on success every
// configured part detection of the project is deployed.
func (c *Controller) TrainingComplete(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return c.handleDomainError(ctx, err, "Invalid project id")
	}
	success, err := c.bindCompletion(ctx)
	if err != nil {
		return c.handleDomainError(ctx, err, "Invalid training completion")
	}
	if err := c.completions.CompleteTraining(ctx.Request().Context(), id, success); err != nil {
		return c.handleDomainError(ctx, err, "Failed to record training completion")
	}
	return ok(ctx)
}
