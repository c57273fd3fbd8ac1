package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"

	"github.com/tphakala/partdetect/internal/datastore/entities"
)

const scenarioCacheKey = "pd-scenarios"

// ScenarioResponse is the API representation of a preset scenario.
type ScenarioResponse struct {
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	InferenceMode string `json:"inference_mode"`
	ProjectID     *uint  `json:"project"`
}

func (c *Controller) initScenarioRoutes() {
	c.Group.GET("/pd-scenarios", c.ListScenarios)
}

// ListScenarios handles GET /api/v2/pd-scenarios
//
// Scenarios are seeded presets, so the list is cached for
// webserver.scenariocachettl.
func (c *Controller) ListScenarios(ctx echo.Context) error {
	if cached, found := c.scenarioCache.Get(scenarioCacheKey); found {
		if resp, hit := cached.([]ScenarioResponse); hit {
			return ctx.JSON(http.StatusOK, resp)
		}
	}

	scenarios, err := c.scenarios.List(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list scenarios", http.StatusInternalServerError)
	}

	resp := toScenarioResponses(scenarios)
	c.scenarioCache.Set(scenarioCacheKey, resp, cache.DefaultExpiration)
	return ctx.JSON(http.StatusOK, resp)
}

func toScenarioResponses(scenarios []entities.PDScenario) []ScenarioResponse {
	resp := make([]ScenarioResponse, 0, len(scenarios))
	for _, s := range scenarios {
		resp = append(resp, ScenarioResponse{
			ID:            s.ID,
			Name:          s.Name,
			InferenceMode: s.InferenceMode,
			ProjectID:     s.ProjectID,
		})
	}
	return resp
}
