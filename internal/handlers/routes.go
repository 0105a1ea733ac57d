package handlers

import (
	"context"
	"net/http"

	"evacconsole/internal/models"

	"github.com/gin-gonic/gin"
)

// RoutesResponse is the working route list of a floor.
type RoutesResponse struct {
	FloorID string         `json:"floorId"`
	Routes  []models.Route `json:"routes"`
	// Hazardous lists the routes that exceed their hazard thresholds.
	Hazardous []models.Route `json:"hazardous,omitempty"`
	// ComputedAt is omitted when the backend has no computation yet.
	ComputedAt string `json:"computedAt,omitempty"`
}

// @Summary      Route history
// @Description  Keeps only the routes of the most recent computation.
// @Tags         routes
// @Produce      json
// @Param        floorId  path      string  true  "Floor ID"
// @Success      200  {object}  RoutesResponse
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]interface{}
// @Router       /api/v1/routes/{floorId}/history [get]
func (h *Handler) routeHistory(c *gin.Context) {
	h.respondRoutes(c, "routes_history_failed", h.services.Routes.FetchHistory)
}

// @Summary      Latest routes
// @Tags         routes
// @Produce      json
// @Param        floorId  path      string  true   "Floor ID"
// @Param        start    query     string  false  "Only routes leaving this node"
// @Success      200  {object}  RoutesResponse
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]interface{}
// @Router       /api/v1/routes/{floorId}/latest [get]
func (h *Handler) latestRoutes(c *gin.Context) {
	h.respondRoutes(c, "routes_latest_failed", h.services.Routes.FetchLatest)
}

// @Summary      Compute routes
// @Description  Triggers a route computation on the backend.
// @Tags         routes
// @Produce      json
// @Param        floorId  path      string  true  "Floor ID"
// @Success      200  {object}  RoutesResponse
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]interface{}
// @Router       /api/v1/routes/{floorId}/compute [post]
func (h *Handler) computeRoutes(c *gin.Context) {
	h.respondRoutes(c, "routes_compute_failed", h.services.Routes.Compute)
}

func (h *Handler) respondRoutes(c *gin.Context, logKey string, load func(context.Context, string) ([]models.Route, error)) {
	floorID := c.Param("floorId")
	routes, err := load(c.Request.Context(), floorID)
	if err != nil {
		h.storeError(c, logKey, err, "floor_id", floorID)
		return
	}
	if start := c.Query("start"); start != "" {
		routes = h.services.Routes.RoutesFrom(start)
	}
	resp := RoutesResponse{FloorID: floorID, Routes: routes, Hazardous: h.services.Routes.HazardousRoutes()}
	if resp.Routes == nil {
		resp.Routes = []models.Route{}
	}
	if snap := h.services.Routes.Snapshot(); snap.ComputedAt != nil && snap.FloorID == floorID {
		resp.ComputedAt = snap.ComputedAt.UTC().Format(timeLayout)
	}
	c.JSON(http.StatusOK, resp)
}
