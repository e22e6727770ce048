package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/canopy-ai/canopy/internal/domain"
)

// GetEvents retrieves events for a branch. With since_minutes set, returns
// events within that window oldest first; with tools_only=true, returns
// tool-lifecycle events; otherwise returns the most recent events.
// GET /v1/branches/:branch_id/events?limit=N&since_minutes=M&tools_only=true
func (h *Handler) GetEvents(c echo.Context) error {
	branchID := c.Param("branch_id")
	ctx := c.Request().Context()

	var events []domain.Event
	var err error
	switch {
	case c.QueryParam("tools_only") == "true":
		events, err = h.service.ToolEvents(ctx, branchID)
	case c.QueryParam("since_minutes") != "":
		minutes, convErr := strconv.Atoi(c.QueryParam("since_minutes"))
		if convErr != nil || minutes <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid since_minutes"})
		}
		events, err = h.service.EventsSince(ctx, branchID, minutes)
	default:
		limit := 100
		if l := c.QueryParam("limit"); l != "" {
			if val, convErr := strconv.Atoi(l); convErr == nil {
				limit = val
			}
		}
		events, err = h.service.RecentEvents(ctx, branchID, limit)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"events": events})
}

// GetEventCounts returns per-type event counts for a branch.
// GET /v1/branches/:branch_id/events/counts
func (h *Handler) GetEventCounts(c echo.Context) error {
	ctx := c.Request().Context()
	counts, err := h.service.EventCounts(ctx, c.Param("branch_id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"counts": counts})
}

// FlushEvents forces buffered events to durable storage.
// POST /v1/events/flush
func (h *Handler) FlushEvents(c echo.Context) error {
	if err := h.service.FlushEvents(c.Request().Context()); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]bool{"flushed": true})
}
