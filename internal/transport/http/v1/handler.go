// Package v1 provides HTTP handlers for the canopy API.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/canopy-ai/canopy/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Tree API
	e.POST("/v1/trees", h.CreateTree)
	e.GET("/v1/trees/:tree_id", h.GetTree)
	e.POST("/v1/trees/:tree_id/archive", h.ArchiveTree)
	e.GET("/v1/trees/:tree_id/branches", h.ListTreeBranches)

	// Branch API
	e.POST("/v1/trees/:tree_id/fork", h.ForkBranch)
	e.GET("/v1/branches/:branch_id", h.GetBranch)
	e.GET("/v1/branches/:branch_id/children", h.ListChildren)
	e.GET("/v1/branches/:branch_id/siblings", h.ListSiblings)
	e.GET("/v1/branches/:branch_id/path", h.GetPath)
	e.POST("/v1/branches/:branch_id/complete", h.CompleteBranch)

	// Message API
	e.POST("/v1/sessions/:session_id/messages", h.AppendMessage)
	e.GET("/v1/sessions/:session_id/messages", h.GetMessages)

	// Pressure and rotation API
	e.GET("/v1/sessions/:session_id/pressure", h.GetPressure)
	e.POST("/v1/sessions/:session_id/rotate", h.Rotate)
	e.GET("/v1/sessions/:session_id/checkpoints", h.GetCheckpoints)

	// Event API
	e.GET("/v1/branches/:branch_id/events", h.GetEvents)
	e.GET("/v1/branches/:branch_id/events/counts", h.GetEventCounts)
	e.POST("/v1/events/flush", h.FlushEvents)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
