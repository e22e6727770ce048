package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// AppendMessage appends a message to a session's log.
// POST /v1/sessions/:session_id/messages
func (h *Handler) AppendMessage(c echo.Context) error {
	var req struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	ctx := c.Request().Context()
	msg, err := h.service.AppendMessage(ctx, c.Param("session_id"), req.Role, req.Content)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, msg)
}

// GetMessages retrieves messages for a session.
// GET /v1/sessions/:session_id/messages
func (h *Handler) GetMessages(c echo.Context) error {
	ctx := c.Request().Context()
	messages, err := h.service.GetMessages(ctx, c.Param("session_id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"messages": messages})
}
