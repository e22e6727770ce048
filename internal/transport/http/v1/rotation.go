package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/canopy-ai/canopy/internal/domain"
)

// GetPressure evaluates context pressure for a session from persisted
// aggregate statistics.
// GET /v1/sessions/:session_id/pressure?tool_events=N
func (h *Handler) GetPressure(c echo.Context) error {
	toolEvents := 0
	if v := c.QueryParam("tool_events"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			toolEvents = n
		}
	}

	ctx := c.Request().Context()
	estimate, err := h.service.SessionPressure(ctx, c.Param("session_id"), toolEvents)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"estimate":      estimate,
		"should_rotate": estimate.ShouldRotate(),
	})
}

// Rotate runs the rotation protocol for a session. With force=true the
// pressure check is skipped; otherwise rotation happens only above the
// threshold.
// POST /v1/sessions/:session_id/rotate?tool_events=N&force=true
func (h *Handler) Rotate(c echo.Context) error {
	sessionID := c.Param("session_id")
	toolEvents := 0
	if v := c.QueryParam("tool_events"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			toolEvents = n
		}
	}
	force := c.QueryParam("force") == "true"

	ctx := c.Request().Context()
	branch, err := h.service.BranchForSession(ctx, sessionID)
	if errors.Is(err, domain.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no branch for session"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	messages, err := h.service.GetMessages(ctx, sessionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	var checkpoint string
	if force {
		checkpoint, err = h.service.ForceRotate(ctx, sessionID, branch.BranchID, messages, toolEvents)
	} else {
		checkpoint, err = h.service.RotateIfNeeded(ctx, sessionID, branch.BranchID, messages, toolEvents)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"rotated":    checkpoint != "",
		"checkpoint": checkpoint,
	})
}

// GetCheckpoints returns the latest checkpoint and rotation count for a
// session.
// GET /v1/sessions/:session_id/checkpoints
func (h *Handler) GetCheckpoints(c echo.Context) error {
	sessionID := c.Param("session_id")
	ctx := c.Request().Context()

	latest, err := h.service.LatestCheckpoint(ctx, sessionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	count, err := h.service.RotationCount(ctx, sessionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"latest":         latest,
		"rotation_count": count,
	})
}
