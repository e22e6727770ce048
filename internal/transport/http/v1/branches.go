package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/canopy-ai/canopy/internal/domain"
)

// ForkBranch creates a child branch from a parent, optionally anchored at a
// specific message.
// POST /v1/trees/:tree_id/fork
func (h *Handler) ForkBranch(c echo.Context) error {
	var req domain.ForkRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	ctx := c.Request().Context()
	branch, err := h.service.Fork(ctx, c.Param("tree_id"), req)
	if errors.Is(err, domain.ErrInvalidParent) || errors.Is(err, domain.ErrInvalidForkPoint) {
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	}
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, branch)
}

// GetBranch retrieves a branch.
// GET /v1/branches/:branch_id
func (h *Handler) GetBranch(c echo.Context) error {
	ctx := c.Request().Context()
	branch, err := h.service.GetBranch(ctx, c.Param("branch_id"))
	if errors.Is(err, domain.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "branch not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, branch)
}

// ListChildren lists the direct children of a branch.
// GET /v1/branches/:branch_id/children
func (h *Handler) ListChildren(c echo.Context) error {
	ctx := c.Request().Context()
	children, err := h.service.ListChildren(ctx, c.Param("branch_id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"branches": children})
}

// ListSiblings lists branches sharing the branch's parent.
// GET /v1/branches/:branch_id/siblings
func (h *Handler) ListSiblings(c echo.Context) error {
	ctx := c.Request().Context()
	siblings, err := h.service.ListSiblings(ctx, c.Param("branch_id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"branches": siblings})
}

// GetPath returns the chain of branches from the root to this branch.
// GET /v1/branches/:branch_id/path
func (h *Handler) GetPath(c echo.Context) error {
	ctx := c.Request().Context()
	path, err := h.service.PathFromRoot(ctx, c.Param("branch_id"))
	if errors.Is(err, domain.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "branch not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"path": path})
}

// CompleteBranch marks a branch completed or failed and generates its summary.
// POST /v1/branches/:branch_id/complete
func (h *Handler) CompleteBranch(c echo.Context) error {
	var req struct {
		Status domain.BranchStatus `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Status == "" {
		req.Status = domain.BranchStatusCompleted
	}

	ctx := c.Request().Context()
	branch, err := h.service.CompleteBranch(ctx, c.Param("branch_id"), req.Status)
	if errors.Is(err, domain.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "branch not found"})
	}
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, branch)
}
