package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/canopy-ai/canopy/internal/domain"
	"github.com/canopy-ai/canopy/internal/service"
)

// CreateTree creates a tree with its root branch.
// POST /v1/trees
func (h *Handler) CreateTree(c echo.Context) error {
	var req service.CreateTreeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	ctx := c.Request().Context()
	tree, root, err := h.service.CreateTree(ctx, req)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"tree":        tree,
		"root_branch": root,
	})
}

// GetTree retrieves a tree.
// GET /v1/trees/:tree_id
func (h *Handler) GetTree(c echo.Context) error {
	ctx := c.Request().Context()
	tree, err := h.service.GetTree(ctx, c.Param("tree_id"))
	if errors.Is(err, domain.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "tree not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, tree)
}

// ArchiveTree marks a tree archived.
// POST /v1/trees/:tree_id/archive
func (h *Handler) ArchiveTree(c echo.Context) error {
	ctx := c.Request().Context()
	err := h.service.ArchiveTree(ctx, c.Param("tree_id"))
	if errors.Is(err, domain.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "tree not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]bool{"archived": true})
}

// ListTreeBranches lists all branches of a tree.
// GET /v1/trees/:tree_id/branches
func (h *Handler) ListTreeBranches(c echo.Context) error {
	ctx := c.Request().Context()
	branches, err := h.service.ListTreeBranches(ctx, c.Param("tree_id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"branches": branches})
}
