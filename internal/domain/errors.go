package domain

import "errors"

// Structural errors surfaced synchronously by the tree/branch model. They
// indicate a data-integrity violation and are never silently ignored.
var (
	ErrInvalidParent    = errors.New("invalid parent branch")
	ErrInvalidForkPoint = errors.New("invalid fork point message")
	ErrNotFound         = errors.New("not found")
)
