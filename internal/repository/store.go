// Package store defines the storage interface and implementations.
package store

import (
	"context"

	"github.com/canopy-ai/canopy/internal/domain"
)

// Store defines the interface for data persistence.
type Store interface {
	// Tree operations
	CreateTree(ctx context.Context, tree *domain.Tree, root *domain.Branch) error
	GetTree(ctx context.Context, treeID string) (*domain.Tree, error)
	SetTreeArchived(ctx context.Context, treeID string, archived bool) error

	// Branch operations
	ForkBranch(ctx context.Context, branch *domain.Branch) error
	GetBranch(ctx context.Context, branchID string) (*domain.Branch, error)
	GetBranchBySession(ctx context.Context, sessionID string) (*domain.Branch, error)
	ListTreeBranches(ctx context.Context, treeID string) ([]domain.Branch, error)
	ListBranchChildren(ctx context.Context, branchID string) ([]domain.Branch, error)
	ListBranchSiblings(ctx context.Context, branchID string) ([]domain.Branch, error)
	UpdateBranchStatus(ctx context.Context, branchID string, status domain.BranchStatus) error
	UpdateBranchSummary(ctx context.Context, branchID string, summary string) error
	UpdateBranchContextSnapshot(ctx context.Context, branchID string, snapshot string) error
	SetBranchCollapsed(ctx context.Context, branchID string, collapsed bool) error

	// Message operations
	CreateMessage(ctx context.Context, message *domain.Message) error
	GetMessage(ctx context.Context, messageID string) (*domain.Message, error)
	GetMessages(ctx context.Context, sessionID string) ([]domain.Message, error)
	GetMessageStats(ctx context.Context, sessionID string) (*domain.MessageStats, error)

	// Checkpoint operations
	CreateCheckpoint(ctx context.Context, cp *domain.Checkpoint) error
	LatestCheckpoint(ctx context.Context, sessionID string) (*domain.Checkpoint, error)
	CountCheckpoints(ctx context.Context, sessionID string) (int, error)
	ListCheckpoints(ctx context.Context, sessionID string) ([]domain.Checkpoint, error)

	// Event operations
	CreateEvents(ctx context.Context, events []domain.Event) error
	GetRecentEvents(ctx context.Context, branchID string, limit int) ([]domain.Event, error)
	GetEventsSince(ctx context.Context, branchID string, sinceTs int64) ([]domain.Event, error)
	GetToolEvents(ctx context.Context, branchID string) ([]domain.Event, error)
	CountEventsByType(ctx context.Context, branchID string) ([]domain.EventTypeCount, error)
	PruneEvents(ctx context.Context, beforeTs int64) (int64, error)

	// Lifecycle
	Close() error
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)
