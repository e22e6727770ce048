package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/canopy-ai/canopy/internal/domain"
	"github.com/canopy-ai/canopy/internal/summarize"
)

// CreateTreeRequest is the input to CreateTree.
type CreateTreeRequest struct {
	Name             string `json:"name"`
	Project          string `json:"project,omitempty"`
	WorkingDirectory string `json:"working_directory,omitempty"`
	Model            string `json:"model,omitempty"`
}

// CreateTree creates a tree together with its root branch. Exactly one
// branch per tree has no parent; it is created here and only here.
func (s *Service) CreateTree(ctx context.Context, req CreateTreeRequest) (*domain.Tree, *domain.Branch, error) {
	if req.Name == "" {
		return nil, nil, fmt.Errorf("name is required")
	}

	now := time.Now()
	tree := &domain.Tree{
		TreeID:           "tree_" + uuid.New().String()[:8],
		Name:             req.Name,
		Project:          req.Project,
		WorkingDirectory: req.WorkingDirectory,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	root := &domain.Branch{
		BranchID:   "br_" + uuid.New().String()[:8],
		TreeID:     tree.TreeID,
		SessionID:  "sess_" + uuid.New().String()[:8],
		BranchType: domain.BranchTypeConversation,
		Status:     domain.BranchStatusActive,
		Model:      req.Model,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateTree(ctx, tree, root); err != nil {
		return nil, nil, fmt.Errorf("failed to create tree: %w", err)
	}

	s.events.Append(root.BranchID, root.SessionID, domain.EventTypeSessionStart, nil)
	return tree, root, nil
}

// GetTree retrieves a tree by ID.
func (s *Service) GetTree(ctx context.Context, treeID string) (*domain.Tree, error) {
	tree, err := s.store.GetTree(ctx, treeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}
	if tree == nil {
		return nil, domain.ErrNotFound
	}
	return tree, nil
}

// ArchiveTree marks a tree archived. Branches are never deleted while
// referenced; archival is the only removal path.
func (s *Service) ArchiveTree(ctx context.Context, treeID string) error {
	tree, err := s.store.GetTree(ctx, treeID)
	if err != nil {
		return fmt.Errorf("failed to get tree: %w", err)
	}
	if tree == nil {
		return domain.ErrNotFound
	}
	return s.store.SetTreeArchived(ctx, treeID, true)
}

// ListTreeBranches lists all branches of a tree in insertion order.
func (s *Service) ListTreeBranches(ctx context.Context, treeID string) ([]domain.Branch, error) {
	return s.store.ListTreeBranches(ctx, treeID)
}

// Fork creates a new branch under the given parent, optionally anchored at a
// specific message of the parent's session. Returns domain.ErrInvalidParent
// or domain.ErrInvalidForkPoint on structural violations.
func (s *Service) Fork(ctx context.Context, treeID string, req domain.ForkRequest) (*domain.Branch, error) {
	if req.ParentBranchID == "" {
		return nil, domain.ErrInvalidParent
	}
	branchType := req.BranchType
	if branchType == "" {
		branchType = domain.BranchTypeConversation
	}
	if !branchType.Valid() {
		return nil, fmt.Errorf("unknown branch type %q", req.BranchType)
	}

	now := time.Now()
	branch := &domain.Branch{
		BranchID:          "br_" + uuid.New().String()[:8],
		TreeID:            treeID,
		SessionID:         "sess_" + uuid.New().String()[:8],
		ParentBranchID:    req.ParentBranchID,
		ForkFromMessageID: req.ForkFromMessageID,
		BranchType:        branchType,
		Status:            domain.BranchStatusActive,
		Model:             req.Model,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.ForkBranch(ctx, branch); err != nil {
		return nil, err
	}

	s.events.Append(branch.BranchID, branch.SessionID, domain.EventTypeBranchFork, domain.BranchForkPayload{
		ParentBranchID:    req.ParentBranchID,
		ForkFromMessageID: req.ForkFromMessageID,
		BranchType:        branchType,
	})
	return branch, nil
}

// GetBranch retrieves a branch by ID.
func (s *Service) GetBranch(ctx context.Context, branchID string) (*domain.Branch, error) {
	branch, err := s.store.GetBranch(ctx, branchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get branch: %w", err)
	}
	if branch == nil {
		return nil, domain.ErrNotFound
	}
	return branch, nil
}

// BranchForSession retrieves the branch currently bound to a session.
func (s *Service) BranchForSession(ctx context.Context, sessionID string) (*domain.Branch, error) {
	branch, err := s.store.GetBranchBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get branch for session: %w", err)
	}
	if branch == nil {
		return nil, domain.ErrNotFound
	}
	return branch, nil
}

// ListChildren lists the direct children of a branch.
func (s *Service) ListChildren(ctx context.Context, branchID string) ([]domain.Branch, error) {
	return s.store.ListBranchChildren(ctx, branchID)
}

// ListSiblings lists branches sharing the branch's parent.
func (s *Service) ListSiblings(ctx context.Context, branchID string) ([]domain.Branch, error) {
	return s.store.ListBranchSiblings(ctx, branchID)
}

// PathFromRoot returns the chain of branches from the tree root down to the
// given branch, root first.
func (s *Service) PathFromRoot(ctx context.Context, branchID string) ([]domain.Branch, error) {
	var path []domain.Branch
	current := branchID
	for current != "" {
		branch, err := s.store.GetBranch(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("failed to get branch: %w", err)
		}
		if branch == nil {
			return nil, domain.ErrNotFound
		}
		path = append([]domain.Branch{*branch}, path...)
		current = branch.ParentBranchID
	}
	return path, nil
}

// CompleteBranch marks a branch completed or failed, generates its
// retrospective summary, and digests the outcome into the parent's context
// snapshot so the parent can absorb the result.
func (s *Service) CompleteBranch(ctx context.Context, branchID string, status domain.BranchStatus) (*domain.Branch, error) {
	if status != domain.BranchStatusCompleted && status != domain.BranchStatusFailed {
		return nil, fmt.Errorf("completion status must be completed or failed, got %q", status)
	}

	branch, err := s.store.GetBranch(ctx, branchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get branch: %w", err)
	}
	if branch == nil {
		return nil, domain.ErrNotFound
	}

	messages, err := s.store.GetMessages(ctx, branch.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}

	summary := s.summarizer.Summarize(ctx, summarize.StyleBranchComplete, messages)
	if summary != "" {
		if err := s.store.UpdateBranchSummary(ctx, branchID, summary); err != nil {
			return nil, fmt.Errorf("failed to persist summary: %w", err)
		}
		s.events.Append(branchID, branch.SessionID, domain.EventTypeSummaryGenerated, domain.SummaryGeneratedPayload{
			Style:       string(summarize.StyleBranchComplete),
			WordBudget:  summarize.StyleBranchComplete.WordBudget(),
			ResultChars: len(summary),
		})
	}

	if err := s.store.UpdateBranchStatus(ctx, branchID, status); err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}
	s.events.Append(branchID, branch.SessionID, domain.EventTypeBranchComplete, domain.BranchCompletePayload{
		Status:        status,
		SummaryLength: len(summary),
	})

	if branch.ParentBranchID != "" {
		if digest := s.summarizer.Summarize(ctx, summarize.StyleDigest, messages); digest != "" {
			if err := s.store.UpdateBranchContextSnapshot(ctx, branch.ParentBranchID, digest); err != nil {
				return nil, fmt.Errorf("failed to store digest on parent: %w", err)
			}
		}
	}

	return s.store.GetBranch(ctx, branchID)
}
