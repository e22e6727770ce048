package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/canopy-ai/canopy/internal/domain"
	"github.com/canopy-ai/canopy/internal/pressure"
	"github.com/canopy-ai/canopy/internal/summarize"
)

// RotateIfNeeded evaluates context pressure for a session and, when the
// level calls for it, checkpoints the session and resets its external agent
// identity. Returns the checkpoint text for the caller to prepend to the
// next outgoing turn, or the empty string when no rotation happened.
//
// Below the rotation threshold this is a strict no-op: nothing is persisted,
// no events are emitted, and the identity layer is not touched.
func (s *Service) RotateIfNeeded(ctx context.Context, sessionID, branchID string, messages []domain.Message, toolEventCount int) (string, error) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	estimate := pressure.FromMessages(messages, toolEventCount)
	if !estimate.ShouldRotate() {
		return "", nil
	}
	return s.rotate(ctx, sessionID, branchID, messages, estimate, string(estimate.Level))
}

// ForceRotate rotates unconditionally, for manual or administrative use. The
// pressure estimate is still computed so the persisted checkpoint and event
// records carry real numbers.
func (s *Service) ForceRotate(ctx context.Context, sessionID, branchID string, messages []domain.Message, toolEventCount int) (string, error) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	estimate := pressure.FromMessages(messages, toolEventCount)
	return s.rotate(ctx, sessionID, branchID, messages, estimate, "forced")
}

// rotate runs the rotation protocol. The checkpoint row is persisted before
// the irreversible identity reset: a persistence failure aborts the rotation
// with the old context intact, at the cost of nothing worse than an orphaned
// checkpoint if a later step fails. Events are appended only after the
// checkpoint is durable.
func (s *Service) rotate(ctx context.Context, sessionID, branchID string, messages []domain.Message, estimate pressure.Estimate, reason string) (string, error) {
	summary := s.summarizer.Summarize(ctx, summarize.StyleCheckpoint, messages)
	if summary == "" {
		// Soft failure: no checkpoint produced, do nothing this cycle.
		return "", nil
	}

	checkpoint := &domain.Checkpoint{
		CheckpointID:              "ckpt_" + uuid.New().String()[:8],
		SessionID:                 sessionID,
		BranchID:                  branchID,
		Summary:                   summary,
		EstimatedTokensAtRotation: estimate.TotalTokens,
		MessageCountAtRotation:    len(messages),
		CreatedAt:                 time.Now(),
	}
	if err := s.store.CreateCheckpoint(ctx, checkpoint); err != nil {
		return "", fmt.Errorf("failed to persist checkpoint: %w", err)
	}

	// Best-effort from here on: the identity reset is fire-and-forget, and
	// the snapshot update only eases the next turn's prompt assembly.
	s.bridge.RotateSession(sessionID)
	if err := s.store.UpdateBranchContextSnapshot(ctx, branchID, summary); err != nil {
		return "", fmt.Errorf("failed to update context snapshot: %w", err)
	}

	s.events.Append(branchID, sessionID, domain.EventTypeContextCheckpoint, domain.ContextCheckpointPayload{
		EstimatedTokens: estimate.TotalTokens,
		MessageCount:    len(messages),
		SummaryLength:   len(summary),
	})
	s.events.Append(branchID, sessionID, domain.EventTypeSessionRotation, domain.SessionRotationPayload{
		Reason: reason,
	})

	return summary, nil
}

// SessionPressure evaluates pressure from the persisted aggregate statistics
// without re-reading the full message log.
func (s *Service) SessionPressure(ctx context.Context, sessionID string, toolEventCount int) (pressure.Estimate, error) {
	stats, err := s.store.GetMessageStats(ctx, sessionID)
	if err != nil {
		return pressure.Estimate{}, fmt.Errorf("failed to get message stats: %w", err)
	}
	return pressure.FromStats(stats.TotalChars, stats.UserMessageCount, toolEventCount), nil
}

// LatestCheckpoint returns the most recent checkpoint for a session, or nil.
func (s *Service) LatestCheckpoint(ctx context.Context, sessionID string) (*domain.Checkpoint, error) {
	return s.store.LatestCheckpoint(ctx, sessionID)
}

// RotationCount returns the number of rotations recorded for a session.
func (s *Service) RotationCount(ctx context.Context, sessionID string) (int, error) {
	return s.store.CountCheckpoints(ctx, sessionID)
}
