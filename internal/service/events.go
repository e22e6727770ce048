package service

import (
	"context"
	"time"

	"github.com/canopy-ai/canopy/internal/domain"
)

// RecentEvents returns the most recent events for a branch, newest first.
func (s *Service) RecentEvents(ctx context.Context, branchID string, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.store.GetRecentEvents(ctx, branchID, limit)
}

// EventsSince returns events for a branch within the last given number of
// minutes, oldest first. Used as an activity-density signal.
func (s *Service) EventsSince(ctx context.Context, branchID string, minutes int) ([]domain.Event, error) {
	since := time.Now().Add(-time.Duration(minutes) * time.Minute).UnixMilli()
	return s.store.GetEventsSince(ctx, branchID, since)
}

// ToolEvents returns only the tool-lifecycle events for a branch.
func (s *Service) ToolEvents(ctx context.Context, branchID string) ([]domain.Event, error) {
	return s.store.GetToolEvents(ctx, branchID)
}

// EventCounts returns per-type event counts for a branch.
func (s *Service) EventCounts(ctx context.Context, branchID string) ([]domain.EventTypeCount, error) {
	return s.store.CountEventsByType(ctx, branchID)
}

// FlushEvents forces the buffered event log to durable storage, for callers
// needing stronger guarantees than the bounded staleness window.
func (s *Service) FlushEvents(ctx context.Context) error {
	return s.events.Flush(ctx)
}
