package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/canopy-ai/canopy/internal/domain"
)

// AppendMessage appends a role-tagged entry to a session's message log.
func (s *Service) AppendMessage(ctx context.Context, sessionID, role, content string) (*domain.Message, error) {
	switch role {
	case "user", "assistant", "system":
	default:
		return nil, fmt.Errorf("unknown role %q", role)
	}
	if content == "" {
		return nil, fmt.Errorf("content is required")
	}

	msg := &domain.Message{
		MessageID: "msg_" + uuid.New().String()[:8],
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	if eventType, ok := messageEventType(role); ok {
		branch, err := s.store.GetBranchBySession(ctx, sessionID)
		if err == nil && branch != nil {
			s.events.Append(branch.BranchID, sessionID, eventType, domain.MessagePayload{
				MessageID: msg.MessageID,
				Chars:     len(content),
			})
		}
	}
	return msg, nil
}

func messageEventType(role string) (domain.EventType, bool) {
	switch role {
	case "user":
		return domain.EventTypeMessageUser, true
	case "assistant":
		return domain.EventTypeMessageAssistant, true
	}
	return "", false
}

// GetMessages retrieves a session's full message log in order.
func (s *Service) GetMessages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	return s.store.GetMessages(ctx, sessionID)
}
