// Package domain defines the core domain models for canopy.
package domain

import (
	"encoding/json"
	"time"
)

// Tree represents a conversation tree rooted in a single branch.
type Tree struct {
	TreeID           string    `json:"tree_id"`
	Name             string    `json:"name"`
	Project          string    `json:"project,omitempty"`
	WorkingDirectory string    `json:"working_directory,omitempty"`
	Archived         bool      `json:"archived"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Branch represents one node in a conversation tree. A branch owns exactly
// one message session at a time; rotation reassigns the external agent
// identity behind the session without allocating a new branch.
type Branch struct {
	BranchID          string       `json:"branch_id"`
	TreeID            string       `json:"tree_id"`
	SessionID         string       `json:"session_id,omitempty"`
	ParentBranchID    string       `json:"parent_branch_id,omitempty"`
	ForkFromMessageID string       `json:"fork_from_message_id,omitempty"`
	BranchType        BranchType   `json:"branch_type"`
	Status            BranchStatus `json:"status"`
	Summary           string       `json:"summary,omitempty"`
	Model             string       `json:"model,omitempty"`
	ExternalTaskID    string       `json:"external_task_id,omitempty"`
	ContextSnapshot   string       `json:"context_snapshot,omitempty"`
	Collapsed         bool         `json:"collapsed"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// Message represents a single message in a session. Append-only; content
// length drives pressure estimation.
type Message struct {
	MessageID string    `json:"message_id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"` // user, assistant, system
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageStats are pre-aggregated counters over a session's message log,
// used by the quick pressure-estimate path.
type MessageStats struct {
	MessageCount     int `json:"message_count"`
	UserMessageCount int `json:"user_message_count"`
	TotalChars       int `json:"total_chars"`
}

// Checkpoint is a condensed snapshot of a session's working state, persisted
// at rotation time. Immutable once written; a branch accumulates one per
// rotation, ordered by CreatedAt.
type Checkpoint struct {
	CheckpointID              string    `json:"checkpoint_id"`
	SessionID                 string    `json:"session_id"`
	BranchID                  string    `json:"branch_id"`
	Summary                   string    `json:"summary"`
	EstimatedTokensAtRotation int       `json:"estimated_tokens_at_rotation"`
	MessageCountAtRotation    int       `json:"message_count_at_rotation"`
	CreatedAt                 time.Time `json:"created_at"`
}

// Event represents one entry in the append-only observability stream.
type Event struct {
	EventID   string          `json:"event_id"`
	BranchID  string          `json:"branch_id"`
	SessionID string          `json:"session_id,omitempty"`
	Type      EventType       `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Ts        int64           `json:"ts"` // Unix milliseconds
}

// ForkRequest is the input to the fork operation.
type ForkRequest struct {
	ParentBranchID    string     `json:"parent_branch_id"`
	ForkFromMessageID string     `json:"fork_from_message_id,omitempty"`
	BranchType        BranchType `json:"branch_type"`
	Model             string     `json:"model,omitempty"`
}

// EventTypeCount is one row of the per-type event count query.
type EventTypeCount struct {
	Type  EventType `json:"type"`
	Count int       `json:"count"`
}
