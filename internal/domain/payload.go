package domain

import "encoding/json"

// Event payloads form a tagged union over EventType: each variant carries its
// own strongly-typed structure. DecodePayload maps a type back to its variant;
// types without a dedicated variant keep the raw bytes.

// ContextCheckpointPayload is the payload for contextCheckpoint events.
type ContextCheckpointPayload struct {
	EstimatedTokens int `json:"estimated_tokens"`
	MessageCount    int `json:"message_count"`
	SummaryLength   int `json:"summary_length"`
}

// SessionRotationPayload is the payload for sessionRotation events.
type SessionRotationPayload struct {
	Reason string `json:"reason"`
}

// BranchForkPayload is the payload for branchFork events.
type BranchForkPayload struct {
	ParentBranchID    string     `json:"parent_branch_id"`
	ForkFromMessageID string     `json:"fork_from_message_id,omitempty"`
	BranchType        BranchType `json:"branch_type"`
}

// BranchCompletePayload is the payload for branchComplete events.
type BranchCompletePayload struct {
	Status        BranchStatus `json:"status"`
	SummaryLength int          `json:"summary_length"`
}

// SummaryGeneratedPayload is the payload for summaryGenerated events.
type SummaryGeneratedPayload struct {
	Style       string `json:"style"`
	WordBudget  int    `json:"word_budget"`
	ResultChars int    `json:"result_chars"`
}

// MessagePayload is the payload for messageUser and messageAssistant events.
type MessagePayload struct {
	MessageID string `json:"message_id"`
	Chars     int    `json:"chars"`
}

// ToolStartPayload is the payload for toolStart events.
type ToolStartPayload struct {
	ToolName string          `json:"tool_name"`
	Args     json.RawMessage `json:"args,omitempty"`
}

// ToolEndPayload is the payload for toolEnd events.
type ToolEndPayload struct {
	ToolName   string `json:"tool_name"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

// ToolErrorPayload is the payload for toolError events.
type ToolErrorPayload struct {
	ToolName string `json:"tool_name"`
	Message  string `json:"message"`
}

// ErrorPayload is the payload for error events.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// TokenUsagePayload is the payload for tokenUsage events.
type TokenUsagePayload struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// DecodePayload decodes raw event payload bytes into the typed variant for
// the given event type. Unknown or untyped events return the raw bytes.
func DecodePayload(eventType EventType, raw json.RawMessage) (interface{}, error) {
	var v interface{}
	switch eventType {
	case EventTypeContextCheckpoint:
		v = &ContextCheckpointPayload{}
	case EventTypeSessionRotation:
		v = &SessionRotationPayload{}
	case EventTypeBranchFork:
		v = &BranchForkPayload{}
	case EventTypeBranchComplete:
		v = &BranchCompletePayload{}
	case EventTypeSummaryGenerated:
		v = &SummaryGeneratedPayload{}
	case EventTypeMessageUser, EventTypeMessageAssistant:
		v = &MessagePayload{}
	case EventTypeToolStart:
		v = &ToolStartPayload{}
	case EventTypeToolEnd:
		v = &ToolEndPayload{}
	case EventTypeToolError:
		v = &ToolErrorPayload{}
	case EventTypeError:
		v = &ErrorPayload{}
	case EventTypeTokenUsage:
		v = &TokenUsagePayload{}
	default:
		return raw, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, err
	}
	return v, nil
}
