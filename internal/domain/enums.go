package domain

// BranchType classifies the purpose of a branch.
type BranchType string

const (
	BranchTypeConversation   BranchType = "conversation"
	BranchTypeImplementation BranchType = "implementation"
	BranchTypeExploration    BranchType = "exploration"
)

// Valid reports whether t is a known branch type.
func (t BranchType) Valid() bool {
	switch t {
	case BranchTypeConversation, BranchTypeImplementation, BranchTypeExploration:
		return true
	}
	return false
}

// BranchStatus represents the lifecycle status of a branch.
type BranchStatus string

const (
	BranchStatusActive    BranchStatus = "active"
	BranchStatusCompleted BranchStatus = "completed"
	BranchStatusArchived  BranchStatus = "archived"
	BranchStatusFailed    BranchStatus = "failed"
)

// EventType represents the type of an event. The set is closed; unknown
// future kinds travel through the raw payload escape hatch.
type EventType string

const (
	EventTypeTextChunk         EventType = "textChunk"
	EventTypeToolStart         EventType = "toolStart"
	EventTypeToolEnd           EventType = "toolEnd"
	EventTypeToolError         EventType = "toolError"
	EventTypeMessageUser       EventType = "messageUser"
	EventTypeMessageAssistant  EventType = "messageAssistant"
	EventTypeSessionStart      EventType = "sessionStart"
	EventTypeSessionEnd        EventType = "sessionEnd"
	EventTypeBranchFork        EventType = "branchFork"
	EventTypeBranchComplete    EventType = "branchComplete"
	EventTypeError             EventType = "error"
	EventTypeTokenUsage        EventType = "tokenUsage"
	EventTypeContextCheckpoint EventType = "contextCheckpoint"
	EventTypeSessionRotation   EventType = "sessionRotation"
	EventTypeSummaryGenerated  EventType = "summaryGenerated"
)

// ToolLifecycleTypes are the event types describing a tool invocation.
var ToolLifecycleTypes = []EventType{EventTypeToolStart, EventTypeToolEnd, EventTypeToolError}
