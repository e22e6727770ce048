// Package summarize turns session transcripts into condensed checkpoints.
//
// The package owns prompt construction and truncation policy; the actual
// language generation is delegated to an external summarization capability.
package summarize

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/canopy-ai/canopy/internal/adapter/llm"
	"github.com/canopy-ai/canopy/internal/domain"
)

// Style selects the checkpoint flavor and its prompt/size budgets.
type Style string

const (
	// StyleBranchComplete is a full-conversation retrospective.
	StyleBranchComplete Style = "branchComplete"
	// StyleCheckpoint is a working-state snapshot for session rotation.
	StyleCheckpoint Style = "checkpoint"
	// StyleDigest is a compact result for absorption by a parent branch.
	StyleDigest Style = "digest"
)

const (
	branchCompleteWords = 500
	branchCompleteChars = 15000
	checkpointWords     = 800
	checkpointChars     = 10000
	checkpointRecent    = 20
	digestWords         = 200

	// EllipsisMarker terminates a transcript cut off by the character budget.
	EllipsisMarker = "..."
)

// WordBudget returns the target word count for the style's output.
func (s Style) WordBudget() int {
	switch s {
	case StyleBranchComplete:
		return branchCompleteWords
	case StyleCheckpoint:
		return checkpointWords
	default:
		return digestWords
	}
}

// CharBudget returns the source-material character cap for the style.
// Zero means uncapped.
func (s Style) CharBudget() int {
	switch s {
	case StyleBranchComplete:
		return branchCompleteChars
	case StyleCheckpoint:
		return checkpointChars
	default:
		return 0
	}
}

// Summarizer builds prompts and delegates generation to the capability.
type Summarizer struct {
	client llm.LLMClient
}

// New creates a summarizer backed by the given capability.
func New(client llm.LLMClient) *Summarizer {
	return &Summarizer{client: client}
}

// Summarize produces a condensed snapshot of the transcript in the given
// style. Returns the empty string when the capability is unavailable or
// produced no output; callers must treat that as "no checkpoint produced",
// a soft failure rather than an error.
func (s *Summarizer) Summarize(ctx context.Context, style Style, messages []domain.Message) string {
	prompt := BuildPrompt(style, messages)
	maxTokens := style.WordBudget() * 2

	out, err := s.client.Summarize(ctx, prompt, maxTokens)
	if err != nil {
		log.Printf("WARN: summarization capability failed (style=%s): %v", style, err)
		return ""
	}
	return strings.TrimSpace(out)
}

// BuildPrompt renders the style-specific instructions plus the (budgeted)
// transcript into a single prompt string.
func BuildPrompt(style Style, messages []domain.Message) string {
	var b strings.Builder

	switch style {
	case StyleBranchComplete:
		fmt.Fprintf(&b, "Write a retrospective of the following conversation in at most %d words. ", branchCompleteWords)
		b.WriteString("Cover what was attempted, what was accomplished, and anything left unresolved.\n\n")
		transcript, _ := RenderTranscript(messages, branchCompleteChars)
		b.WriteString(transcript)

	case StyleCheckpoint:
		fmt.Fprintf(&b, "Write a working-state snapshot of this session in at most %d words. ", checkpointWords)
		b.WriteString("Capture the current goal, key facts and decisions, and the immediate next step, so the conversation can resume from this snapshot alone.\n\n")
		recent := messages
		if len(messages) > checkpointRecent {
			older := messages[:len(messages)-checkpointRecent]
			olderChars := 0
			for _, m := range older {
				olderChars += len(m.Content)
			}
			fmt.Fprintf(&b, "[%d earlier messages totalling %d characters omitted]\n", len(older), olderChars)
			recent = messages[len(messages)-checkpointRecent:]
		}
		transcript, _ := RenderTranscript(recent, checkpointChars)
		b.WriteString(transcript)

	case StyleDigest:
		fmt.Fprintf(&b, "Summarize the outcome of this sub-conversation in at most %d words, for injection into the parent conversation's context.\n\n", digestWords)
		transcript, _ := RenderTranscript(messages, 0)
		b.WriteString(transcript)
	}

	return b.String()
}

// RenderTranscript renders role-labelled messages in order, enforcing the
// character budget (0 = uncapped). When the budget is exhausted the current
// message's tail is cut and the ellipsis marker appended; no further
// messages are included. Reports whether truncation occurred.
func RenderTranscript(messages []domain.Message, budget int) (string, bool) {
	// Budgets not even fitting the marker get a clipped marker back.
	if budget > 0 && budget <= len(EllipsisMarker) {
		if len(messages) == 0 {
			return "", false
		}
		return EllipsisMarker[:budget], true
	}

	var b strings.Builder
	truncated := false

	for _, m := range messages {
		line := roleLabel(m.Role) + ": " + m.Content + "\n"
		if budget > 0 && b.Len()+len(line) > budget {
			truncated = true
			avail := budget - b.Len() - len(EllipsisMarker)
			if avail > 0 {
				b.WriteString(line[:avail])
			}
			b.WriteString(EllipsisMarker)
			break
		}
		b.WriteString(line)
	}

	out := b.String()
	if budget > 0 && len(out) > budget {
		out = out[:budget-len(EllipsisMarker)] + EllipsisMarker
	}
	return out, truncated
}

func roleLabel(role string) string {
	switch role {
	case "user":
		return "User"
	case "assistant":
		return "Assistant"
	case "system":
		return "System"
	default:
		return role
	}
}
