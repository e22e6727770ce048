// Package pressure estimates how full a session's context window is.
//
// The external agent does not expose a token count, so a cheap, monotonic,
// deterministic character heuristic substitutes for one. Overshoot is
// tolerated (rotating slightly early is safe); undershoot is not, so the
// constants lean conservatively high.
package pressure

import (
	"math"

	"github.com/canopy-ai/canopy/internal/domain"
)

// Heuristic constants. These are tuned guesses, not measured values; they can
// be recalibrated without touching the estimation logic.
const (
	CharsPerToken      = 3.5
	MessageOverhead    = 1.15
	ToolEventTokens    = 500
	TurnTokens         = 2000
	SystemPromptTokens = 8000
	MaxContextTokens   = 200000
)

// Level is the discrete classification of context pressure.
type Level string

const (
	LevelLow      Level = "low"
	LevelModerate Level = "moderate"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Estimate is the result of a pressure evaluation.
type Estimate struct {
	MessageTokens int     `json:"message_tokens"`
	ToolTokens    int     `json:"tool_tokens"`
	TurnTokens    int     `json:"turn_tokens"`
	TotalTokens   int     `json:"total_tokens"`
	Ratio         float64 `json:"ratio"`
	Level         Level   `json:"level"`
}

// ShouldRotate reports whether the session should be checkpointed and
// rotated. Moderate pressure is advisory only.
func (e Estimate) ShouldRotate() bool {
	return e.Level == LevelHigh || e.Level == LevelCritical
}

// FromMessages computes an estimate from a session's full message log plus
// the number of tool invocations recorded since the last rotation. Pure and
// O(message count); safe to call on every turn.
func FromMessages(messages []domain.Message, toolEventCount int) Estimate {
	totalChars := 0
	userMessages := 0
	for _, m := range messages {
		totalChars += len(m.Content)
		if m.Role == "user" {
			userMessages++
		}
	}
	return FromStats(totalChars, userMessages, toolEventCount)
}

// FromStats computes an estimate from pre-aggregated counters, for callers
// that already hold summary statistics and want to avoid re-scanning the
// log. Produces the same result as FromMessages for matching aggregates.
func FromStats(totalChars, userMessageCount, toolEventCount int) Estimate {
	messageTokens := int(math.Round(float64(totalChars) / CharsPerToken * MessageOverhead))
	toolTokens := toolEventCount * ToolEventTokens
	turnTokens := userMessageCount * TurnTokens
	total := SystemPromptTokens + messageTokens + toolTokens + turnTokens
	ratio := float64(total) / float64(MaxContextTokens)

	return Estimate{
		MessageTokens: messageTokens,
		ToolTokens:    toolTokens,
		TurnTokens:    turnTokens,
		TotalTokens:   total,
		Ratio:         ratio,
		Level:         levelFor(ratio),
	}
}

func levelFor(ratio float64) Level {
	switch {
	case ratio >= 0.90:
		return LevelCritical
	case ratio >= 0.75:
		return LevelHigh
	case ratio >= 0.50:
		return LevelModerate
	default:
		return LevelLow
	}
}
