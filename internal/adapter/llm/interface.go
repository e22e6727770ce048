// Package llm provides an abstraction for the external summarization capability.
package llm

import "context"

// LLMClient defines the interface for natural-language condensation.
type LLMClient interface {
	// Summarize sends a summarization prompt and returns the generated text.
	// An empty result with a nil error means the capability produced nothing.
	Summarize(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Ensure Client implements LLMClient interface.
var _ LLMClient = (*Client)(nil)
