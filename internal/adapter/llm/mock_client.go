package llm

import (
	"context"
	"fmt"
)

// MockClient is a mock implementation of LLMClient for testing and local
// development without a reachable model endpoint.
type MockClient struct{}

// NewMockClient creates a new mock summarization client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Ensure MockClient implements LLMClient interface.
var _ LLMClient = (*MockClient)(nil)

// Summarize returns a canned summary derived from the prompt.
func (m *MockClient) Summarize(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return fmt.Sprintf("[MOCK] Condensed %d characters of source material.", len(prompt)), nil
}
