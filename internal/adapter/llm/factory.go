package llm

import (
	"log"
	"os"
	"time"
)

const (
	// EnvCanopyMode is the environment variable name for mode selection.
	EnvCanopyMode = "CANOPY_MODE"
	// ModeMock indicates mock mode should be used.
	ModeMock = "MOCK"
)

// NewLLMClient creates a summarization client based on the CANOPY_MODE
// environment variable. If CANOPY_MODE=MOCK, returns a MockClient; otherwise
// returns a real Client.
func NewLLMClient(baseURL, apiKey, model string, timeout time.Duration) LLMClient {
	if os.Getenv(EnvCanopyMode) == ModeMock {
		log.Println("CANOPY_MODE=MOCK detected, using mock summarization client")
		return NewMockClient()
	}
	return NewClient(baseURL, apiKey, model, timeout)
}
