package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/canopy-ai/canopy/internal/domain"
)

type stubLLM struct {
	out string
	err error

	prompts []string
}

func (s *stubLLM) Summarize(ctx context.Context, prompt string, maxTokens int) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.out, s.err
}

func makeMessages(n, chars int) []domain.Message {
	msgs := make([]domain.Message, 0, n)
	for i := 0; i < n; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		msgs = append(msgs, domain.Message{
			MessageID: fmt.Sprintf("m%d", i),
			SessionID: "s1",
			Role:      role,
			Content:   strings.Repeat("x", chars),
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		})
	}
	return msgs
}

func TestRenderTranscriptWithinBudget(t *testing.T) {
	msgs := makeMessages(50, 1000)

	transcript, truncated := RenderTranscript(msgs, 10000)
	if !truncated {
		t.Fatal("expected truncation for oversized transcript")
	}
	if len(transcript) > 10000 {
		t.Fatalf("transcript exceeds budget: %d > 10000", len(transcript))
	}
	if !strings.HasSuffix(transcript, EllipsisMarker) {
		t.Fatalf("truncated transcript must end with %q, got tail %q", EllipsisMarker, transcript[len(transcript)-10:])
	}
}

func TestRenderTranscriptNoTruncationWhenSmall(t *testing.T) {
	msgs := []domain.Message{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi there"},
		{Role: "system", Content: "quiet"},
	}

	transcript, truncated := RenderTranscript(msgs, 10000)
	if truncated {
		t.Fatal("unexpected truncation")
	}
	if !strings.Contains(transcript, "User: hello\n") {
		t.Fatalf("missing user line:\n%s", transcript)
	}
	if !strings.Contains(transcript, "Assistant: hi there\n") {
		t.Fatalf("missing assistant line:\n%s", transcript)
	}
	if !strings.Contains(transcript, "System: quiet\n") {
		t.Fatalf("missing system line:\n%s", transcript)
	}
}

func TestRenderTranscriptUncapped(t *testing.T) {
	msgs := makeMessages(100, 2000)
	transcript, truncated := RenderTranscript(msgs, 0)
	if truncated {
		t.Fatal("uncapped render must not truncate")
	}
	if len(transcript) < 100*2000 {
		t.Fatalf("uncapped transcript too small: %d", len(transcript))
	}
}

func TestRenderTranscriptTinyBudget(t *testing.T) {
	msgs := makeMessages(2, 100)

	for budget := 1; budget <= len(EllipsisMarker); budget++ {
		out, truncated := RenderTranscript(msgs, budget)
		if !truncated {
			t.Fatalf("budget %d must truncate", budget)
		}
		if len(out) > budget {
			t.Fatalf("budget %d exceeded: %q", budget, out)
		}
	}

	out, truncated := RenderTranscript(nil, 1)
	if truncated || out != "" {
		t.Fatalf("empty transcript must render empty, got %q", out)
	}
}

func TestCheckpointPromptOmitsOldHistory(t *testing.T) {
	msgs := makeMessages(30, 100)

	prompt := BuildPrompt(StyleCheckpoint, msgs)
	if !strings.Contains(prompt, "[10 earlier messages totalling 1000 characters omitted]") {
		t.Fatalf("expected omitted-history line, got:\n%s", prompt[:200])
	}
}

func TestCheckpointPromptNoOmissionLineForShortSessions(t *testing.T) {
	msgs := makeMessages(5, 100)
	prompt := BuildPrompt(StyleCheckpoint, msgs)
	if strings.Contains(prompt, "omitted]") {
		t.Fatalf("unexpected omitted-history line:\n%s", prompt)
	}
}

func TestBranchCompletePromptCapsTranscript(t *testing.T) {
	msgs := makeMessages(100, 1000)
	prompt := BuildPrompt(StyleBranchComplete, msgs)
	// Instructions plus at most the style's character budget of transcript.
	if len(prompt) > branchCompleteChars+500 {
		t.Fatalf("prompt too large: %d", len(prompt))
	}
	if !strings.HasSuffix(prompt, EllipsisMarker) {
		t.Fatal("expected truncated transcript to end with the ellipsis marker")
	}
}

func TestDigestPromptIsUncapped(t *testing.T) {
	msgs := makeMessages(40, 3000)
	prompt := BuildPrompt(StyleDigest, msgs)
	if len(prompt) < 40*3000 {
		t.Fatalf("digest prompt unexpectedly capped: %d", len(prompt))
	}
}

func TestWordBudgets(t *testing.T) {
	if StyleBranchComplete.WordBudget() != 500 {
		t.Fatalf("branchComplete budget = %d", StyleBranchComplete.WordBudget())
	}
	if StyleCheckpoint.WordBudget() != 800 {
		t.Fatalf("checkpoint budget = %d", StyleCheckpoint.WordBudget())
	}
	if StyleDigest.WordBudget() != 200 {
		t.Fatalf("digest budget = %d", StyleDigest.WordBudget())
	}
}

func TestSummarizeSoftFailure(t *testing.T) {
	ctx := context.Background()
	msgs := makeMessages(4, 50)

	failing := &stubLLM{err: errors.New("endpoint down")}
	if out := New(failing).Summarize(ctx, StyleCheckpoint, msgs); out != "" {
		t.Fatalf("expected no result on capability failure, got %q", out)
	}

	empty := &stubLLM{out: "   "}
	if out := New(empty).Summarize(ctx, StyleCheckpoint, msgs); out != "" {
		t.Fatalf("expected no result on empty output, got %q", out)
	}
}

func TestSummarizeDelegatesPrompt(t *testing.T) {
	ctx := context.Background()
	msgs := makeMessages(4, 50)

	stub := &stubLLM{out: "condensed"}
	out := New(stub).Summarize(ctx, StyleCheckpoint, msgs)
	if out != "condensed" {
		t.Fatalf("expected condensed, got %q", out)
	}
	if len(stub.prompts) != 1 {
		t.Fatalf("expected one capability call, got %d", len(stub.prompts))
	}
	if !strings.Contains(stub.prompts[0], "working-state snapshot") {
		t.Fatalf("prompt missing checkpoint instructions:\n%s", stub.prompts[0])
	}
}
