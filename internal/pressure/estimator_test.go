package pressure

import (
	"strings"
	"testing"

	"github.com/canopy-ai/canopy/internal/domain"
)

func TestEmptySessionIsLow(t *testing.T) {
	est := FromMessages(nil, 0)
	if est.TotalTokens != SystemPromptTokens {
		t.Fatalf("expected %d tokens for empty session, got %d", SystemPromptTokens, est.TotalTokens)
	}
	if est.Level != LevelLow {
		t.Fatalf("expected low, got %s", est.Level)
	}
	if est.ShouldRotate() {
		t.Fatal("empty session must not rotate")
	}
}

func TestQuickMatchesFull(t *testing.T) {
	cases := []struct {
		name       string
		messages   []domain.Message
		toolEvents int
	}{
		{"empty", nil, 0},
		{"single user", []domain.Message{{Role: "user", Content: "hello"}}, 0},
		{"mixed roles", []domain.Message{
			{Role: "user", Content: strings.Repeat("a", 1234)},
			{Role: "assistant", Content: strings.Repeat("b", 5678)},
			{Role: "system", Content: "be nice"},
			{Role: "user", Content: strings.Repeat("c", 99)},
		}, 7},
		{"tool heavy", []domain.Message{
			{Role: "assistant", Content: strings.Repeat("x", 50000)},
		}, 120},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			totalChars := 0
			userCount := 0
			for _, m := range tc.messages {
				totalChars += len(m.Content)
				if m.Role == "user" {
					userCount++
				}
			}
			full := FromMessages(tc.messages, tc.toolEvents)
			quick := FromStats(totalChars, userCount, tc.toolEvents)
			if full != quick {
				t.Fatalf("quick estimate diverged: full=%+v quick=%+v", full, quick)
			}
		})
	}
}

func TestLevelBoundaries(t *testing.T) {
	cases := []struct {
		ratio float64
		want  Level
	}{
		{0.0, LevelLow},
		{0.49, LevelLow},
		{0.50, LevelModerate},
		{0.74, LevelModerate},
		{0.75, LevelHigh},
		{0.89, LevelHigh},
		{0.90, LevelCritical},
		{1.20, LevelCritical},
	}
	for _, tc := range cases {
		if got := levelFor(tc.ratio); got != tc.want {
			t.Fatalf("levelFor(%v) = %s, want %s", tc.ratio, got, tc.want)
		}
	}
}

func TestOnlyHighAndCriticalRotate(t *testing.T) {
	for _, tc := range []struct {
		level Level
		want  bool
	}{
		{LevelLow, false},
		{LevelModerate, false},
		{LevelHigh, true},
		{LevelCritical, true},
	} {
		est := Estimate{Level: tc.level}
		if est.ShouldRotate() != tc.want {
			t.Fatalf("ShouldRotate for %s = %v, want %v", tc.level, est.ShouldRotate(), tc.want)
		}
	}
}

func TestLevelsAreMonotonic(t *testing.T) {
	rank := map[Level]int{LevelLow: 0, LevelModerate: 1, LevelHigh: 2, LevelCritical: 3}

	prev := LevelLow
	for toolEvents := 0; toolEvents <= 400; toolEvents += 10 {
		est := FromStats(0, 0, toolEvents)
		if rank[est.Level] < rank[prev] {
			t.Fatalf("level decreased from %s to %s at %d tool events", prev, est.Level, toolEvents)
		}
		prev = est.Level
	}
}

func TestSynthesizedHighPressure(t *testing.T) {
	// 8000 base + 304 tool events * 500 = 160000 tokens, ratio 0.80.
	est := FromStats(0, 0, 304)
	if est.TotalTokens != 160000 {
		t.Fatalf("expected 160000 tokens, got %d", est.TotalTokens)
	}
	if est.Level != LevelHigh {
		t.Fatalf("expected high, got %s", est.Level)
	}
	if !est.ShouldRotate() {
		t.Fatal("expected rotation at ratio 0.80")
	}
}

func TestMessageTokenRounding(t *testing.T) {
	// 70 chars / 3.5 * 1.15 = 23.
	est := FromStats(70, 0, 0)
	if est.MessageTokens != 23 {
		t.Fatalf("expected 23 message tokens, got %d", est.MessageTokens)
	}
}
