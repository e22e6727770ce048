package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/canopy-ai/canopy/internal/domain"
	"github.com/canopy-ai/canopy/internal/eventlog"
	store "github.com/canopy-ai/canopy/internal/repository"
	"github.com/canopy-ai/canopy/internal/summarize"
	"github.com/canopy-ai/canopy/tests/helpers"
)

// scriptedLLM returns each queued output once, then empty strings. An empty
// output exercises the summarizer soft-failure path.
type scriptedLLM struct {
	outputs []string
	calls   int
}

func (s *scriptedLLM) Summarize(ctx context.Context, prompt string, maxTokens int) (string, error) {
	s.calls++
	if len(s.outputs) == 0 {
		return "", nil
	}
	out := s.outputs[0]
	s.outputs = s.outputs[1:]
	return out, nil
}

type recordingBridge struct {
	rotated []string
}

func (b *recordingBridge) RotateSession(sessionID string) {
	b.rotated = append(b.rotated, sessionID)
}

type fixture struct {
	svc    *Service
	store  *store.SQLiteStore
	bridge *recordingBridge
	llm    *scriptedLLM
}

func newFixture(t *testing.T, llmOutputs ...string) *fixture {
	t.Helper()

	st := helpers.NewTestSQLiteStore(t)
	l := &scriptedLLM{outputs: llmOutputs}
	b := &recordingBridge{}
	// Batch size larger than any test produces, so persistence timing is
	// controlled explicitly through FlushEvents.
	events := eventlog.New(st, eventlog.Config{BatchSize: 1000})

	return &fixture{
		svc:    New(st, summarize.New(l), b, events),
		store:  st,
		bridge: b,
		llm:    l,
	}
}

// seedTree inserts a tree with its root branch directly through the store so
// tests control exactly which events exist.
func seedTree(t *testing.T, st *store.SQLiteStore, suffix string) (*domain.Tree, *domain.Branch) {
	t.Helper()

	now := time.Now()
	tree := &domain.Tree{
		TreeID:    "tree_" + suffix,
		Name:      "test tree " + suffix,
		CreatedAt: now,
		UpdatedAt: now,
	}
	root := &domain.Branch{
		BranchID:   "br_root_" + suffix,
		TreeID:     tree.TreeID,
		SessionID:  "sess_root_" + suffix,
		BranchType: domain.BranchTypeConversation,
		Status:     domain.BranchStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, st.CreateTree(context.Background(), tree, root))
	return tree, root
}

// seedMessages appends n alternating user/assistant messages of the given
// content length to a session.
func seedMessages(t *testing.T, st *store.SQLiteStore, sessionID string, n, chars int) {
	t.Helper()

	base := time.Now()
	for i := 0; i < n; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		require.NoError(t, st.CreateMessage(context.Background(), &domain.Message{
			MessageID: fmt.Sprintf("msg_%s_%d", sessionID, i),
			SessionID: sessionID,
			Role:      role,
			Content:   strings.Repeat("x", chars),
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
		}))
	}
}
