package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/canopy-ai/canopy/internal/domain"
)

func TestCreateTreeCreatesRootBranch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tree, root, err := f.svc.CreateTree(ctx, CreateTreeRequest{Name: "refactor auth", Project: "api"})
	require.NoError(t, err)
	require.NotEmpty(t, tree.TreeID)
	require.Equal(t, tree.TreeID, root.TreeID)
	require.Empty(t, root.ParentBranchID)
	require.Equal(t, domain.BranchTypeConversation, root.BranchType)
	require.Equal(t, domain.BranchStatusActive, root.Status)

	found, err := f.svc.BranchForSession(ctx, root.SessionID)
	require.NoError(t, err)
	require.Equal(t, root.BranchID, found.BranchID)

	require.NoError(t, f.svc.FlushEvents(ctx))
	events, err := f.store.GetEventsSince(ctx, root.BranchID, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, domain.EventTypeSessionStart, events[0].Type)
}

func TestCreateTreeRequiresName(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.svc.CreateTree(context.Background(), CreateTreeRequest{})
	require.Error(t, err)
}

func TestForkRejectsEmptyParent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tree, _ := seedTree(t, f.store, "f1")

	_, err := f.svc.Fork(ctx, tree.TreeID, domain.ForkRequest{})
	require.ErrorIs(t, err, domain.ErrInvalidParent)
}

func TestForkRejectsParentFromAnotherTree(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	treeA, _ := seedTree(t, f.store, "f2a")
	_, rootB := seedTree(t, f.store, "f2b")

	_, err := f.svc.Fork(ctx, treeA.TreeID, domain.ForkRequest{ParentBranchID: rootB.BranchID})
	require.ErrorIs(t, err, domain.ErrInvalidParent)
}

func TestForkRejectsForeignForkPoint(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	treeA, rootA := seedTree(t, f.store, "f3a")
	_, rootB := seedTree(t, f.store, "f3b")

	// The anchor message lives in another branch's session.
	seedMessages(t, f.store, rootB.SessionID, 1, 10)

	_, err := f.svc.Fork(ctx, treeA.TreeID, domain.ForkRequest{
		ParentBranchID:    rootA.BranchID,
		ForkFromMessageID: "msg_" + rootB.SessionID + "_0",
	})
	require.ErrorIs(t, err, domain.ErrInvalidForkPoint)
}

func TestForkRejectsUnknownBranchType(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tree, root := seedTree(t, f.store, "f4")

	_, err := f.svc.Fork(ctx, tree.TreeID, domain.ForkRequest{
		ParentBranchID: root.BranchID,
		BranchType:     "sidequest",
	})
	require.Error(t, err)
}

func TestForkTopology(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tree, root := seedTree(t, f.store, "f5")

	seedMessages(t, f.store, root.SessionID, 2, 50)

	childA, err := f.svc.Fork(ctx, tree.TreeID, domain.ForkRequest{
		ParentBranchID:    root.BranchID,
		ForkFromMessageID: "msg_" + root.SessionID + "_1",
		BranchType:        domain.BranchTypeImplementation,
	})
	require.NoError(t, err)
	require.Equal(t, root.BranchID, childA.ParentBranchID)
	require.NotEqual(t, root.SessionID, childA.SessionID)

	childB, err := f.svc.Fork(ctx, tree.TreeID, domain.ForkRequest{
		ParentBranchID: root.BranchID,
		BranchType:     domain.BranchTypeExploration,
	})
	require.NoError(t, err)

	children, err := f.svc.ListChildren(ctx, root.BranchID)
	require.NoError(t, err)
	require.Len(t, children, 2)

	siblings, err := f.svc.ListSiblings(ctx, childA.BranchID)
	require.NoError(t, err)
	require.Len(t, siblings, 1)
	require.Equal(t, childB.BranchID, siblings[0].BranchID)

	path, err := f.svc.PathFromRoot(ctx, childA.BranchID)
	require.NoError(t, err)
	require.Len(t, path, 2)
	require.Equal(t, root.BranchID, path[0].BranchID)
	require.Equal(t, childA.BranchID, path[1].BranchID)

	all, err := f.svc.ListTreeBranches(ctx, tree.TreeID)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestCompleteBranchDigestsIntoParent(t *testing.T) {
	ctx := context.Background()
	// First summarizer call produces the retrospective, second the digest.
	f := newFixture(t, "RETROSPECTIVE", "DIGEST")
	tree, root := seedTree(t, f.store, "f6")

	child, err := f.svc.Fork(ctx, tree.TreeID, domain.ForkRequest{
		ParentBranchID: root.BranchID,
		BranchType:     domain.BranchTypeImplementation,
	})
	require.NoError(t, err)
	seedMessages(t, f.store, child.SessionID, 4, 100)

	done, err := f.svc.CompleteBranch(ctx, child.BranchID, domain.BranchStatusCompleted)
	require.NoError(t, err)
	require.Equal(t, domain.BranchStatusCompleted, done.Status)
	require.Equal(t, "RETROSPECTIVE", done.Summary)

	parent, err := f.store.GetBranch(ctx, root.BranchID)
	require.NoError(t, err)
	require.Equal(t, "DIGEST", parent.ContextSnapshot)

	require.NoError(t, f.svc.FlushEvents(ctx))
	events, err := f.store.GetEventsSince(ctx, child.BranchID, 0)
	require.NoError(t, err)

	types := map[domain.EventType]bool{}
	for _, e := range events {
		types[e.Type] = true
	}
	require.True(t, types[domain.EventTypeSummaryGenerated])
	require.True(t, types[domain.EventTypeBranchComplete])
}

func TestCompleteBranchRejectsNonTerminalStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, root := seedTree(t, f.store, "f7")

	_, err := f.svc.CompleteBranch(ctx, root.BranchID, domain.BranchStatusActive)
	require.Error(t, err)
}

func TestArchiveTree(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tree, _ := seedTree(t, f.store, "f8")

	require.NoError(t, f.svc.ArchiveTree(ctx, tree.TreeID))

	got, err := f.svc.GetTree(ctx, tree.TreeID)
	require.NoError(t, err)
	require.True(t, got.Archived)

	require.ErrorIs(t, f.svc.ArchiveTree(ctx, "tree_missing"), domain.ErrNotFound)
}

func TestAppendMessage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, root := seedTree(t, f.store, "f9")

	msg, err := f.svc.AppendMessage(ctx, root.SessionID, "user", "what next?")
	require.NoError(t, err)
	require.NotEmpty(t, msg.MessageID)

	_, err = f.svc.AppendMessage(ctx, root.SessionID, "assistant", "reviewing the plan")
	require.NoError(t, err)

	_, err = f.svc.AppendMessage(ctx, root.SessionID, "narrator", "nope")
	require.Error(t, err)

	_, err = f.svc.AppendMessage(ctx, root.SessionID, "user", "")
	require.Error(t, err)

	msgs, err := f.svc.GetMessages(ctx, root.SessionID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	stats, err := f.store.GetMessageStats(ctx, root.SessionID)
	require.NoError(t, err)
	require.Equal(t, 2, stats.MessageCount)
	require.Equal(t, 1, stats.UserMessageCount)
	require.Equal(t, len("what next?")+len("reviewing the plan"), stats.TotalChars)

	require.NoError(t, f.svc.FlushEvents(ctx))
	counts, err := f.svc.EventCounts(ctx, root.BranchID)
	require.NoError(t, err)

	byType := map[domain.EventType]int{}
	for _, c := range counts {
		byType[c.Type] = c.Count
	}
	require.Equal(t, 1, byType[domain.EventTypeMessageUser])
	require.Equal(t, 1, byType[domain.EventTypeMessageAssistant])
}

func TestEventsSinceWindow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, root := seedTree(t, f.store, "f10")

	old := domain.Event{
		EventID:  "evt_old",
		BranchID: root.BranchID,
		Type:     domain.EventTypeTextChunk,
		Ts:       time.Now().Add(-2 * time.Hour).UnixMilli(),
	}
	fresh := domain.Event{
		EventID:  "evt_fresh",
		BranchID: root.BranchID,
		Type:     domain.EventTypeTextChunk,
		Ts:       time.Now().UnixMilli(),
	}
	require.NoError(t, f.store.CreateEvents(ctx, []domain.Event{old, fresh}))

	recent, err := f.svc.EventsSince(ctx, root.BranchID, 30)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, "evt_fresh", recent[0].EventID)
}
