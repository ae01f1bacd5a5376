package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/histore/internal/record"
)

func TestWriteNode_RoundTrip(t *testing.T) {
	s := createTestProjectStore(t)
	ctx := t.Context()

	n := testNode("n2", "n1", 7)
	n.TransactionID = "txn1"
	n.Content = record.Object{
		"chat_id": record.String("c1"),
		"big":     record.Int(9007199254740993),
		"nested":  record.Object{"tags": record.StringArray([]string{"a", "b"})},
		"none":    record.Null{},
	}
	require.NoError(t, s.WriteNode(ctx, "alice", "demo", n))

	got, err := s.ReadNode(ctx, "alice", "demo", "n2")
	require.NoError(t, err)
	assert.Equal(t, n, got)
}

func TestWriteNode_RootHasNoParent(t *testing.T) {
	s := createTestProjectStore(t)
	ctx := t.Context()

	require.NoError(t, s.WriteNode(ctx, "alice", "demo", testNode("n1", "", 1)))

	got, err := s.ReadNode(ctx, "alice", "demo", "n1")
	require.NoError(t, err)
	assert.True(t, got.IsRoot())
	assert.Empty(t, got.TransactionID)

	var parent any
	require.NoError(t, s.db.QueryRow(`SELECT parent_id FROM nodes WHERE id = 'n1'`).Scan(&parent))
	assert.Nil(t, parent, "empty parent is stored as NULL")
}

func TestWriteNode_ImmutableOnDuplicateID(t *testing.T) {
	s := createTestProjectStore(t)
	ctx := t.Context()

	require.NoError(t, s.WriteNode(ctx, "alice", "demo", testNode("n1", "", 1)))

	dup := testNode("n1", "", 99)
	err := s.WriteNode(ctx, "alice", "demo", dup)
	require.ErrorIs(t, err, ErrExists)

	got, err := s.ReadNode(ctx, "alice", "demo", "n1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version, "original node must be untouched")
}

func TestReadNode_NotFound(t *testing.T) {
	s := createTestProjectStore(t)

	_, err := s.ReadNode(t.Context(), "alice", "demo", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadNode_ScopedByProject(t *testing.T) {
	s := createTestProjectStore(t)
	ctx := t.Context()
	require.NoError(t, s.CreateProject(ctx, testProject("alice", "other")))
	require.NoError(t, s.WriteNode(ctx, "alice", "demo", testNode("n1", "", 1)))

	_, err := s.ReadNode(ctx, "alice", "other", "n1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMaxVersion(t *testing.T) {
	s := createTestProjectStore(t)
	ctx := t.Context()

	v, err := s.MaxVersion(ctx, "alice", "demo")
	require.NoError(t, err)
	assert.Equal(t, int64(0), v, "empty project starts at 0")

	require.NoError(t, s.WriteNode(ctx, "alice", "demo", testNode("n1", "", 1)))
	require.NoError(t, s.WriteNode(ctx, "alice", "demo", testNode("n2", "n1", 5)))
	require.NoError(t, s.WriteNode(ctx, "alice", "demo", testNode("n3", "n2", 5)))

	v, err = s.MaxVersion(ctx, "alice", "demo")
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)

	count, err := s.CountNodes(ctx, "alice", "demo")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestBranches_WriteUpdateRead(t *testing.T) {
	s := createTestProjectStore(t)
	ctx := t.Context()

	require.NoError(t, s.WriteBranch(ctx, "alice", "demo", record.Branch{ID: "b1", HeadID: "n1"}))
	require.ErrorIs(t, s.WriteBranch(ctx, "alice", "demo", record.Branch{ID: "b1", HeadID: "n9"}), ErrExists)

	head, err := s.ReadBranchHead(ctx, "alice", "demo", "b1")
	require.NoError(t, err)
	assert.Equal(t, "n1", head)

	ok, err := s.UpdateBranch(ctx, "alice", "demo", record.Branch{ID: "b1", HeadID: "n2"})
	require.NoError(t, err)
	assert.True(t, ok)

	head, err = s.ReadBranchHead(ctx, "alice", "demo", "b1")
	require.NoError(t, err)
	assert.Equal(t, "n2", head)
}

func TestBranches_UpdateUnknownReturnsFalse(t *testing.T) {
	s := createTestProjectStore(t)

	ok, err := s.UpdateBranch(t.Context(), "alice", "demo", record.Branch{ID: "nope", HeadID: "n1"})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.ReadBranchHead(t.Context(), "alice", "demo", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBranches_ListOrdered(t *testing.T) {
	s := createTestProjectStore(t)
	ctx := t.Context()

	empty, err := s.ListBranches(ctx, "alice", "demo")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	for _, b := range []record.Branch{{ID: "c", HeadID: "n3"}, {ID: "a", HeadID: "n1"}, {ID: "b", HeadID: "n2"}} {
		require.NoError(t, s.WriteBranch(ctx, "alice", "demo", b))
	}

	branches, err := s.ListBranches(ctx, "alice", "demo")
	require.NoError(t, err)
	assert.Equal(t, []record.Branch{{ID: "a", HeadID: "n1"}, {ID: "b", HeadID: "n2"}, {ID: "c", HeadID: "n3"}}, branches)
}

func TestBranchGroups_Lifecycle(t *testing.T) {
	s := createTestProjectStore(t)
	ctx := t.Context()

	g := record.BranchGroup{ID: "g1", BranchIDs: []string{"b1", "b2"}, Description: "review", Version: 1}
	require.NoError(t, s.WriteBranchGroup(ctx, "alice", "demo", g))
	require.ErrorIs(t, s.WriteBranchGroup(ctx, "alice", "demo", g), ErrExists)

	got, err := s.ReadBranchGroup(ctx, "alice", "demo", "g1")
	require.NoError(t, err)
	assert.Equal(t, g, got)

	g.BranchIDs = []string{"b2"}
	g.Description = "narrowed"
	g.Version = 2
	ok, err := s.UpdateBranchGroup(ctx, "alice", "demo", g)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = s.ReadBranchGroup(ctx, "alice", "demo", "g1")
	require.NoError(t, err)
	assert.Equal(t, g, got)

	ok, err = s.UpdateBranchGroup(ctx, "alice", "demo", record.BranchGroup{ID: "g9", Version: 1})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.ReadBranchGroup(ctx, "alice", "demo", "g9")
	assert.ErrorIs(t, err, ErrNotFound)

	ids, err := s.ListBranchGroupIDs(ctx, "alice", "demo")
	require.NoError(t, err)
	assert.Equal(t, []string{"g1"}, ids)
}

func TestBranchGroups_EmptyListStoredAsArray(t *testing.T) {
	s := createTestProjectStore(t)
	ctx := t.Context()

	require.NoError(t, s.WriteBranchGroup(ctx, "alice", "demo", record.BranchGroup{ID: "g1", Version: 1}))

	got, err := s.ReadBranchGroup(ctx, "alice", "demo", "g1")
	require.NoError(t, err)
	assert.NotNil(t, got.BranchIDs)
	assert.Empty(t, got.BranchIDs)
}

func TestProjects_CreateReadList(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.CreateProject(ctx, testProject("bob_", "zeta")))
	require.NoError(t, s.CreateProject(ctx, testProject("alice", "beta")))
	require.NoError(t, s.CreateProject(ctx, testProject("alice", "alpha")))
	require.ErrorIs(t, s.CreateProject(ctx, testProject("alice", "alpha")), ErrExists)

	p, err := s.ReadProject(ctx, "alice", "alpha")
	require.NoError(t, err)
	assert.Equal(t, testProject("alice", "alpha"), p)

	_, err = s.ReadProject(ctx, "alice", "gamma")
	assert.ErrorIs(t, err, ErrNotFound)

	projects, err := s.ListProjects(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "alpha", projects[0].Name)
	assert.Equal(t, "beta", projects[1].Name)

	all, err := s.ListProjects(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "bob_", all[2].Owner)

	owners, err := s.ListOwners(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob_"}, owners)
}

func TestDeleteProject_RemovesEverything(t *testing.T) {
	s := createTestProjectStore(t)
	ctx := t.Context()
	require.NoError(t, s.CreateProject(ctx, testProject("alice", "keep")))

	require.NoError(t, s.WriteNode(ctx, "alice", "demo", testNode("n1", "", 1)))
	require.NoError(t, s.WriteNode(ctx, "alice", "keep", testNode("n1", "", 1)))
	require.NoError(t, s.WriteBranch(ctx, "alice", "demo", record.Branch{ID: "b1", HeadID: "n1"}))
	require.NoError(t, s.WriteBranchGroup(ctx, "alice", "demo", record.BranchGroup{ID: "g1", BranchIDs: []string{"b1"}, Version: 1}))

	deleted, err := s.DeleteProject(ctx, "alice", "demo")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = s.ReadProject(ctx, "alice", "demo")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.ReadNode(ctx, "alice", "demo", "n1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.ReadBranchHead(ctx, "alice", "demo", "b1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.ReadBranchGroup(ctx, "alice", "demo", "g1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.ReadNode(ctx, "alice", "keep", "n1")
	assert.NoError(t, err, "other projects are untouched")

	deleted, err = s.DeleteProject(ctx, "alice", "demo")
	require.NoError(t, err)
	assert.False(t, deleted)
}
