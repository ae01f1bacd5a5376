package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBranchGroup_CreateAndGet(t *testing.T) {
	g := newTestGraph(t)
	ctx := t.Context()
	b1, n1 := add(t, g, message("", "n1"))
	b2, _ := add(t, g, message(n1, "fork"))

	id, err := g.CreateBranchGroup(ctx, testOwner, testProject, []string{b1, b2}, "experiments")
	require.NoError(t, err)

	group, ok, err := g.GetBranchGroup(ctx, testOwner, testProject, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id, group.ID)
	assert.Equal(t, []string{b1, b2}, group.BranchIDs)
	assert.Equal(t, "experiments", group.Description)
	assert.Equal(t, int64(1), group.Version)

	ids, err := g.BranchGroupIDs(ctx, testOwner, testProject)
	require.NoError(t, err)
	assert.Equal(t, []string{id}, ids)
}

func TestBranchGroup_UnknownBranch(t *testing.T) {
	g := newTestGraph(t)
	b1, _ := add(t, g, message("", "n1"))

	_, err := g.CreateBranchGroup(t.Context(), testOwner, testProject, []string{b1, "nosuch"}, "")
	require.ErrorIs(t, err, ErrBranchNotFound)

	ids, err := g.BranchGroupIDs(t.Context(), testOwner, testProject)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestBranchGroup_UpdateBumpsVersion(t *testing.T) {
	g := newTestGraph(t)
	ctx := t.Context()
	b1, n1 := add(t, g, message("", "n1"))
	b2, _ := add(t, g, message(n1, "fork"))

	id, err := g.CreateBranchGroup(ctx, testOwner, testProject, []string{b1}, "one")
	require.NoError(t, err)

	updated, err := g.UpdateBranchGroup(ctx, testOwner, testProject, id, []string{b1, b2}, "two")
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)
	assert.Equal(t, []string{b1, b2}, updated.BranchIDs)

	stored, ok, err := g.GetBranchGroup(ctx, testOwner, testProject, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, updated, stored)
}

func TestBranchGroup_UpdateErrors(t *testing.T) {
	g := newTestGraph(t)
	ctx := t.Context()
	b1, _ := add(t, g, message("", "n1"))
	id, err := g.CreateBranchGroup(ctx, testOwner, testProject, []string{b1}, "")
	require.NoError(t, err)

	_, err = g.UpdateBranchGroup(ctx, testOwner, testProject, "nosuch", []string{b1}, "")
	assert.ErrorIs(t, err, ErrBranchGroupNotFound)

	_, err = g.UpdateBranchGroup(ctx, testOwner, testProject, id, []string{"nosuch"}, "")
	assert.ErrorIs(t, err, ErrBranchNotFound)

	_, err = g.UpdateBranchGroup(ctx, testOwner, "nosuch", id, []string{b1}, "")
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestBranchGroup_UpdateProjectLocked(t *testing.T) {
	g := newTestGraph(t, WithLockTimeout(10*time.Millisecond))
	ctx := t.Context()
	b1, n1 := add(t, g, message("", "n1"))
	b2, _ := add(t, g, message(n1, "fork"))
	id, err := g.CreateBranchGroup(ctx, testOwner, testProject, []string{b1}, "one")
	require.NoError(t, err)

	l := g.locks.Project(testOwner, testProject)
	require.True(t, l.TryAcquire())
	_, err = g.UpdateBranchGroup(ctx, testOwner, testProject, id, []string{b1, b2}, "two")
	l.Release()
	require.ErrorIs(t, err, ErrProjectLocked)

	group, ok, err := g.GetBranchGroup(ctx, testOwner, testProject, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1), group.Version)
	assert.Equal(t, []string{b1}, group.BranchIDs)
}

func TestBranchGroup_GetMissing(t *testing.T) {
	g := newTestGraph(t)

	_, ok, err := g.GetBranchGroup(t.Context(), testOwner, testProject, "nosuch")
	require.NoError(t, err)
	assert.False(t, ok)
}
