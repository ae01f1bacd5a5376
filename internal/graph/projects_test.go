package graph

import (
	"sync/atomic"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/histore/internal/lock"
	"github.com/roach88/histore/internal/metrics"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"letters", "demo", false},
		{"digits and underscores", "my_project_2", false},
		{"empty", "", true},
		{"too short", "abc", true},
		{"hyphen", "my-project", true},
		{"space", "my project", true},
		{"slash", "a/b/c/d", true},
		{"unicode", "projét", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateProject_InvalidName(t *testing.T) {
	g := New(openTestStore(t), WithLogger(discardLogger()))

	_, err := g.CreateProject(t.Context(), "bob", "valid", "")
	assert.ErrorIs(t, err, ErrInvalidName, "owner too short")

	_, err = g.CreateProject(t.Context(), "alice", "no-dash", "")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestCreateProject_Exists(t *testing.T) {
	g := newTestGraph(t)

	_, err := g.CreateProject(t.Context(), testOwner, testProject, "again")
	require.ErrorIs(t, err, ErrProjectExists)
}

func TestCreateProject_OwnerLockTimeout(t *testing.T) {
	g := newTestGraph(t, WithOwnerLockTimeout(10*time.Millisecond))

	l := g.locks.Owner(testOwner)
	require.True(t, l.TryAcquire())
	defer l.Release()

	_, err := g.CreateProject(t.Context(), testOwner, "blocked", "")
	require.ErrorIs(t, err, ErrProjectLocked)
}

func TestProjectsAndOwners(t *testing.T) {
	g := newTestGraph(t)
	ctx := t.Context()
	_, err := g.CreateProject(ctx, testOwner, "zeta", "")
	require.NoError(t, err)
	_, err = g.CreateProject(ctx, "carol", "notes", "")
	require.NoError(t, err)

	projects, err := g.Projects(ctx, testOwner)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, testProject, projects[0].Name)
	assert.Equal(t, "zeta", projects[1].Name)

	owners, err := g.Owners(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{testOwner, "carol"}, owners)

	p, ok, err := g.Project(ctx, testOwner, testProject)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "test project", p.Description)

	_, ok, err = g.Project(ctx, testOwner, "nosuch")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteProject_ForgetsEverything(t *testing.T) {
	m := metrics.NewCollector("histore")
	g := newTestGraph(t, WithMetrics(m))
	ctx := t.Context()

	b, _ := add(t, g, message("", "root"))
	_, err := g.GetPath(ctx, testOwner, testProject, b, PathOptions{})
	require.NoError(t, err)
	_, _, _, err = g.StartTransaction(ctx, testOwner, testProject, b, testOwner)
	require.NoError(t, err)
	assert.Equal(t, 1.0, prom.ToFloat64(m.TransactionsOpen))

	require.NoError(t, g.DeleteProject(ctx, testOwner, testProject))

	assert.Zero(t, g.paths.len())
	_, open := g.OpenTransaction(testOwner, testProject)
	assert.False(t, open)
	assert.Equal(t, 0.0, prom.ToFloat64(m.TransactionsOpen))
	assert.Zero(t, g.locks.Len())

	_, _, err = g.AddNode(ctx, testOwner, testProject, message("", "x"), false)
	require.ErrorIs(t, err, ErrProjectNotFound)

	// The name is free again and the new project starts empty.
	_, err = g.CreateProject(ctx, testOwner, testProject, "")
	require.NoError(t, err)
	ids, err := g.BranchIDs(ctx, testOwner, testProject)
	require.NoError(t, err)
	assert.Empty(t, ids)
	_, ok, err := g.Head(ctx, testOwner, testProject, b)
	require.NoError(t, err)
	assert.False(t, ok, "no stale head survives the delete")

	_, root := add(t, g, message("", "fresh"))
	assert.Equal(t, int64(1), getNode(t, g, root).Version)
}

func TestDeleteProject_NotFound(t *testing.T) {
	g := newTestGraph(t)

	err := g.DeleteProject(t.Context(), testOwner, "nosuch")
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestLockAllProjectsOfOwner_BlocksWriters(t *testing.T) {
	g := newTestGraph(t, WithLockTimeout(-1))
	ctx := t.Context()
	_, err := g.CreateProject(ctx, testOwner, "second", "")
	require.NoError(t, err)

	release, err := g.LockAllProjectsOfOwner(ctx, testOwner)
	require.NoError(t, err)

	var written atomic.Bool
	done := make(chan error, 1)
	go func() {
		_, _, err := g.AddNode(ctx, testOwner, "second", message("", "waiting"), false)
		written.Store(true)
		done <- err
	}()

	time.Sleep(30 * time.Millisecond)
	assert.False(t, written.Load(), "the writer waits for the bulk lock")

	release()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("writer never got the lock")
	}
}

func TestLockAllProjects_CoversEveryOwner(t *testing.T) {
	g := newTestGraph(t)
	ctx := t.Context()
	_, err := g.CreateProject(ctx, "carol", "notes", "")
	require.NoError(t, err)

	release, err := g.LockAllProjects(ctx)
	require.NoError(t, err)
	defer release()

	for _, k := range []lock.Key{{Owner: testOwner, Project: testProject}, {Owner: "carol", Project: "notes"}} {
		assert.False(t, g.locks.Project(k.Owner, k.Project).TryAcquire(), "%s should be held", k)
	}
}
