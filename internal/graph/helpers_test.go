package graph

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/histore/internal/record"
	"github.com/roach88/histore/internal/store"
	"github.com/roach88/histore/internal/testutil"
)

const (
	testOwner   = "alice"
	testProject = "demo"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// newTestGraphOver creates a deterministic graph over records with the
// project alice/demo already created.
func newTestGraphOver(t *testing.T, records Records, opts ...Option) *Graph {
	t.Helper()
	base := []Option{
		WithIDGenerator(testutil.NewSequentialIDs()),
		WithClock(testutil.NewFixedClock().Now),
		WithLogger(discardLogger()),
	}
	g := New(records, append(base, opts...)...)
	_, err := g.CreateProject(t.Context(), testOwner, testProject, "test project")
	require.NoError(t, err)
	return g
}

func newTestGraph(t *testing.T, opts ...Option) *Graph {
	t.Helper()
	return newTestGraphOver(t, openTestStore(t), opts...)
}

func message(parentRef, text string) record.Draft {
	return record.Draft{
		Type:      record.TypeMessage,
		ParentRef: parentRef,
		Author:    testOwner,
		Content:   record.Object{"text": record.String(text)},
	}
}

// add writes a non-silent node and fails the test on error.
func add(t *testing.T, g *Graph, d record.Draft) (branchID, nodeID string) {
	t.Helper()
	branchID, nodeID, err := g.AddNode(t.Context(), testOwner, testProject, d, false)
	require.NoError(t, err)
	return branchID, nodeID
}

func getNode(t *testing.T, g *Graph, id string) record.Node {
	t.Helper()
	n, ok, err := g.GetNode(t.Context(), testOwner, testProject, id)
	require.NoError(t, err)
	require.True(t, ok, "node %s should exist", id)
	return n
}

func head(t *testing.T, g *Graph, branchID string) string {
	t.Helper()
	h, ok, err := g.Head(t.Context(), testOwner, testProject, branchID)
	require.NoError(t, err)
	require.True(t, ok, "branch %s should exist", branchID)
	return h
}

func pathIDs(nodes []record.Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}
