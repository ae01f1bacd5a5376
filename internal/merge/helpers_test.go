package merge

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/histore/internal/graph"
	"github.com/roach88/histore/internal/metrics"
	"github.com/roach88/histore/internal/record"
	"github.com/roach88/histore/internal/store"
	"github.com/roach88/histore/internal/testutil"
)

const (
	testOwner   = "alice"
	testProject = "demo"
)

// fixture is a graph and a merge engine sharing one deterministic id
// sequence.
type fixture struct {
	t       *testing.T
	graph   *graph.Graph
	engine  *Engine
	metrics *metrics.Collector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ids := testutil.NewSequentialIDs()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewCollector("histore")

	g := graph.New(s,
		graph.WithIDGenerator(ids),
		graph.WithClock(testutil.NewFixedClock().Now),
		graph.WithLogger(logger),
		graph.WithMetrics(m),
	)
	_, err = g.CreateProject(t.Context(), testOwner, testProject, "")
	require.NoError(t, err)

	e := New(g, WithIDGenerator(ids), WithLogger(logger), WithMetrics(m))
	return &fixture{t: t, graph: g, engine: e, metrics: m}
}

func (f *fixture) add(d record.Draft) (branchID, nodeID string) {
	f.t.Helper()
	branchID, nodeID, err := f.graph.AddNode(f.t.Context(), testOwner, testProject, d, false)
	require.NoError(f.t, err)
	return branchID, nodeID
}

func (f *fixture) merge(refs ...string) Result {
	f.t.Helper()
	res, err := f.engine.Merge(f.t.Context(), testOwner, testProject, testOwner, refs)
	require.NoError(f.t, err)
	return res
}

func (f *fixture) node(id string) record.Node {
	f.t.Helper()
	n, ok, err := f.graph.GetNode(f.t.Context(), testOwner, testProject, id)
	require.NoError(f.t, err)
	require.True(f.t, ok, "node %s should exist", id)
	return n
}

func (f *fixture) path(id string, types ...string) []record.Node {
	f.t.Helper()
	path, err := f.graph.GetPath(f.t.Context(), testOwner, testProject, id, graph.PathOptions{Types: types})
	require.NoError(f.t, err)
	return path
}

func (f *fixture) branchCount() int {
	f.t.Helper()
	ids, err := f.graph.BranchIDs(f.t.Context(), testOwner, testProject)
	require.NoError(f.t, err)
	return len(ids)
}

func note(parentRef, text string) record.Draft {
	return record.Draft{
		Type:      "note",
		ParentRef: parentRef,
		Author:    testOwner,
		Content:   record.Object{"text": record.String(text)},
	}
}

func chat(parentRef, chatID, name, parentChatNodeID string) record.Draft {
	content := record.Object{
		fieldChatID:           record.String(chatID),
		fieldChatName:         record.String(name),
		fieldParentChatNodeID: record.Null{},
	}
	if parentChatNodeID != "" {
		content[fieldParentChatNodeID] = record.String(parentChatNodeID)
	}
	return record.Draft{Type: record.TypeChat, ParentRef: parentRef, Author: testOwner, Content: content}
}

func msg(parentRef, chatID, text string) record.Draft {
	return record.Draft{
		Type:      record.TypeMessage,
		ParentRef: parentRef,
		Author:    testOwner,
		Content: record.Object{
			fieldChatID: record.String(chatID),
			"text":      record.String(text),
		},
	}
}

func artifact(parentRef, dir, filename, hash string) record.Draft {
	return record.Draft{
		Type:      record.TypeArtifact,
		ParentRef: parentRef,
		Author:    testOwner,
		Content: record.Object{
			"path":      record.String(dir),
			"filename":  record.String(filename),
			"filehash":  record.String(hash),
			"operation": record.String("add"),
		},
	}
}

func stage(parentRef, name string) record.Draft {
	return record.Draft{
		Type:      record.TypeStage,
		ParentRef: parentRef,
		Author:    testOwner,
		Content:   record.Object{"stage_name": record.String(name)},
	}
}

func texts(nodes []record.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i], _ = n.Content.Str("text")
	}
	return out
}
