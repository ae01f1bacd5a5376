package harness

import (
	"testing"

	prom "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, yaml string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(yaml))
	require.NoError(t, err)
	return s
}

func TestRun_LinearHistory(t *testing.T) {
	s := mustParse(t, `
name: linear
description: "two nodes on one branch"
steps:
  - op: create_project
  - op: add_node
    as: root
    branch: main
    args: { content: { text: "root" } }
  - op: add_node
    as: next
    args: { parent: "$main", content: { text: "next" } }
assertions:
  - type: path
    ref: "$main"
    nodes: ["$next", "$root"]
  - type: head
    ref: "$main"
    nodes: ["$next"]
`)
	result, err := Run(t.Context(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Trace, 3)
	assert.Equal(t, int64(1), result.Trace[0].Seq)
	assert.Equal(t, OpCreateProject, result.Trace[0].Op)
	assert.Equal(t, map[string]any{"branch": "main", "node": "next", "version": int64(2)}, result.Trace[2].Result)

	assert.Len(t, result.Labels, 3)
	assert.Len(t, result.Labels["root"], 32, "labels map to generated ids")
}

func TestRun_UnexpectedErrorFailsScenario(t *testing.T) {
	s := mustParse(t, `
name: no_project
description: "writing before the project exists"
steps:
  - op: add_node
    args: { content: { text: "x" } }
`)
	result, err := Run(t.Context(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `expected error "", got "PROJECT_NOT_FOUND"`)
	assert.Equal(t, "PROJECT_NOT_FOUND", result.Trace[0].Error)
}

func TestRun_MissingExpectedErrorFailsScenario(t *testing.T) {
	s := mustParse(t, `
name: wrong_expectation
description: "a write that succeeds but was expected to fail"
steps:
  - op: create_project
  - op: add_node
    args: { content: { text: "x" } }
    expect: { error: INVALID_PARENT }
`)
	result, err := Run(t.Context(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], `expected error "INVALID_PARENT", got ""`)
}

func TestRun_WrongMergeReason(t *testing.T) {
	s := mustParse(t, `
name: wrong_reason
description: "merging one head"
steps:
  - op: create_project
  - op: add_node
    branch: main
    args: { content: { text: "x" } }
  - op: merge
    args: { heads: ["$main"] }
    expect: { reason: conflict }
`)
	result, err := Run(t.Context(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], `expected reason "conflict", got "nothing_to_merge"`)
}

func TestRun_UnknownLabelIsAnError(t *testing.T) {
	s := mustParse(t, `
name: bad_label
description: "refers to a label nobody saved"
steps:
  - op: create_project
  - op: add_node
    args: { parent: "$nowhere" }
`)
	_, err := Run(t.Context(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 1 (add_node)")
	assert.Contains(t, err.Error(), `unknown label "nowhere"`)
}

func TestRun_BadArgumentIsAnError(t *testing.T) {
	s := mustParse(t, `
name: bad_arg
description: "silent must be a bool"
steps:
  - op: create_project
  - op: add_node
    args: { silent: "yes please" }
`)
	_, err := Run(t.Context(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected bool")
}

func TestRun_SilentForkHasNoBranch(t *testing.T) {
	s := mustParse(t, `
name: silent_fork
description: "a silent fork stays unreachable"
steps:
  - op: create_project
  - op: add_node
    as: root
    branch: main
    args: { content: { text: "root" } }
  - op: add_node
    args: { parent: "$main", content: { text: "next" } }
  - op: add_node
    as: hidden
    args: { parent: "$root", silent: true, content: { text: "hidden" } }
assertions:
  - type: branch_count
    count: 1
  - type: path
    ref: "$hidden"
    texts: ["hidden", "root"]
`)
	result, err := Run(t.Context(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.NotContains(t, result.Trace[3].Result, "branch")
}

func TestRun_DeleteProject(t *testing.T) {
	s := mustParse(t, `
name: delete
description: "a deleted project refuses writes and can be recreated"
steps:
  - op: create_project
  - op: add_node
    args: { content: { text: "x" } }
  - op: delete_project
  - op: add_node
    args: { content: { text: "y" } }
    expect: { error: PROJECT_NOT_FOUND }
  - op: delete_project
    expect: { error: PROJECT_NOT_FOUND }
  - op: create_project
  - op: add_node
    as: fresh
    args: { content: { text: "z" } }
assertions:
  - type: node
    ref: "$fresh"
    version: 1
  - type: branch_count
    count: 1
`)
	result, err := Run(t.Context(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_Deterministic(t *testing.T) {
	s := mustParse(t, minimalScenario)

	result, err := Run(t.Context(), s)
	require.NoError(t, err)
	require.True(t, result.Pass)

	again, err := Run(t.Context(), s)
	require.NoError(t, err)
	assert.Equal(t, result.Trace, again.Trace)
	assert.Equal(t, result.Labels, again.Labels)
}

func TestHarness_MetricsCollectorIsWired(t *testing.T) {
	s := mustParse(t, minimalScenario)
	h, cleanup, err := newHarness(s)
	require.NoError(t, err)
	defer cleanup()

	result := NewResult()
	for i, step := range s.Steps {
		require.NoError(t, h.execute(t.Context(), i, step, result))
	}
	assert.Equal(t, 1.0, prom.ToFloat64(h.metrics.NodesWritten.WithLabelValues("note")))
}
