package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/roach88/histore/internal/graph"
	"github.com/roach88/histore/internal/merge"
	"github.com/roach88/histore/internal/metrics"
	"github.com/roach88/histore/internal/record"
	"github.com/roach88/histore/internal/store"
	"github.com/roach88/histore/internal/testutil"
)

// Harness is the scenario execution engine.
// It runs steps against a real graph and merge engine over a private
// in-memory store, with deterministic ids and clock.
type Harness struct {
	graph   *graph.Graph
	engine  *merge.Engine
	metrics *metrics.Collector
	owner   string
	project string
	labels  *labels
	logger  *slog.Logger
}

type opFunc func(h *Harness, ctx context.Context, step Step, a args) (map[string]any, error)

var ops = map[string]opFunc{
	OpCreateProject:     (*Harness).createProject,
	OpDeleteProject:     (*Harness).deleteProject,
	OpAddNode:           (*Harness).addNode,
	OpStartTransaction:  (*Harness).startTransaction,
	OpEndTransaction:    (*Harness).endTransaction,
	OpMerge:             (*Harness).merge,
	OpCreateBranch:      (*Harness).createBranch,
	OpUpdateBranchHead:  (*Harness).updateBranchHead,
	OpCreateBranchGroup: (*Harness).createBranchGroup,
	OpUpdateBranchGroup: (*Harness).updateBranchGroup,
	OpCommonParent:      (*Harness).commonParent,
	OpConflicts:         (*Harness).conflicts,
	OpPath:              (*Harness).path,
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// A returned error means the scenario could not be executed (bad labels or
// arguments, storage failure); step and assertion mismatches are reported
// in Result.Errors instead.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	h, cleanup, err := newHarness(scenario)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.execute(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
	}

	for _, msg := range h.evaluate(ctx, scenario.Assertions) {
		result.AddError(msg)
	}

	for label, id := range h.labels.ids {
		result.Labels[label] = id
	}
	return result, nil
}

// newHarness wires a graph and merge engine over a fresh in-memory store.
// The returned cleanup closes the store.
func newHarness(scenario *Scenario) (*Harness, func(), error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}

	ids := testutil.NewSequentialIDs()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewCollector("histore")
	g := graph.New(st,
		graph.WithIDGenerator(ids),
		graph.WithClock(testutil.NewFixedClock().Now),
		graph.WithLogger(logger),
		graph.WithMetrics(m),
	)

	h := &Harness{
		graph:   g,
		engine:  merge.New(g, merge.WithIDGenerator(ids), merge.WithLogger(logger), merge.WithMetrics(m)),
		metrics: m,
		owner:   scenario.Owner,
		project: scenario.Project,
		labels:  newLabels(),
		logger:  logger,
	}
	if h.owner == "" {
		h.owner = DefaultOwner
	}
	if h.project == "" {
		h.project = DefaultProject
	}
	return h, func() { st.Close() }, nil
}

// execute runs one step, records it in the trace and checks its
// expectation.
func (h *Harness) execute(ctx context.Context, index int, step Step, result *Result) error {
	resolved, err := h.labels.resolve(step.Args)
	if err != nil {
		return err
	}
	a, _ := resolved.(map[string]any)

	out, err := ops[step.Op](h, ctx, step, args(a))
	code := string(graph.CodeOf(err))
	if err != nil && code == "" {
		return err
	}
	result.AddTrace(step.Op, step.Args, out, code)

	var want Expect
	if step.Expect != nil {
		want = *step.Expect
	}
	if code != want.Error {
		result.AddError(fmt.Sprintf("steps[%d] %s: expected error %q, got %q", index, step.Op, want.Error, code))
	}
	if want.Reason != "" {
		if got, _ := out["reason"].(string); got != want.Reason {
			result.AddError(fmt.Sprintf("steps[%d] %s: expected reason %q, got %q", index, step.Op, want.Reason, got))
		}
	}

	h.logger.Info("step completed", "step", index, "op", step.Op, "error", code)
	return nil
}

func (h *Harness) author(a args) (string, error) {
	author, err := a.str("author")
	if err != nil || author != "" {
		return author, err
	}
	return h.owner, nil
}

// written renders the outcome of a node write and saves its labels.
func (h *Harness) written(ctx context.Context, step Step, branchID, nodeID string) (map[string]any, error) {
	if err := h.labels.save(step.As, nodeID); err != nil {
		return nil, err
	}
	if err := h.labels.save(step.Branch, branchID); err != nil {
		return nil, err
	}
	n, _, err := h.graph.GetNode(ctx, h.owner, h.project, nodeID)
	if err != nil {
		return nil, err
	}
	out := map[string]any{
		"node":    h.labels.name(nodeID),
		"version": n.Version,
	}
	if branchID != "" {
		out["branch"] = h.labels.name(branchID)
	}
	return out, nil
}

func (h *Harness) createProject(ctx context.Context, _ Step, a args) (map[string]any, error) {
	description, err := a.str("description")
	if err != nil {
		return nil, err
	}
	_, err = h.graph.CreateProject(ctx, h.owner, h.project, description)
	return nil, err
}

func (h *Harness) deleteProject(ctx context.Context, _ Step, _ args) (map[string]any, error) {
	return nil, h.graph.DeleteProject(ctx, h.owner, h.project)
}

func (h *Harness) addNode(ctx context.Context, step Step, a args) (map[string]any, error) {
	parent, err := a.str("parent")
	if err != nil {
		return nil, err
	}
	nodeType, err := a.str("type")
	if err != nil {
		return nil, err
	}
	if nodeType == "" {
		nodeType = "note"
	}
	author, err := h.author(a)
	if err != nil {
		return nil, err
	}
	content, err := a.object("content")
	if err != nil {
		return nil, err
	}
	txn, err := a.str("txn")
	if err != nil {
		return nil, err
	}
	silent, err := a.boolean("silent")
	if err != nil {
		return nil, err
	}

	branchID, nodeID, err := h.graph.AddNode(ctx, h.owner, h.project, record.Draft{
		Type:          nodeType,
		ParentRef:     parent,
		Author:        author,
		Content:       content,
		TransactionID: txn,
	}, silent)
	if err != nil {
		return nil, err
	}
	return h.written(ctx, step, branchID, nodeID)
}

func (h *Harness) startTransaction(ctx context.Context, step Step, a args) (map[string]any, error) {
	parent, err := a.str("parent")
	if err != nil {
		return nil, err
	}
	author, err := h.author(a)
	if err != nil {
		return nil, err
	}
	branchID, nodeID, txnID, err := h.graph.StartTransaction(ctx, h.owner, h.project, parent, author)
	if err != nil {
		return nil, err
	}
	if err := h.labels.save(step.Txn, txnID); err != nil {
		return nil, err
	}
	out, err := h.written(ctx, step, branchID, nodeID)
	if err != nil {
		return nil, err
	}
	out["txn"] = h.labels.name(txnID)
	return out, nil
}

func (h *Harness) endTransaction(ctx context.Context, step Step, a args) (map[string]any, error) {
	parent, err := a.str("parent")
	if err != nil {
		return nil, err
	}
	author, err := h.author(a)
	if err != nil {
		return nil, err
	}
	txn, err := a.str("txn")
	if err != nil {
		return nil, err
	}
	branchID, nodeID, closedID, err := h.graph.EndTransaction(ctx, h.owner, h.project, parent, author, txn)
	if err != nil {
		return nil, err
	}
	out, err := h.written(ctx, step, branchID, nodeID)
	if err != nil {
		return nil, err
	}
	out["txn"] = h.labels.name(closedID)
	return out, nil
}

func (h *Harness) merge(ctx context.Context, step Step, a args) (map[string]any, error) {
	heads, err := a.strs("heads")
	if err != nil {
		return nil, err
	}
	author, err := h.author(a)
	if err != nil {
		return nil, err
	}
	res, err := h.engine.Merge(ctx, h.owner, h.project, author, heads)
	if err != nil {
		return nil, err
	}

	if res.Merged() {
		out, err := h.written(ctx, step, res.BranchID, res.NodeID)
		if err != nil {
			return nil, err
		}
		out["common_parent"] = h.labels.name(res.CommonParentID)
		out["heads"] = h.labels.nameAll(res.HeadIDs)
		return out, nil
	}

	out := map[string]any{"reason": string(res.Reason)}
	if res.CommonParentID != "" {
		out["common_parent"] = h.labels.name(res.CommonParentID)
	}
	if len(res.Conflicts) > 0 {
		out["conflicts"] = h.renderConflicts(res.Conflicts)
	}
	if len(res.Stages) > 0 {
		out["stages"] = h.labels.nameAll(res.Stages)
	}
	if res.Missing != "" {
		out["missing"] = res.Missing
	}
	return out, nil
}

// renderConflicts names conflict ids in sorted file order so auto labels
// are assigned deterministically.
func (h *Harness) renderConflicts(conflicts map[string][]string) map[string]any {
	files := make([]string, 0, len(conflicts))
	for f := range conflicts {
		files = append(files, f)
	}
	sort.Strings(files)
	out := make(map[string]any, len(conflicts))
	for _, f := range files {
		out[f] = h.labels.nameAll(conflicts[f])
	}
	return out
}

func (h *Harness) createBranch(ctx context.Context, step Step, a args) (map[string]any, error) {
	id, err := a.str("id")
	if err != nil {
		return nil, err
	}
	headRef, err := a.str("head")
	if err != nil {
		return nil, err
	}
	if err := h.graph.CreateBranch(ctx, h.owner, h.project, id, headRef); err != nil {
		return nil, err
	}
	if err := h.labels.save(step.Branch, id); err != nil {
		return nil, err
	}
	return map[string]any{"branch": h.labels.name(id), "head": h.labels.name(headRef)}, nil
}

func (h *Harness) updateBranchHead(ctx context.Context, _ Step, a args) (map[string]any, error) {
	branchID, err := a.str("branch")
	if err != nil {
		return nil, err
	}
	headID, err := a.str("head")
	if err != nil {
		return nil, err
	}
	updated, err := h.graph.UpdateBranchHead(ctx, h.owner, h.project, branchID, headID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"updated": updated}, nil
}

func (h *Harness) createBranchGroup(ctx context.Context, step Step, a args) (map[string]any, error) {
	branches, err := a.strs("branches")
	if err != nil {
		return nil, err
	}
	description, err := a.str("description")
	if err != nil {
		return nil, err
	}
	groupID, err := h.graph.CreateBranchGroup(ctx, h.owner, h.project, branches, description)
	if err != nil {
		return nil, err
	}
	if err := h.labels.save(step.As, groupID); err != nil {
		return nil, err
	}
	return map[string]any{"group": h.labels.name(groupID), "version": int64(1)}, nil
}

func (h *Harness) updateBranchGroup(ctx context.Context, _ Step, a args) (map[string]any, error) {
	groupID, err := a.str("group")
	if err != nil {
		return nil, err
	}
	branches, err := a.strs("branches")
	if err != nil {
		return nil, err
	}
	description, err := a.str("description")
	if err != nil {
		return nil, err
	}
	group, err := h.graph.UpdateBranchGroup(ctx, h.owner, h.project, groupID, branches, description)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"group":    h.labels.name(group.ID),
		"branches": h.labels.nameAll(group.BranchIDs),
		"version":  group.Version,
	}, nil
}

func (h *Harness) commonParent(ctx context.Context, _ Step, a args) (map[string]any, error) {
	heads, err := a.strs("heads")
	if err != nil {
		return nil, err
	}
	id, found, err := h.engine.CommonParent(ctx, h.owner, h.project, heads)
	if err != nil {
		return nil, err
	}
	out := map[string]any{"found": found}
	if found {
		out["node"] = h.labels.name(id)
	}
	return out, nil
}

func (h *Harness) conflicts(ctx context.Context, _ Step, a args) (map[string]any, error) {
	ancestor, err := a.str("ancestor")
	if err != nil {
		return nil, err
	}
	heads, err := a.strs("heads")
	if err != nil {
		return nil, err
	}
	conflicts, err := h.engine.MergeConflicts(ctx, h.owner, h.project, ancestor, heads)
	if err != nil {
		return nil, err
	}
	return map[string]any{"conflicts": h.renderConflicts(conflicts)}, nil
}

func (h *Harness) path(ctx context.Context, _ Step, a args) (map[string]any, error) {
	ref, err := a.str("ref")
	if err != nil {
		return nil, err
	}
	types, err := a.strs("types")
	if err != nil {
		return nil, err
	}
	root, err := a.str("root")
	if err != nil {
		return nil, err
	}
	nodes, err := h.graph.GetPath(ctx, h.owner, h.project, ref, graph.PathOptions{Types: types, RootID: root})
	if err != nil {
		return nil, err
	}
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = h.labels.name(n.ID)
	}
	return map[string]any{"nodes": names}, nil
}
