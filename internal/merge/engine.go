package merge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/histore/internal/graph"
	"github.com/roach88/histore/internal/metrics"
	"github.com/roach88/histore/internal/record"
)

// History is the part of the graph a merge reads and writes.
// *graph.Graph implements it.
type History interface {
	ResolveRef(ctx context.Context, owner, project, ref string) (string, error)
	GetNode(ctx context.Context, owner, project, id string) (record.Node, bool, error)
	GetPath(ctx context.Context, owner, project, id string, opts graph.PathOptions) ([]record.Node, error)
	AddNode(ctx context.Context, owner, project string, d record.Draft, silent bool) (branchID, nodeID string, err error)
}

var _ History = (*graph.Graph)(nil)

// Reason says why a merge did not happen.
type Reason string

const (
	ReasonNoCommonAncestor Reason = "no_common_ancestor"
	ReasonStageCrossed     Reason = "stage_crossed"
	ReasonConflict         Reason = "conflict"
	ReasonHeadNotFound     Reason = "head_not_found"
	ReasonNothingToMerge   Reason = "nothing_to_merge"
)

// Result is the outcome of a merge attempt. Either BranchID and NodeID are
// set, or Reason says why nothing was written.
type Result struct {
	BranchID       string              `json:"branch_id,omitempty"`
	NodeID         string              `json:"node_id,omitempty"`
	CommonParentID string              `json:"common_parent_id,omitempty"`
	HeadIDs        []string            `json:"head_ids,omitempty"`
	Reason         Reason              `json:"reason,omitempty"`
	Conflicts      map[string][]string `json:"conflicts,omitempty"`
	Stages         []string            `json:"stages,omitempty"`
	Missing        string              `json:"missing,omitempty"`
}

// Merged reports whether the merge wrote a merge node.
func (r Result) Merged() bool {
	return r.NodeID != ""
}

// Engine merges branches of a project.
//
// Thread-safety: Engine is safe for concurrent use. Concurrent merges in one
// project serialize on the project lock per write, not per merge.
type Engine struct {
	history History
	ids     record.IDGenerator
	logger  *slog.Logger
	metrics *metrics.Collector
}

// Option configures an Engine.
type Option func(*Engine)

// WithIDGenerator sets the generator for chat ids of continuation chats.
func WithIDGenerator(ids record.IDGenerator) Option {
	return func(e *Engine) {
		e.ids = ids
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics records merge outcomes on m.
func WithMetrics(m *metrics.Collector) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New creates a merge engine over history.
func New(history History, opts ...Option) *Engine {
	e := &Engine{
		history: history,
		ids:     record.RandomIDs{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Merge folds the given heads (branch ids or node ids) into a new branch
// and returns the merge node.
//
// Preconditions that make the merge impossible are reported in
// Result.Reason with a nil error. An error means a read or write failed
// (lock timeout, open transaction, storage); nodes already replayed stay
// orphaned and no branch reaches them.
func (e *Engine) Merge(ctx context.Context, owner, project, author string, headRefs []string) (Result, error) {
	res, err := e.merge(ctx, owner, project, author, headRefs)
	switch {
	case err != nil:
		e.logger.Error("merge failed", "owner", owner, "project", project, "heads", headRefs, "error", err)
	case res.Merged():
		e.metrics.MergeFinished(metrics.OutcomeMerged)
		e.logger.Info("merge committed",
			"owner", owner,
			"project", project,
			"branch_id", res.BranchID,
			"node_id", res.NodeID,
			"common_parent_id", res.CommonParentID,
			"heads", len(res.HeadIDs),
		)
	default:
		e.metrics.MergeFinished(string(res.Reason))
		e.logger.Info("merge not possible", "owner", owner, "project", project, "reason", res.Reason)
	}
	return res, err
}

func (e *Engine) merge(ctx context.Context, owner, project, author string, headRefs []string) (Result, error) {
	if len(headRefs) == 0 {
		return Result{Reason: ReasonNothingToMerge}, nil
	}

	heads := make([]string, len(headRefs))
	for i, ref := range headRefs {
		id, err := e.history.ResolveRef(ctx, owner, project, ref)
		if err != nil {
			return Result{}, fmt.Errorf("merge: %w", err)
		}
		_, ok, err := e.history.GetNode(ctx, owner, project, id)
		if err != nil {
			return Result{}, fmt.Errorf("merge: %w", err)
		}
		if !ok {
			return Result{Reason: ReasonHeadNotFound, Missing: ref}, nil
		}
		heads[i] = id
	}
	res := Result{HeadIDs: heads}

	ancestor, ok, err := e.CommonParent(ctx, owner, project, heads)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		res.Reason = ReasonNoCommonAncestor
		return res, nil
	}
	res.CommonParentID = ancestor

	for _, head := range heads {
		stages, err := e.StageNodes(ctx, owner, project, head, ancestor)
		if err != nil {
			return Result{}, err
		}
		for _, s := range stages {
			res.Stages = append(res.Stages, s.ID)
		}
	}
	if len(res.Stages) > 0 {
		res.Reason = ReasonStageCrossed
		return res, nil
	}

	conflicts, err := e.MergeConflicts(ctx, owner, project, ancestor, heads)
	if err != nil {
		return Result{}, err
	}
	if len(conflicts) > 0 {
		res.Reason = ReasonConflict
		res.Conflicts = conflicts
		return res, nil
	}

	steps, err := e.plan(ctx, owner, project, ancestor, heads)
	if err != nil {
		return Result{}, err
	}
	if len(steps) == 0 {
		res.Reason = ReasonNothingToMerge
		return res, nil
	}

	last, provenance, err := e.commit(ctx, owner, project, ancestor, steps)
	if err != nil {
		return Result{}, err
	}

	res.BranchID, res.NodeID, err = e.history.AddNode(ctx, owner, project, record.Draft{
		Type:      record.TypeMerge,
		ParentRef: last,
		Author:    author,
		Content: record.Object{
			"common_parent_id": record.String(ancestor),
			"head_ids":         record.StringArray(heads),
			"provenance":       provenance,
		},
	}, false)
	if err != nil {
		return Result{}, fmt.Errorf("merge: write merge node: %w", err)
	}
	return res, nil
}
