package merge

import (
	"context"
	"fmt"
	"path"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/histore/internal/graph"
	"github.com/roach88/histore/internal/record"
)

// FileIdentity is the logical identity of an artifact: its path joined
// with its filename.
func FileIdentity(artifact record.Node) string {
	dir, _ := artifact.Content.Str("path")
	name, _ := artifact.Content.Str("filename")
	return path.Join(dir, name)
}

// ArtifactDiff returns the artifact nodes that changed between two nodes on
// one line of history, one per file identity, newest first. The newer of
// the two (by version) is walked back to the older, which is excluded.
//
// Errors: NodeNotFound if either node is missing.
func (e *Engine) ArtifactDiff(ctx context.Context, owner, project, fromID, toID string) ([]record.Node, error) {
	from, err := e.node(ctx, owner, project, fromID)
	if err != nil {
		return nil, err
	}
	to, err := e.node(ctx, owner, project, toID)
	if err != nil {
		return nil, err
	}
	newer, older := from, to
	if from.Version < to.Version {
		newer, older = to, from
	}

	artifacts, err := e.history.GetPath(ctx, owner, project, newer.ID, graph.PathOptions{
		Types:  []string{record.TypeArtifact},
		RootID: older.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("artifact diff: %w", err)
	}

	seen := make(map[string]bool, len(artifacts))
	diff := make([]record.Node, 0, len(artifacts))
	for _, n := range artifacts {
		id := FileIdentity(n)
		if seen[id] {
			continue
		}
		seen[id] = true
		diff = append(diff, n)
	}
	return diff, nil
}

// MergeConflicts diffs every head against the ancestor and returns the file
// identities changed under more than one head, each with the ids of the
// changing artifact nodes in head order. Diffs are computed concurrently.
func (e *Engine) MergeConflicts(ctx context.Context, owner, project, ancestorID string, heads []string) (map[string][]string, error) {
	diffs := make([][]record.Node, len(heads))

	eg, egCtx := errgroup.WithContext(ctx)
	for i, head := range heads {
		eg.Go(func() error {
			diff, err := e.ArtifactDiff(egCtx, owner, project, head, ancestorID)
			if err != nil {
				return err
			}
			diffs[i] = diff
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("merge conflicts: %w", err)
	}

	changed := make(map[string][]string)
	conflicts := make(map[string][]string)
	for _, diff := range diffs {
		for _, n := range diff {
			id := FileIdentity(n)
			changed[id] = append(changed[id], n.ID)
			if len(changed[id]) > 1 {
				conflicts[id] = changed[id]
			}
		}
	}
	return conflicts, nil
}

// node fetches a node and maps absence to NodeNotFound.
func (e *Engine) node(ctx context.Context, owner, project, id string) (record.Node, error) {
	n, ok, err := e.history.GetNode(ctx, owner, project, id)
	if err != nil {
		return record.Node{}, err
	}
	if !ok {
		return record.Node{}, fmt.Errorf("node %s: %w", id, graph.ErrNodeNotFound)
	}
	return n, nil
}
