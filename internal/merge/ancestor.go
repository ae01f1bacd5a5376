package merge

import (
	"context"
	"fmt"

	"github.com/roach88/histore/internal/graph"
	"github.com/roach88/histore/internal/record"
)

// CommonParent returns the lowest common ancestor of the given node ids.
//
// Each head's full path is walked newest first while a visit count per
// node is kept; the first node whose count reaches the number of heads is
// the answer. Paths come from the graph's memoized walks, so the work is
// bounded by the sum of the path lengths.
//
// Returns found=false when the heads share no ancestor or heads is empty.
func (e *Engine) CommonParent(ctx context.Context, owner, project string, heads []string) (string, bool, error) {
	if len(heads) == 0 {
		return "", false, nil
	}

	visits := make(map[string]int)
	for _, head := range heads {
		path, err := e.history.GetPath(ctx, owner, project, head, graph.PathOptions{})
		if err != nil {
			return "", false, fmt.Errorf("common parent: %w", err)
		}
		for _, n := range path {
			visits[n.ID]++
			if visits[n.ID] == len(heads) {
				return n.ID, true, nil
			}
		}
	}
	return "", false, nil
}

// StageNodes returns the stage nodes after ancestorID up to and including
// headID, newest first.
func (e *Engine) StageNodes(ctx context.Context, owner, project, headID, ancestorID string) ([]record.Node, error) {
	stages, err := e.history.GetPath(ctx, owner, project, headID, graph.PathOptions{
		Types:  []string{record.TypeStage},
		RootID: ancestorID,
	})
	if err != nil {
		return nil, fmt.Errorf("stage nodes: %w", err)
	}
	return stages, nil
}
