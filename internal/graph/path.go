package graph

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/histore/internal/lock"
	"github.com/roach88/histore/internal/metrics"
	"github.com/roach88/histore/internal/record"
)

// PathOptions filters a path view.
type PathOptions struct {
	// Types keeps only nodes of these types. Empty keeps every node.
	// Traversal still passes through nodes that are filtered out.
	Types []string

	// RootID stops the walk at this node, which is excluded from the result.
	RootID string
}

// GetPath returns the history ending at id, newest first: the starting node
// first, the genesis node last. id is resolved as a branch (its head) or
// else as a node id.
//
// Walks are memoized: the raw ancestor suffix of every visited node is
// cached and reused by later walks that reach it. Nodes are immutable, so
// cached suffixes never need invalidation. Filters and the root cut are
// applied as a view over the raw walk.
//
// Returned nodes share content maps with the cache; treat them as
// read-only.
//
// Errors: NodeNotFound if id resolves to nothing.
func (g *Graph) GetPath(ctx context.Context, owner, project, id string, opts PathOptions) ([]record.Node, error) {
	start, err := g.ResolveRef(ctx, owner, project, id)
	if err != nil {
		return nil, err
	}
	if start == "" {
		return nil, newError(CodeNodeNotFound, owner, project, id, "path start is empty")
	}
	raw, err := g.rawPath(ctx, owner, project, start)
	if err != nil {
		return nil, err
	}
	return pathView(raw, opts), nil
}

// rawPath returns the unfiltered walk from start to genesis. The returned
// slice may be shared with the cache and must not be modified.
func (g *Graph) rawPath(ctx context.Context, owner, project, start string) ([]record.Node, error) {
	key := nodeKey{owner: owner, project: project}

	var walked []record.Node
	var tail []record.Node
	for id := start; id != ""; {
		key.id = id
		if suffix, ok := g.paths.get(key); ok {
			g.metrics.CacheHit(metrics.CachePaths)
			tail = suffix
			break
		}
		g.metrics.CacheMiss(metrics.CachePaths)

		n, ok, err := g.GetNode(ctx, owner, project, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			if id == start {
				return nil, newError(CodeNodeNotFound, owner, project, id, "path start does not exist")
			}
			return nil, newError(CodeNodeNotFound, owner, project, id,
				fmt.Sprintf("ancestor of %s is missing", start))
		}
		walked = append(walked, n)
		id = n.ParentID
	}

	if len(walked) == 0 {
		return tail, nil
	}

	// One backing array; each cached suffix is a subslice of it.
	full := make([]record.Node, 0, len(walked)+len(tail))
	full = append(full, walked...)
	full = append(full, tail...)
	for i := range walked {
		key.id = walked[i].ID
		g.paths.put(key, full[i:])
	}
	return full, nil
}

// pathView copies the nodes of raw that pass the filter, stopping at the
// root cut.
func pathView(raw []record.Node, opts PathOptions) []record.Node {
	out := make([]record.Node, 0, len(raw))
	for _, n := range raw {
		if opts.RootID != "" && n.ID == opts.RootID {
			break
		}
		if len(opts.Types) == 0 || slices.Contains(opts.Types, n.Type) {
			out = append(out, n)
		}
	}
	return out
}

// dropPaths forgets the memoized walks of a deleted project.
func (g *Graph) dropPaths(owner, project string) {
	p := lock.Key{Owner: owner, Project: project}
	g.paths.removeIf(func(k nodeKey) bool { return k.in(p) })
}
