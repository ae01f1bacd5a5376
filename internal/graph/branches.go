package graph

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/histore/internal/lock"
	"github.com/roach88/histore/internal/metrics"
	"github.com/roach88/histore/internal/record"
	"github.com/roach88/histore/internal/store"
)

// errMalformedHead marks a durable head record that failed shape
// validation on every attempt.
var errMalformedHead = errors.New("malformed branch head record")

// directory is the in-memory side of one project's Branch Directory.
//
// heads evicts the least recently updated entry. gen is bumped by every
// writer before it refreshes heads, so a reader that raced with a writer
// never caches the value it read.
type directory struct {
	heads  *lru[string, string]
	gen    atomic.Uint64
	flight singleflight.Group
}

func (g *Graph) directory(owner, project string) *directory {
	key := lock.Key{Owner: owner, Project: project}

	g.mu.Lock()
	defer g.mu.Unlock()

	d, ok := g.directories[key]
	if !ok {
		d = &directory{heads: newLRU[string, string](g.headCacheSize, false)}
		g.directories[key] = d
	}
	return d
}

// dropDirectory forgets the cached heads of a deleted project.
func (g *Graph) dropDirectory(owner, project string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.directories, lock.Key{Owner: owner, Project: project})
}

// Head returns the current head of a branch.
//
// The head cache is checked first. On a miss the durable pointer is read
// (concurrent misses for one branch share a single read) and validated; a
// malformed record is retried a bounded number of times with a short pause
// before giving up. Returns ok=false for an unknown branch.
func (g *Graph) Head(ctx context.Context, owner, project, branchID string) (head string, ok bool, err error) {
	dir := g.directory(owner, project)
	if head, ok := dir.heads.get(branchID); ok {
		g.metrics.CacheHit(metrics.CacheBranchHeads)
		return head, true, nil
	}
	g.metrics.CacheMiss(metrics.CacheBranchHeads)

	gen := dir.gen.Load()
	v, err, _ := dir.flight.Do(branchID, func() (any, error) {
		return g.readHead(context.WithoutCancel(ctx), owner, project, branchID)
	})
	if errors.Is(err, store.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	head = v.(string)
	dir.heads.putIf(branchID, head, func() bool { return dir.gen.Load() == gen })
	return head, true, nil
}

// readHead reads and validates one durable head pointer.
func (g *Graph) readHead(ctx context.Context, owner, project, branchID string) (string, error) {
	for attempt := 0; ; attempt++ {
		head, err := g.records.ReadBranchHead(ctx, owner, project, branchID)
		if err != nil {
			return "", err
		}
		if record.IsValidID(head) {
			return head, nil
		}
		if attempt >= g.headRetries {
			return "", fmt.Errorf("read head of branch %s: %w", branchID, errMalformedHead)
		}

		g.metrics.HeadReadRetried()
		g.logger.Debug("retrying malformed head read", "owner", owner, "project", project, "branch_id", branchID, "attempt", attempt+1)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(g.headBackoff):
		}
	}
}

// CreateBranch adds a branch pointing at an existing node.
// The durable pointer is written before the cache is updated.
func (g *Graph) CreateBranch(ctx context.Context, owner, project, branchID, headID string) error {
	exists, err := g.IsNode(ctx, owner, project, headID, "")
	if err != nil {
		return err
	}
	if !exists {
		return newError(CodeNodeNotFound, owner, project, headID, "branch head does not exist")
	}
	return g.writeBranch(ctx, owner, project, branchID, headID)
}

func (g *Graph) writeBranch(ctx context.Context, owner, project, branchID, headID string) error {
	if err := g.records.WriteBranch(ctx, owner, project, record.Branch{ID: branchID, HeadID: headID}); err != nil {
		return fmt.Errorf("create branch: %w", err)
	}
	dir := g.directory(owner, project)
	dir.gen.Add(1)
	dir.heads.put(branchID, headID)
	g.metrics.BranchCreated()
	return nil
}

// UpdateBranchHead moves an existing branch to a new head.
// Returns false if the branch does not exist. The durable pointer is
// written before the cache is updated.
func (g *Graph) UpdateBranchHead(ctx context.Context, owner, project, branchID, headID string) (bool, error) {
	ok, err := g.records.UpdateBranch(ctx, owner, project, record.Branch{ID: branchID, HeadID: headID})
	if err != nil {
		return false, fmt.Errorf("update branch head: %w", err)
	}
	if !ok {
		return false, nil
	}
	dir := g.directory(owner, project)
	dir.gen.Add(1)
	dir.heads.put(branchID, headID)
	return true, nil
}

// Branches returns every branch of the project with its current head,
// ordered by branch id.
func (g *Graph) Branches(ctx context.Context, owner, project string) ([]record.Branch, error) {
	branches, err := g.records.ListBranches(ctx, owner, project)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	return branches, nil
}

// BranchIDs returns the ids of every branch, ordered.
func (g *Graph) BranchIDs(ctx context.Context, owner, project string) ([]string, error) {
	branches, err := g.Branches(ctx, owner, project)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(branches))
	for i, b := range branches {
		ids[i] = b.ID
	}
	return ids, nil
}

// Heads returns the current head of every branch, in branch id order.
func (g *Graph) Heads(ctx context.Context, owner, project string) ([]string, error) {
	branches, err := g.Branches(ctx, owner, project)
	if err != nil {
		return nil, err
	}
	heads := make([]string, len(branches))
	for i, b := range branches {
		heads[i] = b.HeadID
	}
	return heads, nil
}

// IsBranch reports whether id names a branch of the project.
func (g *Graph) IsBranch(ctx context.Context, owner, project, id string) (bool, error) {
	_, ok, err := g.Head(ctx, owner, project, id)
	return ok, err
}

// BranchOfNode returns the branch whose current head is nodeID.
// A linear scan over all branches; the branch count per project is small.
func (g *Graph) BranchOfNode(ctx context.Context, owner, project, nodeID string) (string, bool, error) {
	branches, err := g.Branches(ctx, owner, project)
	if err != nil {
		return "", false, err
	}
	for _, b := range branches {
		if b.HeadID == nodeID {
			return b.ID, true, nil
		}
	}
	return "", false, nil
}

// ResolveRef resolves a branch id to its head; any other reference is
// returned unchanged as a node id.
func (g *Graph) ResolveRef(ctx context.Context, owner, project, ref string) (string, error) {
	head, ok, err := g.Head(ctx, owner, project, ref)
	if err != nil {
		return "", err
	}
	if ok {
		return head, nil
	}
	return ref, nil
}
