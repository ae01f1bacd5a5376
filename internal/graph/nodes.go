package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/histore/internal/lock"
	"github.com/roach88/histore/internal/record"
	"github.com/roach88/histore/internal/store"
)

// parent is a resolved parent reference.
type parent struct {
	nodeID   string // empty for a new root
	branchID string // set when the reference named a branch
}

// resolveParent resolves a draft's parent reference: a branch id yields its
// current head, otherwise the reference must be a node id.
func (g *Graph) resolveParent(ctx context.Context, owner, project, ref string) (parent, error) {
	if ref == "" {
		return parent{}, nil
	}

	head, ok, err := g.Head(ctx, owner, project, ref)
	if err != nil {
		return parent{}, err
	}
	if ok {
		return parent{nodeID: head, branchID: ref}, nil
	}

	exists, err := g.IsNode(ctx, owner, project, ref, "")
	if err != nil {
		return parent{}, err
	}
	if !exists {
		return parent{}, newError(CodeInvalidParent, owner, project, ref, "parent is neither a branch nor a node")
	}
	return parent{nodeID: ref}, nil
}

// AddNode appends a node to the project's history.
//
// The parent reference is resolved (branch id first, then node id), the
// transaction gate is applied, and the project lock is taken. Under the
// lock the version is assigned: the frozen transaction version for members
// of the open transaction, otherwise the current maximum plus one. The node
// is written durably, then the branch effect is applied:
//   - no parent: a new branch is created with the node as head
//   - parent is a branch head: that branch advances to the node
//   - parent is not a head (a fork): a new branch is created, unless silent
//     is set, in which case the node is left unreachable from any branch
//
// Returns the affected branch id ("" for a silent fork) and the new node id.
//
// Errors: ProjectNotFound, InvalidParent, ProjectLocked,
// LockedByTransaction, InvalidTransaction, BranchingRefused.
func (g *Graph) AddNode(ctx context.Context, owner, project string, d record.Draft, silent bool) (branchID, nodeID string, err error) {
	if err := g.requireProject(ctx, owner, project); err != nil {
		return "", "", err
	}
	key := lock.Key{Owner: owner, Project: project}

	// Fail fast before waiting for the lock.
	if _, err := g.resolveParent(ctx, owner, project, d.ParentRef); err != nil {
		return "", "", err
	}
	txn, isOpen := g.txns.get(key)
	if _, err := gate(owner, project, d, txn, isOpen); err != nil {
		return "", "", err
	}

	l, err := g.lockProject(ctx, owner, project)
	if err != nil {
		return "", "", err
	}
	defer l.Release()

	// Authoritative checks under the lock: a branch may have advanced and a
	// transaction may have opened or closed while we waited.
	p, err := g.resolveParent(ctx, owner, project, d.ParentRef)
	if err != nil {
		return "", "", err
	}
	txn, isOpen = g.txns.get(key)
	role, err := gate(owner, project, d, txn, isOpen)
	if err != nil {
		return "", "", err
	}

	headOf := p.branchID
	if p.nodeID != "" && headOf == "" {
		headOf, _, err = g.BranchOfNode(ctx, owner, project, p.nodeID)
		if err != nil {
			return "", "", err
		}
	}

	if (role == gateMember || role == gateCloses) && p.nodeID != "" && headOf == "" {
		return "", "", newError(CodeBranchingRefused, owner, project, p.nodeID,
			"branching refused in middle of transaction")
	}

	version := txn.version
	if role != gateMember && role != gateCloses {
		current, err := g.records.MaxVersion(ctx, owner, project)
		if err != nil {
			return "", "", fmt.Errorf("add node: %w", err)
		}
		version = current + 1
	}

	n := record.Node{
		ID:            g.ids.NewID(),
		Type:          d.Type,
		ParentID:      p.nodeID,
		Author:        d.Author,
		Content:       d.Content.Clone(),
		Version:       version,
		Timestamp:     g.now().Unix(),
		TransactionID: d.TransactionID,
	}
	if n.Content == nil {
		n.Content = record.Object{}
	}
	if err := g.records.WriteNode(ctx, owner, project, n); err != nil {
		return "", "", fmt.Errorf("add node: %w", err)
	}
	g.metrics.NodeWritten(n.Type)

	switch role {
	case gateOpens:
		g.txns.begin(key, openTransaction{id: n.TransactionID, version: version})
		g.metrics.TransactionOpened()
		g.logger.Info("transaction started", "owner", owner, "project", project, "transaction_id", n.TransactionID, "version", version)
	case gateCloses:
		g.txns.end(key)
		g.metrics.TransactionClosed()
		g.logger.Info("transaction ended", "owner", owner, "project", project, "transaction_id", n.TransactionID, "version", version)
	}

	switch {
	case headOf != "":
		ok, err := g.UpdateBranchHead(ctx, owner, project, headOf, n.ID)
		if err != nil {
			return "", "", fmt.Errorf("add node: %w", err)
		}
		if !ok {
			return "", "", fmt.Errorf("add node: branch %s vanished during write", headOf)
		}
		branchID = headOf
	case p.nodeID != "" && silent:
		branchID = ""
	default:
		branchID = g.ids.NewID()
		if err := g.writeBranch(ctx, owner, project, branchID, n.ID); err != nil {
			return "", "", fmt.Errorf("add node: %w", err)
		}
	}

	g.logger.Debug("node written",
		"owner", owner,
		"project", project,
		"node_id", n.ID,
		"type", n.Type,
		"parent_id", n.ParentID,
		"branch_id", branchID,
		"version", n.Version,
		"silent", silent,
	)

	return branchID, n.ID, nil
}

// GetNode fetches one node by id. No traversal.
// Returns found=false (and no error) when the node does not exist.
func (g *Graph) GetNode(ctx context.Context, owner, project, id string) (record.Node, bool, error) {
	n, err := g.records.ReadNode(ctx, owner, project, id)
	if errors.Is(err, store.ErrNotFound) {
		return record.Node{}, false, nil
	}
	if err != nil {
		return record.Node{}, false, fmt.Errorf("get node: %w", err)
	}
	return n, true, nil
}

// IsNode reports whether id names a node of the project. When nodeType is
// not empty the node must also have that type.
func (g *Graph) IsNode(ctx context.Context, owner, project, id, nodeType string) (bool, error) {
	n, ok, err := g.GetNode(ctx, owner, project, id)
	if err != nil || !ok {
		return false, err
	}
	return nodeType == "" || n.Type == nodeType, nil
}
