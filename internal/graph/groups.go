package graph

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/histore/internal/record"
	"github.com/roach88/histore/internal/store"
)

// validateBranches fails with BranchNotFound for the first unknown id.
func (g *Graph) validateBranches(ctx context.Context, owner, project string, branchIDs []string) error {
	for _, id := range branchIDs {
		ok, err := g.IsBranch(ctx, owner, project, id)
		if err != nil {
			return err
		}
		if !ok {
			return newError(CodeBranchNotFound, owner, project, id, "branch group lists an unknown branch")
		}
	}
	return nil
}

// CreateBranchGroup stores a new group at version 1 and returns its id.
// Every listed branch must exist.
func (g *Graph) CreateBranchGroup(ctx context.Context, owner, project string, branchIDs []string, description string) (string, error) {
	if err := g.requireProject(ctx, owner, project); err != nil {
		return "", err
	}
	if err := g.validateBranches(ctx, owner, project, branchIDs); err != nil {
		return "", err
	}

	group := record.BranchGroup{
		ID:          g.ids.NewID(),
		BranchIDs:   slices.Clone(branchIDs),
		Description: description,
		Version:     1,
	}
	if err := g.records.WriteBranchGroup(ctx, owner, project, group); err != nil {
		return "", fmt.Errorf("create branch group: %w", err)
	}

	g.logger.Debug("branch group created", "owner", owner, "project", project, "group_id", group.ID, "branches", len(branchIDs))
	return group.ID, nil
}

// UpdateBranchGroup replaces a group's branches and description and bumps
// its version. Takes the project write lock.
//
// Errors: BranchGroupNotFound, BranchNotFound, ProjectLocked.
func (g *Graph) UpdateBranchGroup(ctx context.Context, owner, project, groupID string, branchIDs []string, description string) (record.BranchGroup, error) {
	if err := g.requireProject(ctx, owner, project); err != nil {
		return record.BranchGroup{}, err
	}

	l, err := g.lockProject(ctx, owner, project)
	if err != nil {
		return record.BranchGroup{}, err
	}
	defer l.Release()

	group, ok, err := g.GetBranchGroup(ctx, owner, project, groupID)
	if err != nil {
		return record.BranchGroup{}, err
	}
	if !ok {
		return record.BranchGroup{}, newError(CodeBranchGroupNotFound, owner, project, groupID, "branch group does not exist")
	}
	if err := g.validateBranches(ctx, owner, project, branchIDs); err != nil {
		return record.BranchGroup{}, err
	}

	group.BranchIDs = slices.Clone(branchIDs)
	group.Description = description
	group.Version++

	updated, err := g.records.UpdateBranchGroup(ctx, owner, project, group)
	if err != nil {
		return record.BranchGroup{}, fmt.Errorf("update branch group: %w", err)
	}
	if !updated {
		return record.BranchGroup{}, newError(CodeBranchGroupNotFound, owner, project, groupID, "branch group does not exist")
	}
	return group, nil
}

// GetBranchGroup fetches a group. Returns found=false for an unknown id.
func (g *Graph) GetBranchGroup(ctx context.Context, owner, project, groupID string) (record.BranchGroup, bool, error) {
	group, err := g.records.ReadBranchGroup(ctx, owner, project, groupID)
	if errors.Is(err, store.ErrNotFound) {
		return record.BranchGroup{}, false, nil
	}
	if err != nil {
		return record.BranchGroup{}, false, fmt.Errorf("get branch group: %w", err)
	}
	return group, true, nil
}

// BranchGroupIDs returns the ids of every group in the project, ordered.
func (g *Graph) BranchGroupIDs(ctx context.Context, owner, project string) ([]string, error) {
	ids, err := g.records.ListBranchGroupIDs(ctx, owner, project)
	if err != nil {
		return nil, fmt.Errorf("list branch groups: %w", err)
	}
	return ids, nil
}
