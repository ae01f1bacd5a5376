package graph

import (
	"cmp"
	"context"
	"slices"

	"github.com/roach88/histore/internal/record"
)

// BranchDetail summarizes one branch for listings.
type BranchDetail struct {
	BranchID  string        `json:"branch_id"`
	Head      record.Node   `json:"head"`
	Timestamp int64         `json:"timestamp"`
	Chats     []record.Node `json:"chats"`
	Stages    []record.Node `json:"stages"`
}

// BranchDetails describes the given branches (every branch when ids is
// empty): the head node, its timestamp, and the chat and stage nodes on its
// path, newest first. Results are ordered by head timestamp, then branch id.
//
// Errors: BranchNotFound for an unknown id.
func (g *Graph) BranchDetails(ctx context.Context, owner, project string, ids []string) ([]BranchDetail, error) {
	if len(ids) == 0 {
		all, err := g.BranchIDs(ctx, owner, project)
		if err != nil {
			return nil, err
		}
		ids = all
	}

	details := make([]BranchDetail, 0, len(ids))
	for _, id := range ids {
		headID, ok, err := g.Head(ctx, owner, project, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, newError(CodeBranchNotFound, owner, project, id, "branch does not exist")
		}

		path, err := g.GetPath(ctx, owner, project, headID, PathOptions{})
		if err != nil {
			return nil, err
		}

		d := BranchDetail{
			BranchID:  id,
			Head:      path[0],
			Timestamp: path[0].Timestamp,
			Chats:     pathView(path, PathOptions{Types: []string{record.TypeChat}}),
			Stages:    pathView(path, PathOptions{Types: []string{record.TypeStage}}),
		}
		details = append(details, d)
	}

	slices.SortStableFunc(details, func(a, b BranchDetail) int {
		if c := cmp.Compare(a.Timestamp, b.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.BranchID, b.BranchID)
	})
	return details, nil
}
