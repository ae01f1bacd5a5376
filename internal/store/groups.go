package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/histore/internal/record"
)

// WriteBranchGroup inserts a new branch group.
// Returns ErrExists if the group id is already taken in the project.
func (s *Store) WriteBranchGroup(ctx context.Context, owner, project string, g record.BranchGroup) error {
	idsJSON, err := marshalBranchIDs(g.BranchIDs)
	if err != nil {
		return fmt.Errorf("write branch group: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO branch_groups (owner, project, id, branch_ids, description, version)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner, project, id) DO NOTHING
	`, owner, project, g.ID, idsJSON, g.Description, g.Version)
	if err != nil {
		return fmt.Errorf("write branch group: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("write branch group: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("write branch group %s: %w", g.ID, ErrExists)
	}
	return nil
}

// UpdateBranchGroup replaces the branch list, description and version of
// an existing group. Returns false if the group does not exist.
func (s *Store) UpdateBranchGroup(ctx context.Context, owner, project string, g record.BranchGroup) (bool, error) {
	idsJSON, err := marshalBranchIDs(g.BranchIDs)
	if err != nil {
		return false, fmt.Errorf("update branch group: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE branch_groups SET branch_ids = ?, description = ?, version = ?
		WHERE owner = ? AND project = ? AND id = ?
	`, idsJSON, g.Description, g.Version, owner, project, g.ID)
	if err != nil {
		return false, fmt.Errorf("update branch group: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update branch group: rows affected: %w", err)
	}
	return rows > 0, nil
}

// ReadBranchGroup retrieves a branch group by id.
// Returns ErrNotFound if the group does not exist.
func (s *Store) ReadBranchGroup(ctx context.Context, owner, project, id string) (record.BranchGroup, error) {
	var g record.BranchGroup
	var idsJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, branch_ids, description, version FROM branch_groups
		WHERE owner = ? AND project = ? AND id = ?
	`, owner, project, id).Scan(&g.ID, &idsJSON, &g.Description, &g.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return record.BranchGroup{}, ErrNotFound
	}
	if err != nil {
		return record.BranchGroup{}, fmt.Errorf("read branch group: %w", err)
	}

	ids, err := unmarshalBranchIDs(idsJSON)
	if err != nil {
		return record.BranchGroup{}, fmt.Errorf("read branch group: %w", err)
	}
	g.BranchIDs = ids
	return g, nil
}

// ListBranchGroupIDs returns the ids of every group in the project, ordered.
func (s *Store) ListBranchGroupIDs(ctx context.Context, owner, project string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM branch_groups
		WHERE owner = ? AND project = ?
		ORDER BY id COLLATE BINARY ASC
	`, owner, project)
	if err != nil {
		return nil, fmt.Errorf("query branch groups: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan branch group: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate branch groups: %w", err)
	}
	return ids, nil
}
