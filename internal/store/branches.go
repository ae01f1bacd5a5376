package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/histore/internal/record"
)

// WriteBranch inserts a new branch pointer.
// Returns ErrExists if the branch id is already taken in the project.
func (s *Store) WriteBranch(ctx context.Context, owner, project string, b record.Branch) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO branches (owner, project, id, head_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(owner, project, id) DO NOTHING
	`, owner, project, b.ID, b.HeadID)
	if err != nil {
		return fmt.Errorf("write branch: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("write branch: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("write branch %s: %w", b.ID, ErrExists)
	}
	return nil
}

// UpdateBranch moves an existing branch pointer.
// Returns false (and no error) if the branch does not exist.
func (s *Store) UpdateBranch(ctx context.Context, owner, project string, b record.Branch) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE branches SET head_id = ?
		WHERE owner = ? AND project = ? AND id = ?
	`, b.HeadID, owner, project, b.ID)
	if err != nil {
		return false, fmt.Errorf("update branch: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update branch: rows affected: %w", err)
	}
	return rows > 0, nil
}

// ReadBranchHead returns the raw head id stored for a branch.
// The value is returned as stored; callers validate its shape.
// Returns ErrNotFound if the branch does not exist.
func (s *Store) ReadBranchHead(ctx context.Context, owner, project, id string) (string, error) {
	var head string
	err := s.db.QueryRowContext(ctx, `
		SELECT head_id FROM branches
		WHERE owner = ? AND project = ? AND id = ?
	`, owner, project, id).Scan(&head)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read branch head: %w", err)
	}
	return head, nil
}

// ListBranches returns every branch of the project ordered by id.
// Returns an empty slice (not nil) when the project has no branches.
func (s *Store) ListBranches(ctx context.Context, owner, project string) ([]record.Branch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, head_id FROM branches
		WHERE owner = ? AND project = ?
		ORDER BY id COLLATE BINARY ASC
	`, owner, project)
	if err != nil {
		return nil, fmt.Errorf("query branches: %w", err)
	}
	defer rows.Close()

	branches := []record.Branch{}
	for rows.Next() {
		var b record.Branch
		if err := rows.Scan(&b.ID, &b.HeadID); err != nil {
			return nil, fmt.Errorf("scan branch: %w", err)
		}
		branches = append(branches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate branches: %w", err)
	}
	return branches, nil
}
