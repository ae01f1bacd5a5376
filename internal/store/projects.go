package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/histore/internal/record"
)

// CreateProject inserts a project row.
// Returns ErrExists if (owner, name) is already taken.
func (s *Store) CreateProject(ctx context.Context, p record.Project) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (owner, name, description, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(owner, name) DO NOTHING
	`, p.Owner, p.Name, p.Description, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("create project: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("create project %s/%s: %w", p.Owner, p.Name, ErrExists)
	}
	return nil
}

// ReadProject retrieves a project. Returns ErrNotFound if it does not exist.
func (s *Store) ReadProject(ctx context.Context, owner, name string) (record.Project, error) {
	var p record.Project
	err := s.db.QueryRowContext(ctx, `
		SELECT owner, name, description, created_at FROM projects
		WHERE owner = ? AND name = ?
	`, owner, name).Scan(&p.Owner, &p.Name, &p.Description, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return record.Project{}, ErrNotFound
	}
	if err != nil {
		return record.Project{}, fmt.Errorf("read project: %w", err)
	}
	return p, nil
}

// ListProjects returns the projects of one owner ordered by name.
// An empty owner lists every project ordered by (owner, name).
func (s *Store) ListProjects(ctx context.Context, owner string) ([]record.Project, error) {
	query := `
		SELECT owner, name, description, created_at FROM projects
		WHERE owner = ?
		ORDER BY name COLLATE BINARY ASC
	`
	args := []any{owner}
	if owner == "" {
		query = `
			SELECT owner, name, description, created_at FROM projects
			ORDER BY owner COLLATE BINARY ASC, name COLLATE BINARY ASC
		`
		args = nil
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	projects := []record.Project{}
	for rows.Next() {
		var p record.Project
		if err := rows.Scan(&p.Owner, &p.Name, &p.Description, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return projects, nil
}

// ListOwners returns every owner that has at least one project, ordered.
func (s *Store) ListOwners(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT owner FROM projects
		ORDER BY owner COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query owners: %w", err)
	}
	defer rows.Close()

	owners := []string{}
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("scan owner: %w", err)
		}
		owners = append(owners, owner)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate owners: %w", err)
	}
	return owners, nil
}

// DeleteProject removes a project and every node, branch and branch group
// it holds, atomically. Returns false if the project does not exist.
func (s *Store) DeleteProject(ctx context.Context, owner, name string) (bool, error) {
	var deleted bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"nodes", "branches", "branch_groups"} {
			if _, err := tx.ExecContext(ctx,
				"DELETE FROM "+table+" WHERE owner = ? AND project = ?", owner, name); err != nil {
				return fmt.Errorf("delete %s: %w", table, err)
			}
		}

		result, err := tx.ExecContext(ctx, `
			DELETE FROM projects WHERE owner = ? AND name = ?
		`, owner, name)
		if err != nil {
			return fmt.Errorf("delete project row: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		deleted = rows > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete project: %w", err)
	}
	return deleted, nil
}
