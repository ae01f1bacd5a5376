package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/histore/internal/record"
)

// WriteNode inserts a node record. Nodes are immutable: writing an id that
// already exists in the project fails with ErrExists rather than replacing it.
//
// Note: The project must exist (foreign key constraint).
func (s *Store) WriteNode(ctx context.Context, owner, project string, n record.Node) error {
	contentJSON, err := marshalContent(n.Content)
	if err != nil {
		return fmt.Errorf("write node: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO nodes
		(owner, project, id, type, parent_id, author, content, version, timestamp, transaction_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner, project, id) DO NOTHING
	`,
		owner,
		project,
		n.ID,
		n.Type,
		nullable(n.ParentID),
		n.Author,
		contentJSON,
		n.Version,
		n.Timestamp,
		nullable(n.TransactionID),
	)
	if err != nil {
		return fmt.Errorf("write node: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("write node: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("write node %s: %w", n.ID, ErrExists)
	}
	return nil
}

// ReadNode retrieves a single node by id.
// Returns ErrNotFound if the project has no such node.
func (s *Store) ReadNode(ctx context.Context, owner, project, id string) (record.Node, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, type, parent_id, author, content, version, timestamp, transaction_id
		FROM nodes
		WHERE owner = ? AND project = ? AND id = ?
	`, owner, project, id)

	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return record.Node{}, ErrNotFound
	}
	if err != nil {
		return record.Node{}, fmt.Errorf("read node: %w", err)
	}
	return n, nil
}

// MaxVersion returns the highest version written in the project, or 0 when
// the project has no nodes.
func (s *Store) MaxVersion(ctx context.Context, owner, project string) (int64, error) {
	var version sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(version) FROM nodes
		WHERE owner = ? AND project = ?
	`, owner, project).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("max version: %w", err)
	}
	return version.Int64, nil
}

// CountNodes returns the number of nodes stored for the project.
func (s *Store) CountNodes(ctx context.Context, owner, project string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM nodes
		WHERE owner = ? AND project = ?
	`, owner, project).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count nodes: %w", err)
	}
	return count, nil
}

// scanNode reads one node from a row. Content is decoded from canonical JSON.
func scanNode(row *sql.Row) (record.Node, error) {
	var n record.Node
	var parentID, txnID sql.NullString
	var contentJSON string

	if err := row.Scan(
		&n.ID, &n.Type, &parentID, &n.Author, &contentJSON,
		&n.Version, &n.Timestamp, &txnID,
	); err != nil {
		return record.Node{}, err
	}

	content, err := unmarshalContent(contentJSON)
	if err != nil {
		return record.Node{}, err
	}
	n.Content = content
	n.ParentID = parentID.String
	n.TransactionID = txnID.String

	return n, nil
}
