package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/histore/internal/record"
)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestProjectStore creates a store holding one project alice/demo.
func createTestProjectStore(t *testing.T) *Store {
	t.Helper()
	s := createTestStore(t)
	if err := s.CreateProject(t.Context(), testProject("alice", "demo")); err != nil {
		t.Fatalf("CreateProject() failed: %v", err)
	}
	return s
}

func testProject(owner, name string) record.Project {
	return record.Project{Owner: owner, Name: name, Description: "test project", CreatedAt: 1700000000}
}

// testNode creates a message node with minimal required fields.
func testNode(id, parentID string, version int64) record.Node {
	return record.Node{
		ID:        id,
		Type:      record.TypeMessage,
		ParentID:  parentID,
		Author:    "alice",
		Content:   record.Object{"text": record.String("hello " + id)},
		Version:   version,
		Timestamp: 1700000000 + version,
	}
}
