// Package store provides SQLite-backed durable storage for project histories.
//
// The store holds four kinds of rows, each scoped by (owner, project):
//   - Projects: the namespace itself
//   - Nodes: immutable history records keyed by node id
//   - Branches: one pointer row per branch, holding its head node id
//   - Branch Groups: versioned branch id lists with a description
//
// # Critical Patterns
//
// Append-only nodes
//   - Nodes are inserted once and never updated
//   - Deleting a project is the only way node rows disappear
//
// Logical ordering
//   - version (logical generation) orders history, NEVER timestamp
//   - List queries use ORDER BY ... COLLATE BINARY for stable results
//
// Canonical content
//   - Node content is stored as canonical JSON (see record.MarshalCanonical)
//   - Reading content back never goes through float64
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Every row must belong to an existing project
//
// The store has no notion of branches moving, transactions or locks; those
// rules live in package graph.
package store
