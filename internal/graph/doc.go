// Package graph implements the per-project history graph: the Node Store,
// the Branch Directory, transactions, branch groups and project lifecycle.
//
// A project's history is an append-only DAG of immutable nodes. Branches
// are named pointers to heads. Writing a node on a head advances that
// branch; writing on any other node forks a new branch (or, for silent
// writes, leaves the node unreachable until a later write reaches it).
//
// CRITICAL PATTERNS:
//
// Write serialization:
// Every write takes the project's lock (package lock) with a bounded
// timeout. A timeout is a ProjectLocked error, never a crash. Reads never
// take the lock.
//
// Write-then-cache:
// Branch pointers are written durably first and cached second. A head
// read that raced with a writer does not populate the cache.
//
// Logical versions:
// Each write gets max(version)+1, except members of the open transaction,
// which share the version frozen by its transaction_start. Ordering uses
// version, NEVER timestamp.
//
// Path memoization:
// Because nodes are immutable, the ancestor suffix from any node back to
// genesis never changes. Raw suffixes are cached per node id; filters and
// root cuts are views over them.
//
// Transactions are held in memory only. A process restart discards an
// open transaction; its nodes stay in history.
package graph
