// Package record defines the foundational types of the history store.
//
// All other internal packages import record; record imports nothing
// internal. It contains:
//   - Payload values (Value and its sealed variants) and canonical JSON
//   - Node, Draft, Branch, BranchGroup and Project
//   - Id generation and shape validation
//
// Key constraints:
//   - Nodes are immutable once written
//   - No float payload values; numbers are int64
//   - All JSON tags use snake_case
//   - Version (logical generation) orders history, never Timestamp
package record
