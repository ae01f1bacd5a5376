// Package merge folds several branches of one project into a new branch.
//
// A merge is planned entirely from reads and then committed as a chain of
// silent writes followed by one visible merge node:
//
//  1. Resolve every head reference (branch id to head, or node id).
//  2. Find the lowest common ancestor of the heads.
//  3. Abort if any head has a stage node after the ancestor.
//  4. Abort if two heads changed the same file (path + filename).
//  5. Replay every head's nodes after the ancestor, oldest first, in the
//     order the heads were given. A chat that an earlier head already
//     continued is split off into a continuation chat.
//  6. Write the replayed nodes silently, each parented on the previous one.
//  7. Write the merge node. Only this write creates a branch.
//
// CRITICAL PATTERNS:
//
// All-or-nothing visibility:
// Nothing written in step 6 is reachable from any branch head until step 7
// succeeds. A merge that fails part way leaves orphaned nodes behind; they
// are retained like every other node.
//
// Speculative merges:
// Preconditions that make a merge impossible are reported in Result.Reason,
// not as errors. An error always means the store could not be read or
// written.
package merge
