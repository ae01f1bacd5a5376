// Package harness runs scripted history scenarios against a real graph and
// merge engine and compares their traces with golden files.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	owner: alice          # optional
//	project: demo         # optional
//	steps:
//	  - op: create_project
//	  - op: add_node
//	    as: root            # label for the new node
//	    branch: main        # label for the branch it lands on
//	    args: { content: { text: "root" } }
//	  - op: add_node
//	    args: { parent: "$main", content: { text: "next" } }
//	  - op: merge
//	    args: { heads: ["$main", "$other"] }
//	    expect: { reason: conflict }
//	assertions:
//	  - type: path
//	    ref: "$main"
//	    texts: ["next", "root"]
//
// Arguments of the form "$label" refer to ids saved by earlier steps. A
// step without expect must succeed; expect.error names the graph error code
// the step must fail with, expect.reason the merge result reason.
//
// # Operations
//
//   - create_project, delete_project
//   - add_node: parent, type, author, content, txn, silent
//   - start_transaction: parent, author (txn labels the transaction id)
//   - end_transaction: parent, author, txn
//   - merge: heads, author
//   - create_branch: id, head; update_branch_head: branch, head
//   - create_branch_group: branches, description
//   - update_branch_group: group, branches, description
//   - common_parent: heads; conflicts: ancestor, heads
//   - path: ref, types, root
//
// # Assertion Types
//
//   - path: the path ending at ref, newest first, by content text or node label
//   - branch_count: the number of branches in the project
//   - head: the current head of a branch
//   - node: type, version and a content subset of one node
//   - open_transaction: whether a transaction is open
//
// # Deterministic Testing
//
// Every scenario runs over a fresh in-memory SQLite store with sequential
// ids and a fixed clock. Traces render ids by label, so golden files stay
// readable and stable across runs.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/merge_three_branches.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
