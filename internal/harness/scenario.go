package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted history: a sequence of graph and merge operations
// run against a fresh store, followed by assertions on the final graph.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Owner and Project name the project every step operates on.
	// Defaults: DefaultOwner and DefaultProject.
	Owner   string `yaml:"owner,omitempty"`
	Project string `yaml:"project,omitempty"`

	// Steps run in order. A project is not created implicitly; the first
	// step is usually create_project.
	Steps []Step `yaml:"steps"`

	// Assertions validate the graph after the last step.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one operation.
//
// String arguments of the form "$label" are replaced by the id saved under
// that label by an earlier step, recursively through lists and maps. Any
// other string is passed through unchanged.
type Step struct {
	// Op is the operation name, one of the Op* constants.
	Op string `yaml:"op"`

	// Args are the operation arguments.
	Args map[string]any `yaml:"args,omitempty"`

	// As labels the node (or group) the step creates.
	As string `yaml:"as,omitempty"`

	// Branch labels the branch the step writes to or creates.
	Branch string `yaml:"branch,omitempty"`

	// Txn labels the transaction id opened by start_transaction.
	Txn string `yaml:"txn,omitempty"`

	// Expect describes the outcome. Without it the step must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect is the expected outcome of a step.
type Expect struct {
	// Error is the expected graph error code, e.g. LOCKED_BY_TRANSACTION.
	Error string `yaml:"error,omitempty"`

	// Reason is the expected merge result reason, e.g. conflict.
	Reason string `yaml:"reason,omitempty"`
}

// Assertion validates the final graph.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Ref is a branch or node reference (used by path, node, head).
	Ref string `yaml:"ref,omitempty"`

	// Types filters path nodes (used by path).
	Types []string `yaml:"types,omitempty"`

	// Texts are the expected content "text" values, newest first (used by path).
	Texts []string `yaml:"texts,omitempty"`

	// Nodes are the expected node references, newest first (used by path),
	// or the single expected head (used by head).
	Nodes []string `yaml:"nodes,omitempty"`

	// Count is the expected number of branches (used by branch_count).
	Count int `yaml:"count,omitempty"`

	// NodeType, Version and Content describe the expected node (used by node).
	// Content is a subset match.
	NodeType string         `yaml:"node_type,omitempty"`
	Version  int64          `yaml:"version,omitempty"`
	Content  map[string]any `yaml:"content,omitempty"`

	// Open is the expected transaction state (used by open_transaction).
	Open bool `yaml:"open,omitempty"`
}

// Operation names.
const (
	OpCreateProject     = "create_project"
	OpDeleteProject     = "delete_project"
	OpAddNode           = "add_node"
	OpStartTransaction  = "start_transaction"
	OpEndTransaction    = "end_transaction"
	OpMerge             = "merge"
	OpCreateBranch      = "create_branch"
	OpUpdateBranchHead  = "update_branch_head"
	OpCreateBranchGroup = "create_branch_group"
	OpUpdateBranchGroup = "update_branch_group"
	OpCommonParent      = "common_parent"
	OpConflicts         = "conflicts"
	OpPath              = "path"
)

// Assertion types.
const (
	AssertPath            = "path"
	AssertBranchCount     = "branch_count"
	AssertHead            = "head"
	AssertNode            = "node"
	AssertOpenTransaction = "open_transaction"
)

// Defaults for scenarios that omit owner or project.
const (
	DefaultOwner   = "alice"
	DefaultProject = "demo"
)

var knownOps = map[string]bool{
	OpCreateProject:     true,
	OpDeleteProject:     true,
	OpAddNode:           true,
	OpStartTransaction:  true,
	OpEndTransaction:    true,
	OpMerge:             true,
	OpCreateBranch:      true,
	OpUpdateBranchHead:  true,
	OpCreateBranchGroup: true,
	OpUpdateBranchGroup: true,
	OpCommonParent:      true,
	OpConflicts:         true,
	OpPath:              true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	if scenario.Owner == "" {
		scenario.Owner = DefaultOwner
	}
	if scenario.Project == "" {
		scenario.Project = DefaultProject
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.Op == "" {
			return fmt.Errorf("steps[%d]: op is required", i)
		}
		if !knownOps[step.Op] {
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
		if step.Txn != "" && step.Op != OpStartTransaction {
			return fmt.Errorf("steps[%d]: txn label is only valid for %s", i, OpStartTransaction)
		}
		if step.Expect != nil && step.Expect.Error == "" && step.Expect.Reason == "" {
			return fmt.Errorf("steps[%d].expect: error or reason is required", i)
		}
		if step.Expect != nil && step.Expect.Reason != "" && step.Op != OpMerge {
			return fmt.Errorf("steps[%d].expect: reason is only valid for %s", i, OpMerge)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertPath:
		if a.Ref == "" {
			return fmt.Errorf("assertions[%d]: ref is required for path", index)
		}
		if a.Texts == nil && a.Nodes == nil {
			return fmt.Errorf("assertions[%d]: texts or nodes is required for path", index)
		}
	case AssertBranchCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for branch_count", index)
		}
	case AssertHead:
		if a.Ref == "" {
			return fmt.Errorf("assertions[%d]: ref is required for head", index)
		}
		if len(a.Nodes) != 1 {
			return fmt.Errorf("assertions[%d]: exactly one node is required for head", index)
		}
	case AssertNode:
		if a.Ref == "" {
			return fmt.Errorf("assertions[%d]: ref is required for node", index)
		}
	case AssertOpenTransaction:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
