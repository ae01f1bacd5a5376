package harness

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/roach88/histore/internal/graph"
	"github.com/roach88/histore/internal/record"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	return buf.String()
}

// evaluate runs every assertion against the graph and returns the failure
// messages.
func (h *Harness) evaluate(ctx context.Context, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := h.assert(ctx, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func (h *Harness) assert(ctx context.Context, a Assertion) error {
	switch a.Type {
	case AssertPath:
		return h.assertPath(ctx, a)
	case AssertBranchCount:
		return h.assertBranchCount(ctx, a)
	case AssertHead:
		return h.assertHead(ctx, a)
	case AssertNode:
		return h.assertNode(ctx, a)
	case AssertOpenTransaction:
		return h.assertOpenTransaction(a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertPath compares the path ending at ref, newest first, by content
// text or by node label.
func (h *Harness) assertPath(ctx context.Context, a Assertion) error {
	ref, err := h.labels.lookup(a.Ref)
	if err != nil {
		return err
	}
	nodes, err := h.graph.GetPath(ctx, h.owner, h.project, ref, graph.PathOptions{Types: a.Types})
	if err != nil {
		return err
	}

	if a.Texts != nil {
		got := make([]string, len(nodes))
		for i, n := range nodes {
			got[i], _ = n.Content.Str("text")
		}
		if !slices.Equal(got, a.Texts) {
			return &AssertionError{
				Type:     AssertPath,
				Expected: fmt.Sprintf("texts %q", a.Texts),
				Actual:   fmt.Sprintf("texts %q", got),
			}
		}
	}

	if a.Nodes != nil {
		want := make([]string, len(a.Nodes))
		for i, r := range a.Nodes {
			if want[i], err = h.labels.lookup(r); err != nil {
				return err
			}
		}
		got := make([]string, len(nodes))
		for i, n := range nodes {
			got[i] = n.ID
		}
		if !slices.Equal(got, want) {
			return &AssertionError{
				Type:     AssertPath,
				Expected: fmt.Sprintf("nodes %v", h.labels.nameAll(want)),
				Actual:   fmt.Sprintf("nodes %v", h.labels.nameAll(got)),
			}
		}
	}
	return nil
}

func (h *Harness) assertBranchCount(ctx context.Context, a Assertion) error {
	ids, err := h.graph.BranchIDs(ctx, h.owner, h.project)
	if err != nil {
		return err
	}
	if len(ids) != a.Count {
		return &AssertionError{
			Type:     AssertBranchCount,
			Expected: fmt.Sprintf("%d branches", a.Count),
			Actual:   fmt.Sprintf("%d branches", len(ids)),
		}
	}
	return nil
}

func (h *Harness) assertHead(ctx context.Context, a Assertion) error {
	branchID, err := h.labels.lookup(a.Ref)
	if err != nil {
		return err
	}
	want, err := h.labels.lookup(a.Nodes[0])
	if err != nil {
		return err
	}
	got, ok, err := h.graph.Head(ctx, h.owner, h.project, branchID)
	if err != nil {
		return err
	}
	if !ok {
		return &AssertionError{Type: AssertHead, Expected: "branch " + a.Ref, Actual: "no such branch"}
	}
	if got != want {
		return &AssertionError{
			Type:     AssertHead,
			Expected: "head " + h.labels.name(want),
			Actual:   "head " + h.labels.name(got),
		}
	}
	return nil
}

// assertNode checks the node's type, version and a subset of its content.
func (h *Harness) assertNode(ctx context.Context, a Assertion) error {
	id, err := h.labels.lookup(a.Ref)
	if err != nil {
		return err
	}
	n, ok, err := h.graph.GetNode(ctx, h.owner, h.project, id)
	if err != nil {
		return err
	}
	if !ok {
		return &AssertionError{Type: AssertNode, Expected: "node " + a.Ref, Actual: "not found"}
	}
	if a.NodeType != "" && n.Type != a.NodeType {
		return &AssertionError{Type: AssertNode, Expected: "type " + a.NodeType, Actual: "type " + n.Type}
	}
	if a.Version != 0 && n.Version != a.Version {
		return &AssertionError{
			Type:     AssertNode,
			Expected: fmt.Sprintf("version %d", a.Version),
			Actual:   fmt.Sprintf("version %d", n.Version),
		}
	}
	if a.Content == nil {
		return nil
	}

	resolved, err := h.labels.resolve(a.Content)
	if err != nil {
		return err
	}
	want, err := toObject(resolved.(map[string]any))
	if err != nil {
		return err
	}
	if !matchContent(n.Content, want) {
		return &AssertionError{
			Type:     AssertNode,
			Expected: fmt.Sprintf("content containing %v", want),
			Actual:   fmt.Sprintf("content %v", n.Content),
		}
	}
	return nil
}

func (h *Harness) assertOpenTransaction(a Assertion) error {
	_, open := h.graph.OpenTransaction(h.owner, h.project)
	if open != a.Open {
		return &AssertionError{
			Type:     AssertOpenTransaction,
			Expected: fmt.Sprintf("open=%t", a.Open),
			Actual:   fmt.Sprintf("open=%t", open),
		}
	}
	return nil
}

// matchContent reports whether every expected field is present in actual
// with an equal value. Nested objects match as subsets too.
func matchContent(actual, expected record.Object) bool {
	for key, want := range expected {
		got, ok := actual[key]
		if !ok {
			return false
		}
		wantObj, wantIsObj := want.(record.Object)
		gotObj, gotIsObj := got.(record.Object)
		if wantIsObj && gotIsObj {
			if !matchContent(gotObj, wantObj) {
				return false
			}
			continue
		}
		if !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}
