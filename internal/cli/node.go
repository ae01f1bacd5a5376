package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/histore/internal/graph"
	"github.com/roach88/histore/internal/record"
)

// NodeOptions holds flags for the node commands.
type NodeOptions struct {
	*RootOptions
	Parent  string
	Type    string
	Author  string
	Content string // JSON object
	Silent  bool
}

// writtenNode is the outcome of a node write.
type writtenNode struct {
	BranchID string      `json:"branch_id,omitempty"`
	Node     record.Node `json:"node"`
}

func (w writtenNode) renderText(out io.Writer) {
	fmt.Fprintf(out, "Node %s (%s, version %d)\n", w.Node.ID, w.Node.Type, w.Node.Version)
	if w.BranchID == "" {
		fmt.Fprintln(out, "  No branch (silent fork)")
		return
	}
	fmt.Fprintf(out, "  Branch: %s\n", w.BranchID)
}

// nodeView renders one node.
type nodeView struct {
	record.Node
}

func (n nodeView) renderText(w io.Writer) {
	fmt.Fprintf(w, "%s\t%s\tv%d\t%s\n", n.ID, n.Type, n.Version, n.Author)
	if n.ParentID != "" {
		fmt.Fprintf(w, "  Parent: %s\n", n.ParentID)
	}
	if n.TransactionID != "" {
		fmt.Fprintf(w, "  Transaction: %s\n", n.TransactionID)
	}
	content, err := record.MarshalCanonical(n.Content)
	if err == nil {
		fmt.Fprintf(w, "  Content: %s\n", content)
	}
}

// NewNodeCommand creates the node command group.
func NewNodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "node",
		Short: "Append and read history nodes",
	}

	add := &cobra.Command{
		Use:   "add",
		Short: "Append a node",
		Long: `Append a node to a project.

Without --parent the node starts a new root and a new branch. A branch id
as parent continues that branch. A node id that is a branch head continues
its branch; any other node forks a new branch, unless --silent is set.

Examples:
  histore node add -p chatbot --type message --content '{"text":"hi"}'
  histore node add -p chatbot --parent <branch-id> --type message --content '{"text":"next"}'
  histore node add -p chatbot --parent <node-id> --silent --type artifact`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNodeAdd(opts, cmd)
		},
	}
	add.Flags().StringVar(&opts.Parent, "parent", "", "parent branch or node id (empty for a root)")
	add.Flags().StringVar(&opts.Type, "type", record.TypeMessage, "node type")
	add.Flags().StringVar(&opts.Author, "author", "cli", "node author")
	add.Flags().StringVar(&opts.Content, "content", "{}", "node content as a JSON object")
	add.Flags().BoolVar(&opts.Silent, "silent", false, "do not create a branch when forking")

	get := &cobra.Command{
		Use:           "get <node-id>",
		Short:         "Show one node",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNodeGet(opts, args[0], cmd)
		},
	}

	cmd.AddCommand(add, get)
	return cmd
}

func runNodeAdd(opts *NodeOptions, cmd *cobra.Command) error {
	if err := requireProject(opts.RootOptions); err != nil {
		return err
	}
	content, err := record.ParseObject([]byte(opts.Content))
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --content", err)
	}

	f := formatter(opts.RootOptions, cmd)
	return withSession(opts.RootOptions, cmd, func(s *session) error {
		ctx := cmd.Context()
		branchID, nodeID, err := s.graph.AddNode(ctx, opts.Owner, opts.Project, record.Draft{
			Type:      opts.Type,
			ParentRef: opts.Parent,
			Author:    opts.Author,
			Content:   content,
		}, opts.Silent)
		if err != nil {
			return f.GraphError(err)
		}
		n, _, err := s.graph.GetNode(ctx, opts.Owner, opts.Project, nodeID)
		if err != nil {
			return err
		}
		return f.Success(writtenNode{BranchID: branchID, Node: n})
	})
}

func runNodeGet(opts *NodeOptions, id string, cmd *cobra.Command) error {
	if err := requireProject(opts.RootOptions); err != nil {
		return err
	}
	f := formatter(opts.RootOptions, cmd)
	return withSession(opts.RootOptions, cmd, func(s *session) error {
		n, ok, err := s.graph.GetNode(cmd.Context(), opts.Owner, opts.Project, id)
		if err != nil {
			return f.GraphError(err)
		}
		if !ok {
			return f.GraphError(&graph.Error{Code: graph.CodeNodeNotFound, Message: "node not found", ID: id})
		}
		return f.Success(nodeView{n})
	})
}
