package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/histore/internal/graph"
	"github.com/roach88/histore/internal/record"
)

// PathOptions holds flags for the path command.
type PathOptions struct {
	*RootOptions
	Types []string
	Root  string
}

// pathView renders a path, newest first.
type pathView []record.Node

func (p pathView) renderText(w io.Writer) {
	for _, n := range p {
		text, _ := n.Content.Str("text")
		fmt.Fprintf(w, "%s\t%s\tv%d\t%s\n", n.ID, n.Type, n.Version, text)
	}
	fmt.Fprintf(w, "%d node(s)\n", len(p))
}

// NewPathCommand creates the path command.
func NewPathCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PathOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "path <branch-or-node>",
		Short: "Show the history ending at a branch or node",
		Long: `Show the history ending at a branch head or node, newest first.

Examples:
  histore path -p chatbot <branch-id>
  histore path -p chatbot <node-id> --types message,artifact
  histore path -p chatbot <node-id> --root <ancestor-id>`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPath(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Types, "types", nil, "keep only nodes of these types")
	cmd.Flags().StringVar(&opts.Root, "root", "", "stop the walk at this node (excluded)")

	return cmd
}

func runPath(opts *PathOptions, ref string, cmd *cobra.Command) error {
	if err := requireProject(opts.RootOptions); err != nil {
		return err
	}
	f := formatter(opts.RootOptions, cmd)
	return withSession(opts.RootOptions, cmd, func(s *session) error {
		nodes, err := s.graph.GetPath(cmd.Context(), opts.Owner, opts.Project, ref, graph.PathOptions{
			Types:  opts.Types,
			RootID: opts.Root,
		})
		if err != nil {
			return f.GraphError(err)
		}
		if nodes == nil {
			nodes = []record.Node{}
		}
		return f.Success(pathView(nodes))
	})
}
