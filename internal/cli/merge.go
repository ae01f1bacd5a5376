package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/histore/internal/merge"
)

// MergeOptions holds flags for the merge command.
type MergeOptions struct {
	*RootOptions
	Author string
}

// mergeView renders a merge result.
type mergeView struct {
	merge.Result
}

func (m mergeView) renderText(w io.Writer) {
	if m.Merged() {
		fmt.Fprintf(w, "Merged %d head(s) into branch %s\n", len(m.HeadIDs), m.BranchID)
		fmt.Fprintf(w, "  Merge node: %s\n", m.NodeID)
		fmt.Fprintf(w, "  Common parent: %s\n", m.CommonParentID)
		return
	}
	fmt.Fprintf(w, "Merge not possible: %s\n", m.Reason)
	switch m.Reason {
	case merge.ReasonHeadNotFound:
		fmt.Fprintf(w, "  Missing: %s\n", m.Missing)
	case merge.ReasonStageCrossed:
		fmt.Fprintf(w, "  Stages: %s\n", strings.Join(m.Stages, ", "))
	case merge.ReasonConflict:
		conflictList(m.Conflicts).renderText(w)
	}
}

// conflictList renders conflicting files in name order.
type conflictList map[string][]string

func (c conflictList) renderText(w io.Writer) {
	if len(c) == 0 {
		fmt.Fprintln(w, "No conflicts.")
		return
	}
	files := make([]string, 0, len(c))
	for file := range c {
		files = append(files, file)
	}
	slices.Sort(files)
	for _, file := range files {
		fmt.Fprintf(w, "  %s: %s\n", file, strings.Join(c[file], ", "))
	}
}

// NewMergeCommand creates the merge command.
func NewMergeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MergeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "merge <branch-or-node>...",
		Short: "Merge heads into a new branch",
		Long: `Merge the given heads (branch ids or node ids) into a new branch.

The heads are replayed onto their common ancestor and a merge node is
written on top. A merge is refused when the heads share no ancestor, when a
stage node lies between a head and the ancestor, or when two heads change
the same file.

Exit codes:
  0 - Merge node written
  1 - Merge refused, or the graph rejected a write
  2 - Command error

Examples:
  histore merge -p chatbot <branch-a> <branch-b>
  histore merge -p chatbot <branch-a> <node-b> --author bob --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Author, "author", "cli", "author of the merge node")

	return cmd
}

func runMerge(opts *MergeOptions, refs []string, cmd *cobra.Command) error {
	if err := requireProject(opts.RootOptions); err != nil {
		return err
	}
	f := formatter(opts.RootOptions, cmd)
	return withSession(opts.RootOptions, cmd, func(s *session) error {
		res, err := s.engine.Merge(cmd.Context(), opts.Owner, opts.Project, opts.Author, refs)
		if err != nil {
			return f.GraphError(err)
		}
		if err := f.Success(mergeView{res}); err != nil {
			return err
		}
		if !res.Merged() {
			return NewExitError(ExitFailure, "merge not possible: "+string(res.Reason))
		}
		return nil
	})
}

// NewCommonParentCommand creates the common-parent command.
func NewCommonParentCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "common-parent <branch-or-node>...",
		Short:         "Show the lowest common ancestor of heads",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommonParent(rootOpts, args, cmd)
		},
	}
}

func runCommonParent(opts *RootOptions, refs []string, cmd *cobra.Command) error {
	if err := requireProject(opts); err != nil {
		return err
	}
	f := formatter(opts, cmd)
	return withSession(opts, cmd, func(s *session) error {
		id, found, err := s.engine.CommonParent(cmd.Context(), opts.Owner, opts.Project, refs)
		if err != nil {
			return f.GraphError(err)
		}
		if opts.Format == "json" {
			return f.Success(map[string]any{"found": found, "common_parent_id": id})
		}
		if !found {
			return f.Success("No common ancestor.")
		}
		return f.Success(id)
	})
}

// NewConflictsCommand creates the conflicts command.
func NewConflictsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "conflicts <ancestor> <branch-or-node>...",
		Short: "List files changed under more than one head since ancestor",
		Long: `List files changed under more than one head since the ancestor.

A file is identified by its artifact path and filename. The ids of the
changing artifact nodes are listed in head order.`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConflicts(rootOpts, args[0], args[1:], cmd)
		},
	}
}

func runConflicts(opts *RootOptions, ancestor string, refs []string, cmd *cobra.Command) error {
	if err := requireProject(opts); err != nil {
		return err
	}
	f := formatter(opts, cmd)
	return withSession(opts, cmd, func(s *session) error {
		ctx := cmd.Context()
		heads := make([]string, len(refs))
		for i, ref := range refs {
			id, err := s.graph.ResolveRef(ctx, opts.Owner, opts.Project, ref)
			if err != nil {
				return f.GraphError(err)
			}
			heads[i] = id
		}
		ancestorID, err := s.graph.ResolveRef(ctx, opts.Owner, opts.Project, ancestor)
		if err != nil {
			return f.GraphError(err)
		}
		conflicts, err := s.engine.MergeConflicts(ctx, opts.Owner, opts.Project, ancestorID, heads)
		if err != nil {
			return f.GraphError(err)
		}
		return f.Success(conflictList(conflicts))
	})
}
