package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/histore/internal/graph"
)

// branchList renders branch details.
type branchList []graph.BranchDetail

func (l branchList) renderText(w io.Writer) {
	if len(l) == 0 {
		fmt.Fprintln(w, "No branches.")
		return
	}
	for _, b := range l {
		fmt.Fprintf(w, "%s\thead %s (%s, v%d)\n", b.BranchID, b.Head.ID, b.Head.Type, b.Head.Version)
		if len(b.Chats) > 0 || len(b.Stages) > 0 {
			fmt.Fprintf(w, "  %d chat(s), %d stage(s)\n", len(b.Chats), len(b.Stages))
		}
	}
}

// NewBranchCommand creates the branch command group.
func NewBranchCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "branch",
		Short: "List and move branches",
	}

	list := &cobra.Command{
		Use:           "list [branch-id...]",
		Short:         "List branches with their heads",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBranchList(rootOpts, args, cmd)
		},
	}

	create := &cobra.Command{
		Use:           "create <branch-id> <head-node-id>",
		Short:         "Create a branch pointing at an existing node",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBranchCreate(rootOpts, args[0], args[1], cmd)
		},
	}

	head := &cobra.Command{
		Use:           "head <branch-id> [node-id]",
		Short:         "Show a branch head, or move it to node-id",
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 2 {
				return runBranchMove(rootOpts, args[0], args[1], cmd)
			}
			return runBranchHead(rootOpts, args[0], cmd)
		},
	}

	cmd.AddCommand(list, create, head)
	return cmd
}

func runBranchList(opts *RootOptions, ids []string, cmd *cobra.Command) error {
	if err := requireProject(opts); err != nil {
		return err
	}
	f := formatter(opts, cmd)
	return withSession(opts, cmd, func(s *session) error {
		details, err := s.graph.BranchDetails(cmd.Context(), opts.Owner, opts.Project, ids)
		if err != nil {
			return f.GraphError(err)
		}
		if details == nil {
			details = []graph.BranchDetail{}
		}
		return f.Success(branchList(details))
	})
}

func runBranchCreate(opts *RootOptions, branchID, headID string, cmd *cobra.Command) error {
	if err := requireProject(opts); err != nil {
		return err
	}
	f := formatter(opts, cmd)
	return withSession(opts, cmd, func(s *session) error {
		if err := s.graph.CreateBranch(cmd.Context(), opts.Owner, opts.Project, branchID, headID); err != nil {
			return f.GraphError(err)
		}
		if opts.Format == "json" {
			return f.Success(map[string]string{"branch_id": branchID, "head_id": headID})
		}
		return f.Success(fmt.Sprintf("Created branch %s at %s", branchID, headID))
	})
}

func runBranchHead(opts *RootOptions, branchID string, cmd *cobra.Command) error {
	if err := requireProject(opts); err != nil {
		return err
	}
	f := formatter(opts, cmd)
	return withSession(opts, cmd, func(s *session) error {
		head, ok, err := s.graph.Head(cmd.Context(), opts.Owner, opts.Project, branchID)
		if err != nil {
			return f.GraphError(err)
		}
		if !ok {
			return f.GraphError(&graph.Error{Code: graph.CodeBranchNotFound, Message: "branch not found", ID: branchID})
		}
		if opts.Format == "json" {
			return f.Success(map[string]string{"branch_id": branchID, "head_id": head})
		}
		return f.Success(head)
	})
}

func runBranchMove(opts *RootOptions, branchID, headID string, cmd *cobra.Command) error {
	if err := requireProject(opts); err != nil {
		return err
	}
	f := formatter(opts, cmd)
	return withSession(opts, cmd, func(s *session) error {
		ok, err := s.graph.UpdateBranchHead(cmd.Context(), opts.Owner, opts.Project, branchID, headID)
		if err != nil {
			return f.GraphError(err)
		}
		if !ok {
			return f.GraphError(&graph.Error{Code: graph.CodeBranchNotFound, Message: "branch not found", ID: branchID})
		}
		if opts.Format == "json" {
			return f.Success(map[string]string{"branch_id": branchID, "head_id": headID})
		}
		return f.Success(fmt.Sprintf("Moved branch %s to %s", branchID, headID))
	})
}
