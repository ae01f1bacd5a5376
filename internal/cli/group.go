package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/histore/internal/graph"
	"github.com/roach88/histore/internal/record"
)

// GroupOptions holds flags for the group commands.
type GroupOptions struct {
	*RootOptions
	Branches    []string
	Description string
}

// groupView renders one branch group.
type groupView struct {
	record.BranchGroup
}

func (g groupView) renderText(w io.Writer) {
	fmt.Fprintf(w, "%s\tv%d\t%s\n", g.ID, g.Version, g.Description)
	fmt.Fprintf(w, "  Branches: %s\n", strings.Join(g.BranchIDs, ", "))
}

// NewGroupCommand creates the group command group.
func NewGroupCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GroupOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage branch groups",
		Long: `Manage branch groups: versioned, described lists of branches.

Groups are metadata only and never change the history.`,
	}

	create := &cobra.Command{
		Use:           "create",
		Short:         "Create a branch group at version 1",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGroupCreate(opts, cmd)
		},
	}

	update := &cobra.Command{
		Use:           "update <group-id>",
		Short:         "Replace a group's branches and description",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGroupUpdate(opts, args[0], cmd)
		},
	}

	for _, c := range []*cobra.Command{create, update} {
		c.Flags().StringSliceVar(&opts.Branches, "branches", nil, "branch ids")
		c.Flags().StringVar(&opts.Description, "description", "", "group description")
	}

	get := &cobra.Command{
		Use:           "get <group-id>",
		Short:         "Show one branch group",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGroupGet(opts, args[0], cmd)
		},
	}

	list := &cobra.Command{
		Use:           "list",
		Short:         "List branch group ids",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGroupList(opts, cmd)
		},
	}

	cmd.AddCommand(create, update, get, list)
	return cmd
}

func runGroupCreate(opts *GroupOptions, cmd *cobra.Command) error {
	if err := requireProject(opts.RootOptions); err != nil {
		return err
	}
	f := formatter(opts.RootOptions, cmd)
	return withSession(opts.RootOptions, cmd, func(s *session) error {
		ctx := cmd.Context()
		id, err := s.graph.CreateBranchGroup(ctx, opts.Owner, opts.Project, opts.Branches, opts.Description)
		if err != nil {
			return f.GraphError(err)
		}
		group, _, err := s.graph.GetBranchGroup(ctx, opts.Owner, opts.Project, id)
		if err != nil {
			return err
		}
		return f.Success(groupView{group})
	})
}

func runGroupUpdate(opts *GroupOptions, id string, cmd *cobra.Command) error {
	if err := requireProject(opts.RootOptions); err != nil {
		return err
	}
	f := formatter(opts.RootOptions, cmd)
	return withSession(opts.RootOptions, cmd, func(s *session) error {
		group, err := s.graph.UpdateBranchGroup(cmd.Context(), opts.Owner, opts.Project, id, opts.Branches, opts.Description)
		if err != nil {
			return f.GraphError(err)
		}
		return f.Success(groupView{group})
	})
}

func runGroupGet(opts *GroupOptions, id string, cmd *cobra.Command) error {
	if err := requireProject(opts.RootOptions); err != nil {
		return err
	}
	f := formatter(opts.RootOptions, cmd)
	return withSession(opts.RootOptions, cmd, func(s *session) error {
		group, ok, err := s.graph.GetBranchGroup(cmd.Context(), opts.Owner, opts.Project, id)
		if err != nil {
			return err
		}
		if !ok {
			return f.GraphError(&graph.Error{Code: graph.CodeBranchGroupNotFound, Message: "branch group not found", ID: id})
		}
		return f.Success(groupView{group})
	})
}

func runGroupList(opts *GroupOptions, cmd *cobra.Command) error {
	if err := requireProject(opts.RootOptions); err != nil {
		return err
	}
	f := formatter(opts.RootOptions, cmd)
	return withSession(opts.RootOptions, cmd, func(s *session) error {
		ids, err := s.graph.BranchGroupIDs(cmd.Context(), opts.Owner, opts.Project)
		if err != nil {
			return err
		}
		if opts.Format == "json" {
			if ids == nil {
				ids = []string{}
			}
			return f.Success(ids)
		}
		if len(ids) == 0 {
			return f.Success("No branch groups.")
		}
		return f.Success(strings.Join(ids, "\n"))
	})
}
