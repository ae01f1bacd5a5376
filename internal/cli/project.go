package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/histore/internal/record"
)

// ProjectOptions holds flags for the project commands.
type ProjectOptions struct {
	*RootOptions
	Description string
}

// projectList renders a project listing.
type projectList []record.Project

func (l projectList) renderText(w io.Writer) {
	if len(l) == 0 {
		fmt.Fprintln(w, "No projects.")
		return
	}
	for _, p := range l {
		fmt.Fprintf(w, "%s/%s\t%s\n", p.Owner, p.Name, p.Description)
	}
}

// NewProjectCommand creates the project command group.
func NewProjectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProjectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "project",
		Short: "Create, list and delete projects",
	}

	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty project",
		Long: `Create an empty project under --owner.

Names are at least 4 letters, digits or underscores.

Examples:
  histore project create chatbot --description "support bot"
  histore project create chatbot --owner alice --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectCreate(opts, args[0], cmd)
		},
	}
	create.Flags().StringVar(&opts.Description, "description", "", "project description")

	del := &cobra.Command{
		Use:           "delete <name>",
		Short:         "Delete a project and all of its history",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectDelete(opts, args[0], cmd)
		},
	}

	list := &cobra.Command{
		Use:           "list",
		Short:         "List the projects of --owner",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectList(opts, cmd)
		},
	}

	cmd.AddCommand(create, del, list)
	return cmd
}

func runProjectCreate(opts *ProjectOptions, name string, cmd *cobra.Command) error {
	f := formatter(opts.RootOptions, cmd)
	return withSession(opts.RootOptions, cmd, func(s *session) error {
		p, err := s.graph.CreateProject(cmd.Context(), opts.Owner, name, opts.Description)
		if err != nil {
			return f.GraphError(err)
		}
		if opts.Format == "json" {
			return f.Success(p)
		}
		return f.Success(fmt.Sprintf("Created project %s/%s", p.Owner, p.Name))
	})
}

func runProjectDelete(opts *ProjectOptions, name string, cmd *cobra.Command) error {
	f := formatter(opts.RootOptions, cmd)
	return withSession(opts.RootOptions, cmd, func(s *session) error {
		if err := s.graph.DeleteProject(cmd.Context(), opts.Owner, name); err != nil {
			return f.GraphError(err)
		}
		if opts.Format == "json" {
			return f.Success(map[string]string{"owner": opts.Owner, "name": name})
		}
		return f.Success(fmt.Sprintf("Deleted project %s/%s", opts.Owner, name))
	})
}

func runProjectList(opts *ProjectOptions, cmd *cobra.Command) error {
	f := formatter(opts.RootOptions, cmd)
	return withSession(opts.RootOptions, cmd, func(s *session) error {
		projects, err := s.graph.Projects(cmd.Context(), opts.Owner)
		if err != nil {
			return err
		}
		if projects == nil {
			projects = []record.Project{}
		}
		return f.Success(projectList(projects))
	})
}
