package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/histore/internal/config"
	"github.com/roach88/histore/internal/graph"
	"github.com/roach88/histore/internal/merge"
	"github.com/roach88/histore/internal/metrics"
	"github.com/roach88/histore/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string // config file, falls back to $HISTORE_CONFIG
	DB      string // overrides database.path from the config
	Owner   string
	Project string
	Metrics bool // dump metrics to stderr after the command
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the histore CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "histore",
		Short: "histore - branchable project history",
		Long:  "Administer versioned, branchable and mergeable project histories stored in SQLite.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "config file (default $"+config.EnvConfigPath+")")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "database path (overrides the config)")
	cmd.PersistentFlags().StringVar(&opts.Owner, "owner", "default", "project owner")
	cmd.PersistentFlags().StringVarP(&opts.Project, "project", "p", "", "project name")
	cmd.PersistentFlags().BoolVar(&opts.Metrics, "metrics", false, "write metrics in Prometheus text format to stderr")

	cmd.AddCommand(NewProjectCommand(opts))
	cmd.AddCommand(NewNodeCommand(opts))
	cmd.AddCommand(NewPathCommand(opts))
	cmd.AddCommand(NewBranchCommand(opts))
	cmd.AddCommand(NewGroupCommand(opts))
	cmd.AddCommand(NewMergeCommand(opts))
	cmd.AddCommand(NewCommonParentCommand(opts))
	cmd.AddCommand(NewConflictsCommand(opts))
	cmd.AddCommand(NewScenarioCommand(opts))

	return cmd
}

// session is an open database with the graph and merge engine over it.
type session struct {
	store  *store.Store
	graph  *graph.Graph
	engine  *merge.Engine
	metrics *metrics.Collector
	logger  *slog.Logger
}

func (s *session) Close() error {
	return s.store.Close()
}

// openSession loads the config, opens the database and wires the graph.
// Diagnostics go to the command's stderr, at debug level with --verbose.
func openSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	cfg, err := config.LoadOrDefault(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.DB != "" {
		cfg.Database.Path = opts.DB
	}

	level := cfg.Log.Level
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	logger.Debug("database opened", "path", cfg.Database.Path)

	m := metrics.NewCollector("histore")
	g := graph.New(st, append(cfg.Options(), graph.WithLogger(logger), graph.WithMetrics(m))...)
	return &session{
		store:   st,
		graph:   g,
		engine:  merge.New(g, merge.WithLogger(logger), merge.WithMetrics(m)),
		metrics: m,
		logger:  logger,
	}, nil
}

// withSession runs fn against an open session and closes it afterwards.
// With --metrics the session's metrics follow on stderr, whatever fn returned.
func withSession(opts *RootOptions, cmd *cobra.Command, fn func(s *session) error) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	err = fn(s)
	if opts.Metrics {
		if werr := s.metrics.WriteText(cmd.ErrOrStderr()); werr != nil {
			s.logger.Warn("failed to write metrics", "error", werr)
		}
	}
	return err
}

// requireProject fails commands that need --project without it.
func requireProject(opts *RootOptions) error {
	if opts.Project == "" {
		return NewExitError(ExitCommandError, "--project is required")
	}
	return nil
}

func formatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
