package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/histore/internal/lock"
	"github.com/roach88/histore/internal/metrics"
	"github.com/roach88/histore/internal/record"
	"github.com/roach88/histore/internal/store"
)

// Records is the durable storage the graph is built on.
// *store.Store implements it; missing rows are reported as store.ErrNotFound.
type Records interface {
	CreateProject(ctx context.Context, p record.Project) error
	ReadProject(ctx context.Context, owner, name string) (record.Project, error)
	ListProjects(ctx context.Context, owner string) ([]record.Project, error)
	ListOwners(ctx context.Context) ([]string, error)
	DeleteProject(ctx context.Context, owner, name string) (bool, error)

	WriteNode(ctx context.Context, owner, project string, n record.Node) error
	ReadNode(ctx context.Context, owner, project, id string) (record.Node, error)
	MaxVersion(ctx context.Context, owner, project string) (int64, error)

	WriteBranch(ctx context.Context, owner, project string, b record.Branch) error
	UpdateBranch(ctx context.Context, owner, project string, b record.Branch) (bool, error)
	ReadBranchHead(ctx context.Context, owner, project, id string) (string, error)
	ListBranches(ctx context.Context, owner, project string) ([]record.Branch, error)

	WriteBranchGroup(ctx context.Context, owner, project string, g record.BranchGroup) error
	UpdateBranchGroup(ctx context.Context, owner, project string, g record.BranchGroup) (bool, error)
	ReadBranchGroup(ctx context.Context, owner, project, id string) (record.BranchGroup, error)
	ListBranchGroupIDs(ctx context.Context, owner, project string) ([]string, error)
}

var _ Records = (*store.Store)(nil)

// nodeKey scopes a node or branch id to its project.
type nodeKey struct {
	owner   string
	project string
	id      string
}

func (k nodeKey) in(p lock.Key) bool {
	return k.owner == p.Owner && k.project == p.Project
}

// Graph is the history graph of every project in one store: the Node
// Store, the Branch Directory and the transaction state.
//
// Thread-safety: Graph is safe for concurrent use. Writes to one project
// are serialized by that project's lock; reads never take it.
type Graph struct {
	records Records
	locks   *lock.Arena
	ids     record.IDGenerator
	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics.Collector

	lockTimeout      time.Duration
	ownerLockTimeout time.Duration
	headCacheSize    int
	pathCacheSize    int
	headRetries      int
	headBackoff      time.Duration

	mu          sync.Mutex
	directories map[lock.Key]*directory

	paths *lru[nodeKey, []record.Node]
	txns  *transactions
}

// New creates a graph over durable records.
func New(records Records, opts ...Option) *Graph {
	g := &Graph{
		records:          records,
		locks:            lock.NewArena(),
		ids:              record.RandomIDs{},
		now:              time.Now,
		logger:           slog.Default(),
		lockTimeout:      DefaultLockTimeout,
		ownerLockTimeout: DefaultOwnerLockTimeout,
		headCacheSize:    DefaultBranchCacheSize,
		pathCacheSize:    DefaultPathCacheSize,
		headRetries:      DefaultHeadReadRetries,
		headBackoff:      DefaultHeadReadBackoff,
		directories:      make(map[lock.Key]*directory),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	g.paths = newLRU[nodeKey, []record.Node](g.pathCacheSize, true)
	g.txns = newTransactions()
	return g
}

// Logger returns the graph's logger so collaborators log consistently.
func (g *Graph) Logger() *slog.Logger {
	return g.logger
}

// Metrics returns the attached collector, possibly nil.
func (g *Graph) Metrics() *metrics.Collector {
	return g.metrics
}

// lockProject acquires the write lock of one project within the configured
// timeout. A timeout maps to ProjectLocked.
func (g *Graph) lockProject(ctx context.Context, owner, project string) (*lock.Lock, error) {
	l := g.locks.Project(owner, project)
	start := time.Now()
	err := l.Acquire(ctx, g.lockTimeout)
	timedOut := errors.Is(err, lock.ErrTimeout)
	g.metrics.ObserveLockWait(time.Since(start), timedOut)

	if timedOut {
		g.logger.Warn("project lock timeout", "owner", owner, "project", project, "timeout", g.lockTimeout)
		return nil, newError(CodeProjectLocked, owner, project, "",
			fmt.Sprintf("write lock not acquired within %s", g.lockTimeout))
	}
	if err != nil {
		return nil, fmt.Errorf("lock project %s/%s: %w", owner, project, err)
	}
	return l, nil
}

// requireProject fails with ProjectNotFound unless the project exists.
func (g *Graph) requireProject(ctx context.Context, owner, project string) error {
	_, err := g.records.ReadProject(ctx, owner, project)
	if errors.Is(err, store.ErrNotFound) {
		return newError(CodeProjectNotFound, owner, project, "", "project does not exist")
	}
	if err != nil {
		return fmt.Errorf("read project: %w", err)
	}
	return nil
}
