package graph

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/roach88/histore/internal/lock"
	"github.com/roach88/histore/internal/record"
	"github.com/roach88/histore/internal/store"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// nameRules apply to both owner and project names.
var nameRules = []validation.Rule{
	validation.Required,
	validation.Length(4, 0),
	validation.Match(namePattern).Error("must contain only letters, digits and underscores"),
}

// ValidateName checks an owner or project name: at least 4 characters of
// letters, digits and underscores.
func ValidateName(name string) error {
	return validation.Validate(name, nameRules...)
}

// CreateProject creates an empty project. Creation is serialized per owner
// so two callers cannot race on one name.
//
// Errors: InvalidName, ProjectExists, ProjectLocked (owner lock timeout).
func (g *Graph) CreateProject(ctx context.Context, owner, name, description string) (record.Project, error) {
	if err := ValidateName(owner); err != nil {
		return record.Project{}, newError(CodeInvalidName, owner, "", owner, "owner "+err.Error())
	}
	if err := ValidateName(name); err != nil {
		return record.Project{}, newError(CodeInvalidName, owner, name, name, "project "+err.Error())
	}

	l := g.locks.Owner(owner)
	if err := l.Acquire(ctx, g.ownerLockTimeout); err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			return record.Project{}, newError(CodeProjectLocked, owner, "", "",
				fmt.Sprintf("owner lock not acquired within %s", g.ownerLockTimeout))
		}
		return record.Project{}, fmt.Errorf("lock owner %s: %w", owner, err)
	}
	defer l.Release()

	p := record.Project{
		Owner:       owner,
		Name:        name,
		Description: description,
		CreatedAt:   g.now().Unix(),
	}
	if err := g.records.CreateProject(ctx, p); err != nil {
		if errors.Is(err, store.ErrExists) {
			return record.Project{}, newError(CodeProjectExists, owner, name, "", "project already exists")
		}
		return record.Project{}, fmt.Errorf("create project: %w", err)
	}

	g.logger.Info("project created", "owner", owner, "project", name)
	return p, nil
}

// DeleteProject removes a project and all of its history, irreversibly.
// Takes the project lock, deletes every row in one database transaction,
// then forgets the project's caches, transaction state and lock handle.
//
// Errors: ProjectNotFound, ProjectLocked.
func (g *Graph) DeleteProject(ctx context.Context, owner, name string) error {
	if err := g.requireProject(ctx, owner, name); err != nil {
		return err
	}

	l, err := g.lockProject(ctx, owner, name)
	if err != nil {
		return err
	}
	defer l.Release()

	deleted, err := g.records.DeleteProject(ctx, owner, name)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if !deleted {
		return newError(CodeProjectNotFound, owner, name, "", "project does not exist")
	}

	g.dropDirectory(owner, name)
	g.dropPaths(owner, name)
	if g.txns.drop(lock.Key{Owner: owner, Project: name}) {
		g.metrics.TransactionClosed()
	}
	g.locks.Remove(owner, name)

	g.logger.Info("project deleted", "owner", owner, "project", name)
	return nil
}

// Project fetches one project. Returns found=false if it does not exist.
func (g *Graph) Project(ctx context.Context, owner, name string) (record.Project, bool, error) {
	p, err := g.records.ReadProject(ctx, owner, name)
	if errors.Is(err, store.ErrNotFound) {
		return record.Project{}, false, nil
	}
	if err != nil {
		return record.Project{}, false, fmt.Errorf("get project: %w", err)
	}
	return p, true, nil
}

// Projects lists the projects of one owner, ordered by name.
func (g *Graph) Projects(ctx context.Context, owner string) ([]record.Project, error) {
	projects, err := g.records.ListProjects(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// Owners lists every owner with at least one project.
func (g *Graph) Owners(ctx context.Context) ([]string, error) {
	owners, err := g.records.ListOwners(ctx)
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	return owners, nil
}

// LockAllProjectsOfOwner freezes every project of an owner for
// administrative work. Locks are taken in name order with short attempts;
// a round that cannot finish releases everything, re-lists the owner's
// projects and tries again, so single-project writers are never starved.
//
// The returned release function must be called exactly once.
func (g *Graph) LockAllProjectsOfOwner(ctx context.Context, owner string) (release func(), err error) {
	start := time.Now()
	release, err = g.locks.AcquireAll(ctx, g.projectLister(owner), lock.DefaultBulkOptions())
	if err != nil {
		return nil, fmt.Errorf("lock projects of %s: %w", owner, err)
	}
	g.logger.Info("all projects of owner locked", "owner", owner, "waited", time.Since(start))
	return release, nil
}

// LockAllProjects freezes every project of every owner. See
// LockAllProjectsOfOwner.
func (g *Graph) LockAllProjects(ctx context.Context) (release func(), err error) {
	start := time.Now()
	release, err = g.locks.AcquireAll(ctx, g.projectLister(""), lock.DefaultBulkOptions())
	if err != nil {
		return nil, fmt.Errorf("lock all projects: %w", err)
	}
	g.logger.Info("all projects locked", "waited", time.Since(start))
	return release, nil
}

// projectLister lists the current projects of owner, or of every owner
// when owner is empty.
func (g *Graph) projectLister(owner string) lock.Lister {
	return func(ctx context.Context) ([]lock.Key, error) {
		projects, err := g.records.ListProjects(ctx, owner)
		if err != nil {
			return nil, err
		}
		keys := make([]lock.Key, len(projects))
		for i, p := range projects {
			keys[i] = lock.Key{Owner: p.Owner, Project: p.Name}
		}
		return keys, nil
	}
}
