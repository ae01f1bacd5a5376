package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrTimeout is returned when a lock could not be acquired within its
// timeout.
var ErrTimeout = errors.New("lock acquisition timed out")

// Key identifies one project.
type Key struct {
	Owner   string
	Project string
}

// String renders the key as owner/project.
func (k Key) String() string {
	return k.Owner + "/" + k.Project
}

// Lock is a mutual-exclusion lock whose acquisition can time out.
type Lock struct {
	sem *semaphore.Weighted
}

func newLock() *Lock {
	return &Lock{sem: semaphore.NewWeighted(1)}
}

// Acquire blocks until the lock is held, the timeout elapses or ctx is done.
// A negative timeout waits forever. Returns ErrTimeout when the timeout
// elapses and ctx.Err() when the caller's context ends first.
func (l *Lock) Acquire(ctx context.Context, timeout time.Duration) error {
	if l.sem.TryAcquire(1) {
		return nil
	}
	if timeout == 0 {
		return ErrTimeout
	}

	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTimeout
	}
	return nil
}

// TryAcquire takes the lock only if it is free.
func (l *Lock) TryAcquire() bool {
	return l.sem.TryAcquire(1)
}

// Release frees the lock. Releasing a lock that is not held panics.
func (l *Lock) Release() {
	l.sem.Release(1)
}

// Arena holds lock handles keyed by project and by owner.
//
// Handles are created lazily on first use and stay in the arena until
// Remove is called for a deleted project. The arena's own mutex guards only
// the maps and is never held while waiting on a handle.
//
// Thread-safety: Arena is safe for concurrent use.
type Arena struct {
	mu       sync.Mutex
	projects map[Key]*Lock
	owners   map[string]*Lock
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{
		projects: make(map[Key]*Lock),
		owners:   make(map[string]*Lock),
	}
}

// Project returns the write lock of one project, creating it if needed.
func (a *Arena) Project(owner, project string) *Lock {
	key := Key{Owner: owner, Project: project}

	a.mu.Lock()
	defer a.mu.Unlock()

	l, ok := a.projects[key]
	if !ok {
		l = newLock()
		a.projects[key] = l
	}
	return l
}

// Owner returns the lock that serializes project creation for one owner.
func (a *Arena) Owner(owner string) *Lock {
	a.mu.Lock()
	defer a.mu.Unlock()

	l, ok := a.owners[owner]
	if !ok {
		l = newLock()
		a.owners[owner] = l
	}
	return l
}

// Remove drops the handle of a deleted project. Callers that still hold a
// reference to the old handle keep using it; the next Project call for the
// same key creates a fresh one.
func (a *Arena) Remove(owner, project string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.projects, Key{Owner: owner, Project: project})
}

// Len returns the number of project handles currently in the arena.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.projects)
}
