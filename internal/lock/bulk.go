package lock

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"
)

// Lister returns the current set of projects to lock. It is called again
// on every retry round because projects may be created or deleted while a
// bulk acquisition is in progress.
type Lister func(ctx context.Context) ([]Key, error)

// BulkOptions tunes AcquireAll.
type BulkOptions struct {
	// Attempt bounds each single-lock wait within a round.
	Attempt time.Duration
	// Backoff is the pause between failed rounds.
	Backoff time.Duration
}

// DefaultBulkOptions returns short per-lock attempts so ordinary writers
// are never blocked for long by a bulk acquisition that cannot finish.
func DefaultBulkOptions() BulkOptions {
	return BulkOptions{Attempt: 50 * time.Millisecond, Backoff: 10 * time.Millisecond}
}

// AcquireAll locks every project returned by list, in sorted key order.
//
// A round fails as soon as one lock is not obtained within opts.Attempt.
// On failure every lock taken in that round is released, the project set
// is listed again and a new round starts after opts.Backoff. The loop ends
// when one round holds every listed project, or when ctx is done.
//
// The returned release function frees every held lock exactly once.
func (a *Arena) AcquireAll(ctx context.Context, list Lister, opts BulkOptions) (release func(), err error) {
	for {
		keys, err := list(ctx)
		if err != nil {
			return nil, err
		}
		keys = sortKeys(keys)

		held, err := a.acquireRound(ctx, keys, opts.Attempt)
		if err == nil {
			return releaseOnce(held), nil
		}
		if !errors.Is(err, ErrTimeout) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(opts.Backoff):
		}
	}
}

// acquireRound takes the locks of keys in order. On any failure it releases
// what it took and returns the error.
func (a *Arena) acquireRound(ctx context.Context, keys []Key, attempt time.Duration) ([]*Lock, error) {
	held := make([]*Lock, 0, len(keys))
	for _, k := range keys {
		l := a.Project(k.Owner, k.Project)
		if err := l.Acquire(ctx, attempt); err != nil {
			for i := len(held) - 1; i >= 0; i-- {
				held[i].Release()
			}
			return nil, err
		}
		held = append(held, l)
	}
	return held, nil
}

func releaseOnce(held []*Lock) func() {
	done := false
	return func() {
		if done {
			return
		}
		done = true
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Release()
		}
	}
}

func sortKeys(keys []Key) []Key {
	out := slices.Clone(keys)
	slices.SortFunc(out, func(x, y Key) int {
		if c := strings.Compare(x.Owner, y.Owner); c != 0 {
			return c
		}
		return strings.Compare(x.Project, y.Project)
	})
	return slices.CompactFunc(out, func(x, y Key) bool { return x == y })
}
