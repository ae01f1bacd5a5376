package graph

import (
	"log/slog"
	"time"

	"github.com/roach88/histore/internal/metrics"
	"github.com/roach88/histore/internal/record"
)

// Defaults for a Graph created without options.
const (
	DefaultLockTimeout      = 10 * time.Second
	DefaultOwnerLockTimeout = 10 * time.Second
	DefaultBranchCacheSize  = 1000
	DefaultPathCacheSize    = 10000
	DefaultHeadReadRetries  = 100
	DefaultHeadReadBackoff  = 10 * time.Millisecond
)

// Option configures a Graph.
type Option func(*Graph)

// WithLockTimeout bounds the wait for a project write lock.
// A negative value waits forever.
func WithLockTimeout(d time.Duration) Option {
	return func(g *Graph) {
		g.lockTimeout = d
	}
}

// WithOwnerLockTimeout bounds the wait for an owner's project-creation lock.
func WithOwnerLockTimeout(d time.Duration) Option {
	return func(g *Graph) {
		g.ownerLockTimeout = d
	}
}

// WithBranchCacheSize sets the branch head cache capacity per project.
func WithBranchCacheSize(n int) Option {
	return func(g *Graph) {
		g.headCacheSize = n
	}
}

// WithPathCacheSize sets the number of memoized path suffixes.
func WithPathCacheSize(n int) Option {
	return func(g *Graph) {
		g.pathCacheSize = n
	}
}

// WithHeadReadRetry sets how often a malformed durable head read is retried
// and the pause between attempts.
func WithHeadReadRetry(retries int, backoff time.Duration) Option {
	return func(g *Graph) {
		g.headRetries = retries
		g.headBackoff = backoff
	}
}

// WithIDGenerator replaces the random id source. Tests use a deterministic
// generator.
func WithIDGenerator(ids record.IDGenerator) Option {
	return func(g *Graph) {
		g.ids = ids
	}
}

// WithClock replaces time.Now for node timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Graph) {
		g.now = now
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Graph) {
		g.logger = logger
	}
}

// WithMetrics attaches a Prometheus collector. Nil disables metrics.
func WithMetrics(c *metrics.Collector) Option {
	return func(g *Graph) {
		g.metrics = c
	}
}
