// Package metrics exposes Prometheus instruments for the history store.
//
// Every method is safe to call on a nil *Collector, so components can take
// an optional collector without guarding each call site.
package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Cache names used as the "cache" label.
const (
	CacheBranchHeads = "branch_heads"
	CachePaths       = "paths"
)

// Merge outcomes used as the "outcome" label. Aborted merges use their
// reason string.
const (
	OutcomeMerged = "merged"
)

// Collector holds all Prometheus metrics for one store instance.
// Each collector owns its registry, so tests can create as many as they
// need without duplicate-registration panics.
type Collector struct {
	registry *prometheus.Registry

	NodesWritten     *prometheus.CounterVec
	BranchesCreated  prometheus.Counter
	LockWait         prometheus.Histogram
	LockTimeouts     prometheus.Counter
	CacheHits        *prometheus.CounterVec
	CacheMisses      *prometheus.CounterVec
	HeadReadRetries  prometheus.Counter
	Merges           *prometheus.CounterVec
	TransactionsOpen prometheus.Gauge
}

// NewCollector creates a collector whose metric names are prefixed with
// namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		NodesWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "nodes_written_total",
				Help:      "Total number of nodes written, by node type",
			},
			[]string{"type"},
		),
		BranchesCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "branches_created_total",
				Help:      "Total number of branches created by root writes, forks and merges",
			},
		),
		LockWait: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "lock_wait_seconds",
				Help:      "Time spent waiting for a project write lock",
				Buckets:   prometheus.DefBuckets,
			},
		),
		LockTimeouts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lock_timeouts_total",
				Help:      "Total number of project lock acquisitions that timed out",
			},
		),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of cache hits",
			},
			[]string{"cache"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of cache misses",
			},
			[]string{"cache"},
		),
		HeadReadRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "head_read_retries_total",
				Help:      "Total number of branch head reads retried after a malformed record",
			},
		),
		Merges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "merges_total",
				Help:      "Total number of merge attempts, by outcome",
			},
			[]string{"outcome"},
		),
		TransactionsOpen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "transactions_open",
				Help:      "Number of projects with an open transaction",
			},
		),
	}

	registry.MustRegister(
		c.NodesWritten,
		c.BranchesCreated,
		c.LockWait,
		c.LockTimeouts,
		c.CacheHits,
		c.CacheMisses,
		c.HeadReadRetries,
		c.Merges,
		c.TransactionsOpen,
	)

	return c
}

// Registry returns the registry holding this collector's metrics.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// WriteText writes every gathered metric to w in the Prometheus text
// exposition format. Metric vectors with no observed labels are omitted.
func (c *Collector) WriteText(w io.Writer) error {
	if c == nil {
		return nil
	}
	families, err := c.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// NodeWritten records one durable node write.
func (c *Collector) NodeWritten(nodeType string) {
	if c == nil {
		return
	}
	c.NodesWritten.WithLabelValues(nodeType).Inc()
}

// BranchCreated records a new branch pointer.
func (c *Collector) BranchCreated() {
	if c == nil {
		return
	}
	c.BranchesCreated.Inc()
}

// ObserveLockWait records how long a write waited for its project lock.
func (c *Collector) ObserveLockWait(d time.Duration, timedOut bool) {
	if c == nil {
		return
	}
	c.LockWait.Observe(d.Seconds())
	if timedOut {
		c.LockTimeouts.Inc()
	}
}

// CacheHit records a hit in the named cache.
func (c *Collector) CacheHit(cache string) {
	if c == nil {
		return
	}
	c.CacheHits.WithLabelValues(cache).Inc()
}

// CacheMiss records a miss in the named cache.
func (c *Collector) CacheMiss(cache string) {
	if c == nil {
		return
	}
	c.CacheMisses.WithLabelValues(cache).Inc()
}

// HeadReadRetried records one retry of a malformed branch head read.
func (c *Collector) HeadReadRetried() {
	if c == nil {
		return
	}
	c.HeadReadRetries.Inc()
}

// MergeFinished records a merge attempt with its outcome.
func (c *Collector) MergeFinished(outcome string) {
	if c == nil {
		return
	}
	c.Merges.WithLabelValues(outcome).Inc()
}

// TransactionOpened records a transaction start.
func (c *Collector) TransactionOpened() {
	if c == nil {
		return
	}
	c.TransactionsOpen.Inc()
}

// TransactionClosed records a transaction end or a discarded transaction.
func (c *Collector) TransactionClosed() {
	if c == nil {
		return
	}
	c.TransactionsOpen.Dec()
}
