package metrics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_CountsByLabel(t *testing.T) {
	c := NewCollector("histore")

	c.NodeWritten("message")
	c.NodeWritten("message")
	c.NodeWritten("chat")
	c.CacheHit(CacheBranchHeads)
	c.CacheMiss(CachePaths)
	c.MergeFinished(OutcomeMerged)
	c.MergeFinished("conflict")
	c.BranchCreated()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.NodesWritten.WithLabelValues("message")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.NodesWritten.WithLabelValues("chat")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CacheHits.WithLabelValues(CacheBranchHeads)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CacheMisses.WithLabelValues(CachePaths)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Merges.WithLabelValues("conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.BranchesCreated))
}

func TestCollector_LockWaitAndTimeouts(t *testing.T) {
	c := NewCollector("histore")

	c.ObserveLockWait(5*time.Millisecond, false)
	c.ObserveLockWait(10*time.Second, true)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.LockTimeouts))
	assert.Equal(t, 1, testutil.CollectAndCount(c.LockWait))
}

func TestCollector_TransactionsGauge(t *testing.T) {
	c := NewCollector("histore")

	c.TransactionOpened()
	c.TransactionOpened()
	c.TransactionClosed()

	assert.Equal(t, 1.0, testutil.ToFloat64(c.TransactionsOpen))
}

func TestCollector_RegistryExposesNamespace(t *testing.T) {
	c := NewCollector("histore")
	c.HeadReadRetried()

	expected := `
# HELP histore_head_read_retries_total Total number of branch head reads retried after a malformed record
# TYPE histore_head_read_retries_total counter
histore_head_read_retries_total 1
`
	require.NoError(t, testutil.GatherAndCompare(c.Registry(), strings.NewReader(expected), "histore_head_read_retries_total"))
}

func TestCollector_IndependentInstances(t *testing.T) {
	a := NewCollector("histore")
	b := NewCollector("histore")

	a.BranchCreated()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.BranchesCreated))
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.NodeWritten("message")
		c.BranchCreated()
		c.ObserveLockWait(time.Second, true)
		c.CacheHit(CachePaths)
		c.CacheMiss(CachePaths)
		c.HeadReadRetried()
		c.MergeFinished(OutcomeMerged)
		c.TransactionOpened()
		c.TransactionClosed()
	})
	assert.Nil(t, c.Registry())
	assert.NoError(t, c.WriteText(&bytes.Buffer{}))
}

func TestCollector_WriteText(t *testing.T) {
	c := NewCollector("histore")
	c.NodeWritten("message")

	var buf bytes.Buffer
	require.NoError(t, c.WriteText(&buf))
	out := buf.String()
	assert.Contains(t, out, "# TYPE histore_nodes_written_total counter")
	assert.Contains(t, out, `histore_nodes_written_total{type="message"} 1`)
	assert.Contains(t, out, "histore_transactions_open 0")
}
