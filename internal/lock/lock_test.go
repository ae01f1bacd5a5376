package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLock_TimeoutWhenHeld(t *testing.T) {
	a := NewArena()
	l := a.Project("alice", "demo")
	require.NoError(t, l.Acquire(t.Context(), time.Second))
	defer l.Release()

	start := time.Now()
	err := a.Project("alice", "demo").Acquire(t.Context(), 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestLock_ZeroTimeoutDoesNotWait(t *testing.T) {
	l := newLock()
	require.True(t, l.TryAcquire())
	assert.ErrorIs(t, l.Acquire(t.Context(), 0), ErrTimeout)
}

func TestLock_NegativeTimeoutWaitsForRelease(t *testing.T) {
	l := newLock()
	require.NoError(t, l.Acquire(t.Context(), -1))

	acquired := make(chan error, 1)
	go func() { acquired <- l.Acquire(context.Background(), -1) }()

	select {
	case <-acquired:
		t.Fatal("second acquire must wait while the lock is held")
	case <-time.After(30 * time.Millisecond):
	}

	l.Release()
	select {
	case err := <-acquired:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken after release")
	}
}

func TestLock_ContextCancelIsNotTimeout(t *testing.T) {
	l := newLock()
	require.True(t, l.TryAcquire())

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	err := l.Acquire(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestLock_MutualExclusion(t *testing.T) {
	a := NewArena()
	var inside, maxInside atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l := a.Project("alice", "demo")
			if err := l.Acquire(context.Background(), -1); err != nil {
				return
			}
			n := inside.Add(1)
			if n > maxInside.Load() {
				maxInside.Store(n)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			l.Release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside.Load())
}

func TestArena_HandlesAreSharedPerKey(t *testing.T) {
	a := NewArena()

	assert.Same(t, a.Project("alice", "demo"), a.Project("alice", "demo"))
	assert.NotSame(t, a.Project("alice", "demo"), a.Project("alice", "other"))
	assert.NotSame(t, a.Project("alice", "demo"), a.Project("bob", "demo"))
	assert.Same(t, a.Owner("alice"), a.Owner("alice"))
	assert.Equal(t, 3, a.Len())
}

func TestArena_RemoveDropsHandle(t *testing.T) {
	a := NewArena()
	first := a.Project("alice", "demo")

	a.Remove("alice", "demo")
	assert.Equal(t, 0, a.Len())
	assert.NotSame(t, first, a.Project("alice", "demo"))
}

func TestKey_String(t *testing.T) {
	assert.Equal(t, "alice/demo", Key{Owner: "alice", Project: "demo"}.String())
}
