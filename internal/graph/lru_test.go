package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_EvictsLeastRecentlyUpdated(t *testing.T) {
	c := newLRU[string, int](2, false)
	c.put("a", 1)
	c.put("b", 2)

	// Reads do not count as use.
	_, ok := c.get("a")
	require.True(t, ok)
	c.put("c", 3)

	_, ok = c.get("a")
	assert.False(t, ok)
	assert.Equal(t, 2, c.len())

	// Updates do.
	c.put("b", 20)
	c.put("d", 4)
	v, ok := c.get("b")
	require.True(t, ok)
	assert.Equal(t, 20, v)
	_, ok = c.get("c")
	assert.False(t, ok)
}

func TestLRU_TouchOnGet(t *testing.T) {
	c := newLRU[string, int](2, true)
	c.put("a", 1)
	c.put("b", 2)

	_, ok := c.get("a")
	require.True(t, ok)
	c.put("c", 3)

	_, ok = c.get("a")
	assert.True(t, ok)
	_, ok = c.get("b")
	assert.False(t, ok)
}

func TestLRU_PutIf(t *testing.T) {
	c := newLRU[string, int](4, false)

	assert.False(t, c.putIf("a", 1, func() bool { return false }))
	_, ok := c.get("a")
	assert.False(t, ok)

	assert.True(t, c.putIf("a", 1, func() bool { return true }))
	v, ok := c.get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestLRU_RemoveIf(t *testing.T) {
	c := newLRU[string, int](4, false)
	c.put("keep", 1)
	c.put("drop1", 2)
	c.put("drop2", 3)

	c.removeIf(func(k string) bool { return k != "keep" })
	assert.Equal(t, 1, c.len())

	c.remove("keep")
	assert.Zero(t, c.len())
	c.remove("absent")
}

func TestLRU_MinimumCapacity(t *testing.T) {
	c := newLRU[int, int](0, false)
	c.put(1, 1)
	c.put(2, 2)
	assert.Equal(t, 1, c.len())
}
