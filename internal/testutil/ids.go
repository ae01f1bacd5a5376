package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates ids 00..01, 00..02, ... rendered as 32 hex
// characters, the same shape as production ids.
//
// The same scenario with the same generator produces identical ids, which
// keeps traces and golden files stable.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialIDs struct {
	mu sync.Mutex
	n  uint64
}

// NewSequentialIDs creates a generator whose first id ends in 1.
func NewSequentialIDs() *SequentialIDs {
	return &SequentialIDs{}
}

// NewID returns the next id. Implements record.IDGenerator.
func (g *SequentialIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%032x", g.n)
}

// Count returns how many ids have been generated.
func (g *SequentialIDs) Count() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

// Reset restarts the sequence.
func (g *SequentialIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
