package record

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID_Shape(t *testing.T) {
	id := NewID()
	assert.Len(t, id, IDLength)
	assert.True(t, IsValidID(id))
	assert.NotContains(t, id, "-")
}

func TestNewID_UniqueUnderConcurrency(t *testing.T) {
	const workers = 20
	const perWorker = 200

	var mu sync.Mutex
	seen := make(map[string]bool, workers*perWorker)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				id := RandomIDs{}.NewID()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, workers*perWorker)
}

func TestIsValidID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"hex", "0123456789abcdef0123456789abcdef", true},
		{"too short", "0123456789abcdef", false},
		{"too long", "0123456789abcdef0123456789abcdef0", false},
		{"hyphenated uuid", "01234567-89ab-cdef-0123-456789abcdef", false},
		{"empty", "", false},
		{"torn write", "0123456789abcdef0123456789abcd\x00\x00", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidID(tt.id))
		})
	}
}
