package testutil

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequentialIDs_Sequence(t *testing.T) {
	g := NewSequentialIDs("")
	assert.Equal(t, 0, g.Issued())
	assert.Equal(t, "run-0001", g.Generate())
	assert.Equal(t, "run-0002", g.Generate())
	assert.Equal(t, 2, g.Issued())
}

func TestSequentialIDs_Prefix(t *testing.T) {
	g := NewSequentialIDs("timer")
	assert.Equal(t, "timer-0001", g.Generate())
}

func TestSequentialIDs_Reset(t *testing.T) {
	g := NewSequentialIDs("run")
	g.Generate()
	g.Generate()
	g.Reset()
	assert.Equal(t, 0, g.Issued())
	assert.Equal(t, "run-0001", g.Generate())
}

func TestSequentialIDs_ThreadSafe(t *testing.T) {
	g := NewSequentialIDs("run")
	const workers = 20
	const perWorker = 50

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				id := g.Generate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, workers*perWorker, "ids must be unique")
	assert.Equal(t, workers*perWorker, g.Issued())
}

func TestSequentialIDs_SortInIssueOrder(t *testing.T) {
	g := NewSequentialIDs("run")
	ids := make([]string, 12)
	for i := range ids {
		ids[i] = g.Generate()
	}
	assert.True(t, sort.StringsAreSorted(ids))
}
