package clientid

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextCarriesPrefix(t *testing.T) {
	gen := NewGenerator()
	id := gen.Next("round")
	require.True(t, strings.HasPrefix(id, "round_"), "id %q", id)
	require.Equal(t, 3, len(strings.Split(strings.TrimPrefix(id, "round_"), "-")))
}

func TestNextIsUnique(t *testing.T) {
	gen := NewGenerator()
	seen := make(map[string]bool)
	for i := 0; i < 10000; i++ {
		id := gen.Next("q")
		require.False(t, seen[id], "duplicate id %q", id)
		seen[id] = true
	}
}

func TestNextIsUniqueUnderConcurrency(t *testing.T) {
	gen := NewGenerator()

	const workers = 8
	const perWorker = 1000

	ids := make(chan string, workers*perWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				ids <- gen.Next("cat")
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool, workers*perWorker)
	for id := range ids {
		require.False(t, seen[id], "duplicate id %q", id)
		seen[id] = true
	}
}
