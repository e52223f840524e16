package ids

import (
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDIsMonotonic(t *testing.T) {
	const total = 100
	ids := make([]string, total)
	for i := range ids {
		ids[i] = NewID()
	}

	for i, id := range ids {
		require.Len(t, id, 26)
		_, err := ulid.Parse(id)
		require.NoError(t, err)
		if i > 0 {
			assert.Less(t, ids[i-1], id)
		}
	}
}

func TestNewIDConcurrentUniqueness(t *testing.T) {
	const goroutines, perGoroutine = 10, 50

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[string]struct{})
	)
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				id := NewID()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, goroutines*perGoroutine)
}

func TestTime(t *testing.T) {
	before := time.Now().Add(-time.Second)
	created, err := Time(NewID())
	require.NoError(t, err)
	assert.True(t, created.After(before))

	_, err = Time("not-a-ulid")
	assert.Error(t, err)
}
