package id

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAtIsUniqueUnderConcurrency(t *testing.T) {
	const n = 2000

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[string]struct{}, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := NewAt(time.Now())
			mu.Lock()
			ids[s] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, ids, n)
}

func TestNewAtSameInstantIsIncreasing(t *testing.T) {
	ts := time.Date(2025, 8, 20, 12, 0, 0, 0, time.UTC)

	got := make([]string, 50)
	for i := range got {
		got[i] = NewAt(ts)
	}
	assert.True(t, sort.StringsAreSorted(got))
}

func TestNewAtEncodesTimestamp(t *testing.T) {
	ts := time.Date(2025, 8, 20, 12, 30, 15, 123_000_000, time.UTC)

	u, err := ulid.ParseStrict(NewAt(ts))
	require.NoError(t, err)
	assert.Equal(t, ulid.Timestamp(ts), u.Time())
}
