package journal

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/loansim/telemetry"
)

var _ telemetry.Aggregator = (*Telemetry)(nil)

func newTestTelemetry(t *testing.T) *Telemetry {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "telemetry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	tel, err := NewTelemetry(db)
	require.NoError(t, err)
	return tel
}

func TestTelemetryReport(t *testing.T) {
	t.Parallel()

	tel := newTestTelemetry(t)
	ctx := context.Background()

	obs := []telemetry.Observation{
		{Name: "simulations", Duration: 4250 * time.Microsecond, Status: 200},
		{Name: "simulations", Duration: 20500 * time.Microsecond, Status: 201},
		{Name: "simulations", Duration: 10 * time.Millisecond, Status: 500},
		{Name: "health", Duration: time.Millisecond, Status: 200},
	}
	for _, o := range obs {
		require.NoError(t, tel.Record(ctx, o))
	}

	rep, err := tel.Report(ctx, time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2025-08-20", rep.ReferenceDate)
	require.Len(t, rep.Endpoints, 2)

	assert.Equal(t, "health", rep.Endpoints[0].Name)
	sim := rep.Endpoints[1]
	assert.Equal(t, telemetry.EndpointStats{
		Name:         "simulations",
		RequestCount: 3,
		AvgDuration:  11.58,
		MinDuration:  4.25,
		MaxDuration:  20.5,
		SuccessRatio: 0.6667,
	}, sim)
}

func TestTelemetryEmptyReport(t *testing.T) {
	t.Parallel()

	tel := newTestTelemetry(t)
	rep, err := tel.Report(context.Background(), time.Now())
	require.NoError(t, err)
	assert.NotNil(t, rep.Endpoints)
	assert.Empty(t, rep.Endpoints)
}

func TestTelemetryConcurrentRecordLosesNothing(t *testing.T) {
	t.Parallel()

	tel := newTestTelemetry(t)
	ctx := context.Background()

	const workers, each = 8, 40
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < each; i++ {
				status := 200
				if i%4 == 0 {
					status = 503
				}
				o := telemetry.Observation{
					Name:     "simulations",
					Duration: time.Duration(w+1) * time.Millisecond,
					Status:   status,
				}
				assert.NoError(t, tel.Record(ctx, o))
			}
		}(w)
	}
	wg.Wait()

	c, ok, err := tel.Snapshot(ctx, "simulations")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(workers*each), c.Calls)
	assert.Equal(t, int64(workers*each/4), c.Failures)
	assert.Equal(t, c.Calls, c.Successes+c.Failures)
	assert.Equal(t, 1.0, c.MinMs)
	assert.Equal(t, float64(workers), c.MaxMs)
	assert.InDelta(t, float64(each*(workers*(workers+1)/2)), c.TotalMs, 1e-6)
}

func TestTelemetrySnapshotMissing(t *testing.T) {
	t.Parallel()

	tel := newTestTelemetry(t)
	_, ok, err := tel.Snapshot(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTelemetryThroughQueue(t *testing.T) {
	t.Parallel()

	tel := newTestTelemetry(t)
	q := telemetry.NewQueue(tel, nil, 64, 2)
	for i := 0; i < 20; i++ {
		require.True(t, q.Enqueue(telemetry.Observation{Name: "span", Duration: time.Millisecond, Status: 200}))
	}
	q.Close()

	c, ok, err := tel.Snapshot(context.Background(), "span")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(20), c.Calls)
}
