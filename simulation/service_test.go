package simulation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rustyeddy/loansim/catalog"
	"github.com/rustyeddy/loansim/telemetry"
)

type fakeStore struct {
	mu      sync.Mutex
	records []Record
	err     error
}

func (f *fakeStore) Save(_ context.Context, rec Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return f.err
}

type fakePublisher struct {
	calls int
	last  any
	err   error
}

func (f *fakePublisher) Publish(_ context.Context, v any) error {
	f.calls++
	f.last = v
	return f.err
}

// cancellingFinder cancels the request context while answering, as if the
// client hung up mid-lookup.
type cancellingFinder struct {
	catalog.Finder
	cancel context.CancelFunc
}

func (c cancellingFinder) Find(ctx context.Context, principal decimal.Decimal, term int) (catalog.Product, error) {
	p, err := c.Finder.Find(ctx, principal, term)
	c.cancel()
	return p, err
}

var t0 = time.Date(2025, 8, 20, 14, 0, 0, 0, time.UTC)

func newTestService(store Store, pub Publisher, log *zap.Logger) *Service {
	s := NewService(Deps{
		Products:  catalog.NewStatic(catalog.DefaultProducts()),
		Store:     store,
		Publisher: pub,
		Log:       log,
	})
	calls := 0
	s.now = func() time.Time {
		t := t0.Add(time.Duration(calls) * 40 * time.Millisecond)
		calls++
		return t
	}
	s.newID = func(time.Time) string { return "sim-0001" }
	return s
}

func TestSimulate(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	s := newTestService(store, pub, nil)

	env, err := s.Simulate(context.Background(), decimal.NewFromInt(1000), 12)
	require.NoError(t, err)

	assert.Equal(t, "sim-0001", env.ID)
	assert.Equal(t, 1, env.ProductCode)
	assert.Equal(t, "Produto 1", env.ProductDescription)
	assert.Equal(t, "0.017900", env.Rate.StringFixed(6))
	require.Len(t, env.Results, 2)

	require.Len(t, store.records, 1)
	rec := store.records[0]
	assert.Same(t, env, rec.Envelope)
	assert.True(t, decimal.NewFromInt(1000).Equal(rec.Principal))
	assert.Equal(t, 12, rec.Term)
	assert.Equal(t, 40*time.Millisecond, rec.Duration)
	assert.True(t, rec.CreatedAt.Equal(t0))

	assert.Equal(t, 1, pub.calls)
	assert.Same(t, env, pub.last)
}

func TestSimulateValidation(t *testing.T) {
	tests := []struct {
		name      string
		principal decimal.Decimal
		term      int
		field     string
	}{
		{"zero principal", decimal.Zero, 12, "principal"},
		{"negative principal", decimal.NewFromInt(-5), 12, "principal"},
		{"zero term", decimal.NewFromInt(1000), 0, "term"},
		{"negative term", decimal.NewFromInt(1000), -1, "term"},
		{"term too long", decimal.NewFromInt(1000), MaxTerm + 1, "term"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			s := newTestService(store, nil, nil)

			_, err := s.Simulate(context.Background(), tt.principal, tt.term)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Empty(t, store.records)
		})
	}
}

func TestSimulateNoEligibleProduct(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	s := newTestService(store, pub, nil)

	_, err := s.Simulate(context.Background(), decimal.NewFromInt(50), 200)

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, 200, nf.Term)
	assert.Contains(t, err.Error(), "principal 50")
	assert.Empty(t, store.records)
	assert.Zero(t, pub.calls)
}

func TestSimulateSaveFailureStillReturnsEnvelope(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	store := &fakeStore{err: errors.New("database is locked")}
	pub := &fakePublisher{}
	s := newTestService(store, pub, zap.New(core))

	env, err := s.Simulate(context.Background(), decimal.NewFromInt(1000), 12)
	require.NoError(t, err)
	require.NotNil(t, env)

	entries := logs.FilterMessage("save simulation failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "sim-0001", entries[0].ContextMap()["simulation_id"])
	assert.Equal(t, 1, pub.calls)
}

func TestSimulatePublishFailureIsSwallowed(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	pub := &fakePublisher{err: errors.New("connection refused")}
	s := newTestService(&fakeStore{}, pub, zap.New(core))

	ctx := telemetry.WithCorrelationID(context.Background(), "corr-9")
	env, err := s.Simulate(ctx, decimal.NewFromInt(1000), 12)
	require.NoError(t, err)
	require.NotNil(t, env)

	entries := logs.FilterMessage("publish simulation failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "corr-9", entries[0].ContextMap()["correlation_id"])
}

func TestSimulateCancelledSkipsPersistence(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	s := newTestService(store, pub, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.products = cancellingFinder{Finder: catalog.NewStatic(catalog.DefaultProducts()), cancel: cancel}

	env, err := s.Simulate(ctx, decimal.NewFromInt(1000), 12)
	assert.Nil(t, env)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.records)
	assert.Zero(t, pub.calls)
}

func TestSimulateAlreadyCancelled(t *testing.T) {
	store := &fakeStore{}
	s := newTestService(store, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Simulate(ctx, decimal.NewFromInt(1000), 12)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.records)
}

func TestSimulateTimesProductLookup(t *testing.T) {
	reg := telemetry.NewRegistry()
	q := telemetry.NewQueue(reg, zap.NewNop(), 16, 1)

	s := newTestService(&fakeStore{}, nil, nil)
	s.spans = telemetry.NewInstrument(zap.NewNop(), q)

	_, err := s.Simulate(context.Background(), decimal.NewFromInt(1000), 12)
	require.NoError(t, err)
	q.Close()

	c, ok := reg.Snapshot(SpanFindProduct)
	require.True(t, ok)
	assert.Equal(t, int64(1), c.Calls)
	assert.Equal(t, int64(1), c.Successes)
}

func TestFindProductMissTimesLookup(t *testing.T) {
	reg := telemetry.NewRegistry()
	q := telemetry.NewQueue(reg, zap.NewNop(), 16, 1)

	s := newTestService(&fakeStore{}, nil, nil)
	s.spans = telemetry.NewInstrument(zap.NewNop(), q)

	_, err := s.FindProduct(context.Background(), decimal.NewFromInt(50), 200)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	q.Close()

	c, ok := reg.Snapshot(SpanFindProduct)
	require.True(t, ok)
	assert.Equal(t, int64(1), c.Calls)
}

func TestSimulateUsesGeneratedIDs(t *testing.T) {
	s := NewService(Deps{
		Products: catalog.NewStatic(catalog.DefaultProducts()),
		Store:    &fakeStore{},
	})

	a, err := s.Simulate(context.Background(), decimal.NewFromInt(1000), 12)
	require.NoError(t, err)
	b, err := s.Simulate(context.Background(), decimal.NewFromInt(1000), 12)
	require.NoError(t, err)

	assert.Len(t, a.ID, 26)
	assert.Less(t, a.ID, b.ID)
}
