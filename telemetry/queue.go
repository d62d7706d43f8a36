package telemetry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// recordTimeout bounds a single write to the aggregator.
const recordTimeout = 5 * time.Second

// Sink accepts observations without blocking the caller.
type Sink interface {
	Enqueue(o Observation) bool
}

// Queue hands observations to an Aggregator on background workers. It is
// bounded: when the buffer is full the new observation is dropped and
// counted, so the request path never waits on telemetry.
type Queue struct {
	agg Aggregator
	log *zap.Logger

	mu     sync.RWMutex
	closed bool
	ch     chan Observation
	wg     sync.WaitGroup

	dropped atomic.Int64
}

// NewQueue starts workers goroutines draining a buffer of size observations.
func NewQueue(agg Aggregator, log *zap.Logger, size, workers int) *Queue {
	if size < 1 {
		size = 1
	}
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}

	q := &Queue{
		agg: agg,
		log: log,
		ch:  make(chan Observation, size),
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.run()
	}
	return q
}

func (q *Queue) run() {
	defer q.wg.Done()

	for o := range q.ch {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		if err := q.agg.Record(ctx, o); err != nil {
			q.log.Warn("telemetry record failed",
				zap.String("service", o.Name),
				zap.Int("status", o.Status),
				zap.Error(err),
			)
		}
		cancel()
	}
}

// Enqueue offers o to the workers. It returns false when o was dropped
// because the buffer was full or the queue is closed.
func (q *Queue) Enqueue(o Observation) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.dropped.Add(1)
		return false
	}

	select {
	case q.ch <- o:
		return true
	default:
		n := q.dropped.Add(1)
		q.log.Warn("telemetry queue full, dropping observation",
			zap.String("service", o.Name),
			zap.Int64("dropped_total", n),
		)
		return false
	}
}

// Dropped reports how many observations were discarded.
func (q *Queue) Dropped() int64 {
	return q.dropped.Load()
}

// Close stops accepting observations and waits until the buffer is drained.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	q.wg.Wait()
}
