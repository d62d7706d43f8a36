package telemetry

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/rustyeddy/loansim/telemetry"

// Instrument creates spans. Every span logs its duration and feeds the sink
// as a successful observation when it ends.
type Instrument struct {
	log    *zap.Logger
	sink   Sink
	tracer trace.Tracer
	now    func() time.Time
}

// NewInstrument returns an Instrument writing to log and sink. sink may be
// nil, in which case spans are only logged and traced.
func NewInstrument(log *zap.Logger, sink Sink) *Instrument {
	if log == nil {
		log = zap.NewNop()
	}
	return &Instrument{
		log:    log,
		sink:   sink,
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
	}
}

// Span times one internal operation. Call End exactly once, normally with
// defer right after Start; extra calls are ignored.
type Span struct {
	in          *Instrument
	name        string
	correlation string
	start       time.Time
	trace       trace.Span
	once        sync.Once
}

// Start begins a span named name. The returned context carries the tracing
// span for nested calls.
func (in *Instrument) Start(ctx context.Context, name string) (context.Context, *Span) {
	cid := CorrelationID(ctx)
	ctx, ts := in.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("correlation_id", cid),
	))
	return ctx, &Span{
		in:          in,
		name:        name,
		correlation: cid,
		start:       in.now(),
		trace:       ts,
	}
}

// End records the span. The observation is always a success: spans measure
// the cost of an operation, not its outcome.
func (s *Span) End() {
	s.once.Do(func() {
		elapsed := s.in.now().Sub(s.start)
		ms := Milliseconds(elapsed)

		s.in.log.Info("span",
			zap.String("span", s.name),
			zap.Float64("duration_ms", ms),
			zap.String("correlation_id", s.correlation),
		)

		if s.in.sink != nil {
			s.in.sink.Enqueue(Observation{Name: s.name, Duration: elapsed, Status: http.StatusOK})
		}

		s.trace.SetAttributes(attribute.Float64("duration_ms", ms))
		s.trace.End()
	})
}

// Track runs fn inside a span. The span ends even if fn panics.
func (in *Instrument) Track(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := in.Start(ctx, name)
	defer span.End()
	return fn(ctx)
}
