// Package simulation runs a loan simulation end to end: product lookup,
// both amortization schedules, persistence and best-effort publication.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rustyeddy/loansim/catalog"
	"github.com/rustyeddy/loansim/pkg/id"
	"github.com/rustyeddy/loansim/telemetry"
)

// MaxTerm caps the number of periods a single request may ask for.
const MaxTerm = 1200

// SpanFindProduct names the span around the catalog lookup.
const SpanFindProduct = "db_find_product"

// Store persists simulation records.
type Store interface {
	Save(ctx context.Context, rec Record) error
}

// Publisher emits an envelope to an external channel.
type Publisher interface {
	Publish(ctx context.Context, v any) error
}

// Deps wires a Service. Publisher, Spans and Log are optional.
type Deps struct {
	Products  catalog.Finder
	Store     Store
	Publisher Publisher
	Spans     *telemetry.Instrument
	Log       *zap.Logger
}

// Service orchestrates simulations.
type Service struct {
	products  catalog.Finder
	store     Store
	publisher Publisher
	spans     *telemetry.Instrument
	log       *zap.Logger

	now   func() time.Time
	newID func(time.Time) string
}

// NewService builds a Service from d.
func NewService(d Deps) *Service {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		products:  d.Products,
		store:     d.Store,
		publisher: d.Publisher,
		spans:     d.Spans,
		log:       log,
		now:       time.Now,
		newID:     id.NewAt,
	}
}

// Validate checks request inputs.
func Validate(principal decimal.Decimal, term int) error {
	if !principal.IsPositive() {
		return &ValidationError{Field: "principal", Reason: "must be greater than zero"}
	}
	if term < 1 {
		return &ValidationError{Field: "term", Reason: "must be at least 1"}
	}
	if term > MaxTerm {
		return &ValidationError{Field: "term", Reason: fmt.Sprintf("must be at most %d", MaxTerm)}
	}
	return nil
}

// FindProduct looks up the product for principal and term inside a span.
func (s *Service) FindProduct(ctx context.Context, principal decimal.Decimal, term int) (catalog.Product, error) {
	var prod catalog.Product
	find := func(ctx context.Context) error {
		var err error
		prod, err = s.products.Find(ctx, principal, term)
		return err
	}

	var err error
	if s.spans != nil {
		err = s.spans.Track(ctx, SpanFindProduct, find)
	} else {
		err = find(ctx)
	}
	if errors.Is(err, catalog.ErrNotFound) {
		return catalog.Product{}, &NotFoundError{Principal: principal, Term: term}
	}
	if err != nil {
		return catalog.Product{}, fmt.Errorf("find product: %w", err)
	}
	return prod, nil
}

// Simulate validates the request, resolves the product, computes both
// schedules and returns the envelope. A failed save is logged and does not
// fail the call; a failed publish is logged at warning level and swallowed.
// If ctx is done once the envelope is built, nothing is persisted or
// published and the context error is returned.
func (s *Service) Simulate(ctx context.Context, principal decimal.Decimal, term int) (*Envelope, error) {
	if err := Validate(principal, term); err != nil {
		return nil, err
	}

	start := s.now()

	prod, err := s.FindProduct(ctx, principal, term)
	if err != nil {
		return nil, err
	}

	env := Build(s.newID(start), prod, principal, term)
	elapsed := s.now().Sub(start)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("simulation %s abandoned: %w", env.ID, err)
	}

	rec := Record{
		Envelope:  env,
		Principal: principal,
		Term:      term,
		Duration:  elapsed,
		CreatedAt: start,
	}
	if err := s.store.Save(ctx, rec); err != nil {
		s.log.Error("save simulation failed",
			zap.String("simulation_id", env.ID),
			zap.String("correlation_id", telemetry.CorrelationID(ctx)),
			zap.Error(err),
		)
	}

	s.publish(ctx, env)
	return env, nil
}

func (s *Service) publish(ctx context.Context, env *Envelope) {
	if s.publisher == nil || ctx.Err() != nil {
		return
	}
	if err := s.publisher.Publish(ctx, env); err != nil {
		s.log.Warn("publish simulation failed",
			zap.String("simulation_id", env.ID),
			zap.String("correlation_id", telemetry.CorrelationID(ctx)),
			zap.Error(err),
		)
	}
}
