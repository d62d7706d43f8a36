// Package telemetry aggregates per-endpoint call statistics and times
// internal operations.
package telemetry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/loansim/money"
)

// DateLayout formats report reference dates.
const DateLayout = "2006-01-02"

// Observation is one timed call of a named service or span.
type Observation struct {
	Name     string
	Duration time.Duration
	Status   int
}

// Succeeded classifies an HTTP-style status: only 2xx counts as success.
func Succeeded(status int) bool {
	return status >= 200 && status < 300
}

// Milliseconds converts d to milliseconds rounded to two places.
func Milliseconds(d time.Duration) float64 {
	return money.RoundFloat(float64(d)/float64(time.Millisecond), money.CashPlaces)
}

// Counters is the running aggregate for one name. Min and max are meaningful
// only once Calls is non-zero.
type Counters struct {
	Calls     int64
	TotalMs   float64
	MinMs     float64
	MaxMs     float64
	Successes int64
	Failures  int64
}

func (c *Counters) add(ms float64, ok bool) {
	if c.Calls == 0 || ms < c.MinMs {
		c.MinMs = ms
	}
	if c.Calls == 0 || ms > c.MaxMs {
		c.MaxMs = ms
	}
	c.Calls++
	c.TotalMs += ms
	if ok {
		c.Successes++
	} else {
		c.Failures++
	}
}

// EndpointStats is one line of a report.
type EndpointStats struct {
	Name         string  `json:"name"`
	RequestCount int64   `json:"requestCount"`
	AvgDuration  float64 `json:"avgDuration"`
	MinDuration  float64 `json:"minDuration"`
	MaxDuration  float64 `json:"maxDuration"`
	SuccessRatio float64 `json:"successRatio"`
}

// Report is the point-in-time view of every known name.
type Report struct {
	ReferenceDate string          `json:"referenceDate"`
	Endpoints     []EndpointStats `json:"endpoints"`
}

// Summarize derives the reported figures from raw counters. Averages and
// ratios are computed here and never stored.
func Summarize(name string, c Counters) EndpointStats {
	s := EndpointStats{Name: name, RequestCount: c.Calls}
	if c.Calls == 0 {
		return s
	}

	calls := decimal.NewFromInt(c.Calls)
	avg := decimal.NewFromFloat(c.TotalMs).Div(calls)
	ratio := decimal.NewFromInt(c.Successes).Div(calls)

	s.AvgDuration = money.Round2(avg).InexactFloat64()
	s.MinDuration = money.RoundFloat(c.MinMs, money.CashPlaces)
	s.MaxDuration = money.RoundFloat(c.MaxMs, money.CashPlaces)
	s.SuccessRatio = money.Round4(ratio).InexactFloat64()
	return s
}

// Aggregator records observations and reports on them. Implementations must
// make Record atomic per name.
type Aggregator interface {
	Record(ctx context.Context, o Observation) error
	Report(ctx context.Context, asOf time.Time) (Report, error)
}

// Registry is the in-process Aggregator.
type Registry struct {
	mu       sync.Mutex
	counters map[string]*Counters
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{counters: make(map[string]*Counters)}
}

// Record upserts the counters for o.Name.
func (r *Registry) Record(_ context.Context, o Observation) error {
	ms := Milliseconds(o.Duration)

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.counters[o.Name]
	if !ok {
		c = &Counters{}
		r.counters[o.Name] = c
	}
	c.add(ms, Succeeded(o.Status))
	return nil
}

// Snapshot copies the counters for name.
func (r *Registry) Snapshot(name string) (Counters, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.counters[name]
	if !ok {
		return Counters{}, false
	}
	return *c, true
}

// Report summarizes every name, sorted.
func (r *Registry) Report(_ context.Context, asOf time.Time) (Report, error) {
	r.mu.Lock()
	names := make([]string, 0, len(r.counters))
	snap := make(map[string]Counters, len(r.counters))
	for name, c := range r.counters {
		names = append(names, name)
		snap[name] = *c
	}
	r.mu.Unlock()

	sort.Strings(names)

	rep := Report{
		ReferenceDate: asOf.Format(DateLayout),
		Endpoints:     make([]EndpointStats, 0, len(names)),
	}
	for _, name := range names {
		rep.Endpoints = append(rep.Endpoints, Summarize(name, snap[name]))
	}
	return rep, nil
}
