package telemetry

import (
	"context"

	"github.com/google/uuid"
)

// CorrelationHeader carries the request correlation id in and out.
const CorrelationHeader = "X-Correlation-ID"

type correlationKey struct{}

// WithCorrelationID attaches id to ctx.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the id attached to ctx, or "" if there is none.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// NewCorrelationID returns a fresh time-ordered UUID.
func NewCorrelationID() string {
	return uuid.Must(uuid.NewV7()).String()
}
