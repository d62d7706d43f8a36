package simulation

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidationError rejects a request before it reaches the engine.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError means no product admits the requested principal and term.
type NotFoundError struct {
	Principal decimal.Decimal
	Term      int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no product matches principal %s and term %d", e.Principal.String(), e.Term)
}
