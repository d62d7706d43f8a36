// Package amortization builds loan repayment schedules.
//
// Two methods are supported. PRICE keeps the total payment level across the
// term; SAC keeps the principal portion level. Both work on full-precision
// decimals and round only the emitted fields, and both force the final row's
// amortization to the outstanding balance so the loan closes at exactly zero.
package amortization

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/loansim/money"
)

// Method tags a schedule in an envelope.
type Method string

const (
	MethodSAC   Method = "SAC"
	MethodPRICE Method = "PRICE"
)

// Installment is one emitted row. Money fields are already rounded to cents.
type Installment struct {
	Number       int             `json:"number"`
	Amortization decimal.Decimal `json:"amortization"`
	Interest     decimal.Decimal `json:"interest"`
	Payment      decimal.Decimal `json:"payment"`
}

// MarshalJSON writes the money fields as numbers with exactly two places.
func (i Installment) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Number       int         `json:"number"`
		Amortization json.Number `json:"amortization"`
		Interest     json.Number `json:"interest"`
		Payment      json.Number `json:"payment"`
	}{
		Number:       i.Number,
		Amortization: money.Cash(i.Amortization),
		Interest:     money.Cash(i.Interest),
		Payment:      money.Cash(i.Payment),
	})
}

// Schedule is an ordered list of installments, one per period.
type Schedule []Installment

// TotalPayment sums the payment column.
func (s Schedule) TotalPayment() decimal.Decimal {
	total := decimal.Zero
	for _, in := range s {
		total = total.Add(in.Payment)
	}
	return total
}

// Compute dispatches on the method tag.
func Compute(m Method, principal decimal.Decimal, term int, rate decimal.Decimal) (Schedule, error) {
	switch m {
	case MethodPRICE:
		return Price(principal, term, rate), nil
	case MethodSAC:
		return SAC(principal, term, rate), nil
	default:
		return nil, fmt.Errorf("unknown amortization method %q", m)
	}
}

// row is a period before rounding.
type row struct {
	amortization decimal.Decimal
	interest     decimal.Decimal
	payment      decimal.Decimal
}

func emit(rows []row) Schedule {
	out := make(Schedule, len(rows))
	for i, r := range rows {
		out[i] = Installment{
			Number:       i + 1,
			Amortization: money.Round2(r.amortization),
			Interest:     money.Round2(r.interest),
			Payment:      money.Round2(r.payment),
		}
	}
	return out
}
