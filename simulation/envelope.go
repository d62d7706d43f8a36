package simulation

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/loansim/amortization"
	"github.com/rustyeddy/loansim/catalog"
	"github.com/rustyeddy/loansim/money"
)

// Result pairs a method tag with its schedule.
type Result struct {
	Method       amortization.Method   `json:"method"`
	Installments amortization.Schedule `json:"installments"`
}

// Envelope is the complete, immutable outcome of one simulation. Its JSON
// field order and names are a compatibility surface: keep them stable.
type Envelope struct {
	ID                 string          `json:"id"`
	ProductCode        int             `json:"productCode"`
	ProductDescription string          `json:"productDescription"`
	Rate               decimal.Decimal `json:"rate"`
	Results            []Result        `json:"results"`
}

// MarshalJSON writes the rate with exactly six places.
func (e Envelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID                 string      `json:"id"`
		ProductCode        int         `json:"productCode"`
		ProductDescription string      `json:"productDescription"`
		Rate               json.Number `json:"rate"`
		Results            []Result    `json:"results"`
	}{
		ID:                 e.ID,
		ProductCode:        e.ProductCode,
		ProductDescription: e.ProductDescription,
		Rate:               money.Rate(e.Rate),
		Results:            e.Results,
	})
}

// TotalPayment sums every installment payment across all schedules.
func (e Envelope) TotalPayment() decimal.Decimal {
	total := decimal.Zero
	for _, r := range e.Results {
		total = total.Add(r.Installments.TotalPayment())
	}
	return total
}

// Build computes both schedules for prod's rate and assembles the envelope.
func Build(id string, prod catalog.Product, principal decimal.Decimal, term int) *Envelope {
	return &Envelope{
		ID:                 id,
		ProductCode:        prod.Code,
		ProductDescription: prod.Description,
		Rate:               money.Round6(prod.Rate),
		Results: []Result{
			{Method: amortization.MethodSAC, Installments: amortization.SAC(principal, term, prod.Rate)},
			{Method: amortization.MethodPRICE, Installments: amortization.Price(principal, term, prod.Rate)},
		},
	}
}

// Record is what gets persisted for each simulation.
type Record struct {
	Envelope  *Envelope
	Principal decimal.Decimal
	Term      int
	Duration  time.Duration
	CreatedAt time.Time
}
