package amortization

import (
	"math"

	"github.com/shopspring/decimal"
)

// workingPlaces bounds the scale of intermediate products so the balance does
// not accumulate digits across long terms.
const workingPlaces int32 = 28

// Price returns the constant-installment schedule. term must be >= 1 and rate
// is the periodic rate as a fraction (0.02 is 2% per period).
func Price(principal decimal.Decimal, term int, rate decimal.Decimal) Schedule {
	return emit(priceRows(principal, term, rate))
}

func priceRows(principal decimal.Decimal, term int, rate decimal.Decimal) []row {
	level := levelPayment(principal, term, rate)

	balance := principal
	rows := make([]row, 0, term)
	for i := 1; i <= term; i++ {
		interest := balance.Mul(rate).RoundBank(workingPlaces)
		amort := level.Sub(interest)
		payment := level

		if i == term {
			amort = balance
			payment = amort.Add(interest)
		}

		balance = balance.Sub(amort)
		rows = append(rows, row{amortization: amort, interest: interest, payment: payment})
	}
	return rows
}

// levelPayment is principal*rate / (1 - (1+rate)^-term), or principal/term
// when the rate is zero or too small to move the factor off zero.
func levelPayment(principal decimal.Decimal, term int, rate decimal.Decimal) decimal.Decimal {
	n := decimal.NewFromInt(int64(term))
	if rate.IsZero() {
		return principal.DivRound(n, workingPlaces)
	}
	factor := decimal.NewFromInt(1).Sub(discountFactor(rate, term))
	if !factor.IsPositive() {
		// 1+rate rounds to 1 in float64 below about 1e-16.
		factor = annuityFactor(rate, term)
	}
	if !factor.IsPositive() {
		return principal.DivRound(n, workingPlaces)
	}
	return principal.Mul(rate).DivRound(factor, workingPlaces)
}

// annuityFactor is 1 - (1+rate)^-term evaluated in decimals, as
// (g-1)/g with g = (1+rate)^term.
func annuityFactor(rate decimal.Decimal, term int) decimal.Decimal {
	one := decimal.NewFromInt(1)
	g := growth(one.Add(rate), term)
	return g.Sub(one).DivRound(g, workingPlaces)
}

// growth raises base to n by squaring, rounding each step to workingPlaces.
func growth(base decimal.Decimal, n int) decimal.Decimal {
	out := decimal.NewFromInt(1)
	for ; n > 0; n >>= 1 {
		if n&1 == 1 {
			out = out.Mul(base).RoundBank(workingPlaces)
		}
		base = base.Mul(base).RoundBank(workingPlaces)
	}
	return out
}

// discountFactor computes (1+rate)^-term in float64 and converts the result
// back to a decimal. The float step limits the factor to about 16 significant
// digits, so the least significant digits of the level payment can drift
// from a pure decimal evaluation. Swap this function for a decimal power
// series if bit-exact output is ever required.
func discountFactor(rate decimal.Decimal, term int) decimal.Decimal {
	onePlus := decimal.NewFromInt(1).Add(rate).InexactFloat64()
	return decimal.NewFromFloat(math.Pow(onePlus, -float64(term)))
}
