// Package money holds the rounding contract shared by every monetary and
// rate value the simulator emits. All rounding is round-half-to-even.
package money

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Scales used on output.
const (
	CashPlaces  int32 = 2
	RatioPlaces int32 = 4
	RatePlaces  int32 = 6
)

// Round2 rounds to cents, ties to even.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(CashPlaces)
}

// Round4 rounds ratios such as a success percentage.
func Round4(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(RatioPlaces)
}

// Round6 rounds periodic interest rates.
func Round6(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(RatePlaces)
}

// RoundFloat applies the same banker's rounding to a float64 by going through
// its shortest decimal representation, so 2.675 rounds as the literal reads.
func RoundFloat(f float64, places int32) float64 {
	return decimal.NewFromFloat(f).RoundBank(places).InexactFloat64()
}

// Fixed renders d rounded to places with trailing zeros kept, as a JSON number.
func Fixed(d decimal.Decimal, places int32) json.Number {
	return json.Number(d.StringFixedBank(places))
}

// Cash is Fixed at two places.
func Cash(d decimal.Decimal) json.Number {
	return Fixed(d, CashPlaces)
}

// Rate is Fixed at six places.
func Rate(d decimal.Decimal) json.Number {
	return Fixed(d, RatePlaces)
}
