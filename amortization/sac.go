package amortization

import "github.com/shopspring/decimal"

// SAC returns the constant-amortization schedule: the principal portion is
// principal/term every period and the payment shrinks with the balance.
func SAC(principal decimal.Decimal, term int, rate decimal.Decimal) Schedule {
	return emit(sacRows(principal, term, rate))
}

func sacRows(principal decimal.Decimal, term int, rate decimal.Decimal) []row {
	fixed := principal.DivRound(decimal.NewFromInt(int64(term)), workingPlaces)

	balance := principal
	rows := make([]row, 0, term)
	for i := 1; i <= term; i++ {
		interest := balance.Mul(rate).RoundBank(workingPlaces)
		amort := fixed
		if i == term {
			amort = balance
		}

		balance = balance.Sub(amort)
		rows = append(rows, row{amortization: amort, interest: interest, payment: amort.Add(interest)})
	}
	return rows
}
