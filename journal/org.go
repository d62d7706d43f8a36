package journal

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/loansim/amortization"
)

// FormatScheduleOrg renders a schedule as an Org-mode table under a heading,
// with a totals row at the bottom. Columns are not padded; Org realigns them.
func FormatScheduleOrg(m amortization.Method, s amortization.Schedule) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("** %s schedule (%d installments)\n", m, len(s)))
	b.WriteString("| # | Amortization | Interest | Payment |\n")
	b.WriteString("|---+--------------+----------+---------|\n")

	amort, interest, payment := decimal.Zero, decimal.Zero, decimal.Zero
	for _, in := range s {
		b.WriteString(fmt.Sprintf("| %d | %s | %s | %s |\n",
			in.Number, cents(in.Amortization), cents(in.Interest), cents(in.Payment)))
		amort = amort.Add(in.Amortization)
		interest = interest.Add(in.Interest)
		payment = payment.Add(in.Payment)
	}

	b.WriteString("|---+--------------+----------+---------|\n")
	b.WriteString(fmt.Sprintf("| Total | %s | %s | %s |\n", cents(amort), cents(interest), cents(payment)))
	return b.String()
}
