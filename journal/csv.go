package journal

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/loansim/amortization"
)

var scheduleHeader = []string{"number", "amortization", "interest", "payment"}

// WriteScheduleCSV writes s with a header row. Amounts keep two places.
func WriteScheduleCSV(w io.Writer, s amortization.Schedule) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(scheduleHeader); err != nil {
		return err
	}
	for _, in := range s {
		err := cw.Write([]string{
			strconv.Itoa(in.Number),
			cents(in.Amortization),
			cents(in.Interest),
			cents(in.Payment),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func cents(d decimal.Decimal) string {
	return d.StringFixedBank(2)
}
