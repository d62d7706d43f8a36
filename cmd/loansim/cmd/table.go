package cmd

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/loansim/amortization"
	"github.com/rustyeddy/loansim/journal"
	"github.com/rustyeddy/loansim/simulation"
)

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Print an amortization table",
	Long: `Compute a schedule for an explicit rate without touching the catalog
or the database.

Subcommands:
  price - level payment schedule
  sac   - level amortization schedule

Examples:
  loansim table price --principal 1000 --term 12 --rate 0.02
  loansim table sac -p 1000 -t 10 -r 0 --format csv`,
}

var (
	tablePrincipal string
	tableTerm      int
	tableRate      string
	tableFormat    string
)

func init() {
	rootCmd.AddCommand(tableCmd)
	for _, m := range []amortization.Method{amortization.MethodPRICE, amortization.MethodSAC} {
		tableCmd.AddCommand(newTableMethodCmd(m))
	}

	tableCmd.PersistentFlags().StringVarP(&tablePrincipal, "principal", "p", "", "amount borrowed (required)")
	tableCmd.PersistentFlags().IntVarP(&tableTerm, "term", "t", 0, "number of installments (required)")
	tableCmd.PersistentFlags().StringVarP(&tableRate, "rate", "r", "", "periodic rate as a fraction, e.g. 0.02 (required)")
	tableCmd.PersistentFlags().StringVar(&tableFormat, "format", "json", "output format: json|csv|org")
}

func newTableMethodCmd(m amortization.Method) *cobra.Command {
	name := "price"
	if m == amortization.MethodSAC {
		name = "sac"
	}
	return &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("Print a %s schedule", m),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTable(cmd.OutOrStdout(), m)
		},
	}
}

func runTable(w io.Writer, m amortization.Method) error {
	principal, err := decimal.NewFromString(tablePrincipal)
	if err != nil {
		return fmt.Errorf("principal: %w", err)
	}
	rate, err := decimal.NewFromString(tableRate)
	if err != nil {
		return fmt.Errorf("rate: %w", err)
	}
	if err := simulation.Validate(principal, tableTerm); err != nil {
		return err
	}
	if rate.IsNegative() {
		return fmt.Errorf("rate must not be negative")
	}

	sched, err := amortization.Compute(m, principal, tableTerm, rate)
	if err != nil {
		return err
	}

	switch tableFormat {
	case "json":
		return printJSON(w, sched)
	case "csv":
		return journal.WriteScheduleCSV(w, sched)
	case "org":
		_, err := io.WriteString(w, journal.FormatScheduleOrg(m, sched))
		return err
	default:
		return fmt.Errorf("unknown format %q (want json, csv or org)", tableFormat)
	}
}
