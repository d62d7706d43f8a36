package cmd

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run and store one simulation",
	Long: `Resolve the product for a principal and term, compute both schedules,
store the result and print the envelope as JSON.

Example:
  loansim simulate --principal 1000 --term 12`,
	Args: cobra.NoArgs,
	RunE: runSimulate,
}

var (
	simulatePrincipal string
	simulateTerm      int
)

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringVarP(&simulatePrincipal, "principal", "p", "", "amount borrowed (required)")
	simulateCmd.Flags().IntVarP(&simulateTerm, "term", "t", 0, "number of monthly installments (required)")
	simulateCmd.MarkFlagRequired("principal")
	simulateCmd.MarkFlagRequired("term")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	principal, err := decimal.NewFromString(simulatePrincipal)
	if err != nil {
		return fmt.Errorf("principal: %w", err)
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	env, err := a.sim.Simulate(cmd.Context(), principal, simulateTerm)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), env)
}
