package cmd

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/loansim/config"
)

var rootCmd = &cobra.Command{
	Use:   "loansim",
	Short: "Loan amortization simulator",
	Long: `Loansim prices loans under the PRICE (level payment) and SAC
(level amortization) methods.

It provides tools for:
  - Serving simulations, schedules and reports over HTTP
  - Running one-off simulations from the command line
  - Printing amortization tables as JSON, CSV or Org
  - Querying stored simulations, daily volume and endpoint telemetry`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var cfgFile string

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML or JSON); defaults apply when empty")
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
