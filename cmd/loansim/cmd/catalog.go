package cmd

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the product catalog",
	Long: `Query the products stored in the database. The catalog is seeded
from the configuration the first time the database is opened.

Subcommands:
  list - print every product, most specific first
  find - print the product chosen for a principal and term

Examples:
  loansim catalog list
  loansim catalog find --principal 20000 --term 30`,
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all products",
	Args:  cobra.NoArgs,
	RunE:  runCatalogList,
}

var catalogFindCmd = &cobra.Command{
	Use:   "find",
	Short: "Find the product for a principal and term",
	Args:  cobra.NoArgs,
	RunE:  runCatalogFind,
}

var (
	catalogPrincipal string
	catalogTerm      int
)

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogFindCmd)

	catalogFindCmd.Flags().StringVarP(&catalogPrincipal, "principal", "p", "", "amount borrowed (required)")
	catalogFindCmd.Flags().IntVarP(&catalogTerm, "term", "t", 0, "number of installments (required)")
	catalogFindCmd.MarkFlagRequired("principal")
	catalogFindCmd.MarkFlagRequired("term")
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	products, err := a.products.List(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), products)
}

func runCatalogFind(cmd *cobra.Command, args []string) error {
	principal, err := decimal.NewFromString(catalogPrincipal)
	if err != nil {
		return fmt.Errorf("principal: %w", err)
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	prod, err := a.sim.FindProduct(cmd.Context(), principal, catalogTerm)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), prod)
}
