package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/loansim/telemetry"
)

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Query stored simulations and telemetry",
	Long: `Read back what the service has recorded.

Subcommands:
  simulations - page through stored simulations, newest first
  volume      - per-product totals for one UTC day
  telemetry   - per-endpoint call statistics

Examples:
  loansim storage simulations --page 1 --page-size 20
  loansim storage volume --date 2025-08-20
  loansim storage telemetry`,
}

var storageSimulationsCmd = &cobra.Command{
	Use:   "simulations",
	Short: "List stored simulations",
	Args:  cobra.NoArgs,
	RunE:  runStorageSimulations,
}

var storageVolumeCmd = &cobra.Command{
	Use:   "volume",
	Short: "Show per-product volume for a day",
	Args:  cobra.NoArgs,
	RunE:  runStorageVolume,
}

var storageTelemetryCmd = &cobra.Command{
	Use:   "telemetry",
	Short: "Show endpoint telemetry",
	Long: `Print the telemetry report. Only the sqlite backend keeps counters
between runs; with the memory backend the report is empty.`,
	Args: cobra.NoArgs,
	RunE: runStorageTelemetry,
}

var (
	storagePage     int
	storagePageSize int
	storageDate     string
)

func init() {
	rootCmd.AddCommand(storageCmd)
	storageCmd.AddCommand(storageSimulationsCmd)
	storageCmd.AddCommand(storageVolumeCmd)
	storageCmd.AddCommand(storageTelemetryCmd)

	storageSimulationsCmd.Flags().IntVar(&storagePage, "page", 1, "page number, starting at 1")
	storageSimulationsCmd.Flags().IntVar(&storagePageSize, "page-size", 200, "rows per page")
	storageCmd.PersistentFlags().StringVar(&storageDate, "date", "", "reference day YYYY-MM-DD (default today, UTC)")
}

func runStorageSimulations(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	page, err := a.store.Page(cmd.Context(), storagePage, storagePageSize)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), page)
}

func runStorageVolume(cmd *cobra.Command, args []string) error {
	day, err := parseDay(storageDate)
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	vol, err := a.store.VolumeByDay(cmd.Context(), day)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), vol)
}

func runStorageTelemetry(cmd *cobra.Command, args []string) error {
	day, err := parseDay(storageDate)
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := a.telemetry.Report(cmd.Context(), day)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), rep)
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	day, err := time.Parse(telemetry.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date: %w", err)
	}
	return day, nil
}
