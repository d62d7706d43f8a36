package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/loansim/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  loansim config init -o loansim.yaml
  loansim config validate -f loansim.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "loansim.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Created default configuration: %s\n", configInitOutput)
	fmt.Fprintln(out, "\nEdit the file and run with:")
	fmt.Fprintf(out, "  loansim serve --config %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Configuration valid: %s\n", configValidatePath)
	fmt.Fprintf(out, "  Server: %s\n", cfg.Server.Addr)
	fmt.Fprintf(out, "  Storage: %s\n", cfg.Storage.DBPath)
	fmt.Fprintf(out, "  Telemetry: %s (queue %d, %d workers)\n", cfg.Telemetry.Backend, cfg.Telemetry.QueueSize, cfg.Telemetry.Workers)
	if cfg.Publisher.RedisAddr != "" {
		fmt.Fprintf(out, "  Publisher: redis %s stream %s\n", cfg.Publisher.RedisAddr, cfg.Publisher.Stream)
	} else {
		fmt.Fprintln(out, "  Publisher: disabled")
	}
	fmt.Fprintf(out, "  Catalog: %d products (%s, seed %t)\n", len(cfg.Catalog.Products), cfg.Catalog.Backend, cfg.Catalog.Seed)
	return nil
}
