package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/procedurelab/config"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a procedurelab configuration file without starting the server.

This command parses the YAML or TOML, expands environment variables, checks
every field and confirms each seed item can be stored.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  procedurelab validate -c lab.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	maxFib := "unlimited"
	if cfg.MaxFibN > 0 {
		maxFib = fmt.Sprintf("%d", cfg.MaxFibN)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Port:             %d\n", cfg.Port)
	fmt.Fprintf(out, "  Max fib n:        %s\n", maxFib)
	fmt.Fprintf(out, "  Shutdown timeout: %s\n", cfg.ShutdownTimeout.Duration())
	fmt.Fprintf(out, "  Log:              %s (%s)\n", cfg.Log.Level, cfg.Log.Format)
	fmt.Fprintf(out, "  Seed items:       %d\n", len(cfg.Items))

	return nil
}
