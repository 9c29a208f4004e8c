// Package main is the entry point for the procedurelab CLI.
//
// Usage:
//
//	procedurelab serve                    # Start with defaults on :8080
//	procedurelab serve -c lab.yaml        # Start with a config file
//	procedurelab validate -c lab.toml     # Validate configuration
//	procedurelab version                  # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information, set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help.
var rootCmd = &cobra.Command{
	Use:   "procedurelab",
	Short: "A small HTTP lab for arithmetic, items and output escaping",
	Long: `procedurelab serves a handful of HTTP procedures for experimenting with
input handling:

  /add and /fib         numeric utilities returning JSON
  /items/{key}          an in-memory JSON key-value store
  /vulnerable_echo      HTML echo pages that escape their input
  /safe_echo

Quick start:
  1. Run: procedurelab serve
  2. Open http://localhost:8080 in your browser

Example config (lab.yaml):
  title: Procedure Lab
  port: 8080
  max_fib_n: 10000
  items:
    greeting:
      text: hello`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this procedurelab binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "procedurelab %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
