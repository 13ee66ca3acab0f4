// Package main provides the entry point for the proposal_agent CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "proposal_agent",
	Short: "Catalog extraction and strict review for machine quotations",
	Long: `proposal_agent extracts technical parameters and equipment lists for machine models
from vendor catalogs, traces every value back to its page and table row, and reviews
the result against strict coverage rules.

Configuration can be loaded from a YAML or JSON file using --config and PROPOSAL_*
environment variables. Command-line flags override both.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
