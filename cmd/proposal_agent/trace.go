package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/proposal-customizer/internal/tracing"
	"github.com/jonathan/proposal-customizer/internal/types"
)

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Print the provenance trace of an extraction result",
	Long:  "Prints the trace entries of an ExtractionResult, densest pages first, each with the page and table row the value came from.",
	RunE:  runTrace,
}

var (
	traceInput string
	traceTop   int
)

func init() {
	traceCmd.Flags().StringVarP(&traceInput, "in", "i", "", "Path to ExtractionResult JSON file (required)")
	traceCmd.Flags().IntVarP(&traceTop, "top", "n", 0, "Number of entries to print (default from review.top_trace)")

	if err := traceCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}

	rootCmd.AddCommand(traceCmd)
}

func runTrace(cmd *cobra.Command, _ []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	var result types.ExtractionResult
	if err := readJSON(traceInput, &result); err != nil {
		return err
	}

	top := traceTop
	if top <= 0 {
		top = rt.cfg.Review.TopTrace
	}
	rt.printer.PrintTrace(tracing.ByPageDensity(result.Trace, top))
	return nil
}
