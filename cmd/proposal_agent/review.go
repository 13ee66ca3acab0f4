package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/proposal-customizer/internal/types"
	"github.com/jonathan/proposal-customizer/internal/validation"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review an extraction result against the strict rules",
	Long:  "Applies coverage, provenance, location and item rules to an ExtractionResult JSON file and writes the ValidationReport.",
	RunE:  runReview,
}

var (
	reviewInput  string
	reviewOutput string
	reviewStrict bool
)

func init() {
	reviewCmd.Flags().StringVarP(&reviewInput, "in", "i", "", "Path to ExtractionResult JSON file (required)")
	reviewCmd.Flags().StringVarP(&reviewOutput, "out", "o", "", "Path to output ValidationReport JSON file")
	reviewCmd.Flags().BoolVar(&reviewStrict, "strict", false, "Exit with an error when the review finds violations")

	if err := reviewCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}

	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, _ []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	var result types.ExtractionResult
	if err := readJSON(reviewInput, &result); err != nil {
		return err
	}

	report := validation.Validate(result, rt.reviewOptions())

	if reviewOutput != "" {
		if err := writeJSON(reviewOutput, report); err != nil {
			return err
		}
	}

	rt.printer.PrintViolations(&report)
	if reviewOutput != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Successfully wrote validation report to %s\n", reviewOutput) //nolint:errcheck
	}

	if reviewStrict && report.Status != types.StatusOK {
		return fmt.Errorf("review found %d violations", len(report.Violations))
	}
	return nil
}
