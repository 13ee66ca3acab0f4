package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/proposal-customizer/internal/pipeline"
	"github.com/jonathan/proposal-customizer/internal/schemas"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract parameters, items and trace for one model",
	Long: `Locates the model in the configured catalogs, resolves every template parameter,
builds the provenance trace and extracts the equipment lists. The result is checked
against the extraction result schema before it is written.`,
	RunE: runExtract,
}

var (
	extractModel  string
	extractOutput string
)

func init() {
	extractCmd.Flags().StringVarP(&extractModel, "model", "m", "", "Model name, e.g. \"DVF 5000\" (required)")
	extractCmd.Flags().StringVarP(&extractOutput, "out", "o", "", "Path to output ExtractionResult JSON file (required)")

	if err := extractCmd.MarkFlagRequired("model"); err != nil {
		panic(fmt.Sprintf("failed to mark model flag as required: %v", err))
	}
	if err := extractCmd.MarkFlagRequired("out"); err != nil {
		panic(fmt.Sprintf("failed to mark out flag as required: %v", err))
	}

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, _ []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	var onProgress pipeline.ProgressCallback
	if rt.cfg.Verbose {
		onProgress = func(ev pipeline.ProgressEvent) {
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", ev.Step, ev.Message) //nolint:errcheck
		}
	}

	result, err := rt.engine(nil, onProgress).Extract(cmd.Context(), pipeline.Request{
		Model:    extractModel,
		Template: rt.cfg.Template,
		Catalogs: rt.cfg.Catalogs,
	})
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal extraction result: %w", err)
	}
	if err := schemas.ValidateEmbedded(schemas.ExtractionResultSchema, data); err != nil {
		return fmt.Errorf("extraction result does not match schema: %w", err)
	}

	if err := writeJSON(extractOutput, result); err != nil {
		return err
	}
	rt.writeMetrics()

	if rt.cfg.Verbose {
		rt.printer.PrintLocation(result)
		rt.printer.PrintParameters(result.Parameters)
		rt.printer.PrintItems(result.Items)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Resolved %d of %d parameters for %s\n", result.ResolvedCount(), len(result.Parameters), result.Model) //nolint:errcheck
	for _, w := range result.Warnings {
		fmt.Fprintf(out, "Warning: %s\n", w.Message) //nolint:errcheck
	}
	fmt.Fprintf(out, "Successfully wrote extraction result to %s\n", extractOutput) //nolint:errcheck
	return nil
}
