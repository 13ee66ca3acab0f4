package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/proposal-customizer/internal/pipeline"
	"github.com/jonathan/proposal-customizer/internal/types"
)

var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Find the catalog and pages describing a model",
	Long:  "Searches the configured catalogs in order and prints the catalog, match kind and pages chosen for the model, plus any fallback warnings.",
	RunE:  runLocate,
}

var locateModel string

func init() {
	locateCmd.Flags().StringVarP(&locateModel, "model", "m", "", "Model name, e.g. \"DVF 5000\" (required)")

	if err := locateCmd.MarkFlagRequired("model"); err != nil {
		panic(fmt.Sprintf("failed to mark model flag as required: %v", err))
	}

	rootCmd.AddCommand(locateCmd)
}

func runLocate(cmd *cobra.Command, _ []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	loc, err := rt.engine(nil, nil).Locate(cmd.Context(), pipeline.Request{
		Model:    locateModel,
		Catalogs: rt.cfg.Catalogs,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Model:   %s\n", locateModel)                             //nolint:errcheck
	fmt.Fprintf(out, "Catalog: %s (%s)\n", loc.Catalog.Name, loc.Catalog.Path) //nolint:errcheck
	fmt.Fprintf(out, "Match:   %s\n", loc.Match)                               //nolint:errcheck
	fmt.Fprintf(out, "Pages:   %v\n", types.PageNumbers(loc.Pages))            //nolint:errcheck
	for _, w := range loc.Warnings {
		fmt.Fprintf(out, "Warning: %s: %s\n", w.Code, w.Message) //nolint:errcheck
	}
	return nil
}
