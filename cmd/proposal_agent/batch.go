package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/proposal-customizer/internal/db"
	"github.com/jonathan/proposal-customizer/internal/pipeline"
	"github.com/jonathan/proposal-customizer/internal/report"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Extract and review many models concurrently",
	Long: `Runs extraction and strict review for every model, writes the summary report
(XLSX and/or JSON) and, when a database URL is configured, stores the run and
its per-model outcomes in PostgreSQL.

A model that cannot be processed is reported as an error row; it does not stop
the batch.`,
	RunE: runBatch,
}

var (
	batchModels     []string
	batchModelsFile string
	batchWorkers    int
	batchXLSX       string
	batchJSON       string
	batchStrict     bool
)

func init() {
	batchCmd.Flags().StringArrayVarP(&batchModels, "model", "m", nil, "Model name (repeatable)")
	batchCmd.Flags().StringVarP(&batchModelsFile, "models-file", "f", "", "File with one model name per line ('#' starts a comment)")
	batchCmd.Flags().IntVarP(&batchWorkers, "workers", "w", 0, "Concurrent model runs (default from batch.workers)")
	batchCmd.Flags().StringVar(&batchXLSX, "xlsx", "", "Path to output summary workbook")
	batchCmd.Flags().StringVar(&batchJSON, "json", "", "Path to output summary JSON")
	batchCmd.Flags().BoolVar(&batchStrict, "strict", false, "Exit with an error when any model has violations or failed")

	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, _ []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	if cmd.Flags().Changed("workers") {
		rt.cfg.Batch.Workers = batchWorkers
	}
	if batchXLSX != "" {
		rt.cfg.Report.XLSX = batchXLSX
	}
	if batchJSON != "" {
		rt.cfg.Report.JSON = batchJSON
	}

	models, err := collectModels(batchModels, batchModelsFile)
	if err != nil {
		return err
	}
	if len(models) == 0 {
		return fmt.Errorf("no models given: use --model or --models-file")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	const steps = 3

	// Step 1: Optional run record
	fmt.Fprintf(out, "Step 1/%d: Preparing run for %d models...\n", steps, len(models)) //nolint:errcheck
	runID := uuid.New()
	var store pipeline.OutcomeStore
	var database *db.DB
	if rt.cfg.DatabaseURL != "" {
		database, runID = openRunStore(ctx, out, rt, len(models))
		if database != nil {
			defer database.Close()
			store = database
		}
	}

	// Step 2: Extract and review
	fmt.Fprintf(out, "Step 2/%d: Running %d workers...\n", steps, rt.cfg.Batch.Workers) //nolint:errcheck
	reqs := make([]pipeline.Request, len(models))
	for i, m := range models {
		reqs[i] = pipeline.Request{Model: m, Template: rt.cfg.Template, Catalogs: rt.cfg.Catalogs}
	}
	var onProgress pipeline.ProgressCallback
	if rt.cfg.Verbose {
		onProgress = func(ev pipeline.ProgressEvent) {
			rt.logger.Sugar().Debugf("[%s] %s: %s", ev.Step, ev.Model, ev.Message)
		}
	}
	batch, batchErr := rt.engine(store, onProgress).RunBatchWithID(ctx, runID, reqs)

	if database != nil {
		status := db.RunStatus(batch.Outcomes, errors.Is(batchErr, context.Canceled))
		// the run context may be cancelled; record the final status regardless
		if err := database.CompleteRun(context.WithoutCancel(ctx), runID, status); err != nil {
			fmt.Fprintf(out, "Warning: Failed to complete run: %v\n", err) //nolint:errcheck
		}
	}

	// Step 3: Reports
	fmt.Fprintf(out, "Step 3/%d: Writing reports...\n", steps) //nolint:errcheck
	rt.printer.PrintOutcomes(batch.Outcomes)

	summary := report.Summarize(runID, batch.Outcomes, rt.cfg.Review.TopMissing, rt.cfg.Review.TopTrace)
	if rt.cfg.Report.XLSX != "" {
		if err := report.WriteXLSX(rt.cfg.Report.XLSX, summary); err != nil {
			return err
		}
		fmt.Fprintf(out, "Successfully wrote summary workbook to %s\n", rt.cfg.Report.XLSX) //nolint:errcheck
	}
	if rt.cfg.Report.JSON != "" {
		if err := report.WriteJSON(rt.cfg.Report.JSON, summary); err != nil {
			return err
		}
		fmt.Fprintf(out, "Successfully wrote summary JSON to %s\n", rt.cfg.Report.JSON) //nolint:errcheck
	}
	rt.writeMetrics()

	if batchErr != nil {
		return fmt.Errorf("batch interrupted: %w", batchErr)
	}
	if batchStrict && summary.OK != summary.Total {
		return fmt.Errorf("%d of %d models did not pass review", summary.Total-summary.OK, summary.Total)
	}
	return nil
}

// openRunStore connects to the database and creates the run record. Failures
// are warnings: the batch then runs without persistence under a fresh run ID.
func openRunStore(ctx context.Context, out io.Writer, rt *runtime, models int) (*db.DB, uuid.UUID) {
	database, err := db.Connect(ctx, rt.cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(out, "Warning: Failed to connect to database: %v\n", err) //nolint:errcheck
		return nil, uuid.New()
	}
	if err := database.EnsureSchema(ctx); err != nil {
		fmt.Fprintf(out, "Warning: Failed to prepare database: %v\n", err) //nolint:errcheck
		database.Close()
		return nil, uuid.New()
	}
	runID, err := database.CreateRun(ctx, rt.cfg.Template, rt.cfg.Catalogs, models)
	if err != nil {
		fmt.Fprintf(out, "Warning: Failed to create run: %v\n", err) //nolint:errcheck
		database.Close()
		return nil, uuid.New()
	}
	fmt.Fprintf(out, "Recording run %s\n", runID) //nolint:errcheck
	return database, runID
}

// collectModels merges --model values with the lines of the models file,
// skipping blanks, comments and duplicates while keeping first-seen order.
func collectModels(flagModels []string, path string) ([]string, error) {
	var models []string
	seen := make(map[string]bool)
	add := func(m string) {
		m = strings.TrimSpace(m)
		if m == "" || seen[m] {
			return
		}
		seen[m] = true
		models = append(models, m)
	}

	for _, m := range flagModels {
		add(m)
	}
	if path == "" {
		return models, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open models file: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		add(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read models file: %w", err)
	}
	return models, nil
}
