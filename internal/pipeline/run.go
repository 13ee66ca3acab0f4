// Package pipeline provides the high-level orchestration of catalog extraction and review.
//
// A model run is locate -> match -> trace -> items -> validate. Runs share only the
// read-only catalog cache, so a batch executes them concurrently.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/proposal-customizer/internal/catalog"
	"github.com/jonathan/proposal-customizer/internal/items"
	"github.com/jonathan/proposal-customizer/internal/locator"
	"github.com/jonathan/proposal-customizer/internal/matching"
	"github.com/jonathan/proposal-customizer/internal/observability"
	"github.com/jonathan/proposal-customizer/internal/templates"
	"github.com/jonathan/proposal-customizer/internal/tracing"
	"github.com/jonathan/proposal-customizer/internal/types"
	"github.com/jonathan/proposal-customizer/internal/validation"
)

// Step names reported in progress events.
const (
	StepLoad   = "load"
	StepLocate = "locate"
	StepMatch  = "match"
	StepTrace  = "trace"
	StepItems  = "items"
	StepReview = "review"
)

// DefaultWorkers is the batch concurrency used when Options.Workers is unset.
const DefaultWorkers = 4

// ProgressEvent represents a progress update during a model run
type ProgressEvent struct {
	Step    string `json:"step"`
	Model   string `json:"model"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs.
// It may be called from several goroutines during a batch.
type ProgressCallback func(event ProgressEvent)

// Options holds configuration for running the pipeline
type Options struct {
	Review        validation.Options
	FallbackPages int
	Workers       int
	Logger        *zap.Logger
	Metrics       *observability.Metrics
	Store         OutcomeStore
	OnProgress    ProgressCallback
}

// Request selects the model to extract, its template and the catalogs to search.
type Request struct {
	Model    string   `json:"model"`
	Template string   `json:"template"`
	Catalogs []string `json:"catalogs"`
}

// Engine runs extractions against a shared catalog cache.
type Engine struct {
	cache    *catalog.Cache
	registry *templates.Registry
	matcher  *matching.Matcher
	opts     Options
	logger   *zap.Logger
}

// NewEngine creates an engine. A nil cache is replaced by a fresh one reporting
// loads to opts.Metrics, and a nil registry by the built-in templates.
func NewEngine(cache *catalog.Cache, registry *templates.Registry, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = catalog.NewCache(logger, catalog.WithLoadHook(opts.Metrics.RecordCatalogLoad))
	}
	if registry == nil {
		registry = templates.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	return &Engine{
		cache:    cache,
		registry: registry,
		matcher:  matching.NewMatcher(logger),
		opts:     opts,
		logger:   logger,
	}
}

// emitProgress calls the progress callback if configured
func emitProgress(opts *Options, runID, step, model, message string, content any) {
	if opts.OnProgress != nil {
		opts.OnProgress(ProgressEvent{
			Step:    step,
			Model:   model,
			Message: message,
			RunID:   runID,
			Content: content,
		})
	}
}

// Extract loads the requested catalogs and extracts the model from them.
// Unreadable catalogs are skipped. The extraction fails with their load errors
// only when no catalog is readable, or when the model is not in any readable
// catalog and so may be in one that could not be read.
func (e *Engine) Extract(ctx context.Context, req Request) (*types.ExtractionResult, error) {
	return e.extract(ctx, req, "")
}

func (e *Engine) extract(ctx context.Context, req Request, runID string) (*types.ExtractionResult, error) {
	tmpl, err := e.registry.Get(req.Template)
	if err != nil {
		return nil, err
	}
	docs, unreadable, err := e.available(ctx, req, runID)
	if err != nil {
		return nil, err
	}
	return extractFrom(docs, unreadable, req.Model, tmpl, e.matcher, &e.opts, runID)
}

// Locate loads the requested catalogs like Extract and reports where the model is.
func (e *Engine) Locate(ctx context.Context, req Request) (*locator.Result, error) {
	docs, unreadable, err := e.available(ctx, req, "")
	if err != nil {
		return nil, err
	}
	return locate(docs, unreadable, req.Model, &e.opts)
}

// available returns the readable catalogs of req and the joined load errors of
// the others. It fails when none is readable.
func (e *Engine) available(ctx context.Context, req Request, runID string) ([]*types.CatalogDocument, error, error) {
	if len(req.Catalogs) == 0 {
		return nil, nil, locator.ErrNoCatalogs
	}

	docs, failures, err := e.cache.GetAvailable(ctx, req.Catalogs)
	if err != nil {
		return nil, nil, err
	}
	unreadable := errors.Join(failures...)
	if len(docs) == 0 {
		return nil, nil, unreadable
	}
	for _, f := range failures {
		e.logger.Warn("skipping unreadable catalog", zap.String("model", req.Model), zap.Error(f))
	}
	emitProgress(&e.opts, runID, StepLoad, req.Model,
		fmt.Sprintf("Loaded %d of %d catalogs", len(docs), len(req.Catalogs)), nil)
	return docs, unreadable, nil
}

// ExtractFrom runs locate -> match -> trace -> items over already loaded catalogs.
func ExtractFrom(catalogs []*types.CatalogDocument, model string, tmpl types.Template, opts Options) (*types.ExtractionResult, error) {
	return extractFrom(catalogs, nil, model, tmpl, matching.NewMatcher(opts.Logger), &opts, "")
}

// locate runs the locator. unreadable holds the load errors of skipped catalogs,
// if any, and is returned when the model is in none of catalogs.
func locate(catalogs []*types.CatalogDocument, unreadable error, model string, opts *Options) (*locator.Result, error) {
	loc, err := locator.Locate(catalogs, model, locator.Options{
		FallbackPages: opts.FallbackPages,
		Logger:        opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	if loc.Match == locator.MatchFallback && unreadable != nil {
		return nil, unreadable
	}
	return loc, nil
}

func extractFrom(catalogs []*types.CatalogDocument, unreadable error, model string, tmpl types.Template, matcher *matching.Matcher, opts *Options, runID string) (*types.ExtractionResult, error) {
	// 1. Locate
	loc, err := locate(catalogs, unreadable, model, opts)
	if err != nil {
		return nil, err
	}
	pages := types.PageNumbers(loc.Pages)
	for _, w := range loc.Warnings {
		opts.Metrics.RecordWarning(string(w.Code))
	}
	emitProgress(opts, runID, StepLocate, model,
		fmt.Sprintf("Located %s on pages %v (%s)", loc.Catalog.Name, pages, loc.Match), loc.Warnings)

	// 2. Match
	params := matcher.Match(loc.Pages, tmpl.Parameters)
	result := types.ExtractionResult{
		Model:       model,
		Catalog:     loc.Catalog.Path,
		CatalogName: loc.Catalog.Name,
		Template:    tmpl.ID,
		Pages:       pages,
		Parameters:  params,
		Warnings:    loc.Warnings,
	}
	if result.Warnings == nil {
		result.Warnings = []types.Warning{}
	}
	emitProgress(opts, runID, StepMatch, model,
		fmt.Sprintf("Resolved %d of %d parameters", result.ResolvedCount(), len(params)), nil)

	// 3. Trace
	result.Trace = tracing.Build(params)
	emitProgress(opts, runID, StepTrace, model, fmt.Sprintf("Built %d trace entries", len(result.Trace)), nil)

	// 4. Items
	result.Items = items.Extract(loc.Pages, tmpl.Sections)
	emitProgress(opts, runID, StepItems, model,
		fmt.Sprintf("Extracted %d main units, %d standard items, %d options",
			len(result.Items.MainUnits), len(result.Items.StandardItems), len(result.Items.OptionItems)), nil)

	return &result, nil
}

// Run extracts and reviews one model. It never fails: when the pipeline cannot
// run, the outcome carries status error and the error message instead of a report.
func (e *Engine) Run(ctx context.Context, req Request) types.ModelOutcome {
	return e.run(ctx, req, "")
}

func (e *Engine) run(ctx context.Context, req Request, runID string) types.ModelOutcome {
	start := time.Now()
	outcome := types.ModelOutcome{Model: req.Model, Template: req.Template}

	result, err := e.extract(ctx, req, runID)
	if err != nil {
		outcome.Status = types.StatusError
		outcome.Error = err.Error()
		e.logger.Warn("model run failed",
			zap.String("model", req.Model),
			zap.String("template", req.Template),
			zap.Error(err))
		e.opts.Metrics.RecordRun(outcome.Status, 0, false, time.Since(start))
		return outcome
	}

	// 5. Review
	report := validation.Validate(*result, e.opts.Review)
	outcome.Status = report.Status
	outcome.Report = &report
	emitProgress(&e.opts, runID, StepReview, req.Model,
		fmt.Sprintf("Review %s: coverage %.1f%%, %d violations", report.Status, report.Coverage*100, len(report.Violations)), &report)

	e.logger.Info("model run complete",
		zap.String("model", req.Model),
		zap.String("catalog", result.CatalogName),
		zap.Float64("coverage", report.Coverage),
		zap.String("status", report.Status),
		zap.Int("violations", len(report.Violations)))
	e.opts.Metrics.RecordRun(outcome.Status, report.Coverage, true, time.Since(start))
	return outcome
}

// Review validates an extraction with the engine's review options.
func (e *Engine) Review(result types.ExtractionResult) types.ValidationReport {
	return validation.Validate(result, e.opts.Review)
}
