package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/proposal-customizer/internal/config"
	"github.com/jonathan/proposal-customizer/internal/logging"
	"github.com/jonathan/proposal-customizer/internal/observability"
	"github.com/jonathan/proposal-customizer/internal/pipeline"
	"github.com/jonathan/proposal-customizer/internal/templates"
	"github.com/jonathan/proposal-customizer/internal/validation"
)

// Persistent flags shared by all commands
var (
	configFile    string
	catalogFlags  []string
	templateID    string
	templatesFile string
	verbose       bool
	logLevel      string
	databaseURL   string
	metricsFile   string
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Path to YAML or JSON config file")
	flags.StringSliceVarP(&catalogFlags, "catalog", "c", nil, "Catalog file to search (repeatable, searched in order)")
	flags.StringVarP(&templateID, "template", "t", "", "Template id (default dvf)")
	flags.StringVar(&templatesFile, "templates-file", "", "YAML file with extra or overriding templates")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Print detailed debug information")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.StringVar(&databaseURL, "db-url", "", "PostgreSQL connection URL (defaults to DATABASE_URL env var)")
	flags.StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after the run")
}

// runtime holds everything a command needs after config, flags and env are merged.
type runtime struct {
	cfg      config.Config
	logger   *zap.Logger
	registry *templates.Registry
	metrics  *observability.Metrics
	printer  *observability.Printer
}

// newRuntime loads the config file (or the environment only), applies flag
// overrides and builds the shared services.
func newRuntime(cmd *cobra.Command) (*runtime, error) {
	var (
		loaded *config.Config
		err    error
	)
	if configFile != "" {
		loaded, err = config.LoadConfig(configFile)
	} else {
		loaded, err = config.LoadEnv()
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("catalog") {
		loaded.Catalogs = catalogFlags
	}
	if flags.Changed("template") {
		loaded.Template = templateID
	}
	if flags.Changed("templates-file") {
		loaded.TemplatesFile = templatesFile
	}
	if flags.Changed("verbose") {
		loaded.Verbose = verbose
	}
	if flags.Changed("log-level") {
		loaded.Log.Level = logLevel
	}
	if flags.Changed("db-url") {
		loaded.DatabaseURL = databaseURL
	}
	if flags.Changed("metrics-file") {
		loaded.MetricsFile = metricsFile
	}
	if loaded.DatabaseURL == "" {
		loaded.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	cfg := loaded.MergeWithDefaults(config.Defaults())
	if cfg.Verbose && !flags.Changed("log-level") {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.Log.Output = cmd.ErrOrStderr()
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	registry := templates.Default()
	if cfg.TemplatesFile != "" {
		registry, err = templates.LoadFile(cfg.TemplatesFile)
		if err != nil {
			return nil, err
		}
	}

	return &runtime{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		metrics:  observability.NewMetrics(),
		printer:  observability.NewPrinter(cmd.OutOrStdout()),
	}, nil
}

// reviewOptions converts the review config into validation thresholds.
func (rt *runtime) reviewOptions() validation.Options {
	return validation.Options{
		CoverageThreshold: rt.cfg.Review.CoverageThreshold,
		TopMissing:        rt.cfg.Review.TopMissing,
	}
}

// engine builds a pipeline engine. store may be nil.
func (rt *runtime) engine(store pipeline.OutcomeStore, onProgress pipeline.ProgressCallback) *pipeline.Engine {
	return pipeline.NewEngine(nil, rt.registry, pipeline.Options{
		Review:        rt.reviewOptions(),
		FallbackPages: rt.cfg.Review.FallbackPages,
		Workers:       rt.cfg.Batch.Workers,
		Logger:        rt.logger,
		Metrics:       rt.metrics,
		Store:         store,
		OnProgress:    onProgress,
	})
}

// writeMetrics writes the metrics textfile if one is configured.
func (rt *runtime) writeMetrics() {
	if rt.cfg.MetricsFile == "" {
		return
	}
	if err := rt.metrics.WriteTextfile(rt.cfg.MetricsFile); err != nil {
		rt.logger.Warn("failed to write metrics", zap.String("path", rt.cfg.MetricsFile), zap.Error(err))
	}
}

func (rt *runtime) close() {
	_ = rt.logger.Sync()
}

func readJSON(path string, v any) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(content, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	// Ensure output directory exists
	outputDir := filepath.Dir(path)
	if outputDir != "" && outputDir != "." {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
