// Package config provides configuration loading and validation for the CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/jonathan/proposal-customizer/internal/logging"
)

// EnvPrefix is the prefix of environment variables overriding config values.
const EnvPrefix = "PROPOSAL_"

// Defaults
const (
	DefaultTemplate          = "dvf"
	DefaultCoverageThreshold = 0.60
	DefaultTopMissing        = 12
	DefaultTopTrace          = 10
	DefaultFallbackPages     = 5
	DefaultWorkers           = 4
)

// sections are the nested config keys; env vars starting with one map into it.
var sections = map[string]bool{
	"review": true,
	"batch":  true,
	"log":    true,
	"report": true,
}

// Config represents the CLI configuration loaded from a YAML or JSON file and the environment.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Inputs
	Catalogs      []string `koanf:"catalogs" json:"catalogs,omitempty"`             // Catalog files searched in order
	Template      string   `koanf:"template" json:"template,omitempty"`             // Template id, e.g. dvf or ht
	TemplatesFile string   `koanf:"templates_file" json:"templates_file,omitempty"` // YAML file with extra or overriding templates

	Review ReviewConfig   `koanf:"review" json:"review"`
	Batch  BatchConfig    `koanf:"batch" json:"batch"`
	Log    logging.Config `koanf:"log" json:"log"`
	Report ReportConfig   `koanf:"report" json:"report"`

	// Behavior
	Verbose     bool   `koanf:"verbose" json:"verbose,omitempty"`           // Print detailed debug information
	DatabaseURL string `koanf:"database_url" json:"database_url,omitempty"` // PostgreSQL connection URL
	MetricsFile string `koanf:"metrics_file" json:"metrics_file,omitempty"` // Prometheus textfile output
}

// ReviewConfig holds the strict review thresholds.
type ReviewConfig struct {
	CoverageThreshold float64 `koanf:"coverage_threshold" json:"coverage_threshold,omitempty" validate:"gt=0,lte=1"`
	TopMissing        int     `koanf:"top_missing" json:"top_missing,omitempty" validate:"gte=0"`
	TopTrace          int     `koanf:"top_trace" json:"top_trace,omitempty" validate:"gte=0"`
	FallbackPages     int     `koanf:"fallback_pages" json:"fallback_pages,omitempty" validate:"gte=0"`
}

// BatchConfig holds batch execution settings.
type BatchConfig struct {
	Workers int `koanf:"workers" json:"workers,omitempty" validate:"gte=0,lte=64"`
}

// ReportConfig holds the batch report outputs.
type ReportConfig struct {
	XLSX string `koanf:"xlsx" json:"xlsx,omitempty"`
	JSON string `koanf:"json" json:"json,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Template: DefaultTemplate,
		Review: ReviewConfig{
			CoverageThreshold: DefaultCoverageThreshold,
			TopMissing:        DefaultTopMissing,
			TopTrace:          DefaultTopTrace,
			FallbackPages:     DefaultFallbackPages,
		},
		Batch: BatchConfig{Workers: DefaultWorkers},
		Log:   logging.Config{Level: "info", Format: logging.FormatConsole},
	}
}

// LoadConfig loads configuration from a YAML or JSON file, then overrides it with
// PROPOSAL_* environment variables.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return load(data)
}

// LoadEnv loads configuration from PROPOSAL_* environment variables only.
func LoadEnv() (*Config, error) {
	return load(nil)
}

func load(data []byte) (*Config, error) {
	k := koanf.New(".")

	// YAML is a superset of JSON, so one parser reads both
	if len(data) > 0 {
		if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	// zero would read as unset and merge to the default threshold
	if k.Exists("review.coverage_threshold") && cfg.Review.CoverageThreshold == 0 {
		return nil, fmt.Errorf("config error: review.coverage_threshold must be greater than 0")
	}
	return &cfg, nil
}

// envKey maps an environment variable to a config key:
//
//	PROPOSAL_REVIEW_TOP_MISSING -> review.top_missing
//	PROPOSAL_DATABASE_URL       -> database_url
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 2 && sections[parts[0]] {
		return parts[0] + "." + parts[1]
	}
	return lower
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	// Validate file paths exist (if specified)
	if c.TemplatesFile != "" {
		if _, err := os.Stat(c.TemplatesFile); os.IsNotExist(err) {
			return fmt.Errorf("config error: templates file not found: %s", c.TemplatesFile)
		}
	}
	for _, p := range c.Catalogs {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("config error: empty catalog path")
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with unset fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.Template == "" {
		result.Template = defaults.Template
	}
	if result.TemplatesFile == "" {
		result.TemplatesFile = defaults.TemplatesFile
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.MetricsFile == "" {
		result.MetricsFile = defaults.MetricsFile
	}
	if result.Log.Level == "" {
		result.Log.Level = defaults.Log.Level
	}
	if result.Log.Format == "" {
		result.Log.Format = defaults.Log.Format
	}
	if result.Report.XLSX == "" {
		result.Report.XLSX = defaults.Report.XLSX
	}
	if result.Report.JSON == "" {
		result.Report.JSON = defaults.Report.JSON
	}
	if len(result.Catalogs) == 0 {
		result.Catalogs = defaults.Catalogs
	}

	// Numeric fields: use default if zero
	if result.Review.CoverageThreshold == 0 {
		result.Review.CoverageThreshold = defaults.Review.CoverageThreshold
	}
	if result.Review.TopMissing == 0 {
		result.Review.TopMissing = defaults.Review.TopMissing
	}
	if result.Review.TopTrace == 0 {
		result.Review.TopTrace = defaults.Review.TopTrace
	}
	if result.Review.FallbackPages == 0 {
		result.Review.FallbackPages = defaults.Review.FallbackPages
	}
	if result.Batch.Workers == 0 {
		result.Batch.Workers = defaults.Batch.Workers
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
