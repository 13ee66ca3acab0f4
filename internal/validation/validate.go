// Package validation provides the strict review of extraction results.
package validation

import (
	"fmt"

	"github.com/jonathan/proposal-customizer/internal/types"
)

// Defaults for Options.
const (
	DefaultCoverageThreshold = 0.60
	DefaultTopMissing        = 12
)

// Options provides the thresholds of the strict review
type Options struct {
	CoverageThreshold float64 // minimum resolved fraction; 0 means DefaultCoverageThreshold
	TopMissing        int     // cap of the reported missing list; 0 means DefaultTopMissing
}

// DefaultOptions returns the standard review thresholds.
func DefaultOptions() Options {
	return Options{CoverageThreshold: DefaultCoverageThreshold, TopMissing: DefaultTopMissing}
}

// Check reports whether the options are usable. Zero values are not errors: they
// select the defaults, so callers reading user input must reject an explicit zero.
func (o Options) Check() error {
	if o.CoverageThreshold < 0 || o.CoverageThreshold > 1 {
		return &Error{Message: fmt.Sprintf("coverage threshold %.2f outside [0, 1]", o.CoverageThreshold)}
	}
	if o.TopMissing < 0 {
		return &Error{Message: fmt.Sprintf("top missing %d is negative", o.TopMissing)}
	}
	return nil
}

func (o Options) withDefaults() Options {
	if o.CoverageThreshold == 0 {
		o.CoverageThreshold = DefaultCoverageThreshold
	}
	if o.TopMissing == 0 {
		o.TopMissing = DefaultTopMissing
	}
	return o
}

// Validate applies every review rule to result and returns the report.
// Rules are independent: all of them are evaluated and every fired rule is
// listed in rule order. Status is ok only when no rule fired.
func Validate(result types.ExtractionResult, opts Options) types.ValidationReport {
	opts = opts.withDefaults()
	coverage := Coverage(result)

	var violations []types.Violation

	// 1. Parameter coverage
	if v := checkCoverage(result, coverage, opts.CoverageThreshold); v != nil {
		violations = append(violations, *v)
	}

	// 2-4. Item lists
	violations = append(violations, checkItems(result.Items)...)

	// 5. Locator warnings
	if v := checkWarnings(result.Warnings); v != nil {
		violations = append(violations, *v)
	}

	status := types.StatusOK
	if len(violations) > 0 {
		status = types.StatusError
	}
	if violations == nil {
		violations = []types.Violation{}
	}

	report := types.ValidationReport{
		Result:     result,
		Coverage:   coverage,
		Status:     status,
		Violations: violations,
	}
	report.Missing = capList(report.AllMissing(), opts.TopMissing)
	return report
}

// Coverage returns resolved parameters over template size, or 0 for an empty template.
func Coverage(result types.ExtractionResult) float64 {
	if len(result.Parameters) == 0 {
		return 0
	}
	return float64(result.ResolvedCount()) / float64(len(result.Parameters))
}

func capList(items []string, n int) []string {
	if len(items) > n {
		return items[:n:n]
	}
	return items
}
