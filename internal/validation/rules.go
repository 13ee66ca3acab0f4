package validation

import (
	"fmt"
	"strings"

	"github.com/jonathan/proposal-customizer/internal/types"
)

// Violation types, in the order the rules run.
const (
	RuleParameterCoverage  = "parameter_coverage"
	RuleMainUnitsEmpty     = "main_units_empty"
	RuleStandardItemsEmpty = "standard_items_empty"
	RuleOptionsEmpty       = "options_empty"
	RuleLocatorWarnings    = "locator_warnings"
)

func checkCoverage(result types.ExtractionResult, coverage, threshold float64) *types.Violation {
	if coverage >= threshold {
		return nil
	}
	return &types.Violation{
		Type:     RuleParameterCoverage,
		Severity: types.SeverityError,
		Details: fmt.Sprintf("parameter coverage %.1f%% (%d/%d) is below %.0f%%",
			coverage*100, result.ResolvedCount(), len(result.Parameters), threshold*100),
	}
}

func checkItems(items types.Items) []types.Violation {
	lists := []struct {
		rule  string
		name  string
		items []string
	}{
		{RuleMainUnitsEmpty, "main units", items.MainUnits},
		{RuleStandardItemsEmpty, "standard items", items.StandardItems},
		{RuleOptionsEmpty, "option items", items.OptionItems},
	}

	var violations []types.Violation
	for _, l := range lists {
		if len(l.items) > 0 {
			continue
		}
		violations = append(violations, types.Violation{
			Type:     l.rule,
			Severity: types.SeverityError,
			Details:  fmt.Sprintf("no %s found", l.name),
		})
	}
	return violations
}

func checkWarnings(warnings []types.Warning) *types.Violation {
	if len(warnings) == 0 {
		return nil
	}
	codes := make([]string, len(warnings))
	for i, w := range warnings {
		codes[i] = string(w.Code)
	}
	return &types.Violation{
		Type:     RuleLocatorWarnings,
		Severity: types.SeverityError,
		Details:  fmt.Sprintf("locator warnings present: %s", strings.Join(codes, ", ")),
	}
}
