package observability

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/proposal-customizer/internal/types"
)

func strPtr(s string) *string { return &s }

func TestPrintLocation(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	result := &types.ExtractionResult{
		Model:       "DVF 5000",
		CatalogName: "DVF series",
		Pages:       []int{4, 5},
		Warnings:    []types.Warning{{Code: types.WarnModelNotFoundOnPages}},
	}

	p.PrintLocation(result)
	output := buf.String()

	assert.Contains(t, output, "MODEL LOCATION")
	assert.Contains(t, output, "DVF 5000")
	assert.Contains(t, output, "DVF series")
	assert.Contains(t, output, "[4 5]")
	assert.Contains(t, output, "ModelNotFoundOnPages")
}

func TestPrintLocation_Nil(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintLocation(nil)

	assert.Empty(t, buf.String())
}

func TestPrintParameters(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	params := []types.ResolvedParameter{
		{Key: "table_size", Label: "Table size", Value: strPtr("ø650 x 500")},
		{Key: "max_load", Label: "Max. table load"},
	}

	p.PrintParameters(params)
	output := buf.String()

	assert.Contains(t, output, "✓ Table size: ø650 x 500")
	assert.Contains(t, output, "✗ Max. table load")
	assert.Contains(t, output, "Resolved 1 of 2 parameters")
}

func TestPrintItems(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintItems(types.Items{
		MainUnits:     []string{"Base", "Column"},
		StandardItems: []string{"A", "B", "C", "D", "E", "F", "G"},
		OptionItems:   []string{},
	})
	output := buf.String()

	assert.Contains(t, output, "Main Units (2):")
	assert.Contains(t, output, "Standard Equipment (7):")
	assert.Contains(t, output, "... and 2 more")
	assert.Contains(t, output, "Options (0):")
	assert.NotContains(t, output, "• F")
}

func TestPrintTrace(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintTrace([]types.TraceEntry{
		{Label: "Table size", Value: "ø650 x 500", Page: 4, Source: types.SourceTable},
	})
	output := buf.String()

	assert.Contains(t, output, "TRACE (1 entries)")
	assert.Contains(t, output, "Table size = ø650 x 500")
	assert.Contains(t, output, "p.4 table")
}

func TestPrintViolations_WithViolations(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	report := &types.ValidationReport{
		Coverage: 0.25,
		Status:   types.StatusError,
		Violations: []types.Violation{
			{Type: "parameter_coverage", Severity: types.SeverityError, Details: "parameter coverage 25.0% (1/4) is below 60%"},
			{Type: "options_empty", Severity: types.SeverityError, Details: "no option items found"},
		},
		Missing: []string{"Max. table load"},
	}

	p.PrintViolations(report)
	output := buf.String()

	assert.Contains(t, output, "REVIEW VIOLATIONS")
	assert.Contains(t, output, "Coverage 25.0%, found 2 violations")
	assert.Contains(t, output, "parameter_coverage")
	assert.Contains(t, output, "options_empty")
	assert.Contains(t, output, "Max. table load")
}

func TestPrintViolations_NoViolations(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintViolations(&types.ValidationReport{Status: types.StatusOK, Violations: []types.Violation{}})
	output := buf.String()

	assert.Contains(t, output, "NO VIOLATIONS FOUND")
}

func TestPrintOutcomes(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintOutcomes([]types.ModelOutcome{
		{Model: "DVF 5000", Status: types.StatusOK, Report: &types.ValidationReport{Coverage: 0.9}},
		{Model: "HT 2500", Status: types.StatusError, Report: &types.ValidationReport{Coverage: 0.5, Violations: make([]types.Violation, 2)}},
		{Model: "NHX 4000", Status: types.StatusError, Error: "catalog unreadable"},
	})
	output := buf.String()

	assert.Contains(t, output, "✓ DVF 5000 (90%)")
	assert.Contains(t, output, "⚠ HT 2500 (50%, 2 violations)")
	assert.Contains(t, output, "✗ NHX 4000: catalog unreadable")
	assert.Contains(t, output, "1 of 3 models could not be processed")
}

func TestPrintBox_LongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintLocation(&types.ExtractionResult{
		Model:       "DVF 5000",
		CatalogName: "Ø Vertical 5-axis machining centers with tilting rotary table and automatic tool changer",
	})
	output := buf.String()

	assert.True(t, strings.Contains(output, "┌"))
	assert.True(t, strings.Contains(output, "└"))
	assert.Contains(t, output, "...")
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		assert.Equal(t, boxWidth, utf8.RuneCountInString(line), line)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "øøøøø", truncate("øøøøø", 5))
	assert.Equal(t, "øø...", truncate("øøøøøø", 5))
}
