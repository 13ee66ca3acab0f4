// Package observability provides formatted output utilities for verbose CLI mode
// and Prometheus metrics for extraction runs.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/proposal-customizer/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	for _, line := range lines {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes. Catalog text is rarely ASCII.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}

// writeList writes at most maxItemsToShow items followed by a "more" line.
func writeList(sb *strings.Builder, items []string) {
	count := min(len(items), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %s\n", items[i]))
	}
	if len(items) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(items)-maxItemsToShow))
	}
}

// PrintLocation outputs which catalog and pages were chosen for a model.
func (p *Printer) PrintLocation(result *types.ExtractionResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Model:    %s\n", result.Model))
	sb.WriteString(fmt.Sprintf("Catalog:  %s\n", result.CatalogName))
	sb.WriteString(fmt.Sprintf("Pages:    %v\n", result.Pages))

	if len(result.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, w := range result.Warnings {
			sb.WriteString(fmt.Sprintf("  ⚠ %s\n", w.Code))
		}
	}

	p.printBox("MODEL LOCATION", sb.String())
}

// PrintParameters outputs the resolved parameter values in template order.
func (p *Printer) PrintParameters(params []types.ResolvedParameter) {
	if len(params) == 0 {
		return
	}

	var sb strings.Builder
	resolved := 0
	for _, param := range params {
		if param.Resolved() {
			resolved++
			sb.WriteString(fmt.Sprintf("✓ %s: %s\n", param.Label, *param.Value))
			continue
		}
		sb.WriteString(fmt.Sprintf("✗ %s\n", param.Label))
	}
	sb.WriteString(fmt.Sprintf("\nResolved %d of %d parameters\n", resolved, len(params)))

	p.printBox("PARAMETERS", sb.String())
}

// PrintItems outputs the extracted item lists.
func (p *Printer) PrintItems(items types.Items) {
	var sb strings.Builder

	sections := []struct {
		name  string
		items []string
	}{
		{"Main Units", items.MainUnits},
		{"Standard Equipment", items.StandardItems},
		{"Options", items.OptionItems},
	}
	for i, s := range sections {
		sb.WriteString(fmt.Sprintf("%s (%d):\n", s.name, len(s.items)))
		writeList(&sb, s.items)
		if i < len(sections)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("ITEMS", sb.String())
}

// PrintTrace outputs one line per trace entry.
func (p *Printer) PrintTrace(entries []types.TraceEntry) {
	if len(entries) == 0 {
		return
	}

	var sb strings.Builder
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("%s = %s\n", e.Label, e.Value))
		sb.WriteString(fmt.Sprintf("  p.%d %s\n", e.Page, e.Source))
	}

	p.printBox(fmt.Sprintf("TRACE (%d entries)", len(entries)), sb.String())
}

// PrintViolations outputs the review status and any rule violations found.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintViolations(report *types.ValidationReport) {
	if report == nil || len(report.Violations) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "✅ NO VIOLATIONS FOUND")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Coverage %.1f%%, found %d violations:\n\n", report.Coverage*100, len(report.Violations)))

	for i, v := range report.Violations {
		sb.WriteString(fmt.Sprintf("⚠ %s\n", v.Type))
		sb.WriteString(fmt.Sprintf("  %s\n", truncate(v.Details, 45)))
		if i < len(report.Violations)-1 {
			sb.WriteString("\n")
		}
	}

	if len(report.Missing) > 0 {
		sb.WriteString("\nMissing:\n")
		writeList(&sb, report.Missing)
	}

	p.printBox("REVIEW VIOLATIONS", sb.String())
}

// PrintOutcomes outputs one status line per model of a batch.
func (p *Printer) PrintOutcomes(outcomes []types.ModelOutcome) {
	if len(outcomes) == 0 {
		return
	}

	var sb strings.Builder
	failed := 0
	for _, o := range outcomes {
		switch {
		case o.Failed():
			failed++
			sb.WriteString(fmt.Sprintf("✗ %s: %s\n", o.Model, o.Error))
		case o.Status == types.StatusOK:
			sb.WriteString(fmt.Sprintf("✓ %s (%.0f%%)\n", o.Model, o.Report.Coverage*100))
		default:
			sb.WriteString(fmt.Sprintf("⚠ %s (%.0f%%, %d violations)\n", o.Model, o.Report.Coverage*100, len(o.Report.Violations)))
		}
	}
	if failed > 0 {
		sb.WriteString(fmt.Sprintf("\n%d of %d models could not be processed\n", failed, len(outcomes)))
	}

	p.printBox("BATCH SUMMARY", sb.String())
}
