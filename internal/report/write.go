package report

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet names of the XLSX report.
const (
	SummarySheet = "Summary"
	TraceSheet   = "Trace"
)

// listSeparator joins list values inside a single spreadsheet cell.
const listSeparator = "; "

var summaryHeaders = []string{
	"Model",
	"Template",
	"Catalog",
	"Status",
	"Coverage %",
	"Resolved",
	"Main Units",
	"Standard Items",
	"Option Items",
	"Violations",
	"Warnings",
	"Missing",
	"Error",
}

var traceHeaders = []string{
	"Model",
	"Key",
	"Label",
	"Value",
	"Page",
	"Source",
	"Header Path",
	"Raw",
	"Rank",
}

// WriteJSON writes the summary as indented JSON.
func WriteJSON(path string, s *Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write summary %s: %w", path, err)
	}
	return nil
}

// BuildXLSX renders the summary as a workbook with one summary row per model and
// one trace row per resolved parameter.
func BuildXLSX(s *Summary) (*excelize.File, error) {
	f := excelize.NewFile()

	// the default sheet becomes the summary
	if err := f.SetSheetName(f.GetSheetName(0), SummarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(TraceSheet); err != nil {
		return nil, err
	}
	if err := writeRow(f, SummarySheet, 1, toRow(summaryHeaders)); err != nil {
		return nil, err
	}
	if err := writeRow(f, TraceSheet, 1, toRow(traceHeaders)); err != nil {
		return nil, err
	}

	traceRow := 2
	for i, r := range s.Rows {
		values := []any{
			r.Model,
			r.Template,
			r.Catalog,
			r.Status,
			r.CoveragePct,
			fmt.Sprintf("%d/%d", r.Resolved, r.Parameters),
			r.MainUnits,
			r.StandardItems,
			r.OptionItems,
			strings.Join(r.Violations, listSeparator),
			strings.Join(r.Warnings, listSeparator),
			strings.Join(r.Missing, listSeparator),
			r.Error,
		}
		if err := writeRow(f, SummarySheet, i+2, values); err != nil {
			return nil, err
		}

		for _, e := range r.entries {
			values := []any{r.Model, e.Key, e.Label, e.Value, e.Page, string(e.Source), e.HeaderPathString(), e.Raw, e.Rank}
			if err := writeRow(f, TraceSheet, traceRow, values); err != nil {
				return nil, err
			}
			traceRow++
		}
	}

	// Widen a few columns
	_ = f.SetColWidth(SummarySheet, "A", "C", 20) // model, template, catalog
	_ = f.SetColWidth(SummarySheet, "J", "L", 48) // lists
	_ = f.SetColWidth(TraceSheet, "A", "D", 22)   // model .. value
	_ = f.SetColWidth(TraceSheet, "G", "H", 40)   // header path, raw
	_ = f.SetPanes(SummarySheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	return f, nil
}

// WriteXLSX writes the summary workbook to path.
func WriteXLSX(path string, s *Summary) error {
	f, err := BuildXLSX(s)
	if err != nil {
		return fmt.Errorf("failed to build workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to write workbook %s: %w", path, err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func toRow(headers []string) []any {
	row := make([]any, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	return row
}
