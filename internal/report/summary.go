// Package report aggregates model outcomes into a batch summary and writes it as JSON or XLSX.
package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/proposal-customizer/internal/tracing"
	"github.com/jonathan/proposal-customizer/internal/types"
)

// Defaults for Summarize.
const (
	DefaultTopMissing = 12
	DefaultTopTrace   = 10
)

// Row is the summary of one model.
type Row struct {
	Model         string   `json:"model"`
	Template      string   `json:"template"`
	Catalog       string   `json:"catalog,omitempty"`
	Status        string   `json:"status"`
	CoveragePct   float64  `json:"coverage_pct"`
	Resolved      int      `json:"resolved"`
	Parameters    int      `json:"parameters"`
	MainUnits     int      `json:"main_units"`
	StandardItems int      `json:"standard_items"`
	OptionItems   int      `json:"option_items"`
	Violations    []string `json:"violations"`
	Warnings      []string `json:"warnings"`
	Missing       []string `json:"missing"`
	Trace         []string `json:"trace"`
	Error         string   `json:"error,omitempty"`

	entries []types.TraceEntry
}

// Summary is the multi-model report of a batch.
type Summary struct {
	RunID     string    `json:"run_id,omitempty"`
	Generated time.Time `json:"generated"`
	Total     int       `json:"total"`
	OK        int       `json:"ok"`
	Errors    int       `json:"errors"`
	Failed    int       `json:"failed"`
	Rows      []Row     `json:"rows"`
}

// Summarize builds one row per outcome, in outcome order. Missing lists are capped at
// topMissing and trace lines are the topTrace most page-dense entries; a non-positive
// cap selects the default.
func Summarize(runID uuid.UUID, outcomes []types.ModelOutcome, topMissing, topTrace int) *Summary {
	if topMissing <= 0 {
		topMissing = DefaultTopMissing
	}
	if topTrace <= 0 {
		topTrace = DefaultTopTrace
	}

	s := &Summary{
		Generated: time.Now().UTC(),
		Total:     len(outcomes),
		Rows:      make([]Row, 0, len(outcomes)),
	}
	if runID != uuid.Nil {
		s.RunID = runID.String()
	}

	for _, o := range outcomes {
		row := summarizeOutcome(o, topMissing, topTrace)
		switch {
		case o.Failed():
			s.Failed++
		case o.Status == types.StatusOK:
			s.OK++
		default:
			s.Errors++
		}
		s.Rows = append(s.Rows, row)
	}
	return s
}

func summarizeOutcome(o types.ModelOutcome, topMissing, topTrace int) Row {
	row := Row{
		Model:      o.Model,
		Template:   o.Template,
		Status:     o.Status,
		Error:      o.Error,
		Violations: []string{},
		Warnings:   []string{},
		Missing:    []string{},
		Trace:      []string{},
	}
	if o.Report == nil {
		return row
	}

	r := o.Report
	result := r.Result
	row.Catalog = result.CatalogName
	row.CoveragePct = r.Coverage * 100
	row.Resolved = result.ResolvedCount()
	row.Parameters = len(result.Parameters)
	row.MainUnits = len(result.Items.MainUnits)
	row.StandardItems = len(result.Items.StandardItems)
	row.OptionItems = len(result.Items.OptionItems)
	row.entries = result.Trace

	for _, v := range r.Violations {
		row.Violations = append(row.Violations, v.Type)
	}
	for _, w := range result.Warnings {
		row.Warnings = append(row.Warnings, string(w.Code))
	}

	missing := r.AllMissing()
	if len(missing) > topMissing {
		missing = missing[:topMissing]
	}
	row.Missing = missing
	row.Trace = tracing.Lines(tracing.ByPageDensity(result.Trace, topTrace))
	return row
}
