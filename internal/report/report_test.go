package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jonathan/proposal-customizer/internal/types"
)

func strPtr(s string) *string { return &s }

// okOutcome builds an outcome with size parameters, the first resolved of them on page 4.
func okOutcome(model string, size, resolved int) types.ModelOutcome {
	result := types.ExtractionResult{
		Model:       model,
		CatalogName: "DVF series",
		Template:    "dvf",
		Items: types.Items{
			MainUnits:     []string{"Base"},
			StandardItems: []string{"Coolant tank", "Chip conveyor"},
			OptionItems:   []string{},
		},
		Warnings: []types.Warning{},
	}
	for i := 0; i < size; i++ {
		p := types.ResolvedParameter{Key: fmt.Sprintf("p%02d", i), Label: fmt.Sprintf("Param %02d", i)}
		if i < resolved {
			p.Value = strPtr(fmt.Sprintf("v%d", i))
			result.Trace = append(result.Trace, types.TraceEntry{
				Key: p.Key, Label: p.Label, Value: *p.Value, Raw: *p.Value,
				Page: 4 + i%2, Source: types.SourceTable, HeaderPath: []string{"Spec"}, RowCells: []string{p.Label, *p.Value}, Rank: 1,
			})
		}
		result.Parameters = append(result.Parameters, p)
	}

	status := types.StatusOK
	var violations []types.Violation
	if resolved*10 < size*6 {
		status = types.StatusError
		violations = append(violations, types.Violation{Type: "parameter_coverage", Severity: types.SeverityError})
	}
	return types.ModelOutcome{
		Model:    model,
		Template: "dvf",
		Status:   status,
		Report: &types.ValidationReport{
			Result:     result,
			Coverage:   float64(resolved) / float64(size),
			Status:     status,
			Violations: violations,
		},
	}
}

func outcomes() []types.ModelOutcome {
	return []types.ModelOutcome{
		okOutcome("DVF 5000", 20, 18),
		okOutcome("DVF 8000", 20, 2),
		{Model: "NHX 4000", Template: "dvf", Status: types.StatusError, Error: "catalog unreadable: nhx.pdf: no such file"},
	}
}

func TestSummarize(t *testing.T) {
	id := uuid.New()
	s := Summarize(id, outcomes(), 3, 4)

	assert.Equal(t, id.String(), s.RunID)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.OK)
	assert.Equal(t, 1, s.Errors)
	assert.Equal(t, 1, s.Failed)
	require.Len(t, s.Rows, 3)

	first := s.Rows[0]
	assert.Equal(t, "DVF 5000", first.Model)
	assert.Equal(t, "DVF series", first.Catalog)
	assert.InDelta(t, 90.0, first.CoveragePct, 1e-9)
	assert.Equal(t, 18, first.Resolved)
	assert.Equal(t, 20, first.Parameters)
	assert.Equal(t, 1, first.MainUnits)
	assert.Equal(t, 2, first.StandardItems)
	assert.Equal(t, 0, first.OptionItems)
	assert.Equal(t, []string{"Param 18", "Param 19"}, first.Missing)
	assert.Len(t, first.Trace, 4)
	assert.Contains(t, first.Trace[0], "p.4")

	second := s.Rows[1]
	assert.Equal(t, []string{"parameter_coverage"}, second.Violations)
	assert.Equal(t, []string{"Param 02", "Param 03", "Param 04"}, second.Missing)

	failed := s.Rows[2]
	assert.Equal(t, types.StatusError, failed.Status)
	assert.Contains(t, failed.Error, "catalog unreadable")
	assert.NotNil(t, failed.Missing)
	assert.NotNil(t, failed.Trace)
	assert.Zero(t, failed.Parameters)
}

func TestSummarize_Defaults(t *testing.T) {
	s := Summarize(uuid.Nil, []types.ModelOutcome{okOutcome("DVF 8000", 21, 0)}, 0, -1)

	assert.Empty(t, s.RunID)
	assert.Len(t, s.Rows[0].Missing, DefaultTopMissing)
	assert.Empty(t, s.Rows[0].Trace)
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.json")
	s := Summarize(uuid.New(), outcomes(), 12, 10)

	require.NoError(t, WriteJSON(path, s))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded Summary
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, s.RunID, decoded.RunID)
	require.Len(t, decoded.Rows, 3)
	assert.Equal(t, s.Rows[1].Missing, decoded.Rows[1].Missing)
	assert.NotContains(t, string(data), "entries")
}

func TestWriteJSON_BadPath(t *testing.T) {
	err := WriteJSON(filepath.Join(t.TempDir(), "missing", "summary.json"), &Summary{})
	assert.Error(t, err)
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.xlsx")
	s := Summarize(uuid.New(), outcomes(), 2, 10)

	require.NoError(t, WriteXLSX(path, s))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{SummarySheet, TraceSheet}, f.GetSheetList())

	rows, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, summaryHeaders, rows[0])
	assert.Equal(t, "DVF 5000", rows[1][0])
	assert.Equal(t, "18/20", rows[1][5])
	assert.Equal(t, "Param 18; Param 19", rows[1][11])
	assert.Equal(t, "NHX 4000", rows[3][0])
	assert.Contains(t, rows[3][12], "catalog unreadable")

	trace, err := f.GetRows(TraceSheet)
	require.NoError(t, err)
	// header + 18 + 2 resolved parameters
	require.Len(t, trace, 21)
	assert.Equal(t, traceHeaders, trace[0])
	assert.Equal(t, []string{"DVF 5000", "p00", "Param 00", "v0", "4", "table", "Spec", "v0", "1"}, trace[1])
}
