package types

import (
	"fmt"
	"strings"
)

// WarningCode identifies a non-fatal condition raised while extracting.
type WarningCode string

const (
	WarnModelNotFoundInCatalogs WarningCode = "ModelNotFoundInCatalogs"
	WarnModelNotFoundOnPages    WarningCode = "ModelNotFoundOnPages"
)

// Warning is a non-fatal condition that must be carried to the report.
type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
}

// Items holds the three list sections extracted from catalog text.
type Items struct {
	MainUnits     []string `json:"main_units"`
	StandardItems []string `json:"standard_items"`
	OptionItems   []string `json:"option_items"`
}

// TraceEntry is the audit record of one resolved parameter.
// It carries every field of the winning candidate.
type TraceEntry struct {
	Key         string     `json:"key"`
	Label       string     `json:"label"`
	Value       string     `json:"value"`
	Raw         string     `json:"raw"`
	Page        int        `json:"page"`
	Source      SourceKind `json:"source"`
	HeaderPath  []string   `json:"header_path,omitempty"`
	RowCells    []string   `json:"row_cells,omitempty"`
	SourceText  string     `json:"source_text,omitempty"`
	RowIndex    int        `json:"row_index"`
	Column      int        `json:"column"`
	Specificity int        `json:"specificity"`
	Rank        int        `json:"rank"`
}

// HeaderPathString returns the header path joined with " | ".
func (e TraceEntry) HeaderPathString() string {
	return strings.Join(e.HeaderPath, HeaderPathSeparator)
}

// Line renders the entry as a single human-auditable line.
func (e TraceEntry) Line() string {
	location := fmt.Sprintf("p.%d", e.Page)
	if hp := e.HeaderPathString(); hp != "" {
		location += HeaderPathSeparator + hp
	}
	source := e.SourceText
	if e.Source == SourceTable {
		source = strings.Join(e.RowCells, HeaderPathSeparator)
	}
	return fmt.Sprintf("%s: %s [%s] <- %s", e.Label, e.Value, location, source)
}

// ExtractionResult is the structured output of one (model, catalog) extraction.
// Parameters always has one entry per template parameter, in template order.
type ExtractionResult struct {
	Model       string              `json:"model"`
	Catalog     string              `json:"catalog"`
	CatalogName string              `json:"catalog_name"`
	Template    string              `json:"template"`
	Pages       []int               `json:"pages"`
	Parameters  []ResolvedParameter `json:"parameters"`
	Items       Items               `json:"items"`
	Trace       []TraceEntry        `json:"trace"`
	Warnings    []Warning           `json:"warnings"`
}

// ResolvedCount returns the number of parameters with a value.
func (r *ExtractionResult) ResolvedCount() int {
	count := 0
	for _, p := range r.Parameters {
		if p.Resolved() {
			count++
		}
	}
	return count
}

// Parameter returns the resolved parameter with the given key.
func (r *ExtractionResult) Parameter(key string) (ResolvedParameter, bool) {
	for _, p := range r.Parameters {
		if p.Key == key {
			return p, true
		}
	}
	return ResolvedParameter{}, false
}
