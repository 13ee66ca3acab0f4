package types

// NormalizationRule selects how a matched raw value is normalized.
type NormalizationRule string

// Normalization rules. Values are never unit-converted by any rule.
const (
	NormalizeNone               NormalizationRule = "none"
	NormalizeMetricImperialPair NormalizationRule = "metric_imperial_pair"
	NormalizeMultiBraceVariant  NormalizationRule = "multi_brace_variant"
)

// ParameterSpec is one canonical technical parameter of a template.
type ParameterSpec struct {
	Key      string            `json:"key" yaml:"key" validate:"required"`
	Label    string            `json:"label" yaml:"label" validate:"required"`
	Aliases  []string          `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	Template string            `json:"template" yaml:"-"`
	Required bool              `json:"required" yaml:"-"`
	Unit     NormalizationRule `json:"unit" yaml:"unit" validate:"omitempty,oneof=none metric_imperial_pair multi_brace_variant"`
}

// Labels returns the label followed by its aliases.
func (p ParameterSpec) Labels() []string {
	labels := make([]string, 0, 1+len(p.Aliases))
	labels = append(labels, p.Label)
	return append(labels, p.Aliases...)
}

// SourceKind identifies where a candidate value was found.
type SourceKind string

const (
	SourceTable SourceKind = "table"
	SourceText  SourceKind = "text"
)

// Candidate is a raw value found for a parameter, with its source location.
type Candidate struct {
	Key         string     `json:"key"`
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

// RejectReason explains why a candidate did not win.
type RejectReason string

const (
	RejectMalformedRow     RejectReason = "MalformedRow"
	RejectNoValue          RejectReason = "NoValue"
	RejectEmptyValue       RejectReason = "EmptyValue"
	RejectUnbalancedBraces RejectReason = "UnbalancedBraces"
	RejectAxisMismatch     RejectReason = "AxisMismatch"
	RejectOutranked        RejectReason = "Outranked"
)

// RejectedCandidate is a candidate kept for audit together with its rejection reason.
type RejectedCandidate struct {
	Candidate Candidate    `json:"candidate"`
	Reason    RejectReason `json:"reason"`
}

// ResolvedParameter is the outcome of matching one ParameterSpec.
// A nil Value means the parameter is unresolved; Winner is set iff Value is set.
type ResolvedParameter struct {
	Key      string              `json:"key"`
	Label    string              `json:"label"`
	Value    *string             `json:"value"`
	Winner   *Candidate          `json:"winner,omitempty"`
	Rejected []RejectedCandidate `json:"rejected,omitempty"`
}

// Resolved reports whether the parameter has a value.
func (r ResolvedParameter) Resolved() bool {
	return r.Value != nil
}

// SectionMarkers are the phrases that open each item list section in a catalog.
type SectionMarkers struct {
	MainUnits []string `json:"main_units" yaml:"main_units"`
	Standard  []string `json:"standard" yaml:"standard"`
	Options   []string `json:"options" yaml:"options"`
}

// Template is a machine-family schema: ordered parameters plus item section markers.
type Template struct {
	ID         string          `json:"id" yaml:"id" validate:"required"`
	Name       string          `json:"name" yaml:"name"`
	Parameters []ParameterSpec `json:"parameters" yaml:"parameters" validate:"required,min=1,dive"`
	Sections   SectionMarkers  `json:"sections" yaml:"sections"`
}
