package types

// Report statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Severity levels for violations.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Violation represents a single strict review rule that fired
type Violation struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Details  string `json:"details"`
}

// ValidationReport is the strict review of an ExtractionResult.
type ValidationReport struct {
	Result     ExtractionResult `json:"result"`
	Coverage   float64          `json:"coverage"`
	Status     string           `json:"status"`
	Violations []Violation      `json:"violations"`
	Missing    []string         `json:"missing"`
}

// AllMissing returns the labels of every unresolved parameter in template order, uncapped.
func (r *ValidationReport) AllMissing() []string {
	missing := make([]string, 0)
	for _, p := range r.Result.Parameters {
		if !p.Resolved() {
			missing = append(missing, p.Label)
		}
	}
	return missing
}

// ModelOutcome is the per-model result handed to the batch layer.
// Report is nil and Error is set when the pipeline could not run for the model.
type ModelOutcome struct {
	Model    string            `json:"model"`
	Template string            `json:"template"`
	Status   string            `json:"status"`
	Report   *ValidationReport `json:"report,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// Failed reports whether the pipeline could not produce a report.
func (o ModelOutcome) Failed() bool {
	return o.Report == nil
}
