package db

import (
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/proposal-customizer/internal/types"
)

// Run statuses
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
	RunStatusCancelled = "cancelled"
)

// Run represents an extraction run record
type Run struct {
	ID          uuid.UUID  `json:"id"`
	Template    string     `json:"template"`
	Catalogs    []string   `json:"catalogs"`
	Models      int        `json:"models"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// RunStatus returns the status a finished batch is recorded with:
// failed when any model could not be processed, completed otherwise.
func RunStatus(outcomes []types.ModelOutcome, cancelled bool) string {
	if cancelled {
		return RunStatusCancelled
	}
	for _, o := range outcomes {
		if o.Failed() {
			return RunStatusFailed
		}
	}
	return RunStatusCompleted
}

// outcomeRecord is the row shape of model_outcomes
type outcomeRecord struct {
	Model    string
	Template string
	Status   string
	Coverage *float64
	Error    *string
	Report   []byte
}
