package templates

import (
	"errors"
	"fmt"
)

// ErrUnknownTemplate is returned by Registry.Get for an unregistered template id.
var ErrUnknownTemplate = errors.New("unknown template")

// DefinitionError represents an invalid template definition
type DefinitionError struct {
	Source  string
	Message string
	Cause   error
}

func (e *DefinitionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid template definition %s: %s: %v", e.Source, e.Message, e.Cause)
	}
	return fmt.Sprintf("invalid template definition %s: %s", e.Source, e.Message)
}

func (e *DefinitionError) Unwrap() error {
	return e.Cause
}
