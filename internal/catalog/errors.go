package catalog

import (
	"errors"
	"fmt"
)

// ErrCatalogUnreadable matches every UnreadableError via errors.Is.
var ErrCatalogUnreadable = errors.New("catalog unreadable")

// UnreadableError is returned when a catalog cannot be decoded into pages.
type UnreadableError struct {
	Path    string
	Message string
	Cause   error
}

func (e *UnreadableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("catalog unreadable: %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("catalog unreadable: %s: %s", e.Path, e.Message)
}

func (e *UnreadableError) Unwrap() error {
	return e.Cause
}

// Is makes errors.Is(err, ErrCatalogUnreadable) true for any UnreadableError.
func (e *UnreadableError) Is(target error) bool {
	return target == ErrCatalogUnreadable
}

func unreadable(path, message string, cause error) error {
	return &UnreadableError{Path: path, Message: message, Cause: cause}
}
