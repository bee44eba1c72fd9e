package records

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the requested case does not exist.
var ErrNotFound = errors.New("case not found")

// ValidationError reports a row that could not be converted into a case.
type ValidationError struct {
	Row    int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("row %d: field %q: %s", e.Row, e.Field, e.Reason)
}
