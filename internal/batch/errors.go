package batch

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the requested batch does not exist.
var ErrNotFound = errors.New("batch not found")

// NoValidCasesError is returned when no row of an upload could be
// converted into a case.
type NoValidCasesError struct {
	Errors []string
}

func (e *NoValidCasesError) Error() string {
	return fmt.Sprintf("no valid medical records could be created (%d conversion errors)", len(e.Errors))
}
