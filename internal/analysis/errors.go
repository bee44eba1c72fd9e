package analysis

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates no analysis exists for the requested key.
var ErrNotFound = errors.New("analysis not found")

// GatewayError is returned when every retry against the LLM gateway
// failed. It wraps the last attempt's error.
type GatewayError struct {
	Attempts int
	Last     error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("llm gateway failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *GatewayError) Unwrap() error {
	return e.Last
}
