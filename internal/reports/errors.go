package reports

import "errors"

// ErrNotFound indicates the requested report does not exist.
var ErrNotFound = errors.New("report not found")
