package screening

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no active rule set version covers the
// requested jurisdiction and effective date.
var ErrNotFound = errors.New("no rule set covers the jurisdiction and effective date")

// ErrRulesUnavailable is returned when rules exist but cannot be served:
// the store is unreachable, or a selected version turned out to be empty.
// It maps to a server error, never to "not eligible".
var ErrRulesUnavailable = errors.New("rules unavailable")

// ValidationError reports a malformed screening request. It maps to a 400
// with the field name, so intake frontends can highlight the bad input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
