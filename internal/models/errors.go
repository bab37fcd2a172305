package models

import "fmt"

// ValidationError reports a malformed domain model construction. It is fatal
// to the single record being built, never to a whole batch.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
