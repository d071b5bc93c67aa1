package inventory

import (
	"fmt"
)

// SchemaError is returned when a source sheet does not have the expected layout.
// Problems with individual rows are never reported as a SchemaError.
type SchemaError struct {
	Feed   string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("invalid '%s' sheet (%s)", e.Feed, e.Reason)
}
