package schema

import "fmt"

// ValidationError reports a malformed or incomplete record.
type ValidationError struct {
	Table   string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error on table %s: %s", e.Table, e.Message)
	}
	return fmt.Sprintf("validation error on %s.%s: %s", e.Table, e.Field, e.Message)
}
