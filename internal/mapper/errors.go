package mapper

import "fmt"

// DecodeError marks a backend payload the mapper cannot interpret. Mapping
// fails loudly instead of handing out a half-populated domain object.
type DecodeError struct {
	Field  string
	Value  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s=%q: %s", e.Field, e.Value, e.Reason)
}
