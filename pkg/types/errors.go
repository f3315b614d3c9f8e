package types

import (
	"errors"
	"fmt"
)

// ValidationError reports a record that was rejected before any write.
// Field names the offending input so callers can point at it.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidationError reports whether err wraps a *ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func required(field string) *ValidationError {
	return &ValidationError{Field: field, Reason: "is required"}
}

func notInVocab(field, value string, vocab []string) *ValidationError {
	return &ValidationError{
		Field:  field,
		Value:  value,
		Reason: "must be one of: " + vocabList(vocab),
	}
}
