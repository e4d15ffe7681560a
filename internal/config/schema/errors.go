package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConstraint is returned for constraint expressions outside the
// supported grammars.
var ErrInvalidConstraint = errors.New("invalid constraint expression")

// ValidationError represents a single validation failure.
type ValidationError struct {
	// Path is "section" or "section.key".
	Path string

	// Message describes what's wrong.
	Message string

	// Value is the offending literal, if any.
	Value string

	// Expected describes what was expected.
	Expected string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors struct {
	Errors []*ValidationError
}

// Error implements the error interface.
func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(e.Errors), strings.Join(e.Messages(), "\n  - "))
}

// Add adds a validation error.
func (e *ValidationErrors) Add(path, message string) {
	e.Errors = append(e.Errors, &ValidationError{
		Path:    path,
		Message: message,
	})
}

// AddError adds an existing ValidationError.
func (e *ValidationErrors) AddError(err *ValidationError) {
	e.Errors = append(e.Errors, err)
}

// Merge adds all errors from another ValidationErrors.
func (e *ValidationErrors) Merge(other *ValidationErrors) {
	if other == nil {
		return
	}
	e.Errors = append(e.Errors, other.Errors...)
}

// HasErrors returns true if there are any errors.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// Len returns the number of errors.
func (e *ValidationErrors) Len() int {
	return len(e.Errors)
}

// AsError returns nil if no errors, otherwise returns self.
func (e *ValidationErrors) AsError() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

// Messages returns one string per error, in order.
func (e *ValidationErrors) Messages() []string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return msgs
}

// ErrorsUnderPath returns all errors for a section or parameter path and
// its children.
func (e *ValidationErrors) ErrorsUnderPath(path string) []*ValidationError {
	var result []*ValidationError
	prefix := path + "."
	for _, err := range e.Errors {
		if err.Path == path || strings.HasPrefix(err.Path, prefix) {
			result = append(result, err)
		}
	}
	return result
}

// NewSectionRequiredError reports a missing required section.
func NewSectionRequiredError(section string) *ValidationError {
	return &ValidationError{
		Path:    section,
		Message: "missing required section",
	}
}

// NewRequiredError reports a missing required parameter.
func NewRequiredError(path string) *ValidationError {
	return &ValidationError{
		Path:    path,
		Message: "missing required parameter",
	}
}

// NewEnumError reports a value outside the allowed set.
func NewEnumError(path, value string, allowed []string) *ValidationError {
	return &ValidationError{
		Path:     path,
		Message:  fmt.Sprintf("value %q is not one of allowed values: [%s]", value, strings.Join(allowed, ", ")),
		Value:    value,
		Expected: "one of [" + strings.Join(allowed, ", ") + "]",
	}
}

// NewRangeError reports a numeric value that violates a constraint.
func NewRangeError(path, value string, c RangeConstraint) *ValidationError {
	return &ValidationError{
		Path:     path,
		Message:  fmt.Sprintf("value %s failed validation: %s", value, c),
		Value:    value,
		Expected: c.String(),
	}
}

// NewNotNumericError reports a non-numeric value under a numeric
// constraint.
func NewNotNumericError(path, value string, c RangeConstraint) *ValidationError {
	return &ValidationError{
		Path:     path,
		Message:  fmt.Sprintf("value %q is not numeric (constraint %s)", value, c),
		Value:    value,
		Expected: "number satisfying " + c.String(),
	}
}
