package document

import (
	"errors"
	"fmt"
)

// Sentinel errors for document operations.
var (
	// ErrConversion indicates a literal could not be coerced to the requested type.
	ErrConversion = errors.New("value conversion failed")

	// ErrNoSection indicates a parameter was added before any section was opened.
	ErrNoSection = errors.New("no section is open")

	// ErrEmptyName indicates an empty section name or parameter key.
	ErrEmptyName = errors.New("empty name")
)

// ConversionError describes a failed coercion of a literal.
type ConversionError struct {
	// Literal is the text that could not be converted.
	Literal string

	// Target names the requested representation, e.g. "int".
	Target string

	// Err is the underlying parse error, if any.
	Err error
}

// Error implements the error interface.
func (e *ConversionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot convert %q to %s: %v", e.Literal, e.Target, e.Err)
	}
	return fmt.Sprintf("cannot convert %q to %s", e.Literal, e.Target)
}

// Unwrap returns the underlying error.
func (e *ConversionError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrConversion.
func (e *ConversionError) Is(target error) bool {
	return target == ErrConversion
}

func conversionError(literal, target string, err error) error {
	return &ConversionError{Literal: literal, Target: target, Err: err}
}
