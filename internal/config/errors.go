package config

import (
	"errors"
	"fmt"
)

// Errors reported through LastError and Err.
var (
	// ErrNotFound indicates a section or parameter that does not exist.
	ErrNotFound = errors.New("parameter not found")

	// ErrVersioningDisabled indicates a ledger operation while versioning
	// is off.
	ErrVersioningDisabled = errors.New("versioning is not enabled")

	// ErrNoVersion indicates a version number outside the history.
	ErrNoVersion = errors.New("no such version")

	// ErrEmptyHistory indicates ClearHistory with no recorded versions.
	ErrEmptyHistory = errors.New("history is empty")

	// ErrClosed indicates use of a closed Config.
	ErrClosed = errors.New("config is closed")
)

// OpError records a failed facade operation.
type OpError struct {
	// Op is the operation, such as "load" or "rollback".
	Op string
	// Target is the file, format or path the operation worked on.
	Target string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *OpError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Target, e.Err)
}

// Unwrap returns the underlying error.
func (e *OpError) Unwrap() error {
	return e.Err
}
