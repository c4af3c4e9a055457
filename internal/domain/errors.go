package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidOptions is wrapped by every option validation failure.
var ErrInvalidOptions = errors.New("invalid options")

// ParseError reports an input file or message that could not be read as a table.
type ParseError struct {
	Source string
	Cause  error
}

func (e *ParseError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("parse input: %v", e.Cause)
	}
	return fmt.Sprintf("parse %s: %v", e.Source, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// SchemaError reports a table that lacks a column the pipeline cannot do without.
type SchemaError struct {
	Role   string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: %s column: %s", e.Role, e.Reason)
}

// InsufficientDataError reports a series too short for the requested operation.
type InsufficientDataError struct {
	Have int
	Need int
	What string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %d %s, need at least %d", e.Have, e.What, e.Need)
}

// FitError reports a forecast model that could not be estimated.
type FitError struct {
	Model string
	Cause error
}

func (e *FitError) Error() string {
	return fmt.Sprintf("fit %s: %v", e.Model, e.Cause)
}

func (e *FitError) Unwrap() error { return e.Cause }

// IsUserError reports whether err stems from the input data or options rather
// than from an infrastructure failure.
func IsUserError(err error) bool {
	var (
		pe *ParseError
		se *SchemaError
		ie *InsufficientDataError
		fe *FitError
	)
	return errors.Is(err, ErrInvalidOptions) ||
		errors.As(err, &pe) || errors.As(err, &se) ||
		errors.As(err, &ie) || errors.As(err, &fe)
}
