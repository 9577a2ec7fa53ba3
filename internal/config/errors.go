package config

import (
	"errors"
	"fmt"
)

// ErrInvalid is matched by every configuration error, whether it comes from
// the tool config, the scene descriptor or run options.
var ErrInvalid = errors.New("invalid configuration")

// Error reports malformed or missing configuration. It aborts a run before
// any trajectory is parsed.
type Error struct {
	Source string // file path or "options"
	Field  string // offending key, may be empty
	Reason string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config: %s: %s", e.Source, e.Reason)
	}
	return fmt.Sprintf("config: %s: %s: %s", e.Source, e.Field, e.Reason)
}

func (e *Error) Unwrap() error { return ErrInvalid }

// Invalid builds an *Error with a formatted reason.
func Invalid(source, field, format string, args ...any) *Error {
	return &Error{Source: source, Field: field, Reason: fmt.Sprintf(format, args...)}
}
