package conversation

import (
	"errors"
	"fmt"
	"strings"
)

// Validation failure causes. A *ValidationError unwraps to exactly one of these.
var (
	ErrNotFound           = errors.New("file not found")
	ErrInaccessible       = errors.New("file not accessible")
	ErrTooLarge           = errors.New("file too large")
	ErrEmpty              = errors.New("file is empty")
	ErrBadEncoding        = errors.New("file is not valid UTF-8 text")
	ErrUnrecognizedFormat = errors.New("unrecognized conversation format")
)

// ErrDateOutOfRange indicates a date component outside its allowed range.
var ErrDateOutOfRange = errors.New("date component out of range")

// Reason is a stable code for a file validation failure.
type Reason string

const (
	ReasonNotFound           Reason = "not_found"
	ReasonInaccessible       Reason = "inaccessible"
	ReasonTooLarge           Reason = "too_large"
	ReasonEmpty              Reason = "empty"
	ReasonBadEncoding        Reason = "bad_encoding"
	ReasonUnrecognizedFormat Reason = "unrecognized_format"
)

var reasonErrors = map[Reason]error{
	ReasonNotFound:           ErrNotFound,
	ReasonInaccessible:       ErrInaccessible,
	ReasonTooLarge:           ErrTooLarge,
	ReasonEmpty:              ErrEmpty,
	ReasonBadEncoding:        ErrBadEncoding,
	ReasonUnrecognizedFormat: ErrUnrecognizedFormat,
}

// ValidationError reports why a file was rejected before parsing.
type ValidationError struct {
	Path     string
	Reason   Reason
	Detail   string
	Warnings []string
	Err      error // underlying I/O error, if any
}

func newValidationError(path string, reason Reason, detail string, err error) *ValidationError {
	return &ValidationError{Path: path, Reason: reason, Detail: detail, Err: err}
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString(reasonErrors[e.Reason].Error())
	b.WriteString(": ")
	b.WriteString(e.Path)
	if e.Detail != "" {
		b.WriteString(" (")
		b.WriteString(e.Detail)
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the reason sentinel and the underlying error.
func (e *ValidationError) Unwrap() []error {
	errs := []error{reasonErrors[e.Reason]}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// ParseError reports content that was readable but semantically invalid,
// such as an out-of-range date in the header.
type ParseError struct {
	Path  string
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: invalid %s %q: %v", e.Path, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
