package core

import (
	"errors"
	"fmt"
)

// ValidationError is returned when a submitted value cannot be normalized,
// e.g. a date that does not match the configured layout.
type ValidationError struct {
	Field  string // Field name, set by the recorder
	Value  string
	Layout string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid date value %q for field %s (expected layout %q)", e.Value, e.Field, e.Layout)
	}
	return fmt.Sprintf("invalid date value %q (expected layout %q)", e.Value, e.Layout)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// DisabledError is returned when a form without lead capture is submitted.
// It is not a failure for the submitter; callers treat it as a no-op.
type DisabledError struct {
	FormID int64
}

func (e *DisabledError) Error() string {
	return fmt.Sprintf("lead capture disabled for form %d", e.FormID)
}

// ErrCaptureDisabled matches any *DisabledError with errors.Is.
var ErrCaptureDisabled = &DisabledError{}

// Is lets errors.Is(err, ErrCaptureDisabled) match every DisabledError.
func (e *DisabledError) Is(target error) bool {
	_, ok := target.(*DisabledError)
	return ok
}

// IsDisabled reports whether err means capture was skipped.
func IsDisabled(err error) bool {
	return errors.Is(err, ErrCaptureDisabled)
}

// NotFoundError is returned for unknown export configurations, exporter
// types and forms.
type NotFoundError struct {
	Kind string // "export config", "exporter", "form"
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

// NewNotFound builds a NotFoundError for any printable key.
func NewNotFound(kind string, key any) *NotFoundError {
	return &NotFoundError{Kind: kind, Key: fmt.Sprint(key)}
}

// IsNotFound reports whether err is a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IntegrityError signals a wiring or data defect: an exporter that breaks
// its contract, or duplicate cells under a rejecting duplicate policy.
type IntegrityError struct {
	Reason string
}

func (e *IntegrityError) Error() string {
	return "integrity violation: " + e.Reason
}

// IsIntegrity reports whether err is an *IntegrityError.
func IsIntegrity(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}
