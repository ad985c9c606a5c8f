package booking

import (
	"errors"
	"fmt"
)

// Sentinel errors the HTTP layer maps onto status codes. Stores return the
// not-found sentinels directly so the engine never sees driver errors.
var (
	ErrServiceNotFound     = errors.New("service not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrScheduleConflict    = errors.New("schedule conflict")
	ErrServiceInUse        = errors.New("service has booked appointments")
)

// ValidationError is a 400 with the offending field named.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalidf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ForbiddenError is a 403 with a caller-safe reason.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string { return e.Reason }

func forbidden(reason string) *ForbiddenError { return &ForbiddenError{Reason: reason} }

// IntegrityError marks stored data that violates an invariant the write path
// should have enforced, such as a non-positive service duration. Surfaces as
// a 500, never as a client error.
type IntegrityError struct {
	Reason string
}

func (e *IntegrityError) Error() string { return "data integrity: " + e.Reason }
