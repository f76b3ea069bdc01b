package models

import (
	"errors"
	"fmt"
)

// ErrNotFound marks lookups for unknown job IDs or artifact keys.
var ErrNotFound = errors.New("not found")

// ValidationError rejects malformed input at submission. No job exists when
// one of these is returned.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StageError records a pipeline stage failure on the owning job. It never
// propagates out of the pipeline goroutine.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// TransportError marks an unreachable or timed-out external call. The
// pipeline classifies these as stage failures without retrying.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
