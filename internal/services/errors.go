package services

import (
	"errors"
	"fmt"
)

// ErrNoContentAvailable means no image has enough unseen, non-own captions
// for a round. In non-production the selection engine seeds placeholder
// content and retries once; otherwise the caller surfaces "try again later".
var ErrNoContentAvailable = errors.New("no content available")

// ErrInvalidOperation marks a caller logic error: resolving a round twice,
// voting for a caption that was not shown, or referencing a missing round or
// caption. Never retriable.
var ErrInvalidOperation = errors.New("invalid operation")

// ErrValidation is the sentinel matched by errors.Is for any ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError reports a malformed, duplicate, or overly-similar
// submission. Surfaced verbatim to the caller; never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
