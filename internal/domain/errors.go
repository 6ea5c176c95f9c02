package domain

import (
	"errors"
	"fmt"
)

// ErrHardFailure marks an extraction failure that must not be retried.
// Stage adapters wrap one of the more specific sentinels below.
var ErrHardFailure = errors.New("hard extraction failure")

var (
	ErrEmptyDocument      = fmt.Errorf("%w: document is empty", ErrHardFailure)
	ErrUnreadableDocument = fmt.Errorf("%w: document is unreadable", ErrHardFailure)
	ErrMalformedOutput    = fmt.Errorf("%w: stage output is structurally invalid", ErrHardFailure)
	ErrStageTimeout       = fmt.Errorf("%w: stage call timed out", ErrHardFailure)
)

// ErrMalformedRecord is returned by the record constructors.
var ErrMalformedRecord = errors.New("malformed transaction record")

// ErrInconsistentVerdict is returned when a verdict is passed with issues or
// failed without any.
var ErrInconsistentVerdict = errors.New("inconsistent validation verdict")

// IsHardFailure reports whether err is a non-retryable extraction failure.
func IsHardFailure(err error) bool {
	return errors.Is(err, ErrHardFailure)
}
