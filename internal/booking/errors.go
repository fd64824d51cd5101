package booking

import (
	"errors"
	"fmt"
)

// Business-rule rejections. All are terminal for the calling request; only
// TransientStoreError is eligible for automatic retry.
var (
	// ErrInvalidRange covers inverted ranges, ranges collapsing to zero after
	// slot alignment, and starts in the past beyond the grace window.
	ErrInvalidRange = errors.New("invalid reservation range")
	// ErrSpaceUnavailable means the space is absent, soft-disabled, flagged
	// unavailable, or has no positive rate.
	ErrSpaceUnavailable = errors.New("space unavailable")
	// ErrConflict means the requested window overlaps an existing pending or
	// confirmed reservation on the same space.
	ErrConflict = errors.New("reservation conflict")
	// ErrNotFound means no reservation with the given id exists.
	ErrNotFound = errors.New("reservation not found")
	// ErrForbidden means the actor neither owns the reservation nor is an
	// administrator.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidTransition means the requested status change is not in the
	// transition table.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrCancellationWindowClosed means the cancellation arrived inside the
	// minimum-notice period before the reservation start.
	ErrCancellationWindowClosed = errors.New("cancellation window closed")
)

// TransientStoreError wraps an infrastructure failure from the reservation
// store. The transaction guarantees no partial state leaked.
type TransientStoreError struct {
	Err error
}

func (e *TransientStoreError) Error() string {
	return fmt.Sprintf("transient store error: %v", e.Err)
}

func (e *TransientStoreError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var t *TransientStoreError
	return errors.As(err, &t)
}
