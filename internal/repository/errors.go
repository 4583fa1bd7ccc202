// Package repository defines error kinds that are reused across the
// seat, occupant and allocation repositories and by the admission
// controller built on top of them.  These sentinel values allow higher
// layers such as handlers to distinguish between failure scenarios with
// errors.Is.  For example, ErrSeatConflict signals that a seat already
// has an active claim over the requested interval, while ErrTransient
// marks a lock timeout or deadlock that is safe to retry.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/restaurant-seating/internal/model"
)

// ErrNotFound is returned when a seat, occupant or claim id is unknown.
// Inactive seats are reported the same way.  Handlers translate this into
// an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrInvalidTransition is returned when an occupant status change is not
// permitted from the current status.  It is the same value the model
// package uses so errors.Is works across both layers.
var ErrInvalidTransition = model.ErrInvalidTransition

// ErrSeatConflict is returned when a seat already has an active claim that
// overlaps the requested interval.  Use SeatConflictError to learn which
// seats conflicted.
var ErrSeatConflict = errors.New("seat conflict")

// ErrInsufficientConsecutiveSeats is returned when a party cannot be seated
// as a contiguous block of seats in a section.
var ErrInsufficientConsecutiveSeats = errors.New("insufficient consecutive seats")

// ErrValidation is returned for malformed input: a non-positive party size,
// an interval whose end is not after its start, an empty seat list.
var ErrValidation = errors.New("validation failed")

// ErrTransient is returned when the store gave up on a lock wait or picked
// the operation as a deadlock victim.  Nothing was written and the caller
// may retry the same request.
var ErrTransient = errors.New("transient store error")

// SeatConflictError lists the seats whose active claims blocked an
// admission.  It unwraps to ErrSeatConflict.
type SeatConflictError struct {
	SeatIDs []uint64
}

func (e *SeatConflictError) Error() string {
	ids := make([]string, len(e.SeatIDs))
	for i, id := range e.SeatIDs {
		ids[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("seat conflict: seats [%s] already claimed for an overlapping interval", strings.Join(ids, ", "))
}

func (e *SeatConflictError) Unwrap() error { return ErrSeatConflict }

// ConflictingSeats extracts the conflicting seat ids from err, or nil when
// err carries none.
func ConflictingSeats(err error) []uint64 {
	var sc *SeatConflictError
	if errors.As(err, &sc) {
		return sc.SeatIDs
	}
	return nil
}

// Validationf builds an error that wraps ErrValidation.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
