package model

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when an occupant status change is not
// permitted from the occupant's current status.
var ErrInvalidTransition = errors.New("invalid status transition")

// Status is the lifecycle state of an occupant.  Reservations and waitlist
// entries draw their statuses from different sets; see the transition
// tables below.
type Status string

const (
	StatusBooked   Status = "booked"   // reservation accepted, no seats yet
	StatusWaiting  Status = "waiting"  // walk-in checked in, no seats yet
	StatusReserved Status = "reserved" // seats held, guest not yet arrived
	StatusSeated   Status = "seated"   // seats physically occupied
	StatusFinished Status = "finished" // reservation left, seats freed
	StatusRemoved  Status = "removed"  // waitlist entry left, seats freed
	StatusCanceled Status = "canceled"
	StatusNoShow   Status = "no_show"
)

// reservationTransitions lists every legal reservation status change.
var reservationTransitions = map[Status][]Status{
	StatusBooked:   {StatusReserved, StatusSeated, StatusCanceled, StatusNoShow},
	StatusReserved: {StatusSeated, StatusCanceled, StatusNoShow},
	StatusSeated:   {StatusFinished, StatusNoShow},
}

// waitlistTransitions mirrors reservationTransitions with waiting in place
// of booked and removed in place of finished.
var waitlistTransitions = map[Status][]Status{
	StatusWaiting:  {StatusReserved, StatusSeated, StatusCanceled, StatusNoShow},
	StatusReserved: {StatusSeated, StatusCanceled, StatusNoShow},
	StatusSeated:   {StatusRemoved, StatusNoShow},
}

func transitionsFor(kind OccupantKind) map[Status][]Status {
	if kind == KindWaitlist {
		return waitlistTransitions
	}
	return reservationTransitions
}

// ValidStatus reports whether s belongs to the status set of kind.
func ValidStatus(kind OccupantKind, s Status) bool {
	switch kind {
	case KindReservation:
		switch s {
		case StatusBooked, StatusReserved, StatusSeated, StatusFinished, StatusCanceled, StatusNoShow:
			return true
		}
	case KindWaitlist:
		switch s {
		case StatusWaiting, StatusReserved, StatusSeated, StatusRemoved, StatusCanceled, StatusNoShow:
			return true
		}
	}
	return false
}

// InitialStatus returns the status a freshly created occupant of kind starts in.
func InitialStatus(kind OccupantKind) Status {
	if kind == KindWaitlist {
		return StatusWaiting
	}
	return StatusBooked
}

// DoneStatus is the terminal status reached when an occupant leaves normally.
func DoneStatus(kind OccupantKind) Status {
	if kind == KindWaitlist {
		return StatusRemoved
	}
	return StatusFinished
}

// IsTerminal reports whether no further transition is possible from s.
func IsTerminal(s Status) bool {
	switch s {
	case StatusFinished, StatusRemoved, StatusCanceled, StatusNoShow:
		return true
	}
	return false
}

// HoldsSeats reports whether an occupant in status s must own at least one
// active claim.
func HoldsSeats(s Status) bool {
	return s == StatusReserved || s == StatusSeated
}

// CanTransition reports whether kind may move from one status to another.
func CanTransition(kind OccupantKind, from, to Status) bool {
	for _, next := range transitionsFor(kind)[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition returns nil when the change is legal and an error wrapping
// ErrInvalidTransition otherwise.  Moving to the current status is never legal.
func CheckTransition(kind OccupantKind, from, to Status) error {
	if !CanTransition(kind, from, to) {
		return fmt.Errorf("%w: %s cannot go from %s to %s", ErrInvalidTransition, kind, from, to)
	}
	return nil
}
