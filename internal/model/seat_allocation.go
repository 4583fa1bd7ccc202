package model

import "time"

// SeatAllocation is a claim that a seat is held by one occupant for the
// half-open interval [StartAt, EndAt).  Claims are never deleted: releasing
// a claim stamps ReleasedAt and from then on the claim is history only.
//
// Fields:
//  ID         – primary key identifier.
//  SeatID     – seat being claimed.
//  Occupant   – the reservation or waitlist entry holding the seat.
//  StartAt    – start of the claimed interval (inclusive).
//  EndAt      – end of the claimed interval (exclusive, > StartAt).
//  ReleasedAt – when the claim was released (nil while active).
//  CreatedAt  – creation timestamp.
type SeatAllocation struct {
	ID         uint64      // seat_allocations.id
	SeatID     uint64      // seat_allocations.seat_id
	Occupant   OccupantRef // seat_allocations.reservation_id | waitlist_entry_id
	StartAt    time.Time   // seat_allocations.start_at
	EndAt      time.Time   // seat_allocations.end_at
	ReleasedAt *time.Time  // seat_allocations.released_at (nullable)
	CreatedAt  time.Time   // seat_allocations.created_at
}

// Active reports whether the claim still holds its seat.
func (a SeatAllocation) Active() bool { return a.ReleasedAt == nil }

// Overlaps reports whether the claim's interval shares any instant with
// [start, end).  Back-to-back intervals do not overlap.
func (a SeatAllocation) Overlaps(start, end time.Time) bool {
	return Overlaps(a.StartAt, a.EndAt, start, end)
}

// Overlaps is the half-open interval test used everywhere in the ledger.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
