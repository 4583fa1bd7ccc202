package model

import (
	"fmt"
	"time"
)

// OccupantKind tags which of the two guest kinds an occupant is.
type OccupantKind string

const (
	KindReservation OccupantKind = "reservation"
	KindWaitlist    OccupantKind = "waitlist"
)

// ParseOccupantKind validates a kind received from a caller.
func ParseOccupantKind(s string) (OccupantKind, error) {
	switch OccupantKind(s) {
	case KindReservation, KindWaitlist:
		return OccupantKind(s), nil
	}
	return "", fmt.Errorf("unknown occupant type %q", s)
}

// OccupantRef is a tagged reference to exactly one occupant.
type OccupantRef struct {
	Kind OccupantKind `json:"occupant_type"`
	ID   uint64       `json:"occupant_id"`
}

func (r OccupantRef) String() string {
	return fmt.Sprintf("%s/%d", r.Kind, r.ID)
}

// Contact holds the details notification dispatch needs to reach a guest.
type Contact struct {
	Name  string
	Phone string
	Email string
}

// Occupant is the capability shared by reservations and waitlist entries.
type Occupant interface {
	Ref() OccupantRef
	Size() int
	CurrentStatus() Status
	ReferenceTime() time.Time
	ContactInfo() Contact
}

// Reservation is a guest booked ahead for a requested time window.
//
// Fields:
//  ID              – primary key identifier.
//  StartTime       – requested start instant (UTC).
//  EndTime         – requested end instant; nil means start + dining duration.
//  PartySize       – number of guests (> 0).
//  ContactName     – name the booking was made under.
//  ContactPhone    – optional phone number.
//  ContactEmail    – optional email address.
//  SpecialRequests – free text from the guest.
//  Status          – lifecycle state (booked, reserved, seated, ...).
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Reservation struct {
	ID              uint64     // reservations.id
	StartTime       time.Time  // reservations.start_time
	EndTime         *time.Time // reservations.end_time (nullable)
	PartySize       int        // reservations.party_size
	ContactName     string     // reservations.contact_name
	ContactPhone    string     // reservations.contact_phone
	ContactEmail    string     // reservations.contact_email
	SpecialRequests string     // reservations.special_requests
	Status          Status     // reservations.status
	CreatedAt       time.Time  // reservations.created_at
	UpdatedAt       time.Time  // reservations.updated_at
}

func (r *Reservation) Ref() OccupantRef {
	return OccupantRef{Kind: KindReservation, ID: r.ID}
}

func (r *Reservation) Size() int {
	return r.PartySize
}

func (r *Reservation) CurrentStatus() Status {
	return r.Status
}

func (r *Reservation) ReferenceTime() time.Time {
	return r.StartTime
}

func (r *Reservation) ContactInfo() Contact {
	return Contact{Name: r.ContactName, Phone: r.ContactPhone, Email: r.ContactEmail}
}

// WaitlistEntry is a walk-in guest waiting for a seat.
//
// Fields:
//  ID           – primary key identifier.
//  PartySize    – number of guests (> 0).
//  ContactName  – name called when a seat frees up.
//  ContactPhone – optional phone number for SMS.
//  CheckInTime  – when the party joined the list (UTC).
//  Status       – lifecycle state (waiting, reserved, seated, ...).
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type WaitlistEntry struct {
	ID           uint64    // waitlist_entries.id
	PartySize    int       // waitlist_entries.party_size
	ContactName  string    // waitlist_entries.contact_name
	ContactPhone string    // waitlist_entries.contact_phone
	CheckInTime  time.Time // waitlist_entries.check_in_time
	Status       Status    // waitlist_entries.status
	CreatedAt    time.Time // waitlist_entries.created_at
	UpdatedAt    time.Time // waitlist_entries.updated_at
}

func (w *WaitlistEntry) Ref() OccupantRef {
	return OccupantRef{Kind: KindWaitlist, ID: w.ID}
}

func (w *WaitlistEntry) Size() int {
	return w.PartySize
}

func (w *WaitlistEntry) CurrentStatus() Status {
	return w.Status
}

func (w *WaitlistEntry) ReferenceTime() time.Time {
	return w.CheckInTime
}

func (w *WaitlistEntry) ContactInfo() Contact {
	return Contact{Name: w.ContactName, Phone: w.ContactPhone}
}

// WithStatus returns a copy of o carrying status s.
func WithStatus(o Occupant, s Status) Occupant {
	switch v := o.(type) {
	case *Reservation:
		c := *v
		c.Status = s
		return &c
	case *WaitlistEntry:
		c := *v
		c.Status = s
		return &c
	}
	return o
}
