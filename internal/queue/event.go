// Package queue carries seating-confirmed notifications from the admission
// controller to the outside world.  The controller hands events to a
// Dispatcher, which publishes them on a background goroutine through one of
// the Publisher implementations (RabbitMQ, Kafka or the log).  Delivery is
// fire-and-forget: a failed publish is logged and never reaches the
// admission that produced it.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// SeatingConfirmedEvent is published after an admit or reserve commits.  It
// contains enough information for the notification service to email or
// text the guest without querying the primary database.
type SeatingConfirmedEvent struct {
	EventID      string   `json:"event_id"`
	OccupantType string   `json:"occupant_type"`
	OccupantID   uint64   `json:"occupant_id"`
	Status       string   `json:"status"`
	ContactName  string   `json:"contact_name"`
	ContactPhone string   `json:"contact_phone,omitempty"`
	ContactEmail string   `json:"contact_email,omitempty"`
	PartySize    int      `json:"party_size"`
	SeatIDs      []uint64 `json:"seat_ids"`
	StartsAt     string   `json:"starts_at"`
	EndsAt       string   `json:"ends_at"`
	ConfirmedAt  string   `json:"confirmed_at"`
}

// NewEventID returns a fresh random event id.
func NewEventID() string { return uuid.NewString() }

// FormatTime renders event timestamps as RFC 3339 in UTC.
func FormatTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }
