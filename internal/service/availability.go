package service

import (
	"context"
	"time"

	"github.com/iliyamo/restaurant-seating/internal/config"
	"github.com/iliyamo/restaurant-seating/internal/model"
	"github.com/iliyamo/restaurant-seating/internal/repository"
)

// Calculator answers "which start times can still take a party of N".
// It uses the aggregate-capacity model: a slot is open when the party
// sizes of every occupant committed over [slot, slot+dining) plus the new
// party fit within the total capacity of the active seats.  Committed
// means holding an active overlapping claim, or being a booked
// reservation whose requested window overlaps.  Results are advisory and
// recomputed on every call.
type Calculator struct {
	seats     *repository.SeatRepo
	occupants *repository.OccupantRepo
	claims    *repository.AllocationRepo
	venue     config.VenueConfig
}

// NewCalculator returns a Calculator over the venue's service hours.
func NewCalculator(seats *repository.SeatRepo, occupants *repository.OccupantRepo,
	claims *repository.AllocationRepo, venue config.VenueConfig) *Calculator {
	return &Calculator{seats: seats, occupants: occupants, claims: claims, venue: venue}
}

// AvailableSlots returns the open slots on date (YYYY-MM-DD, venue
// calendar) as local "HH:MM" strings in ascending order.
func (c *Calculator) AvailableSlots(ctx context.Context, date string, partySize int) ([]string, error) {
	slots, err := c.Slots(ctx, date, partySize)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.In(c.venue.Location).Format("15:04")
	}
	return out, nil
}

// Slots is AvailableSlots returning instants instead of labels.
func (c *Calculator) Slots(ctx context.Context, date string, partySize int) ([]time.Time, error) {
	if partySize <= 0 {
		return nil, repository.Validationf("party_size must be positive")
	}
	grid, err := c.Grid(date)
	if err != nil {
		return nil, err
	}
	total, err := c.seats.TotalCapacity(ctx)
	if err != nil {
		return nil, repository.Classify(err)
	}
	if partySize > total {
		return []time.Time{}, nil
	}

	from, to := grid[0], grid[len(grid)-1].Add(c.venue.DiningDuration)
	committed, err := c.claims.ActiveWindows(ctx, from, to)
	if err != nil {
		return nil, repository.Classify(err)
	}
	booked, err := c.occupants.BookedWindows(ctx, from, to, c.venue.DiningDuration)
	if err != nil {
		return nil, repository.Classify(err)
	}
	committed = append(committed, booked...)

	open := make([]time.Time, 0, len(grid))
	for _, slot := range grid {
		if committedSize(committed, slot, slot.Add(c.venue.DiningDuration))+partySize <= total {
			open = append(open, slot)
		}
	}
	return open, nil
}

// Grid returns every slot start on date from opening time up to, but not
// including, closing time.
func (c *Calculator) Grid(date string) ([]time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", date, c.venue.Location)
	if err != nil {
		return nil, repository.Validationf("date must be YYYY-MM-DD")
	}
	var grid []time.Time
	for off := c.venue.Opening; off < c.venue.Closing; off += c.venue.SlotInterval {
		h, m := int(off/time.Hour), int(off%time.Hour/time.Minute)
		grid = append(grid, time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, c.venue.Location))
	}
	return grid, nil
}

// committedSize sums party sizes of the distinct occupants whose windows
// overlap [start, end).
func committedSize(windows []repository.OccupancyWindow, start, end time.Time) int {
	seen := map[model.OccupantRef]bool{}
	sum := 0
	for _, w := range windows {
		if !model.Overlaps(w.Start, w.End, start, end) || seen[w.Occupant] {
			continue
		}
		seen[w.Occupant] = true
		sum += w.PartySize
	}
	return sum
}
