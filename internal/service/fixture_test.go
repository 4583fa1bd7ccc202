package service

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-seating/internal/config"
	"github.com/iliyamo/restaurant-seating/internal/database"
	"github.com/iliyamo/restaurant-seating/internal/model"
	"github.com/iliyamo/restaurant-seating/internal/queue"
	"github.com/iliyamo/restaurant-seating/internal/repository"
)

var chst = time.FixedZone("ChST", 10*3600)

// local builds an instant on the test day in venue time.
func local(hour, min int) time.Time {
	return time.Date(2026, 3, 14, hour, min, 0, 0, chst)
}

func ptr(t time.Time) *time.Time { return &t }

type recorder struct {
	mu     sync.Mutex
	events []queue.SeatingConfirmedEvent
}

func (r *recorder) Notify(ev queue.SeatingConfirmedEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) all() []queue.SeatingConfirmedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]queue.SeatingConfirmedEvent(nil), r.events...)
}

type fixture struct {
	t         *testing.T
	ctx       context.Context
	db        *sql.DB
	seats     *repository.SeatRepo
	occupants *repository.OccupantRepo
	claims    *repository.AllocationRepo
	ctl       *Controller
	calc      *Calculator
	notes     *recorder
	section   model.SeatSection
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "seating.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()
	require.NoError(t, database.Migrate(ctx, db, repository.SQLite))

	f := &fixture{
		t:         t,
		ctx:       ctx,
		db:        db,
		seats:     repository.NewSeatRepo(db, repository.SQLite),
		occupants: repository.NewOccupantRepo(db, repository.SQLite),
		claims:    repository.NewAllocationRepo(db, repository.SQLite),
		notes:     &recorder{},
	}
	clock := local(16, 0)
	f.ctl = NewController(db, f.seats, f.occupants, f.claims, time.Hour,
		WithNotifier(f.notes), WithClock(func() time.Time { return clock }))
	f.calc = NewCalculator(f.seats, f.occupants, f.claims, config.VenueConfig{
		Location:       chst,
		Opening:        17 * time.Hour,
		Closing:        21 * time.Hour,
		SlotInterval:   30 * time.Minute,
		DiningDuration: time.Hour,
	})
	f.section = model.SeatSection{Name: "Counter", SectionType: "counter"}
	require.NoError(t, f.seats.CreateSection(ctx, &f.section))
	return f
}

// addSeats creates n seats of the given capacity in the fixture's section.
func (f *fixture) addSeats(n int, capacity uint32) []uint64 {
	f.t.Helper()
	ids := make([]uint64, n)
	for i := range ids {
		s := model.Seat{SectionID: f.section.ID, Label: "S", Capacity: capacity, IsActive: true}
		require.NoError(f.t, f.seats.Create(f.ctx, &s))
		ids[i] = s.ID
	}
	return ids
}

func (f *fixture) reservation(start time.Time, party int) model.OccupantRef {
	f.t.Helper()
	r := &model.Reservation{StartTime: start, PartySize: party, ContactName: "Guest", ContactEmail: "guest@example.com"}
	require.NoError(f.t, f.occupants.CreateReservation(f.ctx, r))
	return r.Ref()
}

func (f *fixture) walkIn(party int) model.OccupantRef {
	f.t.Helper()
	w := &model.WaitlistEntry{PartySize: party, ContactName: "Walk-in", ContactPhone: "+16715550100"}
	require.NoError(f.t, f.occupants.CreateWaitlistEntry(f.ctx, w))
	return w.Ref()
}

func (f *fixture) status(ref model.OccupantRef) model.Status {
	f.t.Helper()
	o, err := f.occupants.Get(f.ctx, ref)
	require.NoError(f.t, err)
	return o.CurrentStatus()
}

func (f *fixture) activeClaims(ref model.OccupantRef) []repository.ClaimView {
	f.t.Helper()
	views, err := f.ctl.ListActiveClaims(f.ctx, repository.ClaimFilter{Occupant: &ref})
	require.NoError(f.t, err)
	return views
}

// assertCoherent checks that seat-holding statuses have claims and
// terminal statuses have none, for every occupant in the store.
func (f *fixture) assertCoherent() {
	f.t.Helper()
	const q = `SELECT o.status, (SELECT COUNT(*) FROM seat_allocations a WHERE a.%s = o.id AND a.released_at IS NULL)
	           FROM %s o`
	for _, tbl := range [][2]string{{"reservation_id", "reservations"}, {"waitlist_entry_id", "waitlist_entries"}} {
		rows, err := f.db.QueryContext(f.ctx, fmt.Sprintf(q, tbl[0], tbl[1]))
		require.NoError(f.t, err)
		for rows.Next() {
			var status string
			var active int
			require.NoError(f.t, rows.Scan(&status, &active))
			s := model.Status(status)
			if model.IsTerminal(s) {
				require.Zero(f.t, active, "%s occupant holds %d claims", s, active)
			}
			if model.HoldsSeats(s) {
				require.Positive(f.t, active, "%s occupant without claims", s)
			}
		}
		require.NoError(f.t, rows.Err())
		rows.Close()
	}
}
