// Package service holds the seating core: the admission controller that
// grants and frees seat claims, and the availability calculator that
// advises which start times can still take a party.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/restaurant-seating/internal/model"
	"github.com/iliyamo/restaurant-seating/internal/queue"
	"github.com/iliyamo/restaurant-seating/internal/repository"
)

// Notifier receives an event after every committed admit or reserve.  It
// must not block.
type Notifier interface {
	Notify(ev queue.SeatingConfirmedEvent)
}

// Controller is the admission controller.  Every operation runs in one
// transaction and locks the occupant row first, then any seat rows in
// ascending id order.  Claims are only written while those locks are
// held.  An operation either commits all of its claim and status changes
// or none.
type Controller struct {
	db        *sql.DB
	seats     *repository.SeatRepo
	occupants *repository.OccupantRepo
	claims    *repository.AllocationRepo
	dining    time.Duration
	notifier  Notifier
	now       func() time.Time
}

// Option customizes a Controller.
type Option func(*Controller)

// WithNotifier sets where confirmations go.  Without one they are dropped.
func WithNotifier(n Notifier) Option { return func(c *Controller) { c.notifier = n } }

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(c *Controller) { c.now = now } }

// NewController wires the controller to its repositories.  dining is the
// claim length used when a request gives no end time.
func NewController(db *sql.DB, seats *repository.SeatRepo, occupants *repository.OccupantRepo,
	claims *repository.AllocationRepo, dining time.Duration, opts ...Option) *Controller {
	if db == nil || seats == nil || occupants == nil || claims == nil {
		panic("nil dependency passed to NewController")
	}
	c := &Controller{
		db:        db,
		seats:     seats,
		occupants: occupants,
		claims:    claims,
		dining:    dining,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AdmitRequest asks for specific seats.  Nil Start and End default to the
// occupant's own times (reservation start and end, or now for a waitlist
// entry) with the dining duration filling in a missing end.
type AdmitRequest struct {
	Occupant model.OccupantRef
	SeatIDs  []uint64
	Start    *time.Time
	End      *time.Time
}

// PartyRequest asks for a block of consecutive single seats starting at
// StartSeatID.  Reserve selects the reserved target instead of seated.
type PartyRequest struct {
	Occupant    model.OccupantRef
	StartSeatID uint64
	Start       *time.Time
	End         *time.Time
	Reserve     bool
}

// Result is what every operation returns: the occupant after the change
// and the claims the operation created, kept or released.
type Result struct {
	Occupant model.Occupant
	Claims   []model.SeatAllocation
}

// Admit claims the requested seats and seats the occupant.  An occupant
// that is already seated keeps its status and gains the extra seats.
func (c *Controller) Admit(ctx context.Context, req AdmitRequest) (*Result, error) {
	return c.claimSeats(ctx, req, model.StatusSeated)
}

// Reserve claims the requested seats and moves the occupant to reserved.
func (c *Controller) Reserve(ctx context.Context, req AdmitRequest) (*Result, error) {
	return c.claimSeats(ctx, req, model.StatusReserved)
}

func (c *Controller) claimSeats(ctx context.Context, req AdmitRequest, target model.Status) (*Result, error) {
	if len(req.SeatIDs) == 0 {
		return nil, repository.Validationf("seat_ids must not be empty")
	}
	for _, id := range req.SeatIDs {
		if id == 0 {
			return nil, repository.Validationf("seat ids must be positive")
		}
	}
	var (
		out     *Result
		changed bool
	)
	err := c.inTx(ctx, "admit", req.Occupant, func(tx *sql.Tx) error {
		now := c.now()
		occ, err := c.occupants.GetForUpdateTx(ctx, tx, req.Occupant)
		if err != nil {
			return err
		}
		status := occ.CurrentStatus()
		keep := target == model.StatusSeated && status == model.StatusSeated
		if !keep {
			if err := model.CheckTransition(req.Occupant.Kind, status, target); err != nil {
				return err
			}
		}

		existing, err := c.claims.ActiveForOccupantTx(ctx, tx, req.Occupant)
		if err != nil {
			return err
		}
		start, end, err := c.interval(occ, existing, req.Start, req.End, now)
		if err != nil {
			return err
		}

		held := make(map[uint64]bool, len(existing))
		all := append([]uint64(nil), req.SeatIDs...)
		for _, a := range existing {
			held[a.SeatID] = true
			all = append(all, a.SeatID)
		}
		seats, err := c.seats.LockByIDsTx(ctx, tx, repository.SortedUnique(all), held)
		if err != nil {
			return err
		}
		var capacity int
		var fresh []uint64
		for _, s := range seats {
			capacity += int(s.Capacity)
			if !held[s.ID] {
				fresh = append(fresh, s.ID)
			}
		}
		if capacity < occ.Size() {
			return repository.Validationf("seats hold %d guests, party of %d", capacity, occ.Size())
		}

		conflicts, err := c.claims.OverlappingSeatsTx(ctx, tx, fresh, start, end)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return &repository.SeatConflictError{SeatIDs: conflicts}
		}

		claims := existing
		for _, seatID := range fresh {
			a, err := c.claims.CreateTx(ctx, tx, seatID, req.Occupant, start, end, now)
			if err != nil {
				return err
			}
			claims = append(claims, *a)
		}
		if !keep {
			if err := c.occupants.UpdateStatusTx(ctx, tx, req.Occupant, status, target, now); err != nil {
				return err
			}
			occ = model.WithStatus(occ, target)
		}
		changed = len(fresh) > 0 || !keep
		out = &Result{Occupant: occ, Claims: claims}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		c.confirm(out)
	}
	return out, nil
}

// AdmitParty seats (or reserves) a party across consecutive single seats.
// Starting at StartSeatID it walks the section's active seats in id order
// and takes each seat that holds one guest and has no overlapping claim,
// stopping at the first seat that does not qualify.  Fewer seats than the
// party size fails the whole admission with
// ErrInsufficientConsecutiveSeats.
func (c *Controller) AdmitParty(ctx context.Context, req PartyRequest) (*Result, error) {
	if req.StartSeatID == 0 {
		return nil, repository.Validationf("start_seat_id is required")
	}
	target := model.StatusSeated
	if req.Reserve {
		target = model.StatusReserved
	}
	var out *Result
	err := c.inTx(ctx, "admit-party", req.Occupant, func(tx *sql.Tx) error {
		now := c.now()
		occ, err := c.occupants.GetForUpdateTx(ctx, tx, req.Occupant)
		if err != nil {
			return err
		}
		status := occ.CurrentStatus()
		if err := model.CheckTransition(req.Occupant.Kind, status, target); err != nil {
			return err
		}
		existing, err := c.claims.ActiveForOccupantTx(ctx, tx, req.Occupant)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return repository.Validationf("%s already holds %d seats", req.Occupant, len(existing))
		}
		start, end, err := c.interval(occ, nil, req.Start, req.End, now)
		if err != nil {
			return err
		}

		first, err := c.seats.GetActiveTx(ctx, tx, req.StartSeatID)
		if err != nil {
			return err
		}
		section, err := c.seats.ListSectionForUpdateTx(ctx, tx, first.SectionID)
		if err != nil {
			return err
		}
		need := occ.Size()
		var picked []uint64
		started := false
		for _, s := range section {
			if s.ID == first.ID {
				started = true
			}
			if !started {
				continue
			}
			if len(picked) == need || s.Capacity != 1 {
				break
			}
			busy, err := c.claims.HasOverlapTx(ctx, tx, s.ID, start, end)
			if err != nil {
				return err
			}
			if busy {
				break
			}
			picked = append(picked, s.ID)
		}
		if len(picked) < need {
			return fmt.Errorf("%w: party of %d needs consecutive seats from seat %d, found %d",
				repository.ErrInsufficientConsecutiveSeats, need, first.ID, len(picked))
		}

		claims := make([]model.SeatAllocation, 0, len(picked))
		for _, seatID := range picked {
			a, err := c.claims.CreateTx(ctx, tx, seatID, req.Occupant, start, end, now)
			if err != nil {
				return err
			}
			claims = append(claims, *a)
		}
		if err := c.occupants.UpdateStatusTx(ctx, tx, req.Occupant, status, target, now); err != nil {
			return err
		}
		out = &Result{Occupant: model.WithStatus(occ, target), Claims: claims}
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.confirm(out)
	return out, nil
}

// Arrive seats an occupant that was booked, waiting or reserved.  Claims
// made by Reserve are kept as they are.  An occupant holding no seats
// cannot arrive: a seated party always owns at least one claim, so a
// party with nothing reserved goes through Admit instead.
func (c *Controller) Arrive(ctx context.Context, ref model.OccupantRef) (*Result, error) {
	var out *Result
	err := c.inTx(ctx, "arrive", ref, func(tx *sql.Tx) error {
		occ, err := c.occupants.GetForUpdateTx(ctx, tx, ref)
		if err != nil {
			return err
		}
		status := occ.CurrentStatus()
		if err := model.CheckTransition(ref.Kind, status, model.StatusSeated); err != nil {
			return err
		}
		claims, err := c.claims.ActiveForOccupantTx(ctx, tx, ref)
		if err != nil {
			return err
		}
		if len(claims) == 0 {
			return repository.Validationf("%s holds no seats; admit it to seats instead", ref)
		}
		if err := c.occupants.UpdateStatusTx(ctx, tx, ref, status, model.StatusSeated, c.now()); err != nil {
			return err
		}
		out = &Result{Occupant: model.WithStatus(occ, model.StatusSeated), Claims: claims}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// NoShow releases the occupant's claims and marks it no_show.
func (c *Controller) NoShow(ctx context.Context, ref model.OccupantRef) (*Result, error) {
	return c.releaseAll(ctx, "no-show", ref, model.StatusNoShow)
}

// Cancel releases the occupant's claims and marks it canceled.
func (c *Controller) Cancel(ctx context.Context, ref model.OccupantRef) (*Result, error) {
	return c.releaseAll(ctx, "cancel", ref, model.StatusCanceled)
}

// Finish releases a seated occupant's claims and marks it finished
// (reservation) or removed (waitlist entry).
func (c *Controller) Finish(ctx context.Context, ref model.OccupantRef) (*Result, error) {
	return c.releaseAll(ctx, "finish", ref, model.DoneStatus(ref.Kind))
}

// releaseAll checks the transition before touching any claim, so calling
// it a second time fails with ErrInvalidTransition and frees nothing.
func (c *Controller) releaseAll(ctx context.Context, op string, ref model.OccupantRef, target model.Status) (*Result, error) {
	var out *Result
	err := c.inTx(ctx, op, ref, func(tx *sql.Tx) error {
		now := c.now()
		occ, err := c.occupants.GetForUpdateTx(ctx, tx, ref)
		if err != nil {
			return err
		}
		status := occ.CurrentStatus()
		if err := model.CheckTransition(ref.Kind, status, target); err != nil {
			return err
		}
		claims, err := c.claims.ActiveForOccupantTx(ctx, tx, ref)
		if err != nil {
			return err
		}
		if _, err := c.claims.ReleaseForOccupantTx(ctx, tx, ref, now); err != nil {
			return err
		}
		if err := c.occupants.UpdateStatusTx(ctx, tx, ref, status, target, now); err != nil {
			return err
		}
		released := now.UTC().Truncate(time.Second)
		for i := range claims {
			claims[i].ReleasedAt = &released
		}
		out = &Result{Occupant: model.WithStatus(occ, target), Claims: claims}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReleaseClaim frees a single seat.  When it was the occupant's last active
// claim the occupant leaves too: seated becomes finished or removed, and
// reserved becomes canceled.  Releasing an already released claim is a
// no-op that returns the claim unchanged.
func (c *Controller) ReleaseClaim(ctx context.Context, claimID uint64) (*Result, error) {
	peek, err := c.claims.Get(ctx, claimID)
	if err != nil {
		return nil, repository.Classify(err)
	}
	ref := peek.Occupant
	var out *Result
	err = c.inTx(ctx, "release", ref, func(tx *sql.Tx) error {
		now := c.now()
		occ, err := c.occupants.GetForUpdateTx(ctx, tx, ref)
		if err != nil {
			return err
		}
		claim, err := c.claims.GetForUpdateTx(ctx, tx, claimID)
		if err != nil {
			return err
		}
		out = &Result{Occupant: occ, Claims: []model.SeatAllocation{*claim}}
		if !claim.Active() {
			return nil
		}
		if _, err := c.claims.ReleaseTx(ctx, tx, claimID, now); err != nil {
			return err
		}
		released := now.UTC().Truncate(time.Second)
		out.Claims[0].ReleasedAt = &released

		remaining, err := c.claims.CountActiveForOccupantTx(ctx, tx, ref)
		if err != nil {
			return err
		}
		if remaining > 0 {
			return nil
		}
		status := occ.CurrentStatus()
		var target model.Status
		switch status {
		case model.StatusSeated:
			target = model.DoneStatus(ref.Kind)
		case model.StatusReserved:
			target = model.StatusCanceled
		default:
			return nil
		}
		if err := c.occupants.UpdateStatusTx(ctx, tx, ref, status, target, now); err != nil {
			return err
		}
		out.Occupant = model.WithStatus(occ, target)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListActiveClaims returns claims matching f; released claims only when
// f asks for them.
func (c *Controller) ListActiveClaims(ctx context.Context, f repository.ClaimFilter) ([]repository.ClaimView, error) {
	views, err := c.claims.List(ctx, f)
	return views, repository.Classify(err)
}

// interval resolves the claim window for a request.  When the occupant
// already holds claims the new ones must share their window.
func (c *Controller) interval(occ model.Occupant, existing []model.SeatAllocation, reqStart, reqEnd *time.Time, now time.Time) (time.Time, time.Time, error) {
	var start, end time.Time
	switch {
	case reqStart != nil:
		start = *reqStart
	case len(existing) > 0:
		start = existing[0].StartAt
	default:
		start = occ.ReferenceTime()
		if occ.Ref().Kind == model.KindWaitlist {
			start = now
		}
	}
	switch {
	case reqEnd != nil:
		end = *reqEnd
	case len(existing) > 0 && reqStart == nil:
		end = existing[0].EndAt
	default:
		end = start.Add(c.dining)
		if r, ok := occ.(*model.Reservation); ok && r.EndTime != nil && reqStart == nil {
			end = *r.EndTime
		}
	}
	start, end = start.UTC().Truncate(time.Second), end.UTC().Truncate(time.Second)
	if !end.After(start) {
		return time.Time{}, time.Time{}, repository.Validationf("end must be after start")
	}
	if len(existing) > 0 && (!existing[0].StartAt.Equal(start) || !existing[0].EndAt.Equal(end)) {
		return time.Time{}, time.Time{}, repository.Validationf("%s already holds seats for %s to %s; extra seats must use the same window",
			occ.Ref(), existing[0].StartAt.Format(time.RFC3339), existing[0].EndAt.Format(time.RFC3339))
	}
	return start, end, nil
}

// inTx runs fn in a transaction, rolling back unless fn and the commit
// both succeed.  Store failures come back classified so lock timeouts and
// deadlocks surface as ErrTransient.
func (c *Controller) inTx(ctx context.Context, op string, ref model.OccupantRef, fn func(tx *sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		log.Printf("admission: %s %s: begin: %v", op, ref, err)
		return repository.Classify(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		if !isClientError(err) {
			log.Printf("admission: %s %s: %v", op, ref, err)
		}
		return repository.Classify(err)
	}
	if err := tx.Commit(); err != nil {
		log.Printf("admission: %s %s: commit: %v", op, ref, err)
		return repository.Classify(err)
	}
	committed = true
	return nil
}

// isClientError reports whether err is one of the kinds reported straight
// back to the caller.
func isClientError(err error) bool {
	for _, kind := range []error{
		repository.ErrNotFound,
		repository.ErrValidation,
		repository.ErrInvalidTransition,
		repository.ErrSeatConflict,
		repository.ErrInsufficientConsecutiveSeats,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// confirm hands the committed result to the notifier.
func (c *Controller) confirm(r *Result) {
	if c.notifier == nil || r == nil || len(r.Claims) == 0 {
		return
	}
	contact := r.Occupant.ContactInfo()
	ref := r.Occupant.Ref()
	seatIDs := make([]uint64, len(r.Claims))
	for i, a := range r.Claims {
		seatIDs[i] = a.SeatID
	}
	c.notifier.Notify(queue.SeatingConfirmedEvent{
		EventID:      queue.NewEventID(),
		OccupantType: string(ref.Kind),
		OccupantID:   ref.ID,
		Status:       string(r.Occupant.CurrentStatus()),
		ContactName:  contact.Name,
		ContactPhone: contact.Phone,
		ContactEmail: contact.Email,
		PartySize:    r.Occupant.Size(),
		SeatIDs:      seatIDs,
		StartsAt:     queue.FormatTime(r.Claims[0].StartAt),
		EndsAt:       queue.FormatTime(r.Claims[0].EndAt),
		ConfirmedAt:  queue.FormatTime(c.now()),
	})
}
