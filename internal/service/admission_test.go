package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-seating/internal/model"
	"github.com/iliyamo/restaurant-seating/internal/repository"
)

func TestAdmit_ConflictOnOverlapThenOtherSeat(t *testing.T) {
	f := newFixture(t)
	seats := f.addSeats(2, 1)
	a := f.reservation(local(17, 0), 1)
	b := f.reservation(local(17, 30), 1)

	res, err := f.ctl.Admit(f.ctx, AdmitRequest{Occupant: a, SeatIDs: []uint64{seats[0]}, Start: ptr(local(17, 0)), End: ptr(local(18, 0))})
	require.NoError(t, err)
	require.Len(t, res.Claims, 1)
	assert.Equal(t, model.StatusSeated, res.Occupant.CurrentStatus())

	_, err = f.ctl.Admit(f.ctx, AdmitRequest{Occupant: b, SeatIDs: []uint64{seats[0]}, Start: ptr(local(17, 30)), End: ptr(local(18, 30))})
	require.ErrorIs(t, err, repository.ErrSeatConflict)
	assert.Equal(t, []uint64{seats[0]}, repository.ConflictingSeats(err))
	assert.Equal(t, model.StatusBooked, f.status(b))

	res, err = f.ctl.Admit(f.ctx, AdmitRequest{Occupant: b, SeatIDs: []uint64{seats[1]}, Start: ptr(local(17, 30)), End: ptr(local(18, 30))})
	require.NoError(t, err)
	assert.Equal(t, seats[1], res.Claims[0].SeatID)
	f.assertCoherent()
}

func TestAdmit_BackToBackDoesNotConflict(t *testing.T) {
	f := newFixture(t)
	seat := f.addSeats(1, 1)[0]
	a := f.reservation(local(17, 0), 1)
	b := f.reservation(local(18, 0), 1)

	_, err := f.ctl.Reserve(f.ctx, AdmitRequest{Occupant: a, SeatIDs: []uint64{seat}})
	require.NoError(t, err)
	res, err := f.ctl.Reserve(f.ctx, AdmitRequest{Occupant: b, SeatIDs: []uint64{seat}})
	require.NoError(t, err)
	assert.True(t, res.Claims[0].StartAt.Equal(local(18, 0)))
	assert.True(t, res.Claims[0].EndAt.Equal(local(19, 0)), "default end is start plus dining duration")
}

func TestAdmitParty_ConsecutiveSeats(t *testing.T) {
	f := newFixture(t)
	seats := f.addSeats(6, 1)
	party := f.reservation(local(17, 0), 3)

	res, err := f.ctl.AdmitParty(f.ctx, PartyRequest{Occupant: party, StartSeatID: seats[3]})
	require.NoError(t, err)
	require.Len(t, res.Claims, 3)
	for i, a := range res.Claims {
		assert.Equal(t, seats[3+i], a.SeatID)
		assert.True(t, a.StartAt.Equal(res.Claims[0].StartAt))
		assert.True(t, a.EndAt.Equal(res.Claims[0].EndAt))
	}
	assert.Equal(t, model.StatusSeated, f.status(party))
	assert.Len(t, f.activeClaims(party), 3)
}

func TestAdmitParty_InsufficientConsecutiveSeats(t *testing.T) {
	f := newFixture(t)
	seats := f.addSeats(6, 1)
	blocker := f.reservation(local(17, 0), 1)
	_, err := f.ctl.Admit(f.ctx, AdmitRequest{Occupant: blocker, SeatIDs: []uint64{seats[5]}})
	require.NoError(t, err)

	party := f.reservation(local(17, 0), 3)
	_, err = f.ctl.AdmitParty(f.ctx, PartyRequest{Occupant: party, StartSeatID: seats[3]})
	require.ErrorIs(t, err, repository.ErrInsufficientConsecutiveSeats)
	assert.Empty(t, f.activeClaims(party))
	assert.Equal(t, model.StatusBooked, f.status(party))

	res, err := f.ctl.AdmitParty(f.ctx, PartyRequest{Occupant: party, StartSeatID: seats[0], Reserve: true})
	require.NoError(t, err)
	assert.Equal(t, []uint64{seats[0], seats[1], seats[2]}, []uint64{res.Claims[0].SeatID, res.Claims[1].SeatID, res.Claims[2].SeatID})
	assert.Equal(t, model.StatusReserved, f.status(party))
}

func TestAdmitParty_TableBreaksTheRun(t *testing.T) {
	f := newFixture(t)
	stools := f.addSeats(2, 1)
	table := f.addSeats(1, 4)
	more := f.addSeats(2, 1)
	party := f.walkIn(3)

	_, err := f.ctl.AdmitParty(f.ctx, PartyRequest{Occupant: party, StartSeatID: stools[0]})
	require.ErrorIs(t, err, repository.ErrInsufficientConsecutiveSeats)

	_, err = f.ctl.AdmitParty(f.ctx, PartyRequest{Occupant: party, StartSeatID: table[0]})
	require.ErrorIs(t, err, repository.ErrInsufficientConsecutiveSeats)

	// inactive seats are skipped, not counted as gaps
	require.NoError(t, f.seats.SetActive(f.ctx, table[0], false))
	res, err := f.ctl.AdmitParty(f.ctx, PartyRequest{Occupant: party, StartSeatID: stools[1]})
	require.NoError(t, err)
	assert.Equal(t, []uint64{stools[1], more[0], more[1]},
		[]uint64{res.Claims[0].SeatID, res.Claims[1].SeatID, res.Claims[2].SeatID})
	f.assertCoherent()
}

func TestNoShow_ReleasesAllThenArriveFails(t *testing.T) {
	f := newFixture(t)
	seats := f.addSeats(2, 1)
	r := f.reservation(local(17, 0), 2)
	_, err := f.ctl.Reserve(f.ctx, AdmitRequest{Occupant: r, SeatIDs: seats})
	require.NoError(t, err)
	require.Len(t, f.activeClaims(r), 2)

	res, err := f.ctl.NoShow(f.ctx, r)
	require.NoError(t, err)
	assert.Equal(t, model.StatusNoShow, res.Occupant.CurrentStatus())
	require.Len(t, res.Claims, 2)
	for _, a := range res.Claims {
		assert.NotNil(t, a.ReleasedAt)
	}
	assert.Empty(t, f.activeClaims(r))

	_, err = f.ctl.Arrive(f.ctx, r)
	assert.ErrorIs(t, err, repository.ErrInvalidTransition)
	f.assertCoherent()
}

func TestConcurrentAdmits_AtMostOneWins(t *testing.T) {
	f := newFixture(t)
	seat := f.addSeats(1, 1)[0]
	const n = 8
	refs := make([]model.OccupantRef, n)
	for i := range refs {
		refs[i] = f.reservation(local(17, 0), 1)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start := local(17, 0).Add(time.Duration(i) * 5 * time.Minute)
			req := AdmitRequest{Occupant: refs[i], SeatIDs: []uint64{seat}, Start: &start, End: ptr(start.Add(time.Hour))}
			var err error
			if i%2 == 0 {
				_, err = f.ctl.Admit(context.Background(), req)
			} else {
				_, err = f.ctl.Reserve(context.Background(), req)
			}
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, repository.ErrSeatConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, conflicts)
	seatID := seat
	views, err := f.ctl.ListActiveClaims(f.ctx, repository.ClaimFilter{SeatID: &seatID})
	require.NoError(t, err)
	assert.Len(t, views, 1)
	f.assertCoherent()
}

func TestAdmit_AllOrNothing(t *testing.T) {
	f := newFixture(t)
	seats := f.addSeats(3, 1)
	other := f.reservation(local(17, 0), 1)
	_, err := f.ctl.Admit(f.ctx, AdmitRequest{Occupant: other, SeatIDs: []uint64{seats[1]}})
	require.NoError(t, err)

	party := f.reservation(local(17, 0), 3)
	_, err = f.ctl.Admit(f.ctx, AdmitRequest{Occupant: party, SeatIDs: seats})
	require.ErrorIs(t, err, repository.ErrSeatConflict)
	assert.Equal(t, []uint64{seats[1]}, repository.ConflictingSeats(err))
	assert.Empty(t, f.activeClaims(party))
	assert.Equal(t, model.StatusBooked, f.status(party))
	assert.Len(t, f.notes.all(), 1, "only the successful admission notifies")
}

func TestRelease_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	seats := f.addSeats(2, 1)
	r := f.reservation(local(17, 0), 2)
	res, err := f.ctl.Admit(f.ctx, AdmitRequest{Occupant: r, SeatIDs: seats})
	require.NoError(t, err)

	_, err = f.ctl.Finish(f.ctx, r)
	require.NoError(t, err)
	_, err = f.ctl.Finish(f.ctx, r)
	assert.ErrorIs(t, err, repository.ErrInvalidTransition)
	_, err = f.ctl.Cancel(f.ctx, r)
	assert.ErrorIs(t, err, repository.ErrInvalidTransition)
	_, err = f.ctl.NoShow(f.ctx, r)
	assert.ErrorIs(t, err, repository.ErrInvalidTransition)

	again, err := f.ctl.ReleaseClaim(f.ctx, res.Claims[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFinished, again.Occupant.CurrentStatus())

	all, err := f.ctl.ListActiveClaims(f.ctx, repository.ClaimFilter{Occupant: &r, IncludeReleased: true})
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, v := range all {
		require.NotNil(t, v.ReleasedAt)
		assert.True(t, v.ReleasedAt.Equal(local(16, 0)), "released once, at the first finish")
	}
	f.assertCoherent()
}

func TestReleaseClaim_OneSeatAtATime(t *testing.T) {
	f := newFixture(t)
	seats := f.addSeats(2, 1)
	w := f.walkIn(2)
	res, err := f.ctl.Admit(f.ctx, AdmitRequest{Occupant: w, SeatIDs: seats})
	require.NoError(t, err)
	require.Len(t, res.Claims, 2)
	assert.True(t, res.Claims[0].StartAt.Equal(local(16, 0)), "walk-ins start now")

	out, err := f.ctl.ReleaseClaim(f.ctx, res.Claims[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSeated, out.Occupant.CurrentStatus())
	assert.NotNil(t, out.Claims[0].ReleasedAt)

	out, err = f.ctl.ReleaseClaim(f.ctx, res.Claims[1].ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRemoved, out.Occupant.CurrentStatus())
	assert.Equal(t, model.StatusRemoved, f.status(w))

	_, err = f.ctl.ReleaseClaim(f.ctx, 999)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	f.assertCoherent()
}

func TestReleaseClaim_LastReservedSeatCancels(t *testing.T) {
	f := newFixture(t)
	seat := f.addSeats(1, 1)[0]
	r := f.reservation(local(19, 0), 1)
	res, err := f.ctl.Reserve(f.ctx, AdmitRequest{Occupant: r, SeatIDs: []uint64{seat}})
	require.NoError(t, err)

	out, err := f.ctl.ReleaseClaim(f.ctx, res.Claims[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCanceled, out.Occupant.CurrentStatus())
	f.assertCoherent()
}

func TestAdmit_AlreadySeatedAddsSeatsForSameWindow(t *testing.T) {
	f := newFixture(t)
	seats := f.addSeats(3, 1)
	r := f.reservation(local(17, 0), 1)
	_, err := f.ctl.Admit(f.ctx, AdmitRequest{Occupant: r, SeatIDs: seats[:1]})
	require.NoError(t, err)

	res, err := f.ctl.Admit(f.ctx, AdmitRequest{Occupant: r, SeatIDs: seats[1:2]})
	require.NoError(t, err)
	assert.Len(t, res.Claims, 2)
	assert.Equal(t, model.StatusSeated, res.Occupant.CurrentStatus())

	_, err = f.ctl.Admit(f.ctx, AdmitRequest{Occupant: r, SeatIDs: seats[2:], Start: ptr(local(18, 0))})
	assert.ErrorIs(t, err, repository.ErrValidation)
	assert.Len(t, f.activeClaims(r), 2)

	_, err = f.ctl.Reserve(f.ctx, AdmitRequest{Occupant: r, SeatIDs: seats[2:]})
	assert.ErrorIs(t, err, repository.ErrInvalidTransition)
}

func TestAdmit_ReservedGuestTakesReservedSeat(t *testing.T) {
	f := newFixture(t)
	seat := f.addSeats(1, 1)[0]
	r := f.reservation(local(17, 0), 1)
	_, err := f.ctl.Reserve(f.ctx, AdmitRequest{Occupant: r, SeatIDs: []uint64{seat}})
	require.NoError(t, err)

	res, err := f.ctl.Admit(f.ctx, AdmitRequest{Occupant: r, SeatIDs: []uint64{seat}})
	require.NoError(t, err)
	assert.Len(t, res.Claims, 1)
	assert.Equal(t, model.StatusSeated, f.status(r))
}

func TestArrive_KeepsReservedClaims(t *testing.T) {
	f := newFixture(t)
	seats := f.addSeats(2, 1)
	w := f.walkIn(2)
	_, err := f.ctl.Reserve(f.ctx, AdmitRequest{Occupant: w, SeatIDs: seats})
	require.NoError(t, err)

	res, err := f.ctl.Arrive(f.ctx, w)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSeated, res.Occupant.CurrentStatus())
	assert.Len(t, res.Claims, 2)

	_, err = f.ctl.Arrive(f.ctx, w)
	assert.ErrorIs(t, err, repository.ErrInvalidTransition)
	f.assertCoherent()
}

func TestArrive_WithoutSeatsIsRejected(t *testing.T) {
	f := newFixture(t)
	f.addSeats(2, 1)
	r := f.reservation(local(17, 0), 2)
	w := f.walkIn(1)

	_, err := f.ctl.Arrive(f.ctx, r)
	assert.ErrorIs(t, err, repository.ErrValidation)
	_, err = f.ctl.Arrive(f.ctx, w)
	assert.ErrorIs(t, err, repository.ErrValidation)
	assert.Equal(t, model.StatusBooked, f.status(r))
	assert.Equal(t, model.StatusWaiting, f.status(w))

	slots, err := f.calc.AvailableSlots(f.ctx, "2026-03-14", 1)
	require.NoError(t, err)
	assert.NotContains(t, slots, "17:00", "the booked party still counts")
	assert.NotContains(t, slots, "17:30")
	f.assertCoherent()
}

func TestNoShow_SeatedParty(t *testing.T) {
	f := newFixture(t)
	seats := f.addSeats(2, 1)
	r := f.reservation(local(17, 0), 2)
	_, err := f.ctl.Admit(f.ctx, AdmitRequest{Occupant: r, SeatIDs: seats})
	require.NoError(t, err)

	res, err := f.ctl.NoShow(f.ctx, r)
	require.NoError(t, err)
	assert.Equal(t, model.StatusNoShow, res.Occupant.CurrentStatus())
	assert.Len(t, res.Claims, 2)
	assert.Empty(t, f.activeClaims(r))

	_, err = f.ctl.NoShow(f.ctx, r)
	assert.ErrorIs(t, err, repository.ErrInvalidTransition)
	f.assertCoherent()
}

func TestAdmit_HeldSeatDeactivatedStillCounts(t *testing.T) {
	f := newFixture(t)
	seats := f.addSeats(2, 1)
	r := f.reservation(local(17, 0), 2)
	_, err := f.ctl.Reserve(f.ctx, AdmitRequest{Occupant: r, SeatIDs: seats})
	require.NoError(t, err)
	require.NoError(t, f.seats.SetActive(f.ctx, seats[1], false))
	extra := f.addSeats(1, 1)[0]

	res, err := f.ctl.Admit(f.ctx, AdmitRequest{Occupant: r, SeatIDs: []uint64{extra}})
	require.NoError(t, err)
	assert.Len(t, res.Claims, 3)
	assert.Equal(t, model.StatusSeated, res.Occupant.CurrentStatus())
}

func TestAdmit_RepeatWithoutChangeSendsNothing(t *testing.T) {
	f := newFixture(t)
	seats := f.addSeats(1, 1)
	r := f.reservation(local(17, 0), 1)
	_, err := f.ctl.Admit(f.ctx, AdmitRequest{Occupant: r, SeatIDs: seats})
	require.NoError(t, err)

	res, err := f.ctl.Admit(f.ctx, AdmitRequest{Occupant: r, SeatIDs: seats})
	require.NoError(t, err)
	assert.Len(t, res.Claims, 1)
	assert.Len(t, f.notes.all(), 1)
}

func TestAdmit_ValidationAndLookups(t *testing.T) {
	f := newFixture(t)
	seats := f.addSeats(2, 1)
	r := f.reservation(local(17, 0), 2)

	_, err := f.ctl.Admit(f.ctx, AdmitRequest{Occupant: r})
	assert.ErrorIs(t, err, repository.ErrValidation)

	_, err = f.ctl.Admit(f.ctx, AdmitRequest{Occupant: r, SeatIDs: seats[:1]})
	assert.ErrorIs(t, err, repository.ErrValidation, "one stool cannot hold a party of two")

	_, err = f.ctl.Admit(f.ctx, AdmitRequest{Occupant: r, SeatIDs: seats, Start: ptr(local(18, 0)), End: ptr(local(17, 0))})
	assert.ErrorIs(t, err, repository.ErrValidation)

	require.NoError(t, f.seats.SetActive(f.ctx, seats[1], false))
	_, err = f.ctl.Admit(f.ctx, AdmitRequest{Occupant: r, SeatIDs: seats})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = f.ctl.Admit(f.ctx, AdmitRequest{Occupant: model.OccupantRef{Kind: model.KindWaitlist, ID: 42}, SeatIDs: seats[:1]})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = f.ctl.AdmitParty(f.ctx, PartyRequest{Occupant: r})
	assert.ErrorIs(t, err, repository.ErrValidation)
	assert.Empty(t, f.activeClaims(r))
}

func TestAdmit_ExpiredDeadlineIsTransient(t *testing.T) {
	f := newFixture(t)
	seat := f.addSeats(1, 1)[0]
	r := f.reservation(local(17, 0), 1)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	_, err := f.ctl.Admit(ctx, AdmitRequest{Occupant: r, SeatIDs: []uint64{seat}})
	assert.ErrorIs(t, err, repository.ErrTransient)
}

func TestNotifications_FollowCommits(t *testing.T) {
	f := newFixture(t)
	seats := f.addSeats(4, 1)
	r := f.reservation(local(17, 0), 2)
	_, err := f.ctl.Reserve(f.ctx, AdmitRequest{Occupant: r, SeatIDs: seats[:2]})
	require.NoError(t, err)
	_, err = f.ctl.Arrive(f.ctx, r)
	require.NoError(t, err)
	w := f.walkIn(2)
	_, err = f.ctl.AdmitParty(f.ctx, PartyRequest{Occupant: w, StartSeatID: seats[2]})
	require.NoError(t, err)

	events := f.notes.all()
	require.Len(t, events, 2)
	assert.Equal(t, "reservation", events[0].OccupantType)
	assert.Equal(t, "reserved", events[0].Status)
	assert.Equal(t, "guest@example.com", events[0].ContactEmail)
	assert.Equal(t, []uint64{seats[0], seats[1]}, events[0].SeatIDs)
	assert.Equal(t, "2026-03-14T07:00:00Z", events[0].StartsAt)
	assert.Equal(t, "waitlist", events[1].OccupantType)
	assert.Equal(t, "seated", events[1].Status)
	assert.NotEqual(t, events[0].EventID, events[1].EventID)
}

func TestListActiveClaims_DateWindow(t *testing.T) {
	f := newFixture(t)
	seats := f.addSeats(2, 1)
	early := f.reservation(local(17, 0), 1)
	late := f.reservation(local(20, 0), 1)
	_, err := f.ctl.Reserve(f.ctx, AdmitRequest{Occupant: early, SeatIDs: seats[:1]})
	require.NoError(t, err)
	_, err = f.ctl.Reserve(f.ctx, AdmitRequest{Occupant: late, SeatIDs: seats[1:]})
	require.NoError(t, err)

	views, err := f.ctl.ListActiveClaims(f.ctx, repository.ClaimFilter{From: ptr(local(19, 0)), To: ptr(local(23, 0))})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, late, views[0].Occupant)
}
