package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/iliyamo/restaurant-seating/internal/model"
)

// AllocationRepo is the allocation ledger: the seat_allocations table is
// the single source of truth for whether a seat is free at an instant.
// Rows are only ever inserted or released; released rows stay for audit
// and are ignored by every overlap query.
type AllocationRepo struct {
	db      *sql.DB
	dialect Dialect
}

// NewAllocationRepo returns a new AllocationRepo bound to the given database.
func NewAllocationRepo(db *sql.DB, dialect Dialect) *AllocationRepo {
	return &AllocationRepo{db: db, dialect: dialect}
}

// OccupancyWindow is one occupant's party size committed over an interval.
// Availability sums these.
type OccupancyWindow struct {
	Occupant  model.OccupantRef
	PartySize int
	Start     time.Time
	End       time.Time
}

// ClaimFilter narrows List.  Nil fields do not filter.  From and To select
// claims whose interval overlaps [From, To).
type ClaimFilter struct {
	From            *time.Time
	To              *time.Time
	SeatID          *uint64
	Occupant        *model.OccupantRef
	IncludeReleased bool
}

// ClaimView is a claim joined with the seat label and the occupant
// details staff need on the floor.
type ClaimView struct {
	model.SeatAllocation
	SeatLabel         string
	OccupantName      string
	OccupantPartySize int
	OccupantStatus    model.Status
}

// occupantColumn maps a kind to the claim column that references it.
func occupantColumn(kind model.OccupantKind) (string, error) {
	switch kind {
	case model.KindReservation:
		return "reservation_id", nil
	case model.KindWaitlist:
		return "waitlist_entry_id", nil
	}
	return "", Validationf("unknown occupant type %q", kind)
}

const allocationColumns = `a.id, a.seat_id, a.reservation_id, a.waitlist_entry_id, a.start_at, a.end_at, a.released_at, a.created_at`

// allocationScan collects the destinations for allocationColumns.
type allocationScan struct {
	a               model.SeatAllocation
	resID, waitID   sql.NullInt64
	start, end, crt dbTime
	released        nullDBTime
}

func (s *allocationScan) dest() []any {
	return []any{&s.a.ID, &s.a.SeatID, &s.resID, &s.waitID, &s.start, &s.end, &s.released, &s.crt}
}

func (s *allocationScan) claim() model.SeatAllocation {
	a := s.a
	if s.resID.Valid {
		a.Occupant = model.OccupantRef{Kind: model.KindReservation, ID: uint64(s.resID.Int64)}
	} else {
		a.Occupant = model.OccupantRef{Kind: model.KindWaitlist, ID: uint64(s.waitID.Int64)}
	}
	a.StartAt, a.EndAt, a.CreatedAt = s.start.t, s.end.t, s.crt.t
	a.ReleasedAt = s.released.ptr()
	return a
}

func scanAllocations(rows *sql.Rows) ([]model.SeatAllocation, error) {
	defer rows.Close()
	var out []model.SeatAllocation
	for rows.Next() {
		var s allocationScan
		if err := rows.Scan(s.dest()...); err != nil {
			return nil, err
		}
		out = append(out, s.claim())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ActiveForSeatTx returns the active claims on a seat ordered by start.
func (r *AllocationRepo) ActiveForSeatTx(ctx context.Context, tx *sql.Tx, seatID uint64) ([]model.SeatAllocation, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+allocationColumns+` FROM seat_allocations a
		 WHERE a.seat_id = ? AND a.released_at IS NULL ORDER BY a.start_at, a.id`, seatID)
	if err != nil {
		return nil, err
	}
	return scanAllocations(rows)
}

// ActiveForOccupantTx locks and returns the occupant's active claims in
// seat order.
func (r *AllocationRepo) ActiveForOccupantTx(ctx context.Context, tx *sql.Tx, ref model.OccupantRef) ([]model.SeatAllocation, error) {
	col, err := occupantColumn(ref.Kind)
	if err != nil {
		return nil, err
	}
	rows, err := tx.QueryContext(ctx,
		`SELECT `+allocationColumns+` FROM seat_allocations a
		 WHERE a.`+col+` = ? AND a.released_at IS NULL ORDER BY a.seat_id, a.id`+r.dialect.lockSuffix(), ref.ID)
	if err != nil {
		return nil, err
	}
	return scanAllocations(rows)
}

// ActiveForOccupant is the read-only variant of ActiveForOccupantTx.
func (r *AllocationRepo) ActiveForOccupant(ctx context.Context, ref model.OccupantRef) ([]model.SeatAllocation, error) {
	col, err := occupantColumn(ref.Kind)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+allocationColumns+` FROM seat_allocations a
		 WHERE a.`+col+` = ? AND a.released_at IS NULL ORDER BY a.seat_id, a.id`, ref.ID)
	if err != nil {
		return nil, err
	}
	return scanAllocations(rows)
}

// HasOverlapTx reports whether an active claim on seatID overlaps
// [start, end).  The test is half-open, so a claim ending exactly at start
// does not conflict.  On MySQL it is a locking read so it sees claims
// committed after the transaction's snapshot was taken.
func (r *AllocationRepo) HasOverlapTx(ctx context.Context, tx *sql.Tx, seatID uint64, start, end time.Time) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM seat_allocations
		 WHERE seat_id = ? AND released_at IS NULL AND start_at < ? AND end_at > ?
		 LIMIT 1`+r.dialect.lockSuffix(), seatID, formatTime(end), formatTime(start)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// OverlappingSeatsTx returns, in ascending order, the seats among seatIDs
// that have an active claim overlapping [start, end).
func (r *AllocationRepo) OverlappingSeatsTx(ctx context.Context, tx *sql.Tx, seatIDs []uint64, start, end time.Time) ([]uint64, error) {
	if len(seatIDs) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(seatIDs)+2)
	for _, id := range seatIDs {
		args = append(args, id)
	}
	args = append(args, formatTime(end), formatTime(start))
	rows, err := tx.QueryContext(ctx,
		`SELECT seat_id FROM seat_allocations
		 WHERE seat_id IN (`+placeholders(len(seatIDs))+`) AND released_at IS NULL AND start_at < ? AND end_at > ?`+
			r.dialect.lockSuffix(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return SortedUnique(out), nil
}

// CreateTx inserts an active claim.  The caller must already hold the seat
// lock and have checked for overlap in the same transaction.
func (r *AllocationRepo) CreateTx(ctx context.Context, tx *sql.Tx, seatID uint64, ref model.OccupantRef, start, end, now time.Time) (*model.SeatAllocation, error) {
	if !end.After(start) {
		return nil, Validationf("claim end must be after start")
	}
	col, err := occupantColumn(ref.Kind)
	if err != nil {
		return nil, err
	}
	start, end, now = start.UTC().Truncate(time.Second), end.UTC().Truncate(time.Second), now.UTC().Truncate(time.Second)
	res, err := tx.ExecContext(ctx,
		`INSERT INTO seat_allocations (seat_id, `+col+`, start_at, end_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		seatID, ref.ID, formatTime(start), formatTime(end), formatTime(now))
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &model.SeatAllocation{
		ID:        uint64(id),
		SeatID:    seatID,
		Occupant:  ref,
		StartAt:   start,
		EndAt:     end,
		CreatedAt: now,
	}, nil
}

// Get loads a claim by id, active or released.
func (r *AllocationRepo) Get(ctx context.Context, id uint64) (*model.SeatAllocation, error) {
	var s allocationScan
	err := r.db.QueryRowContext(ctx, `SELECT `+allocationColumns+` FROM seat_allocations a WHERE a.id = ?`, id).Scan(s.dest()...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: claim %d", ErrNotFound, id)
		}
		return nil, err
	}
	a := s.claim()
	return &a, nil
}

// GetForUpdateTx loads and locks a claim by id.
func (r *AllocationRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.SeatAllocation, error) {
	var s allocationScan
	err := tx.QueryRowContext(ctx,
		`SELECT `+allocationColumns+` FROM seat_allocations a WHERE a.id = ?`+r.dialect.lockSuffix(), id).Scan(s.dest()...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: claim %d", ErrNotFound, id)
		}
		return nil, err
	}
	a := s.claim()
	return &a, nil
}

// ReleaseTx stamps released_at on an active claim.  Releasing a claim that
// is already released is a no-op and reports false.
func (r *AllocationRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, id uint64, now time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE seat_allocations SET released_at = ? WHERE id = ? AND released_at IS NULL`, formatTime(now), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ReleaseForOccupantTx releases every active claim of the occupant and
// returns how many were released.
func (r *AllocationRepo) ReleaseForOccupantTx(ctx context.Context, tx *sql.Tx, ref model.OccupantRef, now time.Time) (int64, error) {
	col, err := occupantColumn(ref.Kind)
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE seat_allocations SET released_at = ? WHERE `+col+` = ? AND released_at IS NULL`, formatTime(now), ref.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountActiveForOccupantTx counts the occupant's active claims.
func (r *AllocationRepo) CountActiveForOccupantTx(ctx context.Context, tx *sql.Tx, ref model.OccupantRef) (int, error) {
	col, err := occupantColumn(ref.Kind)
	if err != nil {
		return 0, err
	}
	var n int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM seat_allocations WHERE `+col+` = ? AND released_at IS NULL`, ref.ID).Scan(&n)
	return n, err
}

// List returns claims matching f joined with seat and occupant details,
// ordered by start time then seat.
func (r *AllocationRepo) List(ctx context.Context, f ClaimFilter) ([]ClaimView, error) {
	q := `SELECT ` + allocationColumns + `, s.label,
	             COALESCE(res.contact_name, w.contact_name, ''),
	             COALESCE(res.party_size, w.party_size, 0),
	             COALESCE(res.status, w.status, '')
	      FROM seat_allocations a
	      JOIN seats s ON s.id = a.seat_id
	      LEFT JOIN reservations res ON res.id = a.reservation_id
	      LEFT JOIN waitlist_entries w ON w.id = a.waitlist_entry_id
	      WHERE 1 = 1`
	var args []any
	if !f.IncludeReleased {
		q += ` AND a.released_at IS NULL`
	}
	if f.To != nil {
		q += ` AND a.start_at < ?`
		args = append(args, formatTime(*f.To))
	}
	if f.From != nil {
		q += ` AND a.end_at > ?`
		args = append(args, formatTime(*f.From))
	}
	if f.SeatID != nil {
		q += ` AND a.seat_id = ?`
		args = append(args, *f.SeatID)
	}
	if f.Occupant != nil {
		col, err := occupantColumn(f.Occupant.Kind)
		if err != nil {
			return nil, err
		}
		q += ` AND a.` + col + ` = ?`
		args = append(args, f.Occupant.ID)
	}
	q += ` ORDER BY a.start_at, a.seat_id, a.id`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ClaimView
	for rows.Next() {
		var (
			s      allocationScan
			v      ClaimView
			status string
		)
		dest := append(s.dest(), &v.SeatLabel, &v.OccupantName, &v.OccupantPartySize, &status)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		v.SeatAllocation = s.claim()
		v.OccupantStatus = model.Status(status)
		out = append(out, v)
	}
	return out, rows.Err()
}

// ActiveWindows returns one window per active claim overlapping [from, to)
// with the owning occupant's party size.  A party spread over several
// seats appears once per seat; callers count each occupant once.
func (r *AllocationRepo) ActiveWindows(ctx context.Context, from, to time.Time) ([]OccupancyWindow, error) {
	const q = `SELECT a.reservation_id, a.waitlist_entry_id, a.start_at, a.end_at,
	                  COALESCE(res.party_size, w.party_size, 0)
	           FROM seat_allocations a
	           LEFT JOIN reservations res ON res.id = a.reservation_id
	           LEFT JOIN waitlist_entries w ON w.id = a.waitlist_entry_id
	           WHERE a.released_at IS NULL AND a.start_at < ? AND a.end_at > ?
	           ORDER BY a.start_at`
	rows, err := r.db.QueryContext(ctx, q, formatTime(to), formatTime(from))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []OccupancyWindow
	for rows.Next() {
		var (
			w             OccupancyWindow
			resID, waitID sql.NullInt64
			start, end    dbTime
		)
		if err := rows.Scan(&resID, &waitID, &start, &end, &w.PartySize); err != nil {
			return nil, err
		}
		if resID.Valid {
			w.Occupant = model.OccupantRef{Kind: model.KindReservation, ID: uint64(resID.Int64)}
		} else {
			w.Occupant = model.OccupantRef{Kind: model.KindWaitlist, ID: uint64(waitID.Int64)}
		}
		w.Start, w.End = start.t, end.t
		out = append(out, w)
	}
	return out, rows.Err()
}

// OccupiedSeatIDs returns the seats with an active claim covering at.
// Seat occupancy is always derived this way and never stored.
func (r *AllocationRepo) OccupiedSeatIDs(ctx context.Context, at time.Time) (map[uint64]bool, error) {
	ts := formatTime(at)
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT seat_id FROM seat_allocations WHERE released_at IS NULL AND start_at <= ? AND end_at > ?`,
		ts, ts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[uint64]bool{}
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

// SortedUnique returns ids ascending without duplicates.  Seat locks are
// always taken in this order.
func SortedUnique(ids []uint64) []uint64 {
	out := append([]uint64(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	n := 0
	for i, id := range out {
		if i == 0 || id != out[n-1] {
			out[n] = id
			n++
		}
	}
	return out[:n]
}
