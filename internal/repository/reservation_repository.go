package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/restaurant-seating/internal/model"
)

const reservationColumns = `id, start_time, end_time, party_size, contact_name, contact_phone, contact_email,
       special_requests, status, created_at, updated_at`

// CreateReservation inserts a validated reservation in status booked and
// populates its ID and timestamps.  Booking intake is the only caller; the
// seating core never creates occupants itself.
func (r *OccupantRepo) CreateReservation(ctx context.Context, res *model.Reservation) error {
	if err := validateReservation(res); err != nil {
		return err
	}
	now := nowUTC().Truncate(time.Second)
	res.StartTime = res.StartTime.UTC().Truncate(time.Second)
	var end any
	if res.EndTime != nil {
		e := res.EndTime.UTC().Truncate(time.Second)
		res.EndTime = &e
		end = formatTime(e)
	}
	res.Status = model.StatusBooked
	const q = `INSERT INTO reservations
	           (start_time, end_time, party_size, contact_name, contact_phone, contact_email, special_requests, status, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q,
		formatTime(res.StartTime), end, res.PartySize, res.ContactName, res.ContactPhone, res.ContactEmail,
		res.SpecialRequests, string(res.Status), formatTime(now), formatTime(now))
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	res.CreatedAt, res.UpdatedAt = now, now
	return nil
}

func validateReservation(res *model.Reservation) error {
	if res.PartySize <= 0 {
		return Validationf("party_size must be positive")
	}
	if strings.TrimSpace(res.ContactName) == "" {
		return Validationf("contact_name is required")
	}
	if res.StartTime.IsZero() {
		return Validationf("start_time is required")
	}
	if res.EndTime != nil && !res.EndTime.After(res.StartTime) {
		return Validationf("end_time must be after start_time")
	}
	return nil
}

// GetReservation loads a reservation by id.
func (r *OccupantRepo) GetReservation(ctx context.Context, id uint64) (*model.Reservation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	return scanReservation(row, id)
}

func (r *OccupantRepo) reservationTx(ctx context.Context, tx *sql.Tx, id uint64, lock string) (*model.Reservation, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`+lock, id)
	return scanReservation(row, id)
}

func scanReservation(row *sql.Row, id uint64) (*model.Reservation, error) {
	var (
		res                     model.Reservation
		start, created, updated dbTime
		end                     nullDBTime
		requests                sql.NullString
		status                  string
	)
	err := row.Scan(&res.ID, &start, &end, &res.PartySize, &res.ContactName, &res.ContactPhone, &res.ContactEmail,
		&requests, &status, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: reservation %d", ErrNotFound, id)
		}
		return nil, err
	}
	res.StartTime, res.EndTime = start.t, end.ptr()
	res.SpecialRequests = requests.String
	res.Status = model.Status(status)
	res.CreatedAt, res.UpdatedAt = created.t, updated.t
	return &res, nil
}

// BookedWindows returns reservations still in status booked whose
// requested window overlaps [from, to).  A reservation without an end time
// is taken to last defaultDuration.  Booked reservations hold no claims
// yet, but availability still counts them as committed.
func (r *OccupantRepo) BookedWindows(ctx context.Context, from, to time.Time, defaultDuration time.Duration) ([]OccupancyWindow, error) {
	const q = `SELECT id, party_size, start_time, end_time FROM reservations
	           WHERE status = ? AND start_time < ?
	             AND ((end_time IS NOT NULL AND end_time > ?) OR (end_time IS NULL AND start_time > ?))`
	rows, err := r.db.QueryContext(ctx, q, string(model.StatusBooked),
		formatTime(to), formatTime(from), formatTime(from.Add(-defaultDuration)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []OccupancyWindow
	for rows.Next() {
		var (
			w     OccupancyWindow
			start dbTime
			end   nullDBTime
		)
		if err := rows.Scan(&w.Occupant.ID, &w.PartySize, &start, &end); err != nil {
			return nil, err
		}
		w.Occupant.Kind = model.KindReservation
		w.Start = start.t
		if end.valid {
			w.End = end.t
		} else {
			w.End = start.t.Add(defaultDuration)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
