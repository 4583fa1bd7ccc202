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

const waitlistColumns = `id, party_size, contact_name, contact_phone, check_in_time, status, created_at, updated_at`

// CreateWaitlistEntry checks a walk-in party onto the list in status
// waiting.  A zero CheckInTime means now.
func (r *OccupantRepo) CreateWaitlistEntry(ctx context.Context, w *model.WaitlistEntry) error {
	if w.PartySize <= 0 {
		return Validationf("party_size must be positive")
	}
	if strings.TrimSpace(w.ContactName) == "" {
		return Validationf("contact_name is required")
	}
	now := nowUTC().Truncate(time.Second)
	if w.CheckInTime.IsZero() {
		w.CheckInTime = now
	}
	w.CheckInTime = w.CheckInTime.UTC().Truncate(time.Second)
	w.Status = model.StatusWaiting
	const q = `INSERT INTO waitlist_entries (party_size, contact_name, contact_phone, check_in_time, status, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q, w.PartySize, w.ContactName, w.ContactPhone,
		formatTime(w.CheckInTime), string(w.Status), formatTime(now), formatTime(now))
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	w.ID = uint64(id)
	w.CreatedAt, w.UpdatedAt = now, now
	return nil
}

// GetWaitlistEntry loads a waitlist entry by id.
func (r *OccupantRepo) GetWaitlistEntry(ctx context.Context, id uint64) (*model.WaitlistEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+waitlistColumns+` FROM waitlist_entries WHERE id = ?`, id)
	return scanWaitlistEntry(row, id)
}

func (r *OccupantRepo) waitlistEntryTx(ctx context.Context, tx *sql.Tx, id uint64, lock string) (*model.WaitlistEntry, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+waitlistColumns+` FROM waitlist_entries WHERE id = ?`+lock, id)
	return scanWaitlistEntry(row, id)
}

func scanWaitlistEntry(row *sql.Row, id uint64) (*model.WaitlistEntry, error) {
	var (
		w                         model.WaitlistEntry
		checkIn, created, updated dbTime
		status                    string
	)
	err := row.Scan(&w.ID, &w.PartySize, &w.ContactName, &w.ContactPhone, &checkIn, &status, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: waitlist entry %d", ErrNotFound, id)
		}
		return nil, err
	}
	w.CheckInTime = checkIn.t
	w.Status = model.Status(status)
	w.CreatedAt, w.UpdatedAt = created.t, updated.t
	return &w, nil
}

// ListWaiting returns the parties still waiting, longest wait first.
func (r *OccupantRepo) ListWaiting(ctx context.Context) ([]model.WaitlistEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+waitlistColumns+` FROM waitlist_entries WHERE status = ? ORDER BY check_in_time, id`,
		string(model.StatusWaiting))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.WaitlistEntry
	for rows.Next() {
		var (
			w                         model.WaitlistEntry
			checkIn, created, updated dbTime
			status                    string
		)
		if err := rows.Scan(&w.ID, &w.PartySize, &w.ContactName, &w.ContactPhone, &checkIn, &status, &created, &updated); err != nil {
			return nil, err
		}
		w.CheckInTime = checkIn.t
		w.Status = model.Status(status)
		w.CreatedAt, w.UpdatedAt = created.t, updated.t
		out = append(out, w)
	}
	return out, rows.Err()
}
