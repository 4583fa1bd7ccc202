package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/restaurant-seating/internal/model"
)

// OccupantRepo persists the two occupant kinds.  Reservation and waitlist
// specific queries live in reservation_repository.go and
// waitlist_repository.go; this file holds the kind-agnostic entry points
// the admission controller works through.
type OccupantRepo struct {
	db      *sql.DB
	dialect Dialect
}

// NewOccupantRepo returns a new OccupantRepo bound to the given database.
func NewOccupantRepo(db *sql.DB, dialect Dialect) *OccupantRepo {
	return &OccupantRepo{db: db, dialect: dialect}
}

// occupantTable maps a kind to its table.  Only the two known kinds reach
// SQL text.
func occupantTable(kind model.OccupantKind) (string, error) {
	switch kind {
	case model.KindReservation:
		return "reservations", nil
	case model.KindWaitlist:
		return "waitlist_entries", nil
	}
	return "", Validationf("unknown occupant type %q", kind)
}

// Get loads an occupant outside any transaction.
func (r *OccupantRepo) Get(ctx context.Context, ref model.OccupantRef) (model.Occupant, error) {
	switch ref.Kind {
	case model.KindReservation:
		res, err := r.GetReservation(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return res, nil
	case model.KindWaitlist:
		w, err := r.GetWaitlistEntry(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return w, nil
	}
	return nil, Validationf("unknown occupant type %q", ref.Kind)
}

// GetForUpdateTx loads and locks the occupant row.  It is always the first
// lock an admission takes.
func (r *OccupantRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, ref model.OccupantRef) (model.Occupant, error) {
	switch ref.Kind {
	case model.KindReservation:
		res, err := r.reservationTx(ctx, tx, ref.ID, r.dialect.lockSuffix())
		if err != nil {
			return nil, err
		}
		return res, nil
	case model.KindWaitlist:
		w, err := r.waitlistEntryTx(ctx, tx, ref.ID, r.dialect.lockSuffix())
		if err != nil {
			return nil, err
		}
		return w, nil
	}
	return nil, Validationf("unknown occupant type %q", ref.Kind)
}

// UpdateStatusTx moves an occupant from one status to another.  The
// transition must be legal for the kind, and the row must still be in
// from; a row that moved underneath the caller yields ErrInvalidTransition.
func (r *OccupantRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, ref model.OccupantRef, from, to model.Status, now time.Time) error {
	if err := model.CheckTransition(ref.Kind, from, to); err != nil {
		return err
	}
	table, err := occupantTable(ref.Kind)
	if err != nil {
		return err
	}
	q := `UPDATE ` + table + ` SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	res, err := tx.ExecContext(ctx, q, string(to), formatTime(now), ref.ID, string(from))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s is no longer %s", ErrInvalidTransition, ref, from)
	}
	return nil
}
