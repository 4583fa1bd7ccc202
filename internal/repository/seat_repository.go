package repository // repository defines data access for the seat inventory

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives
	"errors"
	"fmt"

	"github.com/iliyamo/restaurant-seating/internal/model"
)

// SeatRepo provides methods to work with seats and sections.  Layout
// editing owns the seat rows; the seating core only reads them, except
// for the Create helpers used by the seed command and tests.
type SeatRepo struct {
	db      *sql.DB
	dialect Dialect
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB, dialect Dialect) *SeatRepo {
	return &SeatRepo{db: db, dialect: dialect}
}

// CreateSection inserts a section. On success the section's ID is populated.
func (r *SeatRepo) CreateSection(ctx context.Context, s *model.SeatSection) error {
	if s.SectionType == "" {
		s.SectionType = "table"
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO seat_sections (name, section_type) VALUES (?, ?)`, s.Name, s.SectionType)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// Create inserts a single seat record. On success the seat's ID is populated.
func (r *SeatRepo) Create(ctx context.Context, s *model.Seat) error {
	if s.Capacity < 1 {
		return Validationf("seat capacity must be at least 1")
	}
	const q = `INSERT INTO seats (section_id, label, capacity, is_active) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, s.SectionID, s.Label, s.Capacity, s.IsActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// SetActive flips the soft-delete flag on a seat.
func (r *SeatRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE seats SET is_active = ?, updated_at = ? WHERE id = ?`, active, formatTime(nowUTC()), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: seat %d", ErrNotFound, id)
	}
	return nil
}

const seatColumns = `id, section_id, label, capacity, is_active`

func scanSeats(rows *sql.Rows) ([]model.Seat, error) {
	defer rows.Close()
	var result []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.SectionID, &s.Label, &s.Capacity, &s.IsActive); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetByID retrieves a seat by id, active or not.
func (r *SeatRepo) GetByID(ctx context.Context, id uint64) (*model.Seat, error) {
	var s model.Seat
	err := r.db.QueryRowContext(ctx, `SELECT `+seatColumns+` FROM seats WHERE id = ?`, id).
		Scan(&s.ID, &s.SectionID, &s.Label, &s.Capacity, &s.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: seat %d", ErrNotFound, id)
		}
		return nil, err
	}
	return &s, nil
}

// ListActive returns every active seat ordered by section then id, which
// is the order the floor plan and the consecutive-seat scan both use.
func (r *SeatRepo) ListActive(ctx context.Context) ([]model.Seat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+seatColumns+` FROM seats WHERE is_active = 1 ORDER BY section_id, id`)
	if err != nil {
		return nil, err
	}
	return scanSeats(rows)
}

// ListSections returns all sections ordered by id.
func (r *SeatRepo) ListSections(ctx context.Context) ([]model.SeatSection, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, section_type FROM seat_sections ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SeatSection
	for rows.Next() {
		var s model.SeatSection
		if err := rows.Scan(&s.ID, &s.Name, &s.SectionType); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// TotalCapacity sums the capacity of all active seats.
func (r *SeatRepo) TotalCapacity(ctx context.Context) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(capacity), 0) FROM seats WHERE is_active = 1`).Scan(&total)
	return total, err
}

// LockByIDsTx locks the given seats in ascending id order and returns them
// in that order.  Every seat must be active unless held marks it as one
// the occupant already claims; a seat deactivated under a seated party
// stays usable for that party.  Any id that is unknown, or inactive and
// not held, yields ErrNotFound naming the first missing seat.  Every
// admission locks its seats through here, which is what serializes
// competing admissions on the same seat.
func (r *SeatRepo) LockByIDsTx(ctx context.Context, tx *sql.Tx, ids []uint64, held map[uint64]bool) ([]model.Seat, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := `SELECT ` + seatColumns + ` FROM seats WHERE id IN (` + placeholders(len(ids)) +
		`) ORDER BY id` + r.dialect.lockSuffix()
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	seats, err := scanSeats(rows)
	if err != nil {
		return nil, err
	}
	usable := make(map[uint64]bool, len(seats))
	for _, s := range seats {
		usable[s.ID] = s.IsActive || held[s.ID]
	}
	for _, id := range ids {
		if !usable[id] {
			return nil, fmt.Errorf("%w: seat %d", ErrNotFound, id)
		}
	}
	return seats, nil
}

// ListSectionForUpdateTx locks and returns the active seats of a section in
// id order.
func (r *SeatRepo) ListSectionForUpdateTx(ctx context.Context, tx *sql.Tx, sectionID uint64) ([]model.Seat, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+seatColumns+` FROM seats WHERE is_active = 1 AND section_id = ? ORDER BY id`+r.dialect.lockSuffix(),
		sectionID)
	if err != nil {
		return nil, err
	}
	return scanSeats(rows)
}

// GetActiveTx reads one active seat inside tx without locking it.
func (r *SeatRepo) GetActiveTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Seat, error) {
	var s model.Seat
	err := tx.QueryRowContext(ctx, `SELECT `+seatColumns+` FROM seats WHERE id = ? AND is_active = 1`, id).
		Scan(&s.ID, &s.SectionID, &s.Label, &s.Capacity, &s.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: seat %d", ErrNotFound, id)
		}
		return nil, err
	}
	return &s, nil
}
