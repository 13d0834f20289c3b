package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"stolik/internal/models"

	"github.com/google/uuid"
)

const reservationColumns = `id, resource_id, resource_name, date(date), start_minute, end_minute,
                 party_size, user_id, status, created_at, updated_at, version`

// CreateReservation inserts a new row. The caller decides admission; this is
// plain persistence. A missing id is generated here.
func (db *DB) CreateReservation(ctx context.Context, r *models.Reservation) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = models.StatusPending
	}

	query := `INSERT INTO reservations (
				id, resource_id, resource_name, date, start_minute, end_minute,
				party_size, user_id, status, created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	_, err := db.db.ExecContext(ctx, query,
		r.ID,
		r.ResourceID,
		r.ResourceName,
		r.Date.Format(models.DateLayout),
		r.Start,
		r.End,
		r.PartySize,
		r.UserID,
		r.Status,
		now,
		now,
		1,
	)
	if err != nil {
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	r.CreatedAt = now
	r.UpdatedAt = now
	r.Version = 1
	return nil
}

func (db *DB) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	row := db.db.QueryRowContext(ctx, query, id)

	r, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return r, nil
}

// ListActiveByResourceDate returns the conflict set the validator checks
// against: pending and completed reservations for one resource/date.
func (db *DB) ListActiveByResourceDate(ctx context.Context, resourceID int64, date time.Time) ([]models.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
              FROM reservations
              WHERE resource_id = ? AND date(date) = date(?) AND status IN (?, ?)
              ORDER BY start_minute`
	rows, err := db.db.QueryContext(ctx, query,
		resourceID, date.Format(models.DateLayout),
		models.StatusPending, models.StatusCompleted,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list active reservations: %w", err)
	}
	defer rows.Close()

	return collectReservations(rows)
}

// ListReservations applies the optional filter fields.
func (db *DB) ListReservations(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, error) {
	var (
		conds []string
		args  []any
	)
	if filter.ResourceID != 0 {
		conds = append(conds, "resource_id = ?")
		args = append(args, filter.ResourceID)
	}
	if !filter.Date.IsZero() {
		conds = append(conds, "date(date) = date(?)")
		args = append(args, filter.Date.Format(models.DateLayout))
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, filter.UserID)
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY date, start_minute, created_at"

	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	return collectReservations(rows)
}

// ListExpiredPending returns pending reservations whose day is before the
// cutoff. Used by the completion sweeper.
func (db *DB) ListExpiredPending(ctx context.Context, cutoff time.Time) ([]models.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
              FROM reservations
              WHERE status = ? AND date(date) < date(?)
              ORDER BY date`
	rows, err := db.db.QueryContext(ctx, query, models.StatusPending, cutoff.Format(models.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to list expired reservations: %w", err)
	}
	defer rows.Close()

	return collectReservations(rows)
}

// TransitionStatus moves a pending reservation to a terminal status. The
// guard is the UPDATE predicate itself: a row that is no longer pending is
// left untouched and the caller gets the precise terminal-state error, so
// two racing transitions can never both win.
func (db *DB) TransitionStatus(ctx context.Context, id, to string) (*models.Reservation, error) {
	if !models.IsTerminalStatus(to) {
		return nil, fmt.Errorf("illegal transition target %q", to)
	}

	query := `UPDATE reservations SET status = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND status = ?`
	result, err := db.db.ExecContext(ctx, query, to, time.Now(), id, models.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to transition reservation: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		current, err := db.GetReservation(ctx, id)
		if err != nil {
			return nil, err
		}
		switch current.Status {
		case models.StatusCanceled:
			return nil, ErrAlreadyCanceled
		case models.StatusCompleted:
			return nil, ErrAlreadyCompleted
		default:
			return nil, fmt.Errorf("reservation %s in unexpected status %s", id, current.Status)
		}
	}

	return db.GetReservation(ctx, id)
}

// DeleteReservation removes the row outright. Lifecycle legality (terminal
// only, unless privileged) is enforced by the service.
func (db *DB) DeleteReservation(ctx context.Context, id string) error {
	result, err := db.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrReservationNotFound
	}
	return nil
}

// GetDayOccupancy builds the availability read model for one resource/date.
func (db *DB) GetDayOccupancy(ctx context.Context, resourceID int64, date time.Time) (*models.DayOccupancy, error) {
	resource, err := db.GetResource(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	active, err := db.ListActiveByResourceDate(ctx, resourceID, date)
	if err != nil {
		return nil, err
	}

	return models.NewDayOccupancy(resource, date, active), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*models.Reservation, error) {
	var (
		r          models.Reservation
		resourceID sql.NullInt64
		dateStr    string
	)
	err := row.Scan(
		&r.ID, &resourceID, &r.ResourceName, &dateStr, &r.Start, &r.End,
		&r.PartySize, &r.UserID, &r.Status, &r.CreatedAt, &r.UpdatedAt, &r.Version,
	)
	if err != nil {
		return nil, err
	}

	if resourceID.Valid {
		r.ResourceID = resourceID.Int64
	}
	r.Date, err = time.Parse(models.DateLayout, dateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse reservation date %s: %w", dateStr, err)
	}
	return &r, nil
}

func collectReservations(rows *sql.Rows) ([]models.Reservation, error) {
	var reservations []models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, *r)
	}
	return reservations, rows.Err()
}
