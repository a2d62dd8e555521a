package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusops/uniops-api/internal/models"
)

const bookingDetailSelect = `SELECT b.id, b.facility_id, b.booked_by, b.purpose, b.booking_date, b.start_time,
        b.end_time, b.status, b.created_at,
        f.name AS facility_name, u.full_name AS booked_by_name
        FROM facility_bookings b
        JOIN facilities f ON f.id = b.facility_id
        JOIN users u ON u.id = b.booked_by`

// The overlap predicate is deliberately asymmetric: a booking that starts
// exactly at an existing end is admitted, one that ends exactly at an existing
// end is rejected. It mirrors the reservation ledger this system replaced and
// must not be rewritten as a symmetric interval-overlap test.
const bookingConflictQuery = `SELECT 1 FROM facility_bookings
        WHERE facility_id = $1 AND booking_date = $2 AND status <> 'cancelled'
        AND ((start_time <= $3 AND end_time > $3) OR (start_time < $4 AND end_time >= $4))
        LIMIT 1`

// ReservationTx exposes the conflict read and the insert permitted inside a
// facility-locked booking transaction.
type ReservationTx interface {
	HasConflict(ctx context.Context, facilityID, date, start, end string) (bool, error)
	Insert(ctx context.Context, booking *models.Booking) error
}

// BookingRepository handles persistence of facility bookings.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository constructs the repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// WithFacilityLock runs fn inside a transaction holding a row lock on the
// facility, serialising concurrent reservation attempts for the same space.
// Returns sql.ErrNoRows when the facility does not exist.
func (r *BookingRepository) WithFacilityLock(ctx context.Context, facilityID string, fn func(ctx context.Context, tx ReservationTx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reservation: %w", err)
	}

	var locked string
	if err := tx.GetContext(ctx, &locked, "SELECT id FROM facilities WHERE id = $1 FOR UPDATE", facilityID); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := fn(ctx, &reservationTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reservation: %w", err)
	}
	return nil
}

type reservationTx struct {
	tx *sqlx.Tx
}

func (t *reservationTx) HasConflict(ctx context.Context, facilityID, date, start, end string) (bool, error) {
	var found int
	err := t.tx.GetContext(ctx, &found, bookingConflictQuery, facilityID, date, start, end)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check booking conflict: %w", err)
	}
	return true, nil
}

func (t *reservationTx) Insert(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	booking.CreatedAt = time.Now().UTC()
	if booking.Status == "" {
		booking.Status = models.BookingStatusPending
	}
	const query = `INSERT INTO facility_bookings (id, facility_id, booked_by, purpose, booking_date, start_time, end_time, status, created_at)
        VALUES (:id, :facility_id, :booked_by, :purpose, :booking_date, :start_time, :end_time, :status, :created_at)`
	if _, err := t.tx.NamedExecContext(ctx, query, booking); err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// List returns booking detail rows, optionally filtered by facility and date.
func (r *BookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]models.BookingDetail, error) {
	var conditions []string
	var args []interface{}

	if filter.FacilityID != "" {
		conditions = append(conditions, fmt.Sprintf("b.facility_id = $%d", len(args)+1))
		args = append(args, filter.FacilityID)
	}
	if filter.Date != "" {
		conditions = append(conditions, fmt.Sprintf("b.booking_date = $%d", len(args)+1))
		args = append(args, filter.Date)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	query := bookingDetailSelect + clause + " ORDER BY b.booking_date, b.start_time"
	var bookings []models.BookingDetail
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

// FindDetailByID returns a booking with facility and requester context.
func (r *BookingRepository) FindDetailByID(ctx context.Context, id string) (*models.BookingDetail, error) {
	query := bookingDetailSelect + " WHERE b.id = $1"
	var detail models.BookingDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}
