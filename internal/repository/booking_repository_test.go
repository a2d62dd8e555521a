package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/campusops/uniops-api/internal/models"
	appErrors "github.com/campusops/uniops-api/pkg/errors"
)

func newBookingRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

const conflictPredicate = "((start_time <= $3 AND end_time > $3) OR (start_time < $4 AND end_time >= $4))"

// A booking starting exactly where an existing one ends is admitted.
func TestBookingRepositoryBackToBackBookingAdmitted(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM facilities WHERE id = $1 FOR UPDATE")).
		WithArgs("fac-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("fac-1"))
	mock.ExpectQuery(regexp.QuoteMeta(conflictPredicate)).
		WithArgs("fac-1", "2026-09-01", "11:00", "12:00").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO facility_bookings")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.WithFacilityLock(context.Background(), "fac-1", func(ctx context.Context, tx ReservationTx) error {
		conflict, err := tx.HasConflict(ctx, "fac-1", "2026-09-01", "11:00", "12:00")
		require.NoError(t, err)
		require.False(t, conflict)

		return tx.Insert(ctx, &models.Booking{
			FacilityID:  "fac-1",
			BookedBy:    "user-1",
			Purpose:     "study group",
			BookingDate: "2026-09-01",
			StartTime:   "11:00",
			EndTime:     "12:00",
		})
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

// A booking overlapping the middle of an existing one is rejected and the
// transaction rolled back without an insert.
func TestBookingRepositoryOverlappingBookingRejected(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM facilities WHERE id = $1 FOR UPDATE")).
		WithArgs("fac-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("fac-1"))
	mock.ExpectQuery(regexp.QuoteMeta(conflictPredicate)).
		WithArgs("fac-1", "2026-09-01", "10:30", "11:30").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.WithFacilityLock(context.Background(), "fac-1", func(ctx context.Context, tx ReservationTx) error {
		conflict, err := tx.HasConflict(ctx, "fac-1", "2026-09-01", "10:30", "11:30")
		require.NoError(t, err)
		require.True(t, conflict)
		return appErrors.ErrConflict
	})
	require.ErrorIs(t, err, appErrors.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryWithFacilityLockMissingFacility(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM facilities WHERE id = $1 FOR UPDATE")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	called := false
	err := repo.WithFacilityLock(context.Background(), "missing", func(ctx context.Context, tx ReservationTx) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.False(t, called)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryListFiltersByFacilityAndDate(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	rows := sqlmock.NewRows([]string{"id", "facility_id", "booked_by", "purpose", "booking_date", "start_time", "end_time", "status", "created_at", "facility_name", "booked_by_name"}).
		AddRow("bkg-1", "fac-1", "user-1", "seminar", "2026-09-01", "09:00", "10:00", "confirmed", time.Now(), "Main Hall", "Grace Hopper")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT b.id, b.facility_id")).
		WithArgs("fac-1", "2026-09-01").
		WillReturnRows(rows)

	bookings, err := repo.List(context.Background(), models.BookingFilter{FacilityID: "fac-1", Date: "2026-09-01"})
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	require.Equal(t, "Main Hall", bookings[0].FacilityName)
	require.NoError(t, mock.ExpectationsWereMet())
}
