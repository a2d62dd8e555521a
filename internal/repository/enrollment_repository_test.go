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
)

func newEnrollmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryCurrentLoadCountsActiveOnly(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"course_count", "credit_total"}).AddRow(5, 15)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) AS course_count, COALESCE(SUM(c.credits), 0) AS credit_total")).
		WithArgs("stu-1").
		WillReturnRows(rows)

	load, err := repo.CurrentLoad(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Equal(t, 5, load.CourseCount)
	require.Equal(t, 15, load.CreditTotal)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryWithStudentLockAdmits(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM students WHERE id = $1 FOR UPDATE")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("stu-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 LIMIT 1")).
		WithArgs("stu-1", "crs-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) AS course_count, COALESCE(SUM(c.credits), 0) AS credit_total")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"course_count", "credit_total"}).AddRow(3, 9))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.WithStudentLock(context.Background(), "stu-1", func(ctx context.Context, tx AdmissionTx) error {
		exists, err := tx.PairExists(ctx, "stu-1", "crs-1")
		require.NoError(t, err)
		require.False(t, exists)

		load, err := tx.CurrentLoad(ctx, "stu-1")
		require.NoError(t, err)
		require.Equal(t, 3, load.CourseCount)

		return tx.Insert(ctx, &models.Enrollment{StudentID: "stu-1", CourseID: "crs-1"})
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryWithStudentLockMissingStudent(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM students WHERE id = $1 FOR UPDATE")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	called := false
	err := repo.WithStudentLock(context.Background(), "missing", func(ctx context.Context, tx AdmissionTx) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.False(t, called)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryWithStudentLockRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM students WHERE id = $1 FOR UPDATE")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("stu-1"))
	mock.ExpectRollback()

	sentinel := sql.ErrTxDone
	err := repo.WithStudentLock(context.Background(), "stu-1", func(ctx context.Context, tx AdmissionTx) error {
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryGradeSummary(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"total_points", "total_credits"}).AddRow(36.9, 12)
	mock.ExpectQuery(regexp.QuoteMeta("AS total_points")).
		WithArgs("stu-1").
		WillReturnRows(rows)

	summary, err := repo.GradeSummary(context.Background(), "stu-1")
	require.NoError(t, err)
	require.InDelta(t, 36.9, summary.TotalPoints, 0.0001)
	require.InDelta(t, 12, summary.TotalCredits, 0.0001)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateGradeWithPublish(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	letter := "A"
	points := 4.0
	publish := true
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET status = $2, grade_letter = $3, grade_points = $4, updated_at = $5, grade_released = $6 WHERE id = $1")).
		WithArgs("enr-1", models.EnrollmentStatusCompleted, &letter, &points, sqlmock.AnyArg(), true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateGrade(context.Background(), "enr-1", models.EnrollmentStatusCompleted, &letter, &points, &publish)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateGradeLeavesReleaseUntouched(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	letter := "B"
	points := 3.0
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET status = $2, grade_letter = $3, grade_points = $4, updated_at = $5 WHERE id = $1")).
		WithArgs("enr-1", models.EnrollmentStatusEnrolled, &letter, &points, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateGrade(context.Background(), "enr-1", models.EnrollmentStatusEnrolled, &letter, &points, nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "student_id", "course_id", "status", "grade_letter", "grade_points", "grade_released", "created_at", "updated_at", "student_name", "course_code", "course_title", "credits"}).
		AddRow("enr-1", "stu-1", "crs-1", "enrolled", nil, nil, false, now, now, "Ada Lovelace", "CS101", "Intro to Computing", 3)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT e.id, e.student_id, e.course_id")).
		WithArgs("stu-1").
		WillReturnRows(rows)

	enrollments, err := repo.ListByStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	require.Equal(t, "CS101", enrollments[0].CourseCode)
	require.NoError(t, mock.ExpectationsWereMet())
}
