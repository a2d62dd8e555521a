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

func newStudentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func studentRows(id string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "email", "major", "year", "status", "gpa", "advisor", "created_at", "updated_at"}).
		AddRow(id, "Ada Lovelace", "ada@campus.edu", "Mathematics", 2, "active", 3.9, "Prof. Babbage", time.Now(), time.Now())
}

func TestStudentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, email, major, year, status, gpa, advisor, created_at, updated_at FROM students WHERE id = $1")).
		WithArgs("stu-1").
		WillReturnRows(studentRows("stu-1"))

	student, err := repo.FindByID(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Equal(t, "ada@campus.edu", student.Email)
	require.NotNil(t, student.GPA)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListWithSearch(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("(name ILIKE $1 OR email ILIKE $1)")).
		WithArgs("%ada%").
		WillReturnRows(studentRows("stu-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students")).
		WithArgs("%ada%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{Search: "ada"})
	require.NoError(t, err)
	require.Len(t, students, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateGPA(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	gpa := 3.67
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET gpa = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("stu-1", &gpa, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateGPA(context.Background(), "stu-1", &gpa))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateGPAClearsWithNil(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET gpa = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("stu-1", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateGPA(context.Background(), "stu-1", nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateGPAMissingStudent(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	gpa := 2.5
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET gpa = $2")).
		WithArgs("missing", &gpa, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateGPA(context.Background(), "missing", &gpa)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDeleteCascades(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enrollments WHERE student_id = $1")).
		WithArgs("stu-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET student_id = NULL WHERE student_id = $1")).
		WithArgs("stu-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students WHERE id = $1")).
		WithArgs("stu-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "stu-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
