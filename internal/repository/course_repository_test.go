package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/campusops/uniops-api/internal/models"
)

func newCourseRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func courseRows(pairs ...[2]string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "code", "title", "instructor", "credits", "capacity", "course_type", "department", "schedule_day", "schedule_time", "schedule_location", "created_at", "updated_at"})
	for _, p := range pairs {
		rows.AddRow(p[0], p[1], "Title", "Prof. Knuth", 3, 30, "core", "CS", nil, nil, nil, time.Now(), time.Now())
	}
	return rows
}

func TestCourseRepositoryFindByCodes(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE code IN ($1, $2)")).
		WithArgs("CS101", "MATH201").
		WillReturnRows(courseRows([2]string{"crs-1", "CS101"}, [2]string{"crs-2", "MATH201"}))

	courses, err := repo.FindByCodes(context.Background(), []string{"CS101", "MATH201"})
	require.NoError(t, err)
	require.Len(t, courses, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFindByCodesEmptyInput(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	courses, err := repo.FindByCodes(context.Background(), nil)
	require.NoError(t, err)
	require.Nil(t, courses)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListByCodeAsc(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM courses ORDER BY code ASC LIMIT $1")).
		WithArgs(3).
		WillReturnRows(courseRows([2]string{"crs-1", "CS101"}, [2]string{"crs-2", "CS102"}, [2]string{"crs-3", "CS103"}))

	courses, err := repo.ListByCodeAsc(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, courses, 3)
	require.Equal(t, "CS101", courses[0].Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryCreateUppercasesCode(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO courses")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	course := &models.Course{Code: "cs101", Title: "Intro to Computing", Instructor: "Prof. Knuth", Credits: 3, Capacity: 30, CourseType: "core"}
	require.NoError(t, repo.Create(context.Background(), course))
	require.Equal(t, "CS101", course.Code)
	require.NotEmpty(t, course.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
