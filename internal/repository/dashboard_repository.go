package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campusops/uniops-api/internal/models"
)

const dashboardTotalsQuery = `SELECT
        (SELECT COUNT(*) FROM students) AS students,
        (SELECT COUNT(*) FROM students WHERE status = 'active') AS active_students,
        (SELECT COUNT(*) FROM students WHERE status = 'probation') AS probation_students,
        (SELECT COUNT(*) FROM courses) AS courses,
        (SELECT COUNT(*) FROM enrollments WHERE status IN ('enrolled', 'waitlisted')) AS enrollments`

const topCoursesQuery = `SELECT c.id AS course_id, c.code, c.title, c.instructor, c.capacity,
        COUNT(*) FILTER (WHERE e.status = 'enrolled') AS enrolled,
        COUNT(*) FILTER (WHERE e.status = 'waitlisted') AS waitlisted
        FROM courses c
        JOIN enrollments e ON e.course_id = c.id
        WHERE e.status IN ('enrolled', 'waitlisted')
        GROUP BY c.id, c.code, c.title, c.instructor, c.capacity
        ORDER BY COUNT(*) DESC, c.code ASC
        LIMIT $1`

// DashboardRepository aggregates headline counters for the dashboard.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository constructs the repository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Totals returns the headline counters.
func (r *DashboardRepository) Totals(ctx context.Context) (models.DashboardTotals, error) {
	var totals models.DashboardTotals
	if err := r.db.GetContext(ctx, &totals, dashboardTotalsQuery); err != nil {
		return models.DashboardTotals{}, fmt.Errorf("dashboard totals: %w", err)
	}
	return totals, nil
}

// TopCourses ranks courses by active headcount.
func (r *DashboardRepository) TopCourses(ctx context.Context, limit int) ([]models.CourseEnrollmentStat, error) {
	if limit <= 0 {
		limit = 5
	}
	var stats []models.CourseEnrollmentStat
	if err := r.db.SelectContext(ctx, &stats, topCoursesQuery, limit); err != nil {
		return nil, fmt.Errorf("dashboard top courses: %w", err)
	}
	return stats, nil
}
