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

const enrollmentColumns = "id, student_id, course_id, status, grade_letter, grade_points, grade_released, created_at, updated_at"

const enrollmentDetailSelect = `SELECT e.id, e.student_id, e.course_id, e.status, e.grade_letter, e.grade_points,
        e.grade_released, e.created_at, e.updated_at,
        s.name AS student_name, c.code AS course_code, c.title AS course_title, c.credits AS credits
        FROM enrollments e
        LEFT JOIN students s ON s.id = e.student_id
        LEFT JOIN courses c ON c.id = e.course_id`

const currentLoadQuery = `SELECT COUNT(*) AS course_count, COALESCE(SUM(c.credits), 0) AS credit_total
        FROM enrollments e
        JOIN courses c ON c.id = e.course_id
        WHERE e.student_id = $1 AND e.status IN ('enrolled', 'waitlisted')`

const gradeSummaryQuery = `SELECT
        COALESCE(SUM(CASE WHEN e.grade_points IS NOT NULL AND e.grade_released THEN e.grade_points * c.credits ELSE 0 END), 0) AS total_points,
        COALESCE(SUM(CASE WHEN e.grade_points IS NOT NULL AND e.grade_released THEN c.credits ELSE 0 END), 0) AS total_credits
        FROM enrollments e
        JOIN courses c ON c.id = e.course_id
        WHERE e.student_id = $1`

// AdmissionTx exposes the reads and the single write permitted inside a
// student-locked admission transaction. Every aggregate read through it sees
// the same snapshot the insert commits against.
type AdmissionTx interface {
	PairExists(ctx context.Context, studentID, courseID string) (bool, error)
	CurrentLoad(ctx context.Context, studentID string) (models.StudentLoad, error)
	EnrolledCourseIDs(ctx context.Context, studentID string) (map[string]struct{}, error)
	Insert(ctx context.Context, enrollment *models.Enrollment) error
}

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// WithStudentLock runs fn inside a transaction holding a row lock on the
// student, serialising concurrent admission decisions for the same student.
// Returns sql.ErrNoRows when the student does not exist. The transaction is
// rolled back when fn errors and committed otherwise.
func (r *EnrollmentRepository) WithStudentLock(ctx context.Context, studentID string, fn func(ctx context.Context, tx AdmissionTx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin admission: %w", err)
	}

	var locked string
	if err := tx.GetContext(ctx, &locked, "SELECT id FROM students WHERE id = $1 FOR UPDATE", studentID); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := fn(ctx, &admissionTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit admission: %w", err)
	}
	return nil
}

type admissionTx struct {
	tx *sqlx.Tx
}

func (a *admissionTx) PairExists(ctx context.Context, studentID, courseID string) (bool, error) {
	var exists int
	err := a.tx.GetContext(ctx, &exists,
		"SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 LIMIT 1", studentID, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment pair: %w", err)
	}
	return true, nil
}

func (a *admissionTx) CurrentLoad(ctx context.Context, studentID string) (models.StudentLoad, error) {
	var load models.StudentLoad
	if err := a.tx.GetContext(ctx, &load, currentLoadQuery, studentID); err != nil {
		return models.StudentLoad{}, fmt.Errorf("current load: %w", err)
	}
	return load, nil
}

func (a *admissionTx) EnrolledCourseIDs(ctx context.Context, studentID string) (map[string]struct{}, error) {
	var ids []string
	if err := a.tx.SelectContext(ctx, &ids, "SELECT course_id FROM enrollments WHERE student_id = $1", studentID); err != nil {
		return nil, fmt.Errorf("list enrolled course ids: %w", err)
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

func (a *admissionTx) Insert(ctx context.Context, enrollment *models.Enrollment) error {
	prepareEnrollment(enrollment)
	const query = `INSERT INTO enrollments (id, student_id, course_id, status, grade_letter, grade_points, grade_released, created_at, updated_at)
        VALUES (:id, :student_id, :course_id, :status, :grade_letter, :grade_points, :grade_released, :created_at, :updated_at)`
	if _, err := a.tx.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("insert enrollment: %w", err)
	}
	return nil
}

func prepareEnrollment(enrollment *models.Enrollment) {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	enrollment.CreatedAt = now
	enrollment.UpdatedAt = now
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusEnrolled
	}
}

// CurrentLoad aggregates active enrollments outside an admission transaction,
// for display purposes only; admission decisions use the locked variant.
func (r *EnrollmentRepository) CurrentLoad(ctx context.Context, studentID string) (models.StudentLoad, error) {
	var load models.StudentLoad
	if err := r.db.GetContext(ctx, &load, currentLoadQuery, studentID); err != nil {
		return models.StudentLoad{}, fmt.Errorf("current load: %w", err)
	}
	return load, nil
}

// GradeSummary sums published grade points and credits for GPA derivation.
func (r *EnrollmentRepository) GradeSummary(ctx context.Context, studentID string) (models.GradeSummary, error) {
	var summary models.GradeSummary
	if err := r.db.GetContext(ctx, &summary, gradeSummaryQuery, studentID); err != nil {
		return models.GradeSummary{}, fmt.Errorf("grade summary: %w", err)
	}
	return summary, nil
}

// List returns enrollment detail rows filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("e.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("%s%s ORDER BY e.created_at DESC LIMIT %d OFFSET %d", enrollmentDetailSelect, clause, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM enrollments e" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// ListByStudent returns all enrollment detail rows for a student.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	query := enrollmentDetailSelect + " WHERE e.student_id = $1 ORDER BY c.code ASC"
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments WHERE id = $1", enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// UpdateGrade rewrites status and grade fields. The released flag is written
// only when publish is non-nil; a nil pointer leaves the stored flag intact.
func (r *EnrollmentRepository) UpdateGrade(ctx context.Context, id string, status models.EnrollmentStatus, letter *string, points *float64, publish *bool) error {
	sets := []string{"status = $2", "grade_letter = $3", "grade_points = $4", "updated_at = $5"}
	args := []interface{}{id, status, letter, points, time.Now().UTC()}
	if publish != nil {
		sets = append(sets, fmt.Sprintf("grade_released = $%d", len(args)+1))
		args = append(args, *publish)
	}
	query := fmt.Sprintf("UPDATE enrollments SET %s WHERE id = $1", strings.Join(sets, ", "))
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update enrollment grade: %w", err)
	}
	return requireRowAffected(result, "enrollment")
}

// Delete removes an enrollment by id.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM enrollments WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return requireRowAffected(result, "enrollment")
}
