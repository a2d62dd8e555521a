package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusops/uniops-api/internal/models"
	"github.com/campusops/uniops-api/internal/repository"
	"github.com/campusops/uniops-api/pkg/config"
	appErrors "github.com/campusops/uniops-api/pkg/errors"
)

type enrollmentStore interface {
	WithStudentLock(ctx context.Context, studentID string, fn func(ctx context.Context, tx repository.AdmissionTx) error) error
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	CurrentLoad(ctx context.Context, studentID string) (models.StudentLoad, error)
	UpdateGrade(ctx context.Context, id string, status models.EnrollmentStatus, letter *string, points *float64, publish *bool) error
	Delete(ctx context.Context, id string) error
}

type courseCatalog interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindByCodes(ctx context.Context, codes []string) ([]models.Course, error)
	ListByCodeAsc(ctx context.Context, limit int) ([]models.Course, error)
}

type gpaRecalculator interface {
	Recalculate(ctx context.Context, studentID string) (*float64, error)
}

// CreateEnrollmentRequest describes an admission attempt.
type CreateEnrollmentRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	CourseID  string `json:"course_id" validate:"required"`
	Status    string `json:"status" validate:"omitempty,oneof=enrolled waitlisted"`
}

// UpdateEnrollmentRequest describes a status or grade update. Publish is
// tri-state: nil leaves the release flag untouched.
type UpdateEnrollmentRequest struct {
	Status  string  `json:"status" validate:"omitempty,oneof=enrolled waitlisted dropped completed"`
	Grade   *string `json:"grade"`
	Publish *bool   `json:"publish"`
}

// EnrollmentService enforces academic load limits on admission and
// orchestrates grade updates and default-course assignment.
type EnrollmentService struct {
	repo      enrollmentStore
	courses   courseCatalog
	gpa       gpaRecalculator
	metrics   *MetricsService
	rules     config.RegistrarConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentStore, courses courseCatalog, gpa gpaRecalculator, metrics *MetricsService, rules config.RegistrarConfig, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, courses: courses, gpa: gpa, metrics: metrics, rules: rules, validator: validate, logger: logger}
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return enrollments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// CurrentLoad reports the course count and credit sum of a student's active
// enrollments as seen outside any admission transaction.
func (s *EnrollmentService) CurrentLoad(ctx context.Context, studentID string) (models.StudentLoad, error) {
	load, err := s.repo.CurrentLoad(ctx, studentID)
	if err != nil {
		return models.StudentLoad{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute load")
	}
	return load, nil
}

// Create admits a student into a course. The duplicate and limit checks and
// the insert run in one transaction holding the student row lock, so two
// concurrent attempts for the same student serialise and the second sees the
// first's enrollment. Checks run in a fixed order: existence, duplicate,
// course count, credit sum.
func (s *EnrollmentService) Create(ctx context.Context, req CreateEnrollmentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	enrollment := &models.Enrollment{
		StudentID: req.StudentID,
		CourseID:  req.CourseID,
		Status:    models.EnrollmentStatus(req.Status),
	}

	err := s.repo.WithStudentLock(ctx, req.StudentID, func(ctx context.Context, tx repository.AdmissionTx) error {
		course, err := s.courses.FindByID(ctx, req.CourseID)
		if err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "course not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
		}

		exists, err := tx.PairExists(ctx, req.StudentID, req.CourseID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check duplicate enrollment")
		}
		if exists {
			return appErrors.Clone(appErrors.ErrDuplicate, "student is already enrolled in this course")
		}

		load, err := tx.CurrentLoad(ctx, req.StudentID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute load")
		}
		if load.CourseCount+1 > s.rules.CourseLimit {
			return appErrors.LimitExceeded(appErrors.ReasonCourseCount,
				fmt.Sprintf("course limit of %d reached", s.rules.CourseLimit))
		}
		if load.CreditTotal+course.Credits > s.rules.CreditLimit {
			return appErrors.LimitExceeded(appErrors.ReasonCreditSum,
				fmt.Sprintf("credit limit of %d exceeded", s.rules.CreditLimit))
		}

		return tx.Insert(ctx, enrollment)
	})
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		if appErr := asAppError(err); appErr != nil {
			if appErr.Code == appErrors.ErrLimitExceeded.Code {
				s.metrics.RecordAdmission("limit-rejected")
			}
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	s.metrics.RecordAdmission("admitted")
	s.logger.Info("enrollment created",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("student_id", enrollment.StudentID),
		zap.String("course_id", enrollment.CourseID))
	return enrollment, nil
}

// Update changes status or grade fields. Supplying a grade letter outside the
// grade table stores the letter with no points; it then never contributes to
// the GPA. Any change triggers a synchronous GPA refresh for the student.
func (s *EnrollmentService) Update(ctx context.Context, id string, req UpdateEnrollmentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment update")
	}

	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	status := enrollment.Status
	if req.Status != "" {
		status = models.EnrollmentStatus(req.Status)
	}
	letter := enrollment.GradeLetter
	points := enrollment.GradePoints
	if req.Grade != nil {
		letter = req.Grade
		points = models.GradePointsFor(*req.Grade)
	}

	if err := s.repo.UpdateGrade(ctx, id, status, letter, points, req.Publish); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment")
	}

	if _, err := s.gpa.Recalculate(ctx, enrollment.StudentID); err != nil {
		return nil, err
	}

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload enrollment")
	}
	return updated, nil
}

// Delete removes an enrollment and refreshes the student's GPA, since a
// published grade may have left the record.
func (s *EnrollmentService) Delete(ctx context.Context, id string) error {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete enrollment")
	}
	if _, err := s.gpa.Recalculate(ctx, enrollment.StudentID); err != nil {
		return err
	}
	return nil
}

// AssignDefaults enrolls a student into the configured default courses,
// skipping any they already hold and any that would push them past the load
// limits. Limits are tracked against running totals, so earlier assignments
// in the same pass consume quota for later ones.
func (s *EnrollmentService) AssignDefaults(ctx context.Context, studentID string) (*models.AutoEnrollResult, error) {
	candidates, err := s.defaultCourses(ctx)
	if err != nil {
		return nil, err
	}

	result := &models.AutoEnrollResult{
		Created: []models.Enrollment{},
		Skipped: []models.SkippedEnrollment{},
	}
	if len(candidates) == 0 {
		result.Skipped = append(result.Skipped, models.SkippedEnrollment{Reason: models.SkipReasonNoDefaultCourses})
		return result, nil
	}

	err = s.repo.WithStudentLock(ctx, studentID, func(ctx context.Context, tx repository.AdmissionTx) error {
		enrolled, err := tx.EnrolledCourseIDs(ctx, studentID)
		if err != nil {
			return err
		}
		load, err := tx.CurrentLoad(ctx, studentID)
		if err != nil {
			return err
		}

		count := load.CourseCount
		credits := load.CreditTotal
		for _, course := range candidates {
			if _, ok := enrolled[course.ID]; ok {
				result.Skipped = append(result.Skipped, models.SkippedEnrollment{
					CourseID: course.ID,
					Reason:   models.SkipReasonAlreadyEnrolled,
				})
				continue
			}
			if count+1 > s.rules.CourseLimit || credits+course.Credits > s.rules.CreditLimit {
				result.Skipped = append(result.Skipped, models.SkippedEnrollment{
					CourseID: course.ID,
					Reason:   models.SkipReasonLimitsExceeded,
				})
				continue
			}
			enrollment := models.Enrollment{StudentID: studentID, CourseID: course.ID}
			if err := tx.Insert(ctx, &enrollment); err != nil {
				return err
			}
			result.Created = append(result.Created, enrollment)
			count++
			credits += course.Credits
		}
		return nil
	})
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign default courses")
	}

	s.logger.Info("default courses assigned",
		zap.String("student_id", studentID),
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

// defaultCourses resolves the configured default course codes, preserving the
// configured order. Configured codes are authoritative even when none of them
// match the catalog; the lowest-code fallback applies only with no codes
// configured at all.
func (s *EnrollmentService) defaultCourses(ctx context.Context) ([]models.Course, error) {
	if len(s.rules.DefaultCourseCodes) > 0 {
		courses, err := s.courses.FindByCodes(ctx, s.rules.DefaultCourseCodes)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve default courses")
		}
		byCode := make(map[string]models.Course, len(courses))
		for _, course := range courses {
			byCode[course.Code] = course
		}
		ordered := make([]models.Course, 0, len(courses))
		for _, code := range s.rules.DefaultCourseCodes {
			if course, ok := byCode[code]; ok {
				ordered = append(ordered, course)
			}
		}
		return ordered, nil
	}

	courses, err := s.courses.ListByCodeAsc(ctx, s.rules.DefaultCourseCount)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve default courses")
	}
	return courses, nil
}

func asAppError(err error) *appErrors.Error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}
