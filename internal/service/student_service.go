package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusops/uniops-api/internal/models"
	"github.com/campusops/uniops-api/pkg/config"
	appErrors "github.com/campusops/uniops-api/pkg/errors"
	"github.com/campusops/uniops-api/pkg/jobs"
)

type studentStore interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ListIDs(ctx context.Context) ([]string, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

type loginStore interface {
	Upsert(ctx context.Context, user *models.User) error
}

type defaultAssigner interface {
	AssignDefaults(ctx context.Context, studentID string) (*models.AutoEnrollResult, error)
}

type studentEnrollmentReader interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
}

type recordStore interface {
	ListByEntity(ctx context.Context, entityType, entityID string) ([]models.EntityAttribute, error)
	Get(ctx context.Context, entityType, entityID, key string) (*models.EntityAttribute, error)
	Set(ctx context.Context, attribute *models.EntityAttribute) error
	Delete(ctx context.Context, entityType, entityID, key string) error
}

type gpaQueue interface {
	Enqueue(job jobs.Job) error
}

const studentEntityType = "student"

// JobTypeRecalculateGPA labels queued per-student GPA refresh jobs.
const JobTypeRecalculateGPA = "recalculate-gpa"

// CreateStudentRequest registers a new student.
type CreateStudentRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Major   string `json:"major" validate:"required"`
	Year    int    `json:"year" validate:"gte=1,lte=8"`
	Advisor string `json:"advisor"`
}

// UpdateStudentRequest rewrites a student's mutable fields.
type UpdateStudentRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Major   string `json:"major" validate:"required"`
	Year    int    `json:"year" validate:"gte=1,lte=8"`
	Status  string `json:"status" validate:"required,oneof=active probation suspended graduated"`
	Advisor string `json:"advisor"`
}

// SetStudentRecordRequest attaches a typed extension attribute to a student.
type SetStudentRecordRequest struct {
	Key   string  `json:"key" validate:"required"`
	Kind  string  `json:"kind" validate:"required,oneof=string number boolean date"`
	Value *string `json:"value"`
}

// CreatedStudent bundles a new student with the outcome of the side effects
// that ran during registration.
type CreatedStudent struct {
	Student    models.Student           `json:"student"`
	AutoEnroll *models.AutoEnrollResult `json:"auto_enroll,omitempty"`
	TempPass   string                   `json:"temporary_password,omitempty"`
}

// StudentService manages student records and their registration side effects.
type StudentService struct {
	repo        studentStore
	logins      loginStore
	enrollments studentEnrollmentReader
	records     recordStore
	planner     defaultAssigner
	gpa         gpaRecalculator
	queue       gpaQueue
	rules       config.RegistrarConfig
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(repo studentStore, logins loginStore, enrollments studentEnrollmentReader, records recordStore, planner defaultAssigner, gpa gpaRecalculator, queue gpaQueue, rules config.RegistrarConfig, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		repo:        repo,
		logins:      logins,
		enrollments: enrollments,
		records:     records,
		planner:     planner,
		gpa:         gpa,
		queue:       queue,
		rules:       rules,
		validator:   validate,
		logger:      logger,
	}
}

// List returns students with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a student by id.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers a student, provisions their login with a temporary
// password, and assigns the default first-year courses. The side effects are
// best effort: a failure there leaves the student record in place and is
// reported through logs, not the response status.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*CreatedStudent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	student := &models.Student{
		Name:    req.Name,
		Email:   strings.ToLower(req.Email),
		Major:   req.Major,
		Year:    req.Year,
		Advisor: req.Advisor,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}

	created := &CreatedStudent{Student: *student}

	tempPass := uuid.NewString()
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPass), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash temporary password", zap.String("student_id", student.ID), zap.Error(err))
	} else {
		login := &models.User{
			Email:        student.Email,
			PasswordHash: string(hash),
			FullName:     student.Name,
			Role:         models.RoleStudent,
			StudentID:    &student.ID,
			Active:       true,
		}
		if err := s.logins.Upsert(ctx, login); err != nil {
			s.logger.Error("failed to provision login", zap.String("student_id", student.ID), zap.Error(err))
		} else {
			created.TempPass = tempPass
		}
	}

	if result, err := s.planner.AssignDefaults(ctx, student.ID); err != nil {
		s.logger.Error("failed to assign default courses", zap.String("student_id", student.ID), zap.Error(err))
	} else {
		created.AutoEnroll = result
	}

	s.logger.Info("student created", zap.String("student_id", student.ID), zap.String("email", student.Email))
	return created, nil
}

// Update rewrites a student's mutable fields. The cached GPA is untouched.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	student.Name = req.Name
	student.Email = strings.ToLower(req.Email)
	student.Major = req.Major
	student.Year = req.Year
	student.Status = models.StudentStatus(req.Status)
	student.Advisor = req.Advisor

	if err := s.repo.Update(ctx, student); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// Delete removes a student together with their enrollments and detaches any
// linked login.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	return nil
}

// Transcript assembles the student's enrollment history with a freshly
// derived GPA. Credits are summed over active enrollments only and flagged
// when they fall short of the advisory minimum; the shortfall never blocks
// anything.
func (s *StudentService) Transcript(ctx context.Context, id string) (*models.Transcript, error) {
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	gpa, err := s.gpa.Recalculate(ctx, id)
	if err != nil {
		return nil, err
	}
	student.GPA = gpa

	enrollments, err := s.enrollments.ListByStudent(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}

	creditTotal := 0
	for _, e := range enrollments {
		switch e.Status {
		case models.EnrollmentStatusEnrolled, models.EnrollmentStatusWaitlisted:
			creditTotal += e.Credits
		}
	}

	return &models.Transcript{
		Student:        *student,
		GPA:            gpa,
		Enrollments:    enrollments,
		CreditTotal:    creditTotal,
		BelowCreditMin: creditTotal < s.rules.AdvisoryCreditMin,
	}, nil
}

// Records lists the extension attributes attached to a student.
func (s *StudentService) Records(ctx context.Context, id string) ([]models.EntityAttribute, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	records, err := s.records.ListByEntity(ctx, studentEntityType, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list records")
	}
	return records, nil
}

// SetRecord writes one typed extension attribute on a student.
func (s *StudentService) SetRecord(ctx context.Context, id string, req SetStudentRecordRequest) (*models.EntityAttribute, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid record payload")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	attribute := &models.EntityAttribute{
		EntityType: studentEntityType,
		EntityID:   id,
		Key:        req.Key,
		Kind:       models.AttributeKind(req.Kind),
		Value:      req.Value,
	}
	if err := s.records.Set(ctx, attribute); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store record")
	}
	return attribute, nil
}

// DeleteRecord removes one extension attribute from a student.
func (s *StudentService) DeleteRecord(ctx context.Context, id, key string) error {
	if err := s.records.Delete(ctx, studentEntityType, id, key); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete record")
	}
	return nil
}

// RecalculateAllGPAs queues a GPA refresh for every student and returns the
// number of queued jobs. The refreshes run on the background queue; callers
// get an acknowledgement, not the results.
func (s *StudentService) RecalculateAllGPAs(ctx context.Context) (int, error) {
	ids, err := s.repo.ListIDs(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	queued := 0
	for _, id := range ids {
		job := jobs.Job{ID: uuid.NewString(), Type: JobTypeRecalculateGPA, Payload: id}
		if err := s.queue.Enqueue(job); err != nil {
			return queued, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue gpa refresh")
		}
		queued++
	}
	s.logger.Info("queued gpa refresh", zap.Int("students", queued))
	return queued, nil
}
