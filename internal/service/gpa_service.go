package service

import (
	"context"
	"database/sql"
	"math"

	"go.uber.org/zap"

	"github.com/campusops/uniops-api/internal/models"
	appErrors "github.com/campusops/uniops-api/pkg/errors"
)

type gradeSummarizer interface {
	GradeSummary(ctx context.Context, studentID string) (models.GradeSummary, error)
}

type gpaWriter interface {
	UpdateGPA(ctx context.Context, id string, gpa *float64) error
}

// GPAService derives and persists cumulative GPAs from published grades.
// It is the only writer of the students.gpa column.
type GPAService struct {
	enrollments gradeSummarizer
	students    gpaWriter
	logger      *zap.Logger
}

// NewGPAService constructs GPAService.
func NewGPAService(enrollments gradeSummarizer, students gpaWriter, logger *zap.Logger) *GPAService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GPAService{enrollments: enrollments, students: students, logger: logger}
}

// Recalculate recomputes the credit-weighted GPA over published grades and
// writes it back to the student record. When no published grade carries
// points the stored GPA is cleared and nil is returned. Recalculating twice
// without grade changes is a no-op.
func (s *GPAService) Recalculate(ctx context.Context, studentID string) (*float64, error) {
	summary, err := s.enrollments.GradeSummary(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarise grades")
	}

	var gpa *float64
	if summary.TotalCredits > 0 {
		value := math.Round(summary.TotalPoints/summary.TotalCredits*100) / 100
		gpa = &value
	}

	if err := s.students.UpdateGPA(ctx, studentID, gpa); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store gpa")
	}

	s.logger.Debug("gpa recalculated", zap.String("student_id", studentID))
	return gpa, nil
}
