package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/campusops/uniops-api/internal/models"
	appErrors "github.com/campusops/uniops-api/pkg/errors"
	"github.com/campusops/uniops-api/pkg/export"
)

type transcriptSource interface {
	Transcript(ctx context.Context, id string) (*models.Transcript, error)
}

// ExportFormat selects the rendered document type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportFile is a rendered document ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders student transcripts as downloadable files.
type ExportService struct {
	transcripts transcriptSource
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	logger      *zap.Logger
}

// NewExportService constructs ExportService.
func NewExportService(transcripts transcriptSource, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		transcripts: transcripts,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
	}
}

// Transcript renders a student transcript in the requested format.
func (s *ExportService) Transcript(ctx context.Context, studentID string, format ExportFormat) (*ExportFile, error) {
	transcript, err := s.transcripts.Transcript(ctx, studentID)
	if err != nil {
		return nil, err
	}

	dataset := transcriptDataset(transcript)
	switch format {
	case ExportFormatCSV:
		body, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("transcript-%s.csv", studentID),
			ContentType: "text/csv",
			Body:        body,
		}, nil
	case ExportFormatPDF:
		title := fmt.Sprintf("Transcript - %s", transcript.Student.Name)
		body, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("transcript-%s.pdf", studentID),
			ContentType: "application/pdf",
			Body:        body,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

func transcriptDataset(transcript *models.Transcript) export.Dataset {
	headers := []string{"Course", "Title", "Credits", "Status", "Grade", "Published"}
	rows := make([]map[string]string, 0, len(transcript.Enrollments))
	for _, e := range transcript.Enrollments {
		grade := ""
		if e.GradeLetter != nil {
			grade = *e.GradeLetter
		}
		rows = append(rows, map[string]string{
			"Course":    e.CourseCode,
			"Title":     e.CourseTitle,
			"Credits":   strconv.Itoa(e.Credits),
			"Status":    string(e.Status),
			"Grade":     grade,
			"Published": strconv.FormatBool(e.GradeReleased),
		})
	}
	gpa := "n/a"
	if transcript.GPA != nil {
		gpa = strconv.FormatFloat(*transcript.GPA, 'f', 2, 64)
	}
	rows = append(rows, map[string]string{
		"Course":  "GPA",
		"Title":   gpa,
		"Credits": strconv.Itoa(transcript.CreditTotal),
	})
	return export.Dataset{Headers: headers, Rows: rows}
}
