package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusops/uniops-api/internal/models"
)

type mockTranscriptSource struct {
	transcript *models.Transcript
	err        error
}

func (m *mockTranscriptSource) Transcript(context.Context, string) (*models.Transcript, error) {
	return m.transcript, m.err
}

func sampleTranscript() *models.Transcript {
	gpa := 3.45
	letter := "A-"
	return &models.Transcript{
		Student: models.Student{ID: "stu-1", Name: "Ana Silva"},
		GPA:     &gpa,
		Enrollments: []models.EnrollmentDetail{
			{
				Enrollment: models.Enrollment{
					Status:        models.EnrollmentStatusCompleted,
					GradeLetter:   &letter,
					GradeReleased: true,
				},
				CourseCode:  "CS101",
				CourseTitle: "Intro to Computing",
				Credits:     3,
			},
			{
				Enrollment: models.Enrollment{Status: models.EnrollmentStatusEnrolled},
				CourseCode:  "MA201",
				CourseTitle: "Linear Algebra",
				Credits:     4,
			},
		},
		CreditTotal: 7,
	}
}

func TestExportServiceTranscriptCSV(t *testing.T) {
	svc := NewExportService(&mockTranscriptSource{transcript: sampleTranscript()}, zap.NewNop())

	file, err := svc.Transcript(context.Background(), "stu-1", ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "transcript-stu-1.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)

	records, err := csv.NewReader(bytes.NewReader(file.Body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"Course", "Title", "Credits", "Status", "Grade", "Published"}, records[0])
	assert.Equal(t, "CS101", records[1][0])
	assert.Equal(t, "A-", records[1][4])
	assert.Equal(t, "true", records[1][5])
	assert.Equal(t, "MA201", records[2][0])
	assert.Equal(t, "", records[2][4])

	summary := records[3]
	assert.Equal(t, "GPA", summary[0])
	assert.Equal(t, "3.45", summary[1])
	assert.Equal(t, "7", summary[2])
}

func TestExportServiceTranscriptCSVWithoutGPA(t *testing.T) {
	transcript := sampleTranscript()
	transcript.GPA = nil
	svc := NewExportService(&mockTranscriptSource{transcript: transcript}, zap.NewNop())

	file, err := svc.Transcript(context.Background(), "stu-1", ExportFormatCSV)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(file.Body)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "n/a", records[len(records)-1][1])
}

func TestExportServiceTranscriptPDF(t *testing.T) {
	svc := NewExportService(&mockTranscriptSource{transcript: sampleTranscript()}, zap.NewNop())

	file, err := svc.Transcript(context.Background(), "stu-1", ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "transcript-stu-1.pdf", file.Filename)
	assert.Equal(t, "application/pdf", file.ContentType)
	require.NotEmpty(t, file.Body)
	assert.Equal(t, "%PDF", string(file.Body[:4]))
}

func TestExportServiceTranscriptUnsupportedFormat(t *testing.T) {
	svc := NewExportService(&mockTranscriptSource{transcript: sampleTranscript()}, zap.NewNop())

	_, err := svc.Transcript(context.Background(), "stu-1", ExportFormat("xlsx"))
	require.Error(t, err)
}
