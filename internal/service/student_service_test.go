package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusops/uniops-api/internal/models"
	"github.com/campusops/uniops-api/pkg/jobs"
)

type mockStudentStore struct {
	students map[string]models.Student
}

func (m *mockStudentStore) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	var all []models.Student
	for _, s := range m.students {
		all = append(all, s)
	}
	return all, len(all), nil
}

func (m *mockStudentStore) FindByID(ctx context.Context, id string) (*models.Student, error) {
	student, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &student, nil
}

func (m *mockStudentStore) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	for id := range m.students {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *mockStudentStore) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.Status == "" {
		student.Status = models.StudentStatusActive
	}
	if m.students == nil {
		m.students = make(map[string]models.Student)
	}
	m.students[student.ID] = *student
	return nil
}

func (m *mockStudentStore) Update(ctx context.Context, student *models.Student) error {
	if _, ok := m.students[student.ID]; !ok {
		return sql.ErrNoRows
	}
	m.students[student.ID] = *student
	return nil
}

func (m *mockStudentStore) Delete(ctx context.Context, id string) error {
	if _, ok := m.students[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.students, id)
	return nil
}

type mockLoginStore struct {
	upserted []models.User
	fail     bool
}

func (m *mockLoginStore) Upsert(ctx context.Context, user *models.User) error {
	if m.fail {
		return sql.ErrConnDone
	}
	m.upserted = append(m.upserted, *user)
	return nil
}

type mockPlanner struct {
	result *models.AutoEnrollResult
	fail   bool
	calls  []string
}

func (m *mockPlanner) AssignDefaults(ctx context.Context, studentID string) (*models.AutoEnrollResult, error) {
	m.calls = append(m.calls, studentID)
	if m.fail {
		return nil, sql.ErrConnDone
	}
	if m.result == nil {
		return &models.AutoEnrollResult{}, nil
	}
	return m.result, nil
}

type mockEnrollmentReader struct {
	byStudent map[string][]models.EnrollmentDetail
}

func (m *mockEnrollmentReader) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	return m.byStudent[studentID], nil
}

type mockRecordStore struct {
	records map[string]models.EntityAttribute
}

func (m *mockRecordStore) ListByEntity(ctx context.Context, entityType, entityID string) ([]models.EntityAttribute, error) {
	var result []models.EntityAttribute
	for _, r := range m.records {
		if r.EntityType == entityType && r.EntityID == entityID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *mockRecordStore) Get(ctx context.Context, entityType, entityID, key string) (*models.EntityAttribute, error) {
	r, ok := m.records[entityID+"/"+key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &r, nil
}

func (m *mockRecordStore) Set(ctx context.Context, attribute *models.EntityAttribute) error {
	if m.records == nil {
		m.records = make(map[string]models.EntityAttribute)
	}
	m.records[attribute.EntityID+"/"+attribute.Key] = *attribute
	return nil
}

func (m *mockRecordStore) Delete(ctx context.Context, entityType, entityID, key string) error {
	if _, ok := m.records[entityID+"/"+key]; !ok {
		return sql.ErrNoRows
	}
	delete(m.records, entityID+"/"+key)
	return nil
}

type mockQueue struct {
	jobs []jobs.Job
}

func (m *mockQueue) Enqueue(job jobs.Job) error {
	m.jobs = append(m.jobs, job)
	return nil
}

type studentFixture struct {
	store       *mockStudentStore
	logins      *mockLoginStore
	enrollments *mockEnrollmentReader
	records     *mockRecordStore
	planner     *mockPlanner
	gpa         *mockGPARecalculator
	queue       *mockQueue
	svc         *StudentService
}

func newStudentFixture() *studentFixture {
	f := &studentFixture{
		store:       &mockStudentStore{students: map[string]models.Student{}},
		logins:      &mockLoginStore{},
		enrollments: &mockEnrollmentReader{byStudent: map[string][]models.EnrollmentDetail{}},
		records:     &mockRecordStore{},
		planner:     &mockPlanner{},
		gpa:         &mockGPARecalculator{},
		queue:       &mockQueue{},
	}
	f.svc = NewStudentService(f.store, f.logins, f.enrollments, f.records, f.planner, f.gpa, f.queue, defaultRules(), nil, zap.NewNop())
	return f
}

func TestStudentCreateProvisionsLoginAndDefaults(t *testing.T) {
	f := newStudentFixture()
	f.planner.result = &models.AutoEnrollResult{Created: make([]models.Enrollment, 3)}

	created, err := f.svc.Create(context.Background(), CreateStudentRequest{
		Name:  "Ada Lovelace",
		Email: "Ada@Campus.edu",
		Major: "Mathematics",
		Year:  1,
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@campus.edu", created.Student.Email)
	assert.Equal(t, models.StudentStatusActive, created.Student.Status)

	require.Len(t, f.logins.upserted, 1)
	login := f.logins.upserted[0]
	assert.Equal(t, models.RoleStudent, login.Role)
	require.NotNil(t, login.StudentID)
	assert.Equal(t, created.Student.ID, *login.StudentID)
	require.NotEmpty(t, created.TempPass)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(login.PasswordHash), []byte(created.TempPass)))

	require.NotNil(t, created.AutoEnroll)
	assert.Len(t, created.AutoEnroll.Created, 3)
	assert.Equal(t, []string{created.Student.ID}, f.planner.calls)
}

func TestStudentCreateSurvivesSideEffectFailures(t *testing.T) {
	f := newStudentFixture()
	f.logins.fail = true
	f.planner.fail = true

	created, err := f.svc.Create(context.Background(), CreateStudentRequest{
		Name:  "Grace Hopper",
		Email: "grace@campus.edu",
		Major: "CS",
		Year:  1,
	})
	require.NoError(t, err)
	assert.Empty(t, created.TempPass)
	assert.Nil(t, created.AutoEnroll)
	_, ok := f.store.students[created.Student.ID]
	assert.True(t, ok)
}

func TestStudentTranscriptFlagsLowCreditLoad(t *testing.T) {
	f := newStudentFixture()
	f.store.students["stu-1"] = models.Student{ID: "stu-1", Name: "Ada"}
	gpa := 3.5
	f.gpa.result = &gpa
	f.enrollments.byStudent["stu-1"] = []models.EnrollmentDetail{
		{Enrollment: models.Enrollment{Status: models.EnrollmentStatusEnrolled}, Credits: 3},
		{Enrollment: models.Enrollment{Status: models.EnrollmentStatusWaitlisted}, Credits: 3},
		{Enrollment: models.Enrollment{Status: models.EnrollmentStatusDropped}, Credits: 9},
	}

	transcript, err := f.svc.Transcript(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 6, transcript.CreditTotal)
	assert.True(t, transcript.BelowCreditMin)
	require.NotNil(t, transcript.GPA)
	assert.InDelta(t, 3.5, *transcript.GPA, 0.0001)
	assert.Equal(t, []string{"stu-1"}, f.gpa.recalculated)
}

func TestStudentTranscriptAboveAdvisoryMinimum(t *testing.T) {
	f := newStudentFixture()
	f.store.students["stu-1"] = models.Student{ID: "stu-1"}
	f.enrollments.byStudent["stu-1"] = []models.EnrollmentDetail{
		{Enrollment: models.Enrollment{Status: models.EnrollmentStatusEnrolled}, Credits: 6},
		{Enrollment: models.Enrollment{Status: models.EnrollmentStatusEnrolled}, Credits: 6},
	}

	transcript, err := f.svc.Transcript(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 12, transcript.CreditTotal)
	assert.False(t, transcript.BelowCreditMin)
}

func TestStudentSetAndDeleteRecord(t *testing.T) {
	f := newStudentFixture()
	f.store.students["stu-1"] = models.Student{ID: "stu-1"}

	value := "dean's list"
	record, err := f.svc.SetRecord(context.Background(), "stu-1", SetStudentRecordRequest{
		Key:   "honors",
		Kind:  "string",
		Value: &value,
	})
	require.NoError(t, err)
	assert.Equal(t, models.AttributeKindString, record.Kind)

	records, err := f.svc.Records(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Len(t, records, 1)

	require.NoError(t, f.svc.DeleteRecord(context.Background(), "stu-1", "honors"))
	records, err = f.svc.Records(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStudentRecalculateAllGPAsQueuesEveryStudent(t *testing.T) {
	f := newStudentFixture()
	f.store.students["stu-1"] = models.Student{ID: "stu-1"}
	f.store.students["stu-2"] = models.Student{ID: "stu-2"}

	queued, err := f.svc.RecalculateAllGPAs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, queued)
	require.Len(t, f.queue.jobs, 2)
	for _, job := range f.queue.jobs {
		assert.Equal(t, JobTypeRecalculateGPA, job.Type)
	}
}
