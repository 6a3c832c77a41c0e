package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrutiigupta24/institute-api/internal/models"
	"github.com/shrutiigupta24/institute-api/internal/policy"
	appErrors "github.com/shrutiigupta24/institute-api/pkg/errors"
)

type mockTeacherBatches struct {
	batches    map[string]*models.BatchDetail
	members    map[string]bool
	teacherIDs []string
	studentIDs []string
	roster     []models.StudentDetail
}

func (m *mockTeacherBatches) FindByID(ctx context.Context, id string) (*models.BatchDetail, error) {
	if batch, ok := m.batches[id]; ok {
		return batch, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTeacherBatches) ListByTeacher(ctx context.Context, teacherID string) ([]models.BatchDetail, error) {
	return nil, nil
}

func (m *mockTeacherBatches) ListIDsByTeacher(ctx context.Context, teacherID string) ([]string, error) {
	return m.teacherIDs, nil
}

func (m *mockTeacherBatches) ListIDsByStudent(ctx context.Context, studentID string) ([]string, error) {
	return m.studentIDs, nil
}

func (m *mockTeacherBatches) ListStudents(ctx context.Context, batchID string) ([]models.StudentDetail, error) {
	return m.roster, nil
}

func (m *mockTeacherBatches) IsMember(ctx context.Context, batchID, studentID string) (bool, error) {
	return m.members[batchID+"/"+studentID], nil
}

type mockTeacherAttendances struct {
	marked    []models.Attendance
	summaries []models.BatchAttendanceSummary
}

func (m *mockTeacherAttendances) MarkBatch(ctx context.Context, records []models.Attendance) error {
	m.marked = append(m.marked, records...)
	return nil
}

func (m *mockTeacherAttendances) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, error) {
	return nil, nil
}

func (m *mockTeacherAttendances) SummaryByStudent(ctx context.Context, studentID string) ([]models.BatchAttendanceSummary, error) {
	return m.summaries, nil
}

type mockTeacherTests struct {
	tests    map[string]*models.Test
	results  map[string]*models.TestResult
	created  []*models.TestResult
	updated  []*models.TestResult
	byTeacher []models.TestResultDetail
}

func (m *mockTeacherTests) FindByID(ctx context.Context, id string) (*models.Test, error) {
	if test, ok := m.tests[id]; ok {
		return test, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTeacherTests) ListByTeacher(ctx context.Context, teacherID string) ([]models.Test, error) {
	return nil, nil
}

func (m *mockTeacherTests) Create(ctx context.Context, test *models.Test) error {
	m.tests[test.ID] = test
	return nil
}

func (m *mockTeacherTests) Update(ctx context.Context, test *models.Test) error {
	m.tests[test.ID] = test
	return nil
}

func (m *mockTeacherTests) Delete(ctx context.Context, id string) error {
	delete(m.tests, id)
	return nil
}

func (m *mockTeacherTests) FindResult(ctx context.Context, testID, studentID string) (*models.TestResult, error) {
	if res, ok := m.results[testID+"/"+studentID]; ok {
		return res, nil
	}
	return nil, nil
}

func (m *mockTeacherTests) CreateResult(ctx context.Context, result *models.TestResult) error {
	m.results[result.TestID+"/"+result.StudentID] = result
	m.created = append(m.created, result)
	return nil
}

func (m *mockTeacherTests) UpdateResult(ctx context.Context, result *models.TestResult) error {
	m.updated = append(m.updated, result)
	return nil
}

func (m *mockTeacherTests) ListResultsByTest(ctx context.Context, testID string) ([]models.TestResultDetail, error) {
	return nil, nil
}

func (m *mockTeacherTests) ListResultsByStudentForTeacher(ctx context.Context, studentID, teacherID string) ([]models.TestResultDetail, error) {
	return m.byTeacher, nil
}

func teacherActor(id string) policy.Actor {
	return policy.Actor{Role: models.RoleTeacher, UserID: "user-9", TeacherID: id}
}

func ownedBatchDetail(id, teacherID string) *models.BatchDetail {
	return &models.BatchDetail{Batch: models.Batch{ID: id, Name: "Morning A", TeacherID: &teacherID, Timing: "08:00-09:00"}}
}

func TestTeacherServiceMarkAttendanceMembership(t *testing.T) {
	batches := &mockTeacherBatches{
		batches: map[string]*models.BatchDetail{"batch-1": ownedBatchDetail("batch-1", "teacher-1")},
		members: map[string]bool{"batch-1/student-1": true},
	}
	attendances := &mockTeacherAttendances{}
	svc := NewTeacherService(nil, batches, attendances, nil, nil, nil, nil, nil)

	req := MarkAttendanceRequest{
		BatchID: "batch-1",
		Date:    time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Records: []AttendanceEntry{
			{StudentID: "student-1", Present: true},
			{StudentID: "student-2", Present: false},
		},
	}
	err := svc.MarkAttendance(context.Background(), teacherActor("teacher-1"), req)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	// nothing written when any entry is outside the batch
	assert.Empty(t, attendances.marked)

	req.Records = req.Records[:1]
	require.NoError(t, svc.MarkAttendance(context.Background(), teacherActor("teacher-1"), req))
	require.Len(t, attendances.marked, 1)
	assert.Equal(t, "teacher-1", attendances.marked[0].MarkedBy)
}

func TestTeacherServiceMarkAttendanceForeignBatch(t *testing.T) {
	batches := &mockTeacherBatches{
		batches: map[string]*models.BatchDetail{"batch-1": ownedBatchDetail("batch-1", "teacher-2")},
	}
	attendances := &mockTeacherAttendances{}
	svc := NewTeacherService(nil, batches, attendances, nil, nil, nil, nil, nil)

	req := MarkAttendanceRequest{
		BatchID: "batch-1",
		Date:    time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Records: []AttendanceEntry{{StudentID: "student-1", Present: true}},
	}
	err := svc.MarkAttendance(context.Background(), teacherActor("teacher-1"), req)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden.Code))
	assert.Empty(t, attendances.marked)
}

func TestTeacherServiceUploadResultsIdempotent(t *testing.T) {
	tests := &mockTeacherTests{
		tests: map[string]*models.Test{
			"test-1": {ID: "test-1", TeacherID: "teacher-1", TotalMarks: 50, Published: true},
		},
		results: map[string]*models.TestResult{},
	}
	svc := NewTeacherService(nil, nil, nil, tests, nil, nil, nil, nil)

	req := UploadResultsRequest{
		TestID:  "test-1",
		Results: []ResultEntry{{StudentID: "student-1", MarksObtained: 40}},
	}
	require.NoError(t, svc.UploadResults(context.Background(), teacherActor("teacher-1"), req))
	require.Len(t, tests.created, 1)
	assert.Equal(t, 80, tests.created[0].Percentage)
	assert.NotNil(t, tests.created[0].EvaluatedAt)

	// same sheet again updates the existing row instead of failing
	req.Results[0].MarksObtained = 45
	require.NoError(t, svc.UploadResults(context.Background(), teacherActor("teacher-1"), req))
	require.Len(t, tests.updated, 1)
	assert.Equal(t, 45, tests.updated[0].MarksObtained)
	assert.Equal(t, 90, tests.updated[0].Percentage)
	assert.Len(t, tests.created, 1)
}

func TestTeacherServiceUploadResultsForeignTest(t *testing.T) {
	tests := &mockTeacherTests{
		tests: map[string]*models.Test{
			"test-1": {ID: "test-1", TeacherID: "teacher-2", TotalMarks: 50},
		},
		results: map[string]*models.TestResult{},
	}
	svc := NewTeacherService(nil, nil, nil, tests, nil, nil, nil, nil)

	req := UploadResultsRequest{
		TestID:  "test-1",
		Results: []ResultEntry{{StudentID: "student-1", MarksObtained: 10}},
	}
	err := svc.UploadResults(context.Background(), teacherActor("teacher-1"), req)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden.Code))
}

func TestTeacherServiceCreateTestPassingMarks(t *testing.T) {
	tests := &mockTeacherTests{tests: map[string]*models.Test{}, results: map[string]*models.TestResult{}}
	svc := NewTeacherService(nil, nil, nil, tests, nil, nil, nil, nil)

	_, err := svc.CreateTest(context.Background(), teacherActor("teacher-1"), TestRequest{
		Title: "Unit Test 1", TotalMarks: 50, PassingMarks: 60,
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestTeacherServicePerformanceScoping(t *testing.T) {
	batches := &mockTeacherBatches{
		teacherIDs: []string{"batch-1"},
		studentIDs: []string{"batch-1", "batch-2"},
	}
	attendances := &mockTeacherAttendances{summaries: []models.BatchAttendanceSummary{
		{BatchID: "batch-1", Total: 10, Present: 9},
		{BatchID: "batch-2", Total: 10, Present: 2},
	}}
	tests := &mockTeacherTests{
		tests:     map[string]*models.Test{},
		results:   map[string]*models.TestResult{},
		byTeacher: []models.TestResultDetail{{TestResult: models.TestResult{ID: "res-1"}}},
	}
	students := &mockStudentLookup{students: map[string]*models.StudentDetail{
		"student-1": {Student: models.Student{ID: "student-1"}},
	}}
	svc := NewTeacherService(nil, batches, attendances, tests, nil, students, nil, nil)

	perf, err := svc.Performance(context.Background(), teacherActor("teacher-1"), "student-1")
	require.NoError(t, err)
	// only the shared batch appears in the attendance view
	require.Len(t, perf.Attendance, 1)
	assert.Equal(t, "batch-1", perf.Attendance[0].BatchID)
	assert.Len(t, perf.Results, 1)
}

func TestTeacherServicePerformanceNoSharedBatch(t *testing.T) {
	batches := &mockTeacherBatches{
		teacherIDs: []string{"batch-1"},
		studentIDs: []string{"batch-3"},
	}
	students := &mockStudentLookup{students: map[string]*models.StudentDetail{
		"student-1": {Student: models.Student{ID: "student-1"}},
	}}
	svc := NewTeacherService(nil, batches, &mockTeacherAttendances{}, &mockTeacherTests{}, nil, students, nil, nil)

	_, err := svc.Performance(context.Background(), teacherActor("teacher-1"), "student-1")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden.Code))
}
