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

type mockPortalTests struct {
	tests     map[string]*models.Test
	results   map[string]*models.TestResult
	created   *models.TestResult
	available []models.AvailableTest
	byStudent []models.TestResultDetail
}

func (m *mockPortalTests) FindByID(ctx context.Context, id string) (*models.Test, error) {
	if test, ok := m.tests[id]; ok {
		return test, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPortalTests) ListAvailable(ctx context.Context, studentID string, courseIDs []string) ([]models.AvailableTest, error) {
	return m.available, nil
}

func (m *mockPortalTests) FindResult(ctx context.Context, testID, studentID string) (*models.TestResult, error) {
	if res, ok := m.results[testID+"/"+studentID]; ok {
		return res, nil
	}
	return nil, nil
}

func (m *mockPortalTests) CreateResult(ctx context.Context, result *models.TestResult) error {
	m.created = result
	return nil
}

func (m *mockPortalTests) ListResultsByStudent(ctx context.Context, studentID string) ([]models.TestResultDetail, error) {
	return m.byStudent, nil
}

type mockPortalCourses struct {
	courseIDs []string
}

func (m *mockPortalCourses) ListIDsByStudent(ctx context.Context, studentID string) ([]string, error) {
	return m.courseIDs, nil
}

func studentActor(id string) policy.Actor {
	return policy.Actor{Role: models.RoleStudent, UserID: "user-1", StudentID: id}
}

func newStudentServiceFixture(tests *mockPortalTests) *StudentService {
	return NewStudentService(
		&mockStudentLookup{students: map[string]*models.StudentDetail{
			"student-1": {Student: models.Student{ID: "student-1"}},
		}},
		nil, // batches unused in these paths
		&mockPortalCourses{courseIDs: []string{"course-1"}},
		nil,
		nil,
		tests,
		nil,
		nil, nil,
	)
}

func TestStudentServiceSubmitTestRoundsPercentage(t *testing.T) {
	tests := &mockPortalTests{
		tests:   map[string]*models.Test{"test-1": {ID: "test-1", TotalMarks: 30, Published: true}},
		results: map[string]*models.TestResult{},
	}
	svc := newStudentServiceFixture(tests)

	result, err := svc.SubmitTest(context.Background(), studentActor("student-1"), SubmitTestRequest{TestID: "test-1", MarksObtained: 20})
	require.NoError(t, err)
	// 20/30 = 66.67 rounds to 67
	assert.Equal(t, 67, result.Percentage)
	assert.NotNil(t, result.SubmittedAt)
	assert.Nil(t, result.EvaluatedAt)
}

func TestStudentServiceSubmitTestZeroTotal(t *testing.T) {
	tests := &mockPortalTests{
		tests:   map[string]*models.Test{"test-1": {ID: "test-1", TotalMarks: 0, Published: true}},
		results: map[string]*models.TestResult{},
	}
	svc := newStudentServiceFixture(tests)

	_, err := svc.SubmitTest(context.Background(), studentActor("student-1"), SubmitTestRequest{TestID: "test-1", MarksObtained: 0})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	assert.Nil(t, tests.created)
}

func TestStudentServiceSubmitTestTwice(t *testing.T) {
	now := time.Now()
	tests := &mockPortalTests{
		tests: map[string]*models.Test{"test-1": {ID: "test-1", TotalMarks: 100, Published: true}},
		results: map[string]*models.TestResult{
			"test-1/student-1": {ID: "res-1", TestID: "test-1", StudentID: "student-1", SubmittedAt: &now},
		},
	}
	svc := newStudentServiceFixture(tests)

	_, err := svc.SubmitTest(context.Background(), studentActor("student-1"), SubmitTestRequest{TestID: "test-1", MarksObtained: 50})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))
}

func TestStudentServiceSubmitTestUnpublished(t *testing.T) {
	tests := &mockPortalTests{
		tests:   map[string]*models.Test{"test-1": {ID: "test-1", TotalMarks: 100, Published: false}},
		results: map[string]*models.TestResult{},
	}
	svc := newStudentServiceFixture(tests)

	_, err := svc.SubmitTest(context.Background(), studentActor("student-1"), SubmitTestRequest{TestID: "test-1", MarksObtained: 50})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}

func TestStudentServiceSubmitTestMarksOverTotal(t *testing.T) {
	tests := &mockPortalTests{
		tests:   map[string]*models.Test{"test-1": {ID: "test-1", TotalMarks: 50, Published: true}},
		results: map[string]*models.TestResult{},
	}
	svc := newStudentServiceFixture(tests)

	_, err := svc.SubmitTest(context.Background(), studentActor("student-1"), SubmitTestRequest{TestID: "test-1", MarksObtained: 60})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestStudentServiceRequiresStudentRole(t *testing.T) {
	svc := newStudentServiceFixture(&mockPortalTests{})

	actor := policy.Actor{Role: models.RoleTeacher, UserID: "user-2", TeacherID: "teacher-1"}
	_, err := svc.SubmitTest(context.Background(), actor, SubmitTestRequest{TestID: "test-1", MarksObtained: 10})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden.Code))
}

func TestStudentServiceRequiresLinkedProfile(t *testing.T) {
	svc := newStudentServiceFixture(&mockPortalTests{})

	actor := policy.Actor{Role: models.RoleStudent, UserID: "user-3"}
	_, err := svc.AvailableTests(context.Background(), actor)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden.Code))
}

func TestStudentServiceResultsGroupsByCourse(t *testing.T) {
	courseA := "course-1"
	courseB := "course-2"
	tests := &mockPortalTests{byStudent: []models.TestResultDetail{
		{TestResult: models.TestResult{Percentage: 92}, CourseID: &courseA},
		{TestResult: models.TestResult{Percentage: 88}, CourseID: &courseA},
		{TestResult: models.TestResult{Percentage: 45}, CourseID: &courseB},
	}}
	svc := newStudentServiceFixture(tests)

	grouped, err := svc.Results(context.Background(), studentActor("student-1"))
	require.NoError(t, err)
	require.Len(t, grouped, 2)
	assert.Equal(t, "course-1", grouped[0].CourseID)
	assert.InDelta(t, 90.0, grouped[0].Average, 0.01)
	assert.Equal(t, "A+", grouped[0].Grade)
	assert.Equal(t, "F", grouped[1].Grade)
}
