package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrutiigupta24/institute-api/internal/models"
	appErrors "github.com/shrutiigupta24/institute-api/pkg/errors"
)

type mockBatchRepo struct {
	batches        map[string]*models.BatchDetail
	nameConflict   *models.Batch
	timingConflict *models.Batch
	created        *models.Batch
	updated        *models.Batch
	enrollErr      error
	enrolled       [][2]string
	unenrolled     [][2]string
	students       []models.StudentDetail
}

func (m *mockBatchRepo) List(ctx context.Context, filter models.BatchFilter) ([]models.BatchDetail, int, error) {
	var out []models.BatchDetail
	for _, b := range m.batches {
		out = append(out, *b)
	}
	return out, len(out), nil
}

func (m *mockBatchRepo) FindByID(ctx context.Context, id string) (*models.BatchDetail, error) {
	if b, ok := m.batches[id]; ok {
		return b, nil
	}
	if m.created != nil && m.created.ID == id {
		return &models.BatchDetail{Batch: *m.created}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockBatchRepo) FindNameConflict(ctx context.Context, name, courseID string, teacherID *string, excludeID string) (*models.Batch, error) {
	return m.nameConflict, nil
}

func (m *mockBatchRepo) FindTeacherTimingConflict(ctx context.Context, teacherID, timing, excludeID string) (*models.Batch, error) {
	return m.timingConflict, nil
}

func (m *mockBatchRepo) Create(ctx context.Context, batch *models.Batch) error {
	batch.ID = "batch-new"
	m.created = batch
	return nil
}

func (m *mockBatchRepo) Update(ctx context.Context, batch *models.Batch) error {
	m.updated = batch
	if b, ok := m.batches[batch.ID]; ok {
		b.Batch = *batch
	}
	return nil
}

func (m *mockBatchRepo) Delete(ctx context.Context, id string) error {
	delete(m.batches, id)
	return nil
}

func (m *mockBatchRepo) Enroll(ctx context.Context, batchID, studentID string) error {
	if m.enrollErr != nil {
		return m.enrollErr
	}
	m.enrolled = append(m.enrolled, [2]string{batchID, studentID})
	return nil
}

func (m *mockBatchRepo) Unenroll(ctx context.Context, batchID, studentID string) error {
	m.unenrolled = append(m.unenrolled, [2]string{batchID, studentID})
	return nil
}

func (m *mockBatchRepo) ListStudents(ctx context.Context, batchID string) ([]models.StudentDetail, error) {
	return m.students, nil
}

type mockCourseLookup struct {
	courses map[string]*models.Course
}

func (m *mockCourseLookup) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

type mockTeacherLookup struct {
	teachers map[string]*models.TeacherDetail
}

func (m *mockTeacherLookup) FindByID(ctx context.Context, id string) (*models.TeacherDetail, error) {
	if t, ok := m.teachers[id]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

type mockStudentLookup struct {
	students map[string]*models.StudentDetail
}

func (m *mockStudentLookup) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func newBatchServiceFixture() (*BatchService, *mockBatchRepo) {
	repo := &mockBatchRepo{batches: map[string]*models.BatchDetail{}}
	courses := &mockCourseLookup{courses: map[string]*models.Course{
		"course-1": {ID: "course-1", Name: "Physics"},
	}}
	teachers := &mockTeacherLookup{teachers: map[string]*models.TeacherDetail{
		"teacher-1": {Teacher: models.Teacher{ID: "teacher-1"}},
	}}
	students := &mockStudentLookup{students: map[string]*models.StudentDetail{
		"student-1": {Student: models.Student{ID: "student-1"}},
	}}
	return NewBatchService(repo, courses, teachers, students, nil, nil), repo
}

func TestBatchServiceCreate(t *testing.T) {
	svc, repo := newBatchServiceFixture()

	teacherID := "teacher-1"
	batch, err := svc.Create(context.Background(), BatchRequest{
		Name:     "Morning A",
		CourseID: "course-1",
		TeacherID: &teacherID,
		Timing:   "10:00-11:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "batch-new", batch.ID)
	assert.Equal(t, "10:00-11:00", repo.created.Timing)
}

func TestBatchServiceCreateUnknownCourse(t *testing.T) {
	svc, _ := newBatchServiceFixture()

	_, err := svc.Create(context.Background(), BatchRequest{Name: "Morning A", CourseID: "missing", Timing: "10:00-11:00"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}

func TestBatchServiceCreateNameConflict(t *testing.T) {
	svc, repo := newBatchServiceFixture()
	repo.nameConflict = &models.Batch{ID: "batch-1", Name: "Morning A"}

	_, err := svc.Create(context.Background(), BatchRequest{Name: "Morning A", CourseID: "course-1", Timing: "10:00-11:00"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))
	assert.Nil(t, repo.created)
}

func TestBatchServiceCreateTeacherTimingConflict(t *testing.T) {
	svc, repo := newBatchServiceFixture()
	repo.timingConflict = &models.Batch{ID: "batch-1", Name: "Evening B", Timing: "10:00-11:00"}

	teacherID := "teacher-1"
	_, err := svc.Create(context.Background(), BatchRequest{
		Name:      "Morning A",
		CourseID:  "course-1",
		TeacherID: &teacherID,
		Timing:    "10:00-11:00",
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))
	assert.Contains(t, err.Error(), "Evening B")
}

func TestBatchServiceCreateMissingTiming(t *testing.T) {
	svc, _ := newBatchServiceFixture()

	_, err := svc.Create(context.Background(), BatchRequest{Name: "Morning A", CourseID: "course-1"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestBatchServiceEnrollPassesConflictThrough(t *testing.T) {
	svc, repo := newBatchServiceFixture()
	repo.enrollErr = appErrors.Clone(appErrors.ErrConflict, `timing conflict with batch "Evening B" (10:00-11:00)`)

	err := svc.Enroll(context.Background(), "batch-1", "student-1")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))
	assert.Contains(t, err.Error(), "Evening B")
}

func TestBatchServiceEnrollUnknownStudent(t *testing.T) {
	svc, repo := newBatchServiceFixture()

	err := svc.Enroll(context.Background(), "batch-1", "missing")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
	assert.Empty(t, repo.enrolled)
}

func TestBatchServiceEnroll(t *testing.T) {
	svc, repo := newBatchServiceFixture()

	err := svc.Enroll(context.Background(), "batch-1", "student-1")
	require.NoError(t, err)
	require.Len(t, repo.enrolled, 1)
	assert.Equal(t, [2]string{"batch-1", "student-1"}, repo.enrolled[0])
}
