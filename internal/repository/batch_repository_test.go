package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrutiigupta24/institute-api/internal/models"
	appErrors "github.com/shrutiigupta24/institute-api/pkg/errors"
)

func newBatchMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func batchRow(id, name, timing string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "code", "course_id", "teacher_id", "timing", "days", "max_students", "start_date", "end_date", "created_at", "updated_at"}).
		AddRow(id, name, "B-01", "course-1", "teacher-1", timing, "Mon,Wed", 0, nil, nil, time.Now(), time.Now())
}

func TestBatchRepositoryEnroll(t *testing.T) {
	db, mock, cleanup := newBatchMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, name, code, course_id, teacher_id, timing, days, max_students,").
		WithArgs("batch-1").
		WillReturnRows(batchRow("batch-1", "Morning A", "10:00-11:00"))
	mock.ExpectQuery("SELECT EXISTS \\(SELECT 1 FROM batch_students").
		WithArgs("batch-1", "student-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("FROM batches b JOIN batch_students bs").
		WithArgs("student-1", "10:00-11:00").
		WillReturnRows(batchRow("batch-2", "Evening A", "10:00-11:00"))
	mock.ExpectRollback()

	// An existing batch at the same timing label blocks enrollment.
	err := repo.Enroll(context.Background(), "batch-1", "student-1")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))
	assert.Contains(t, err.Error(), "timing conflict")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepositoryEnrollSuccess(t *testing.T) {
	db, mock, cleanup := newBatchMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, name, code, course_id, teacher_id, timing, days, max_students,").
		WithArgs("batch-1").
		WillReturnRows(batchRow("batch-1", "Morning A", "10:00-11:00"))
	mock.ExpectQuery("SELECT EXISTS \\(SELECT 1 FROM batch_students").
		WithArgs("batch-1", "student-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("FROM batches b JOIN batch_students bs").
		WithArgs("student-1", "10:00-11:00").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO batch_students").
		WithArgs("batch-1", "student-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Enroll(context.Background(), "batch-1", "student-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepositoryEnrollDuplicate(t *testing.T) {
	db, mock, cleanup := newBatchMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, name, code, course_id, teacher_id, timing, days, max_students,").
		WithArgs("batch-1").
		WillReturnRows(batchRow("batch-1", "Morning A", "10:00-11:00"))
	mock.ExpectQuery("SELECT EXISTS \\(SELECT 1 FROM batch_students").
		WithArgs("batch-1", "student-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err := repo.Enroll(context.Background(), "batch-1", "student-1")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepositoryUnenrollMissing(t *testing.T) {
	db, mock, cleanup := newBatchMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	mock.ExpectExec("DELETE FROM batch_students").
		WithArgs("batch-1", "student-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Unenroll(context.Background(), "batch-1", "student-1")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepositoryFindNameConflict(t *testing.T) {
	db, mock, cleanup := newBatchMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	teacherID := "teacher-1"
	mock.ExpectQuery("FROM batches b WHERE b.name = \\$1 AND b.course_id = \\$2").
		WithArgs("Morning A", "course-1", &teacherID).
		WillReturnRows(batchRow("batch-2", "Morning A", "10:00-11:00"))

	conflict, err := repo.FindNameConflict(context.Background(), "Morning A", "course-1", &teacherID, "")
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.Equal(t, "batch-2", conflict.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepositoryFindNameConflictNone(t *testing.T) {
	db, mock, cleanup := newBatchMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	mock.ExpectQuery("FROM batches b WHERE b.name = \\$1 AND b.course_id = \\$2").
		WithArgs("Morning B", "course-1", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	conflict, err := repo.FindNameConflict(context.Background(), "Morning B", "course-1", nil, "")
	require.NoError(t, err)
	assert.Nil(t, conflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepositoryFindTeacherTimingConflict(t *testing.T) {
	db, mock, cleanup := newBatchMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	mock.ExpectQuery("FROM batches b WHERE b.teacher_id = \\$1 AND b.timing = \\$2 AND b.id <> \\$3").
		WithArgs("teacher-1", "10:00-11:00", "batch-3").
		WillReturnRows(batchRow("batch-1", "Morning A", "10:00-11:00"))

	conflict, err := repo.FindTeacherTimingConflict(context.Background(), "teacher-1", "10:00-11:00", "batch-3")
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.Equal(t, "Morning A", conflict.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newBatchMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	mock.ExpectExec("INSERT INTO batches").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	batch := &models.Batch{Name: "Morning A", CourseID: "course-1", Timing: "10:00-11:00"}
	err := repo.Create(context.Background(), batch)
	require.NoError(t, err)
	assert.NotEmpty(t, batch.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newBatchMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM attendances WHERE batch_id").
		WithArgs("batch-1").
		WillReturnResult(sqlmock.NewResult(0, 8))
	mock.ExpectExec("DELETE FROM batch_students WHERE batch_id").
		WithArgs("batch-1").
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec("DELETE FROM batches WHERE id").
		WithArgs("batch-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Delete(context.Background(), "batch-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
