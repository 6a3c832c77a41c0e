package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrutiigupta24/institute-api/internal/models"
	appErrors "github.com/shrutiigupta24/institute-api/pkg/errors"
)

func newTestMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestTestRepositoryCreateResultDuplicate(t *testing.T) {
	db, mock, cleanup := newTestMock(t)
	defer cleanup()
	repo := NewTestRepository(db)

	mock.ExpectExec("INSERT INTO test_results").
		WillReturnError(&pq.Error{Code: "23505"})

	now := time.Now()
	err := repo.CreateResult(context.Background(), &models.TestResult{TestID: "test-1", StudentID: "student-1", SubmittedAt: &now})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTestRepositoryFindResultMissing(t *testing.T) {
	db, mock, cleanup := newTestMock(t)
	defer cleanup()
	repo := NewTestRepository(db)

	mock.ExpectQuery("FROM test_results WHERE test_id = \\$1 AND student_id = \\$2").
		WithArgs("test-1", "student-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	result, err := repo.FindResult(context.Background(), "test-1", "student-1")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTestRepositoryListAvailableAnnotatesCompletion(t *testing.T) {
	db, mock, cleanup := newTestMock(t)
	defer cleanup()
	repo := NewTestRepository(db)

	courseID := "course-1"
	testRows := sqlmock.NewRows([]string{"id", "title", "description", "course_id", "teacher_id", "total_marks", "passing_marks", "duration_minutes", "test_date", "published", "created_at", "course_name", "teacher_name"}).
		AddRow("test-1", "Unit 1", "", &courseID, "teacher-1", 100, 40, 60, nil, true, time.Now(), "Physics", "R. Iyer").
		AddRow("test-2", "Unit 2", "", &courseID, "teacher-1", 100, 40, 60, nil, true, time.Now(), "Physics", "R. Iyer")
	mock.ExpectQuery("WHERE t.published = TRUE").
		WithArgs("course-1").
		WillReturnRows(testRows)

	submitted := time.Now()
	resultRows := sqlmock.NewRows([]string{"id", "test_id", "student_id", "marks_obtained", "percentage", "remarks", "submitted_at", "evaluated_at", "created_at"}).
		AddRow("res-1", "test-1", "student-1", 72, 72, "", &submitted, &submitted, time.Now())
	mock.ExpectQuery("FROM test_results WHERE student_id = \\$1").
		WithArgs("student-1").
		WillReturnRows(resultRows)

	available, err := repo.ListAvailable(context.Background(), "student-1", []string{"course-1"})
	require.NoError(t, err)
	require.Len(t, available, 2)
	assert.True(t, available[0].Completed)
	require.NotNil(t, available[0].Marks)
	assert.Equal(t, 72, *available[0].Marks)
	assert.False(t, available[1].Completed)
	assert.Nil(t, available[1].Marks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTestRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newTestMock(t)
	defer cleanup()
	repo := NewTestRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM test_results WHERE test_id").
		WithArgs("test-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM tests WHERE id").
		WithArgs("test-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Delete(context.Background(), "test-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTestRepositoryMarksReport(t *testing.T) {
	db, mock, cleanup := newTestMock(t)
	defer cleanup()
	repo := NewTestRepository(db)

	rows := sqlmock.NewRows([]string{"test_id", "test_title", "course_name", "teacher_name", "total_marks", "attempts", "avg_percentage", "pass_count"}).
		AddRow("test-1", "Algebra Unit 2", "Mathematics", "R. Iyer", 50, 12, 71.5, 9).
		AddRow("test-2", "Optics Quiz", "", "S. Menon", 20, 0, 0, 0)
	mock.ExpectQuery("FROM tests t").WillReturnRows(rows)

	report, err := repo.MarksReport(context.Background())
	require.NoError(t, err)
	require.Len(t, report, 2)
	assert.Equal(t, "Algebra Unit 2", report[0].TestTitle)
	assert.Equal(t, 12, report[0].Attempts)
	assert.InDelta(t, 71.5, report[0].AveragePercentage, 0.01)
	assert.Equal(t, 9, report[0].PassCount)
	assert.Zero(t, report[1].Attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}
