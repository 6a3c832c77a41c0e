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
)

func newAttendanceMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAttendanceRepositoryMark(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec("INSERT INTO attendances .* ON CONFLICT \\(student_id, batch_id, date\\)").
		WithArgs(sqlmock.AnyArg(), "student-1", "batch-1", sqlmock.AnyArg(), true, "", "teacher-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	record := &models.Attendance{StudentID: "student-1", BatchID: "batch-1", Date: time.Now(), Present: true, MarkedBy: "teacher-1"}
	err := repo.Mark(context.Background(), record)
	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryMarkBatch(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO attendances").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO attendances").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	date := time.Now()
	records := []models.Attendance{
		{StudentID: "student-1", BatchID: "batch-1", Date: date, Present: true, MarkedBy: "teacher-1"},
		{StudentID: "student-2", BatchID: "batch-1", Date: date, Present: false, MarkedBy: "teacher-1"},
	}
	err := repo.MarkBatch(context.Background(), records)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryListByBatches(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "batch_id", "date", "present", "remarks", "marked_by", "created_at", "student_name", "batch_name"}).
		AddRow("att-1", "student-1", "batch-1", time.Now(), true, "", "teacher-1", time.Now(), "Asha Rao", "Morning A")
	mock.ExpectQuery("FROM attendances a").
		WithArgs("batch-1", "batch-2").
		WillReturnRows(rows)

	records, err := repo.List(context.Background(), models.AttendanceFilter{BatchIDs: []string{"batch-1", "batch-2"}})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Asha Rao", records[0].StudentName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositorySummaryByStudent(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	rows := sqlmock.NewRows([]string{"batch_id", "batch_name", "total", "present"}).
		AddRow("batch-1", "Morning A", 10, 8).
		AddRow("batch-2", "Evening B", 4, 0)
	mock.ExpectQuery("GROUP BY a.batch_id, b.name").
		WithArgs("student-1").
		WillReturnRows(rows)

	summaries, err := repo.SummaryByStudent(context.Background(), "student-1")
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.InDelta(t, 80.0, summaries[0].Percentage, 0.01)
	assert.Zero(t, summaries[1].Percentage)
	assert.NoError(t, mock.ExpectationsWereMet())
}
