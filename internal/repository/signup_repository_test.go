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

func newSignupMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSignupRepositoryCreateNormalizesEmail(t *testing.T) {
	db, mock, cleanup := newSignupMock(t)
	defer cleanup()
	repo := NewSignupRepository(db)

	mock.ExpectExec("INSERT INTO signup_requests").
		WithArgs(sqlmock.AnyArg(), "Asha Rao", "asha@example.com", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	req := &models.SignupRequest{FullName: "Asha Rao", Email: "  ASHA@Example.COM ", DesiredRole: models.RoleStudent}
	err := repo.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", req.Email)
	assert.Equal(t, models.SignupPending, req.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSignupRepositoryCreateDuplicatePending(t *testing.T) {
	db, mock, cleanup := newSignupMock(t)
	defer cleanup()
	repo := NewSignupRepository(db)

	mock.ExpectExec("INSERT INTO signup_requests").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.SignupRequest{Email: "asha@example.com", DesiredRole: models.RoleStudent})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSignupRepositoryApprove(t *testing.T) {
	db, mock, cleanup := newSignupMock(t)
	defer cleanup()
	repo := NewSignupRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE signup_requests SET status").
		WithArgs("req-1", models.SignupApproved, nil, sqlmock.AnyArg(), "admin-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO users").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO students").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	req := &models.SignupRequest{ID: "req-1", Email: "asha@example.com", Status: models.SignupPending}
	user := &models.User{Email: "asha@example.com", Role: models.RoleStudent, Active: true}
	student := &models.Student{CourseLabel: "Physics"}

	err := repo.Approve(context.Background(), req, "admin-1", user, student, nil)
	require.NoError(t, err)
	assert.Equal(t, models.SignupApproved, req.Status)
	require.NotNil(t, req.DecidedBy)
	assert.Equal(t, "admin-1", *req.DecidedBy)
	assert.Equal(t, user.ID, student.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSignupRepositoryApproveAlreadyDecided(t *testing.T) {
	db, mock, cleanup := newSignupMock(t)
	defer cleanup()
	repo := NewSignupRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE signup_requests SET status").
		WithArgs("req-1", models.SignupApproved, nil, sqlmock.AnyArg(), "admin-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	req := &models.SignupRequest{ID: "req-1", Email: "asha@example.com", Status: models.SignupPending}
	user := &models.User{Email: "asha@example.com", Role: models.RoleStudent, Active: true}

	err := repo.Approve(context.Background(), req, "admin-1", user, &models.Student{}, nil)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSignupRepositoryReject(t *testing.T) {
	db, mock, cleanup := newSignupMock(t)
	defer cleanup()
	repo := NewSignupRepository(db)

	note := "incomplete details"
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE signup_requests SET status").
		WithArgs("req-1", models.SignupRejected, &note, sqlmock.AnyArg(), "admin-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req := &models.SignupRequest{ID: "req-1", Status: models.SignupPending, AdminNote: &note}
	err := repo.Reject(context.Background(), req, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.SignupRejected, req.Status)
	assert.NotNil(t, req.DecidedAt)
	assert.WithinDuration(t, time.Now().UTC(), *req.DecidedAt, time.Minute)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSignupRepositoryHasPendingByEmail(t *testing.T) {
	db, mock, cleanup := newSignupMock(t)
	defer cleanup()
	repo := NewSignupRepository(db)

	mock.ExpectQuery("SELECT EXISTS \\(SELECT 1 FROM signup_requests").
		WithArgs("asha@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	pending, err := repo.HasPendingByEmail(context.Background(), "asha@example.com")
	require.NoError(t, err)
	assert.True(t, pending)
	assert.NoError(t, mock.ExpectationsWereMet())
}
