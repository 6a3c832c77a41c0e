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

func newUserMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func userRow(id, email string, role models.UserRole) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "username", "password_hash", "full_name", "phone", "role", "active", "last_login", "created_at", "updated_at"}).
		AddRow(id, email, "user", "hash", "Full Name", "123", role, true, nil, time.Now(), time.Now())
}

func TestUserRepositoryFindByEmail(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery("FROM users WHERE LOWER\\(email\\) = LOWER\\(\\$1\\)").
		WithArgs("asha@example.com").
		WillReturnRows(userRow("user-1", "asha@example.com", models.RoleStudent))

	user, err := repo.FindByEmail(context.Background(), " asha@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreateNormalizes(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").
		WithArgs(sqlmock.AnyArg(), "asha@example.com", "asha", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	user := &models.User{Email: " ASHA@Example.com ", Username: " asha ", Role: models.RoleStudent, Active: true}
	err := repo.Create(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", user.Email)
	assert.NotEmpty(t, user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryFindFirstAdmin(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery("FROM users WHERE role = \\$1 ORDER BY created_at ASC LIMIT 1").
		WithArgs(models.RoleAdmin).
		WillReturnRows(userRow("admin-1", "admin@example.com", models.RoleAdmin))

	admin, err := repo.FindFirstAdmin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}
