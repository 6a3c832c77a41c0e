package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/shrutiigupta24/institute-api/internal/models"
	"github.com/shrutiigupta24/institute-api/pkg/config"
	appErrors "github.com/shrutiigupta24/institute-api/pkg/errors"
)

type mockAuthUsers struct {
	user             *models.User
	findErr          error
	lastLoginUpdated bool
	passwordUpdated  string
}

func (m *mockAuthUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.user, nil
}

func (m *mockAuthUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.user, nil
}

func (m *mockAuthUsers) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthUsers) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	m.passwordUpdated = passwordHash
	return nil
}

type mockAuthStudents struct {
	student *models.StudentDetail
}

func (m *mockAuthStudents) FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error) {
	if m.student == nil {
		return nil, sql.ErrNoRows
	}
	return m.student, nil
}

type mockAuthTeachers struct {
	teacher *models.TeacherDetail
}

func (m *mockAuthTeachers) FindByUserID(ctx context.Context, userID string) (*models.TeacherDetail, error) {
	if m.teacher == nil {
		return nil, sql.ErrNoRows
	}
	return m.teacher, nil
}

func authTestUser(t *testing.T, role models.UserRole, active bool) *models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "user-1",
		Email:        "user@example.com",
		Username:     "user",
		PasswordHash: string(hash),
		FullName:     "Test User",
		Role:         role,
		Active:       active,
	}
}

func authTestConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "institute-api"}
}

func TestAuthServiceLoginStudentCarriesProfileID(t *testing.T) {
	users := &mockAuthUsers{user: authTestUser(t, models.RoleStudent, true)}
	students := &mockAuthStudents{student: &models.StudentDetail{Student: models.Student{ID: "student-1"}}}
	svc := NewAuthService(users, students, &mockAuthTeachers{}, authTestConfig(), nil, nil)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.True(t, users.lastLoginUpdated)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "student-1", claims.StudentID)
	assert.Empty(t, claims.TeacherID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	users := &mockAuthUsers{user: authTestUser(t, models.RoleAdmin, true)}
	svc := NewAuthService(users, &mockAuthStudents{}, &mockAuthTeachers{}, authTestConfig(), nil, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidCredentials.Code))
	assert.False(t, users.lastLoginUpdated)
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	users := &mockAuthUsers{findErr: sql.ErrNoRows}
	svc := NewAuthService(users, &mockAuthStudents{}, &mockAuthTeachers{}, authTestConfig(), nil, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ghost@example.com", Password: "secret123"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidCredentials.Code))
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	users := &mockAuthUsers{user: authTestUser(t, models.RoleTeacher, false)}
	svc := NewAuthService(users, &mockAuthStudents{}, &mockAuthTeachers{}, authTestConfig(), nil, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "secret123"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInactiveAccount.Code))
}

func TestAuthServiceLoginTeacherWithoutProfile(t *testing.T) {
	users := &mockAuthUsers{user: authTestUser(t, models.RoleTeacher, true)}
	svc := NewAuthService(users, &mockAuthStudents{}, &mockAuthTeachers{}, authTestConfig(), nil, nil)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "secret123"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Empty(t, claims.TeacherID)
}

func TestAuthServiceValidateTokenRejectsGarbage(t *testing.T) {
	svc := NewAuthService(&mockAuthUsers{}, &mockAuthStudents{}, &mockAuthTeachers{}, authTestConfig(), nil, nil)

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized.Code))
}

func TestAuthServiceChangePassword(t *testing.T) {
	users := &mockAuthUsers{user: authTestUser(t, models.RoleStudent, true)}
	svc := NewAuthService(users, &mockAuthStudents{}, &mockAuthTeachers{}, authTestConfig(), nil, nil)

	err := svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{
		OldPassword: "secret123",
		NewPassword: "newsecret",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, users.passwordUpdated)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users.passwordUpdated), []byte("newsecret")))
}

func TestAuthServiceChangePasswordWrongCurrent(t *testing.T) {
	users := &mockAuthUsers{user: authTestUser(t, models.RoleStudent, true)}
	svc := NewAuthService(users, &mockAuthStudents{}, &mockAuthTeachers{}, authTestConfig(), nil, nil)

	err := svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{
		OldPassword: "wrong",
		NewPassword: "newsecret",
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	assert.Empty(t, users.passwordUpdated)
}
