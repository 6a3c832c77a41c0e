package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/shrutiigupta24/institute-api/internal/models"
	appErrors "github.com/shrutiigupta24/institute-api/pkg/errors"
	"github.com/shrutiigupta24/institute-api/pkg/jobs"
)

type mockSignupRepo struct {
	requests map[string]*models.SignupRequest
	created  *models.SignupRequest
	approved *models.User
	student  *models.Student
	teacher  *models.Teacher
	rejected bool
	pending  map[string]bool
}

func (m *mockSignupRepo) Create(ctx context.Context, req *models.SignupRequest) error {
	req.ID = "req-1"
	req.Status = models.SignupPending
	m.created = req
	return nil
}

func (m *mockSignupRepo) FindByID(ctx context.Context, id string) (*models.SignupRequest, error) {
	if req, ok := m.requests[id]; ok {
		return req, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSignupRepo) List(ctx context.Context, status models.SignupRequestStatus) ([]models.SignupRequest, error) {
	return nil, nil
}

func (m *mockSignupRepo) HasPendingByEmail(ctx context.Context, email string) (bool, error) {
	return m.pending[email], nil
}

func (m *mockSignupRepo) Approve(ctx context.Context, req *models.SignupRequest, decidedBy string, user *models.User, student *models.Student, teacher *models.Teacher) error {
	req.Status = models.SignupApproved
	m.approved = user
	m.student = student
	m.teacher = teacher
	return nil
}

func (m *mockSignupRepo) Reject(ctx context.Context, req *models.SignupRequest, decidedBy string) error {
	req.Status = models.SignupRejected
	m.rejected = true
	return nil
}

type mockSignupUsers struct {
	emails    map[string]bool
	usernames map[string]bool
}

func (m *mockSignupUsers) EmailExists(ctx context.Context, email string) (bool, error) {
	return m.emails[email], nil
}

func (m *mockSignupUsers) UsernameExists(ctx context.Context, username string) (bool, error) {
	return m.usernames[username], nil
}

type mockNotifier struct {
	jobs []jobs.Job
	err  error
}

func (m *mockNotifier) Enqueue(job jobs.Job) error {
	if m.err != nil {
		return m.err
	}
	m.jobs = append(m.jobs, job)
	return nil
}

func validSignup() SubmitSignupRequest {
	return SubmitSignupRequest{
		FullName:    "Asha Verma",
		Email:       "asha@example.com",
		DesiredRole: "student",
		Username:    "asha.v",
		Password:    "secret123",
	}
}

func TestSignupServiceSubmit(t *testing.T) {
	repo := &mockSignupRepo{pending: map[string]bool{}}
	notifier := &mockNotifier{}
	svc := NewSignupService(repo, &mockSignupUsers{emails: map[string]bool{}, usernames: map[string]bool{}}, notifier, nil, nil)

	request, err := svc.Submit(context.Background(), validSignup())
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, request.DesiredRole)
	assert.Equal(t, models.SignupPending, request.Status)
	// stored hash verifies against the submitted password
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(request.PasswordHash), []byte("secret123")))
	require.Len(t, notifier.jobs, 1)
	assert.Equal(t, "admin_notice", notifier.jobs[0].Type)
}

func TestSignupServiceSubmitAdminRole(t *testing.T) {
	repo := &mockSignupRepo{pending: map[string]bool{}}
	svc := NewSignupService(repo, &mockSignupUsers{emails: map[string]bool{}, usernames: map[string]bool{}}, nil, nil, nil)

	req := validSignup()
	req.DesiredRole = "admin"
	_, err := svc.Submit(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	assert.Nil(t, repo.created)
}

func TestSignupServiceSubmitDuplicates(t *testing.T) {
	cases := []struct {
		name  string
		users *mockSignupUsers
		repo  *mockSignupRepo
	}{
		{
			name:  "email taken",
			users: &mockSignupUsers{emails: map[string]bool{"asha@example.com": true}, usernames: map[string]bool{}},
			repo:  &mockSignupRepo{pending: map[string]bool{}},
		},
		{
			name:  "pending request",
			users: &mockSignupUsers{emails: map[string]bool{}, usernames: map[string]bool{}},
			repo:  &mockSignupRepo{pending: map[string]bool{"asha@example.com": true}},
		},
		{
			name:  "username taken",
			users: &mockSignupUsers{emails: map[string]bool{}, usernames: map[string]bool{"asha.v": true}},
			repo:  &mockSignupRepo{pending: map[string]bool{}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewSignupService(tc.repo, tc.users, nil, nil, nil)
			_, err := svc.Submit(context.Background(), validSignup())
			require.Error(t, err)
			assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
			assert.Nil(t, tc.repo.created)
		})
	}
}

func TestSignupServiceSubmitNotifierFailure(t *testing.T) {
	repo := &mockSignupRepo{pending: map[string]bool{}}
	notifier := &mockNotifier{err: errors.New("queue full")}
	svc := NewSignupService(repo, &mockSignupUsers{emails: map[string]bool{}, usernames: map[string]bool{}}, notifier, nil, nil)

	_, err := svc.Submit(context.Background(), validSignup())
	require.NoError(t, err)
	assert.NotNil(t, repo.created)
}

func TestSignupServiceApproveStudent(t *testing.T) {
	repo := &mockSignupRepo{requests: map[string]*models.SignupRequest{
		"req-1": {
			ID: "req-1", Status: models.SignupPending,
			FullName: "Asha Verma", Email: "asha@example.com",
			DesiredRole: models.RoleStudent, AcademicFocus: "Physics",
			Username: "asha.v", PasswordHash: "$2a$hash",
		},
	}}
	svc := NewSignupService(repo, &mockSignupUsers{}, nil, nil, nil)

	request, err := svc.Approve(context.Background(), "req-1", "admin-1", DecideSignupRequest{AdminNote: "welcome"})
	require.NoError(t, err)
	assert.Equal(t, models.SignupApproved, request.Status)
	require.NotNil(t, repo.approved)
	assert.Equal(t, "$2a$hash", repo.approved.PasswordHash)
	assert.True(t, repo.approved.Active)
	require.NotNil(t, repo.student)
	assert.Equal(t, "Physics", repo.student.CourseLabel)
	assert.Nil(t, repo.teacher)
}

func TestSignupServiceApproveTeacher(t *testing.T) {
	repo := &mockSignupRepo{requests: map[string]*models.SignupRequest{
		"req-2": {
			ID: "req-2", Status: models.SignupPending,
			FullName: "Ravi Nair", Email: "ravi@example.com",
			DesiredRole: models.RoleTeacher, AcademicFocus: "Mathematics",
			Username: "ravi.n", PasswordHash: "$2a$hash",
		},
	}}
	svc := NewSignupService(repo, &mockSignupUsers{}, nil, nil, nil)

	_, err := svc.Approve(context.Background(), "req-2", "admin-1", DecideSignupRequest{})
	require.NoError(t, err)
	require.NotNil(t, repo.teacher)
	assert.Equal(t, "Mathematics", repo.teacher.Subject)
	assert.Nil(t, repo.student)
}

func TestSignupServiceDecisionIsTerminal(t *testing.T) {
	repo := &mockSignupRepo{requests: map[string]*models.SignupRequest{
		"req-1": {ID: "req-1", Status: models.SignupApproved, DesiredRole: models.RoleStudent},
	}}
	svc := NewSignupService(repo, &mockSignupUsers{}, nil, nil, nil)

	_, err := svc.Reject(context.Background(), "req-1", "admin-1", DecideSignupRequest{})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))
	assert.False(t, repo.rejected)

	_, err = svc.Approve(context.Background(), "req-1", "admin-1", DecideSignupRequest{})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))
}

func TestSignupServiceGetMissing(t *testing.T) {
	svc := NewSignupService(&mockSignupRepo{requests: map[string]*models.SignupRequest{}}, &mockSignupUsers{}, nil, nil, nil)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}
