package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/shrutiigupta24/institute-api/internal/models"
	appErrors "github.com/shrutiigupta24/institute-api/pkg/errors"
	"github.com/shrutiigupta24/institute-api/pkg/jobs"
)

type signupRepository interface {
	Create(ctx context.Context, req *models.SignupRequest) error
	FindByID(ctx context.Context, id string) (*models.SignupRequest, error)
	List(ctx context.Context, status models.SignupRequestStatus) ([]models.SignupRequest, error)
	HasPendingByEmail(ctx context.Context, email string) (bool, error)
	Approve(ctx context.Context, req *models.SignupRequest, decidedBy string, user *models.User, student *models.Student, teacher *models.Teacher) error
	Reject(ctx context.Context, req *models.SignupRequest, decidedBy string) error
}

type signupUserRepository interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
}

type signupNotifier interface {
	Enqueue(job jobs.Job) error
}

// SignupService runs the account approval workflow. Submissions are public;
// decisions are admin-only and terminal.
type SignupService struct {
	signups   signupRepository
	users     signupUserRepository
	notifier  signupNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSignupService constructs the signup service.
func NewSignupService(signups signupRepository, users signupUserRepository, notifier signupNotifier, validate *validator.Validate, logger *zap.Logger) *SignupService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SignupService{signups: signups, users: users, notifier: notifier, validator: validate, logger: logger}
}

// SubmitSignupRequest is the public application payload.
type SubmitSignupRequest struct {
	FullName      string `json:"full_name" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone"`
	DesiredRole   string `json:"desired_role" validate:"required"`
	AcademicFocus string `json:"academic_focus"`
	Motivations   string `json:"motivations"`
	Username      string `json:"username" validate:"required,min=3"`
	Password      string `json:"password" validate:"required,min=6"`
}

// DecideSignupRequest carries the admin's note for a decision.
type DecideSignupRequest struct {
	AdminNote string `json:"admin_note"`
}

// Submit records a pending request. The password is hashed here and the
// hash travels to the user row verbatim on approval.
func (s *SignupService) Submit(ctx context.Context, req SubmitSignupRequest) (*models.SignupRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	role := models.UserRole(strings.ToUpper(req.DesiredRole))
	if !role.Valid() || role == models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrValidation, "desired role must be STUDENT or TEACHER")
	}

	emailTaken, err := s.users.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	if emailTaken {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a user with this email is already registered")
	}
	pending, err := s.signups.HasPendingByEmail(ctx, req.Email)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	if pending {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a signup request for this email is already pending")
	}
	usernameTaken, err := s.users.UsernameExists(ctx, req.Username)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	if usernameTaken {
		return nil, appErrors.Clone(appErrors.ErrValidation, "username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	request := &models.SignupRequest{
		FullName:      req.FullName,
		Email:         req.Email,
		Phone:         req.Phone,
		DesiredRole:   role,
		AcademicFocus: req.AcademicFocus,
		Motivations:   req.Motivations,
		Username:      req.Username,
		PasswordHash:  string(hash),
	}
	if err := s.signups.Create(ctx, request); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, appErrors.Internal(err)
	}

	s.notifyAdmin("New signup request",
		fmt.Sprintf("%s (%s) applied for the %s role.", request.FullName, request.Email, request.DesiredRole))
	s.logger.Info("signup request submitted",
		zap.String("request_id", request.ID),
		zap.String("role", string(request.DesiredRole)))
	return request, nil
}

// List returns requests, optionally narrowed by status.
func (s *SignupService) List(ctx context.Context, status string) ([]models.SignupRequest, error) {
	var st models.SignupRequestStatus
	if status != "" {
		st = models.SignupRequestStatus(strings.ToLower(status))
		switch st {
		case models.SignupPending, models.SignupApproved, models.SignupRejected:
		default:
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown signup status")
		}
	}
	requests, err := s.signups.List(ctx, st)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	return requests, nil
}

// Get returns one request.
func (s *SignupService) Get(ctx context.Context, id string) (*models.SignupRequest, error) {
	request, err := s.signups.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "signup request not found")
		}
		return nil, appErrors.Internal(err)
	}
	return request, nil
}

// Approve materialises the account and profile from the stored request.
func (s *SignupService) Approve(ctx context.Context, id, decidedBy string, decision DecideSignupRequest) (*models.SignupRequest, error) {
	request, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Status != models.SignupPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "signup request has already been decided")
	}
	if decision.AdminNote != "" {
		note := decision.AdminNote
		request.AdminNote = &note
	}

	user := &models.User{
		Email:        request.Email,
		Username:     request.Username,
		PasswordHash: request.PasswordHash,
		FullName:     request.FullName,
		Phone:        request.Phone,
		Role:         request.DesiredRole,
		Active:       true,
	}
	var student *models.Student
	var teacher *models.Teacher
	switch request.DesiredRole {
	case models.RoleStudent:
		student = &models.Student{CourseLabel: request.AcademicFocus, Status: "active"}
	case models.RoleTeacher:
		teacher = &models.Teacher{Subject: request.AcademicFocus, Status: "active"}
	}

	if err := s.signups.Approve(ctx, request, decidedBy, user, student, teacher); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, appErrors.Internal(err)
	}
	s.logger.Info("signup request approved",
		zap.String("request_id", request.ID),
		zap.String("decided_by", decidedBy))
	return request, nil
}

// Reject closes the request without creating an account.
func (s *SignupService) Reject(ctx context.Context, id, decidedBy string, decision DecideSignupRequest) (*models.SignupRequest, error) {
	request, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Status != models.SignupPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "signup request has already been decided")
	}
	if decision.AdminNote != "" {
		note := decision.AdminNote
		request.AdminNote = &note
	}
	if err := s.signups.Reject(ctx, request, decidedBy); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, appErrors.Internal(err)
	}
	s.logger.Info("signup request rejected",
		zap.String("request_id", request.ID),
		zap.String("decided_by", decidedBy))
	return request, nil
}

// notifyAdmin is best effort; a full queue or a stopped dispatcher never
// fails the submission.
func (s *SignupService) notifyAdmin(title, message string) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Enqueue(jobs.Job{
		Type: "admin_notice",
		Payload: map[string]string{
			"title":   title,
			"message": message,
		},
	})
	if err != nil {
		s.logger.Warn("failed to enqueue admin notice", zap.Error(err))
	}
}
