package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/shrutiigupta24/institute-api/internal/models"
	appErrors "github.com/shrutiigupta24/institute-api/pkg/errors"
	"github.com/shrutiigupta24/institute-api/pkg/jobs"
)

type notificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	FindByID(ctx context.Context, id string) (*models.NotificationDetail, error)
	ListAll(ctx context.Context) ([]models.NotificationDetail, error)
	ListActive(ctx context.Context, audience string, limit int) ([]models.NotificationDetail, error)
	Update(ctx context.Context, notification *models.Notification) error
	Delete(ctx context.Context, id string) error
}

type notificationUserRepository interface {
	FindFirstAdmin(ctx context.Context) (*models.User, error)
}

type notificationDispatcher interface {
	Enqueue(job jobs.Job) error
}

// NotificationService manages broadcasts and routes public contact
// inquiries to the admin audience through the async dispatcher.
type NotificationService struct {
	notifications notificationRepository
	users         notificationUserRepository
	dispatcher    notificationDispatcher
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewNotificationService constructs the notification service.
func NewNotificationService(notifications notificationRepository, users notificationUserRepository, dispatcher notificationDispatcher, validate *validator.Validate, logger *zap.Logger) *NotificationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{notifications: notifications, users: users, dispatcher: dispatcher, validator: validate, logger: logger}
}

// SetDispatcher attaches the queue after construction. The queue's handler
// is a method of this service, so wiring happens in two steps.
func (s *NotificationService) SetDispatcher(dispatcher notificationDispatcher) {
	s.dispatcher = dispatcher
}

// NotificationRequest is the admin create/update payload.
type NotificationRequest struct {
	Title     string     `json:"title" validate:"required"`
	Message   string     `json:"message" validate:"required"`
	Audience  string     `json:"audience" validate:"required,oneof=all admin teachers students"`
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// ContactRequest is the public inquiry payload.
type ContactRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone"`
	Subject string `json:"subject"`
	Message string `json:"message" validate:"required"`
}

// Create adds a broadcast owned by the acting admin.
func (s *NotificationService) Create(ctx context.Context, createdBy string, req NotificationRequest) (*models.NotificationDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	notification := &models.Notification{
		Title:     req.Title,
		Message:   req.Message,
		Audience:  req.Audience,
		Active:    req.Active,
		ExpiresAt: req.ExpiresAt,
		CreatedBy: createdBy,
	}
	if err := s.notifications.Create(ctx, notification); err != nil {
		return nil, appErrors.Internal(err)
	}
	return s.Get(ctx, notification.ID)
}

// Get returns one notification.
func (s *NotificationService) Get(ctx context.Context, id string) (*models.NotificationDetail, error) {
	notification, err := s.notifications.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return nil, appErrors.Internal(err)
	}
	return notification, nil
}

// ListAll returns every broadcast for the admin surface.
func (s *NotificationService) ListAll(ctx context.Context) ([]models.NotificationDetail, error) {
	notifications, err := s.notifications.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	return notifications, nil
}

// ListForRole returns active, unexpired broadcasts for a role's audience.
func (s *NotificationService) ListForRole(ctx context.Context, role models.UserRole, limit int) ([]models.NotificationDetail, error) {
	audience := models.AudienceAll
	switch role {
	case models.RoleAdmin:
		audience = models.AudienceAdmin
	case models.RoleTeacher:
		audience = models.AudienceTeachers
	case models.RoleStudent:
		audience = models.AudienceStudents
	}
	notifications, err := s.notifications.ListActive(ctx, audience, limit)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	return notifications, nil
}

// Update mutates a broadcast.
func (s *NotificationService) Update(ctx context.Context, id string, req NotificationRequest) (*models.NotificationDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	notification := existing.Notification
	notification.Title = req.Title
	notification.Message = req.Message
	notification.Audience = req.Audience
	notification.Active = req.Active
	notification.ExpiresAt = req.ExpiresAt
	if err := s.notifications.Update(ctx, &notification); err != nil {
		return nil, appErrors.Internal(err)
	}
	return s.Get(ctx, id)
}

// Delete removes a broadcast.
func (s *NotificationService) Delete(ctx context.Context, id string) error {
	if err := s.notifications.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Internal(err)
	}
	return nil
}

// SubmitContact records a public inquiry as an admin-audience notification
// via the dispatcher. Dispatch failure is logged, never surfaced; the
// caller always gets an accepted response.
func (s *NotificationService) SubmitContact(ctx context.Context, req ContactRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	subject := req.Subject
	if subject == "" {
		subject = "General inquiry"
	}
	job := jobs.Job{
		Type: "contact_inquiry",
		Payload: ContactNotice{
			Title:   fmt.Sprintf("Contact: %s", subject),
			Message: fmt.Sprintf("%s <%s> %s: %s", req.Name, req.Email, req.Phone, req.Message),
		},
	}
	if s.dispatcher == nil {
		s.logger.Warn("contact inquiry dropped, no dispatcher configured")
		return nil
	}
	if err := s.dispatcher.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue contact inquiry", zap.Error(err))
	}
	return nil
}

// ContactNotice is the payload shape for contact and admin-notice jobs.
type ContactNotice struct {
	Title   string
	Message string
}

// HandleNoticeJob is the queue handler persisting admin-audience
// notifications produced by contact submissions and signup events.
func (s *NotificationService) HandleNoticeJob(ctx context.Context, job jobs.Job) error {
	var title, message string
	switch payload := job.Payload.(type) {
	case ContactNotice:
		title, message = payload.Title, payload.Message
	case map[string]string:
		title, message = payload["title"], payload["message"]
	default:
		return fmt.Errorf("unsupported notice payload %T", job.Payload)
	}
	if title == "" || message == "" {
		return fmt.Errorf("notice payload missing title or message")
	}

	admin, err := s.users.FindFirstAdmin(ctx)
	if err != nil {
		return fmt.Errorf("resolve notice recipient: %w", err)
	}
	notification := &models.Notification{
		Title:     title,
		Message:   message,
		Audience:  models.AudienceAdmin,
		Active:    true,
		CreatedBy: admin.ID,
	}
	if err := s.notifications.Create(ctx, notification); err != nil {
		return fmt.Errorf("persist notice: %w", err)
	}
	s.logger.Info("notice persisted", zap.String("notification_id", notification.ID), zap.String("type", job.Type))
	return nil
}
