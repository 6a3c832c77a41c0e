package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/shrutiigupta24/institute-api/internal/models"
)

const notificationDetailColumns = `n.id, n.title, n.message, n.audience, n.active, n.expires_at,
        n.created_by, n.created_at, n.updated_at,
        u.full_name AS creator_name, u.email AS creator_email`

const notificationDetailFrom = ` FROM notifications n JOIN users u ON u.id = n.created_by`

// NotificationRepository handles broadcast notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a notification.
func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	notification.CreatedAt = now
	notification.UpdatedAt = now
	const query = `INSERT INTO notifications (id, title, message, audience, active, expires_at, created_by, created_at, updated_at)
        VALUES (:id, :title, :message, :audience, :active, :expires_at, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, notification); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// FindByID returns one notification with creator context.
func (r *NotificationRepository) FindByID(ctx context.Context, id string) (*models.NotificationDetail, error) {
	query := fmt.Sprintf("SELECT %s%s WHERE n.id = $1", notificationDetailColumns, notificationDetailFrom)
	var notification models.NotificationDetail
	if err := r.db.GetContext(ctx, &notification, query, id); err != nil {
		return nil, err
	}
	return &notification, nil
}

// ListAll returns every notification for the admin surface.
func (r *NotificationRepository) ListAll(ctx context.Context) ([]models.NotificationDetail, error) {
	query := fmt.Sprintf("SELECT %s%s ORDER BY n.created_at DESC", notificationDetailColumns, notificationDetailFrom)
	var notifications []models.NotificationDetail
	if err := r.db.SelectContext(ctx, &notifications, query); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

// ListActive returns active, unexpired notifications addressed to the given
// audience or to everyone, most recent first.
func (r *NotificationRepository) ListActive(ctx context.Context, audience string, limit int) ([]models.NotificationDetail, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT %s%s
        WHERE n.active = TRUE
          AND (n.expires_at IS NULL OR n.expires_at > $1)
          AND n.audience IN ('all', $2)
        ORDER BY n.created_at DESC LIMIT %d`, notificationDetailColumns, notificationDetailFrom, limit)
	var notifications []models.NotificationDetail
	if err := r.db.SelectContext(ctx, &notifications, query, time.Now().UTC(), audience); err != nil {
		return nil, fmt.Errorf("list active notifications: %w", err)
	}
	return notifications, nil
}

// Update mutates a notification.
func (r *NotificationRepository) Update(ctx context.Context, notification *models.Notification) error {
	notification.UpdatedAt = time.Now().UTC()
	const query = `UPDATE notifications SET title = :title, message = :message, audience = :audience,
        active = :active, expires_at = :expires_at, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, notification); err != nil {
		return fmt.Errorf("update notification: %w", err)
	}
	return nil
}

// Delete removes a notification.
func (r *NotificationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
