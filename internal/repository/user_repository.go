package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/shrutiigupta24/institute-api/internal/models"
)

const userColumns = `id, email, username, password_hash, full_name, phone, role, active, last_login, created_at, updated_at`

// UserRepository handles persistence of user accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID returns a user by its ID.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail returns a user matching the normalized email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE LOWER(email) = LOWER($1)`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, strings.TrimSpace(email)); err != nil {
		return nil, err
	}
	return &user, nil
}

// EmailExists checks whether any user holds the email, case-insensitively.
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`
	if err := r.db.GetContext(ctx, &exists, query, strings.TrimSpace(email)); err != nil {
		return false, fmt.Errorf("check email exists: %w", err)
	}
	return exists, nil
}

// UsernameExists checks whether any user holds the username, case-insensitively.
func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(username) = LOWER($1))`
	if err := r.db.GetContext(ctx, &exists, query, strings.TrimSpace(username)); err != nil {
		return false, fmt.Errorf("check username exists: %w", err)
	}
	return exists, nil
}

// Create persists a new user.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	prepareUser(user)
	const query = `INSERT INTO users (id, email, username, password_hash, full_name, phone, role, active, created_at, updated_at)
        VALUES (:id, :email, :username, :password_hash, :full_name, :phone, :role, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpdateLastLogin stamps the most recent successful login.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE users SET last_login = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// UpdatePassword replaces the stored credential hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// FindFirstAdmin returns the oldest admin account, used as the default
// recipient for system notifications.
func (r *UserRepository) FindFirstAdmin(ctx context.Context) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE role = $1 ORDER BY created_at ASC LIMIT 1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, models.RoleAdmin); err != nil {
		return nil, err
	}
	return &user, nil
}

func prepareUser(user *models.User) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.Username = strings.TrimSpace(user.Username)
}
