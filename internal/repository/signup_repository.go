package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/shrutiigupta24/institute-api/internal/models"
	appErrors "github.com/shrutiigupta24/institute-api/pkg/errors"
)

const signupColumns = `id, full_name, email, phone, desired_role, academic_focus, motivations,
        username, password_hash, status, admin_note, decided_at, decided_by, created_at, updated_at`

// SignupRepository handles signup requests. A partial unique index on
// (LOWER(email)) WHERE status = 'pending' keeps at most one open request per
// address; Create surfaces its violation as a conflict.
type SignupRepository struct {
	db *sqlx.DB
}

// NewSignupRepository constructs the repository.
func NewSignupRepository(db *sqlx.DB) *SignupRepository {
	return &SignupRepository{db: db}
}

// Create inserts a pending request.
func (r *SignupRepository) Create(ctx context.Context, req *models.SignupRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Status = models.SignupPending
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now
	const query = `INSERT INTO signup_requests (id, full_name, email, phone, desired_role, academic_focus, motivations, username, password_hash, status, admin_note, decided_at, decided_by, created_at, updated_at)
        VALUES (:id, :full_name, :email, :phone, :desired_role, :academic_focus, :motivations, :username, :password_hash, :status, :admin_note, :decided_at, :decided_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		if IsUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "a signup request for this email is already pending")
		}
		return fmt.Errorf("create signup request: %w", err)
	}
	return nil
}

// FindByID returns one request.
func (r *SignupRepository) FindByID(ctx context.Context, id string) (*models.SignupRequest, error) {
	var req models.SignupRequest
	if err := r.db.GetContext(ctx, &req, "SELECT "+signupColumns+" FROM signup_requests WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns requests, optionally narrowed to one status.
func (r *SignupRepository) List(ctx context.Context, status models.SignupRequestStatus) ([]models.SignupRequest, error) {
	query := "SELECT " + signupColumns + " FROM signup_requests"
	var args []interface{}
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	var requests []models.SignupRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("list signup requests: %w", err)
	}
	return requests, nil
}

// HasPendingByEmail reports whether an open request exists for the address.
func (r *SignupRepository) HasPendingByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM signup_requests WHERE LOWER(email) = LOWER($1) AND status = 'pending')`
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		return false, fmt.Errorf("check pending signup: %w", err)
	}
	return exists, nil
}

// CountPending returns the number of open requests.
func (r *SignupRepository) CountPending(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM signup_requests WHERE status = 'pending'`); err != nil {
		return 0, fmt.Errorf("count pending signups: %w", err)
	}
	return total, nil
}

// Approve marks the request approved and creates the user plus role profile
// in the same transaction. The status flip is guarded by a conditional
// UPDATE so two concurrent decisions cannot both win.
func (r *SignupRepository) Approve(ctx context.Context, req *models.SignupRequest, decidedBy string, user *models.User, student *models.Student, teacher *models.Teacher) error {
	prepareUser(user)
	now := time.Now().UTC()
	return runInTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := decideRequest(ctx, tx, req.ID, models.SignupApproved, req.AdminNote, decidedBy, now); err != nil {
			return err
		}

		const userQuery = `INSERT INTO users (id, email, username, password_hash, full_name, phone, role, active, created_at, updated_at)
            VALUES (:id, :email, :username, :password_hash, :full_name, :phone, :role, :active, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, userQuery, user); err != nil {
			if IsUniqueViolation(err) {
				return appErrors.Clone(appErrors.ErrConflict, "a user with this email already exists")
			}
			return fmt.Errorf("create approved user: %w", err)
		}

		switch {
		case student != nil:
			if student.ID == "" {
				student.ID = uuid.NewString()
			}
			student.UserID = user.ID
			student.CreatedAt = now
			student.UpdatedAt = now
			const query = `INSERT INTO students (id, user_id, course_label, status, enrollment_date, created_at, updated_at)
                VALUES (:id, :user_id, :course_label, :status, :enrollment_date, :created_at, :updated_at)`
			if _, err := tx.NamedExecContext(ctx, query, student); err != nil {
				return fmt.Errorf("create approved student: %w", err)
			}
		case teacher != nil:
			if teacher.ID == "" {
				teacher.ID = uuid.NewString()
			}
			teacher.UserID = user.ID
			teacher.CreatedAt = now
			teacher.UpdatedAt = now
			const query = `INSERT INTO teachers (id, user_id, subject, qualification, experience, status, created_at, updated_at)
                VALUES (:id, :user_id, :subject, :qualification, :experience, :status, :created_at, :updated_at)`
			if _, err := tx.NamedExecContext(ctx, query, teacher); err != nil {
				return fmt.Errorf("create approved teacher: %w", err)
			}
		}

		req.Status = models.SignupApproved
		req.DecidedAt = &now
		req.DecidedBy = &decidedBy
		req.UpdatedAt = now
		return nil
	})
}

// Reject marks the request rejected.
func (r *SignupRepository) Reject(ctx context.Context, req *models.SignupRequest, decidedBy string) error {
	now := time.Now().UTC()
	return runInTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := decideRequest(ctx, tx, req.ID, models.SignupRejected, req.AdminNote, decidedBy, now); err != nil {
			return err
		}
		req.Status = models.SignupRejected
		req.DecidedAt = &now
		req.DecidedBy = &decidedBy
		req.UpdatedAt = now
		return nil
	})
}

func decideRequest(ctx context.Context, tx *sqlx.Tx, id string, status models.SignupRequestStatus, note *string, decidedBy string, now time.Time) error {
	const query = `UPDATE signup_requests SET status = $2, admin_note = $3, decided_at = $4, decided_by = $5, updated_at = $4
        WHERE id = $1 AND status = 'pending'`
	result, err := tx.ExecContext(ctx, query, id, status, note, now, decidedBy)
	if err != nil {
		return fmt.Errorf("decide signup request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("decide signup request: %w", err)
	}
	if rows == 0 {
		return appErrors.Clone(appErrors.ErrConflict, "signup request has already been decided")
	}
	return nil
}
