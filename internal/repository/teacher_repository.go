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

// TeacherRepository handles persistence of teacher profiles.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs the repository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// List returns teacher profiles joined with their accounts.
func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.TeacherDetail, int, error) {
	base := `FROM teachers t JOIN users u ON u.id = t.user_id`
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(u.full_name ILIKE $%d OR u.email ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("t.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT t.id, t.user_id, t.subject, t.qualification, t.experience, t.status, t.created_at, t.updated_at,
        u.full_name, u.email, u.phone, u.active
        %s ORDER BY u.full_name ASC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var teachers []models.TeacherDetail
	if err := r.db.SelectContext(ctx, &teachers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}
	return teachers, total, nil
}

// FindByID returns a teacher profile with account context.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.TeacherDetail, error) {
	const query = `SELECT t.id, t.user_id, t.subject, t.qualification, t.experience, t.status, t.created_at, t.updated_at,
        u.full_name, u.email, u.phone, u.active
        FROM teachers t JOIN users u ON u.id = t.user_id WHERE t.id = $1`
	var teacher models.TeacherDetail
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// FindByUserID resolves the profile owned by a user account.
func (r *TeacherRepository) FindByUserID(ctx context.Context, userID string) (*models.TeacherDetail, error) {
	const query = `SELECT t.id, t.user_id, t.subject, t.qualification, t.experience, t.status, t.created_at, t.updated_at,
        u.full_name, u.email, u.phone, u.active
        FROM teachers t JOIN users u ON u.id = t.user_id WHERE t.user_id = $1`
	var teacher models.TeacherDetail
	if err := r.db.GetContext(ctx, &teacher, query, userID); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// CreateWithUser persists the account and the profile atomically.
func (r *TeacherRepository) CreateWithUser(ctx context.Context, user *models.User, teacher *models.Teacher) error {
	prepareUser(user)
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	teacher.UserID = user.ID
	now := time.Now().UTC()
	if teacher.CreatedAt.IsZero() {
		teacher.CreatedAt = now
	}
	teacher.UpdatedAt = now

	return runInTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const userQuery = `INSERT INTO users (id, email, username, password_hash, full_name, phone, role, active, created_at, updated_at)
            VALUES (:id, :email, :username, :password_hash, :full_name, :phone, :role, :active, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, userQuery, user); err != nil {
			return fmt.Errorf("create teacher user: %w", err)
		}
		const teacherQuery = `INSERT INTO teachers (id, user_id, subject, qualification, experience, status, created_at, updated_at)
            VALUES (:id, :user_id, :subject, :qualification, :experience, :status, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, teacherQuery, teacher); err != nil {
			return fmt.Errorf("create teacher profile: %w", err)
		}
		return nil
	})
}

// Update mutates profile fields and the linked account name/phone.
func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher, fullName, phone string) error {
	teacher.UpdatedAt = time.Now().UTC()
	return runInTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const profileQuery = `UPDATE teachers SET subject = :subject, qualification = :qualification,
            experience = :experience, status = :status, updated_at = :updated_at WHERE id = :id`
		if _, err := tx.NamedExecContext(ctx, profileQuery, teacher); err != nil {
			return fmt.Errorf("update teacher profile: %w", err)
		}
		if fullName != "" || phone != "" {
			const userQuery = `UPDATE users SET
                full_name = COALESCE(NULLIF($2, ''), full_name),
                phone = COALESCE(NULLIF($3, ''), phone),
                updated_at = $4
                WHERE id = (SELECT user_id FROM teachers WHERE id = $1)`
			if _, err := tx.ExecContext(ctx, userQuery, teacher.ID, fullName, phone, teacher.UpdatedAt); err != nil {
				return fmt.Errorf("update teacher user: %w", err)
			}
		}
		return nil
	})
}

// Delete removes the teacher and the owning account. Batches keep their rows
// with teacher_id cleared so schedules survive staff churn.
func (r *TeacherRepository) Delete(ctx context.Context, id string) error {
	return runInTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var userID string
		if err := tx.GetContext(ctx, &userID, `SELECT user_id FROM teachers WHERE id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE batches SET teacher_id = NULL WHERE teacher_id = $1`, id); err != nil {
			return fmt.Errorf("detach teacher batches: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM teachers WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete teacher: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID); err != nil {
			return fmt.Errorf("delete teacher user: %w", err)
		}
		return nil
	})
}

// Count returns the total number of teachers.
func (r *TeacherRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM teachers`); err != nil {
		return 0, fmt.Errorf("count teachers: %w", err)
	}
	return total, nil
}
