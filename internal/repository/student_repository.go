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

// StudentRepository handles persistence of student profiles.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns student profiles joined with their accounts.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := `FROM students s JOIN users u ON u.id = s.user_id`
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(u.full_name ILIKE $%d OR u.email ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("s.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.BatchID != "" {
		conditions = append(conditions, fmt.Sprintf("s.id IN (SELECT student_id FROM batch_students WHERE batch_id = $%d)", len(args)+1))
		args = append(args, filter.BatchID)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"full_name":       "u.full_name",
		"enrollment_date": "s.enrollment_date",
		"created_at":      "s.created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "s.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	query := fmt.Sprintf(`SELECT s.id, s.user_id, s.course_label, s.status, s.enrollment_date, s.created_at, s.updated_at,
        u.full_name, u.email, u.phone, u.active
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID returns a student profile with account context.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	const query = `SELECT s.id, s.user_id, s.course_label, s.status, s.enrollment_date, s.created_at, s.updated_at,
        u.full_name, u.email, u.phone, u.active
        FROM students s JOIN users u ON u.id = s.user_id WHERE s.id = $1`
	var student models.StudentDetail
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByUserID resolves the profile owned by a user account.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error) {
	const query = `SELECT s.id, s.user_id, s.course_label, s.status, s.enrollment_date, s.created_at, s.updated_at,
        u.full_name, u.email, u.phone, u.active
        FROM students s JOIN users u ON u.id = s.user_id WHERE s.user_id = $1`
	var student models.StudentDetail
	if err := r.db.GetContext(ctx, &student, query, userID); err != nil {
		return nil, err
	}
	return &student, nil
}

// CreateWithUser persists the account and the profile atomically.
func (r *StudentRepository) CreateWithUser(ctx context.Context, user *models.User, student *models.Student) error {
	prepareUser(user)
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	student.UserID = user.ID
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now

	return runInTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const userQuery = `INSERT INTO users (id, email, username, password_hash, full_name, phone, role, active, created_at, updated_at)
            VALUES (:id, :email, :username, :password_hash, :full_name, :phone, :role, :active, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, userQuery, user); err != nil {
			return fmt.Errorf("create student user: %w", err)
		}
		const studentQuery = `INSERT INTO students (id, user_id, course_label, status, enrollment_date, created_at, updated_at)
            VALUES (:id, :user_id, :course_label, :status, :enrollment_date, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, studentQuery, student); err != nil {
			return fmt.Errorf("create student profile: %w", err)
		}
		return nil
	})
}

// CreateProfile inserts only the profile row for an existing user.
func (r *StudentRepository) CreateProfile(ctx context.Context, tx *sqlx.Tx, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, user_id, course_label, status, enrollment_date, created_at, updated_at)
        VALUES (:id, :user_id, :course_label, :status, :enrollment_date, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student profile: %w", err)
	}
	return nil
}

// Update mutates profile fields and the linked account name/phone.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student, fullName, phone string) error {
	student.UpdatedAt = time.Now().UTC()
	return runInTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const profileQuery = `UPDATE students SET course_label = :course_label, status = :status,
            enrollment_date = :enrollment_date, updated_at = :updated_at WHERE id = :id`
		if _, err := tx.NamedExecContext(ctx, profileQuery, student); err != nil {
			return fmt.Errorf("update student profile: %w", err)
		}
		if fullName != "" || phone != "" {
			const userQuery = `UPDATE users SET
                full_name = COALESCE(NULLIF($2, ''), full_name),
                phone = COALESCE(NULLIF($3, ''), phone),
                updated_at = $4
                WHERE id = (SELECT user_id FROM students WHERE id = $1)`
			if _, err := tx.ExecContext(ctx, userQuery, student.ID, fullName, phone, student.UpdatedAt); err != nil {
				return fmt.Errorf("update student user: %w", err)
			}
		}
		return nil
	})
}

// Delete removes the student, its dependents and the owning account in one
// transaction; enrollment history in attendance/fees goes with the student.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	return runInTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var userID string
		if err := tx.GetContext(ctx, &userID, `SELECT user_id FROM students WHERE id = $1`, id); err != nil {
			return err
		}
		steps := []string{
			`DELETE FROM fees WHERE student_id = $1`,
			`DELETE FROM attendances WHERE student_id = $1`,
			`DELETE FROM test_results WHERE student_id = $1`,
			`DELETE FROM batch_students WHERE student_id = $1`,
			`DELETE FROM students WHERE id = $1`,
		}
		for _, step := range steps {
			if _, err := tx.ExecContext(ctx, step, id); err != nil {
				return fmt.Errorf("delete student dependents: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID); err != nil {
			return fmt.Errorf("delete student user: %w", err)
		}
		return nil
	})
}

// Count returns the total number of students.
func (r *StudentRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM students`); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return total, nil
}
