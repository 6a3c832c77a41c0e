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

// CourseRepository handles the course catalog.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns catalog entries, optionally narrowed by category or search.
func (r *CourseRepository) List(ctx context.Context, category, search string) ([]models.Course, error) {
	query := `SELECT id, name, category, duration, monthly_fee, yearly_fee, description, created_at, updated_at FROM courses`
	var args []interface{}
	switch {
	case category != "" && search != "":
		query += ` WHERE category = $1 AND name ILIKE $2`
		args = append(args, category, "%"+search+"%")
	case category != "":
		query += ` WHERE category = $1`
		args = append(args, category)
	case search != "":
		query += ` WHERE name ILIKE $1`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY name ASC`

	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// FindByID returns one catalog entry.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, name, category, duration, monthly_fee, yearly_fee, description, created_at, updated_at
        FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// Create inserts a catalog entry.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, name, category, duration, monthly_fee, yearly_fee, description, created_at, updated_at)
        VALUES (:id, :name, :category, :duration, :monthly_fee, :yearly_fee, :description, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update mutates a catalog entry.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET name = :name, category = :category, duration = :duration,
        monthly_fee = :monthly_fee, yearly_fee = :yearly_fee, description = :description,
        updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// Delete removes a catalog entry. Batches referencing it block the delete
// through the foreign key; callers surface that as a conflict.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// HasBatches reports whether any batch references the course.
func (r *CourseRepository) HasBatches(ctx context.Context, id string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM batches WHERE course_id = $1)`
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, fmt.Errorf("check course batches: %w", err)
	}
	return exists, nil
}

// Count returns the catalog size.
func (r *CourseRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM courses`); err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	return total, nil
}

// ListIDsByStudent resolves the courses a student reaches through batch
// membership; scoping for tests and study materials keys off this set.
func (r *CourseRepository) ListIDsByStudent(ctx context.Context, studentID string) ([]string, error) {
	const query = `SELECT DISTINCT b.course_id FROM batches b
        JOIN batch_students bs ON bs.batch_id = b.id WHERE bs.student_id = $1`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, studentID); err != nil {
		return nil, fmt.Errorf("list student course ids: %w", err)
	}
	return ids, nil
}
