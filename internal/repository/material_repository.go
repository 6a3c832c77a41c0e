package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/shrutiigupta24/institute-api/internal/models"
)

const materialDetailColumns = `m.id, m.title, m.description, m.file_url, m.file_type, m.file_size,
        m.course_id, m.teacher_id, m.public, m.created_at, m.updated_at,
        COALESCE(c.name, '') AS course_name, u.full_name AS teacher_name`

const materialDetailFrom = ` FROM study_materials m
        LEFT JOIN courses c ON c.id = m.course_id
        JOIN teachers t ON t.id = m.teacher_id
        JOIN users u ON u.id = t.user_id`

// MaterialRepository handles study material references.
type MaterialRepository struct {
	db *sqlx.DB
}

// NewMaterialRepository constructs the repository.
func NewMaterialRepository(db *sqlx.DB) *MaterialRepository {
	return &MaterialRepository{db: db}
}

// FindByID returns one material with context.
func (r *MaterialRepository) FindByID(ctx context.Context, id string) (*models.StudyMaterialDetail, error) {
	query := fmt.Sprintf("SELECT %s%s WHERE m.id = $1", materialDetailColumns, materialDetailFrom)
	var material models.StudyMaterialDetail
	if err := r.db.GetContext(ctx, &material, query, id); err != nil {
		return nil, err
	}
	return &material, nil
}

// ListAll returns every material; the admin surface uses this.
func (r *MaterialRepository) ListAll(ctx context.Context) ([]models.StudyMaterialDetail, error) {
	query := fmt.Sprintf("SELECT %s%s ORDER BY m.created_at DESC", materialDetailColumns, materialDetailFrom)
	var materials []models.StudyMaterialDetail
	if err := r.db.SelectContext(ctx, &materials, query); err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	return materials, nil
}

// ListByTeacher returns the materials one teacher owns.
func (r *MaterialRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.StudyMaterialDetail, error) {
	query := fmt.Sprintf("SELECT %s%s WHERE m.teacher_id = $1 ORDER BY m.created_at DESC",
		materialDetailColumns, materialDetailFrom)
	var materials []models.StudyMaterialDetail
	if err := r.db.SelectContext(ctx, &materials, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher materials: %w", err)
	}
	return materials, nil
}

// ListForCourses returns public materials plus those scoped to the given
// courses; the student portal uses this with the enrolled-course set.
func (r *MaterialRepository) ListForCourses(ctx context.Context, courseIDs []string) ([]models.StudyMaterialDetail, error) {
	query := fmt.Sprintf("SELECT %s%s WHERE (m.public = TRUE OR m.course_id IS NULL", materialDetailColumns, materialDetailFrom)
	var args []interface{}
	if len(courseIDs) > 0 {
		placeholders := make([]string, len(courseIDs))
		for i, id := range courseIDs {
			placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
			args = append(args, id)
		}
		query += fmt.Sprintf(" OR m.course_id IN (%s)", strings.Join(placeholders, ", "))
	}
	query += ") ORDER BY m.created_at DESC"

	var materials []models.StudyMaterialDetail
	if err := r.db.SelectContext(ctx, &materials, query, args...); err != nil {
		return nil, fmt.Errorf("list course materials: %w", err)
	}
	return materials, nil
}

// Create inserts a material reference.
func (r *MaterialRepository) Create(ctx context.Context, material *models.StudyMaterial) error {
	if material.ID == "" {
		material.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	material.CreatedAt = now
	material.UpdatedAt = now
	const query = `INSERT INTO study_materials (id, title, description, file_url, file_type, file_size, course_id, teacher_id, public, created_at, updated_at)
        VALUES (:id, :title, :description, :file_url, :file_type, :file_size, :course_id, :teacher_id, :public, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, material); err != nil {
		return fmt.Errorf("create material: %w", err)
	}
	return nil
}

// Update mutates a material reference.
func (r *MaterialRepository) Update(ctx context.Context, material *models.StudyMaterial) error {
	material.UpdatedAt = time.Now().UTC()
	const query = `UPDATE study_materials SET title = :title, description = :description,
        file_url = :file_url, file_type = :file_type, file_size = :file_size, course_id = :course_id,
        public = :public, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, material); err != nil {
		return fmt.Errorf("update material: %w", err)
	}
	return nil
}

// Delete removes a material reference.
func (r *MaterialRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM study_materials WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete material: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete material: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
