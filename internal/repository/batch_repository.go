package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/shrutiigupta24/institute-api/internal/models"
	appErrors "github.com/shrutiigupta24/institute-api/pkg/errors"
)

const batchDetailColumns = `b.id, b.name, b.code, b.course_id, b.teacher_id, b.timing, b.days,
        b.max_students, b.start_date, b.end_date, b.created_at, b.updated_at,
        c.name AS course_name, u.full_name AS teacher_name`

const batchDetailFrom = ` FROM batches b
        JOIN courses c ON c.id = b.course_id
        LEFT JOIN teachers t ON t.id = b.teacher_id
        LEFT JOIN users u ON u.id = t.user_id`

// BatchRepository handles batches and batch membership. Enroll and Unenroll
// run their validations inside the same transaction as the write so the
// duplicate and timing checks cannot race a concurrent enrollment.
type BatchRepository struct {
	db *sqlx.DB
}

// NewBatchRepository constructs the repository.
func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// List returns batches with course and teacher context.
func (r *BatchRepository) List(ctx context.Context, filter models.BatchFilter) ([]models.BatchDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("b.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("b.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("b.name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
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

	query := fmt.Sprintf("SELECT %s%s%s ORDER BY b.created_at DESC LIMIT %d OFFSET %d",
		batchDetailColumns, batchDetailFrom, clause, size, offset)

	var batches []models.BatchDetail
	if err := r.db.SelectContext(ctx, &batches, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list batches: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*)"+batchDetailFrom+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count batches: %w", err)
	}
	return batches, total, nil
}

// FindByID returns one batch with joined context.
func (r *BatchRepository) FindByID(ctx context.Context, id string) (*models.BatchDetail, error) {
	query := fmt.Sprintf("SELECT %s%s WHERE b.id = $1", batchDetailColumns, batchDetailFrom)
	var batch models.BatchDetail
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		return nil, err
	}
	return &batch, nil
}

// FindNameConflict looks for another batch with the same (name, course,
// teacher) triple. excludeID skips the batch being updated.
func (r *BatchRepository) FindNameConflict(ctx context.Context, name, courseID string, teacherID *string, excludeID string) (*models.Batch, error) {
	query := `SELECT b.id, b.name, b.code, b.course_id, b.teacher_id, b.timing, b.days,
        b.max_students, b.start_date, b.end_date, b.created_at, b.updated_at
        FROM batches b WHERE b.name = $1 AND b.course_id = $2 AND b.teacher_id IS NOT DISTINCT FROM $3`
	args := []interface{}{name, courseID, teacherID}
	if excludeID != "" {
		query += " AND b.id <> $4"
		args = append(args, excludeID)
	}
	var batch models.Batch
	err := r.db.GetContext(ctx, &batch, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find batch name conflict: %w", err)
	}
	return &batch, nil
}

// FindTeacherTimingConflict looks for another batch of the same teacher with
// an identical timing label. Matching is exact string equality on the label.
func (r *BatchRepository) FindTeacherTimingConflict(ctx context.Context, teacherID, timing, excludeID string) (*models.Batch, error) {
	query := `SELECT b.id, b.name, b.code, b.course_id, b.teacher_id, b.timing, b.days,
        b.max_students, b.start_date, b.end_date, b.created_at, b.updated_at
        FROM batches b WHERE b.teacher_id = $1 AND b.timing = $2`
	args := []interface{}{teacherID, timing}
	if excludeID != "" {
		query += " AND b.id <> $3"
		args = append(args, excludeID)
	}
	var batch models.Batch
	err := r.db.GetContext(ctx, &batch, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find teacher timing conflict: %w", err)
	}
	return &batch, nil
}

// Create inserts a batch.
func (r *BatchRepository) Create(ctx context.Context, batch *models.Batch) error {
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	batch.CreatedAt = now
	batch.UpdatedAt = now
	const query = `INSERT INTO batches (id, name, code, course_id, teacher_id, timing, days, max_students, start_date, end_date, created_at, updated_at)
        VALUES (:id, :name, :code, :course_id, :teacher_id, :timing, :days, :max_students, :start_date, :end_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, batch); err != nil {
		return fmt.Errorf("create batch: %w", err)
	}
	return nil
}

// Update mutates a batch.
func (r *BatchRepository) Update(ctx context.Context, batch *models.Batch) error {
	batch.UpdatedAt = time.Now().UTC()
	const query = `UPDATE batches SET name = :name, code = :code, course_id = :course_id,
        teacher_id = :teacher_id, timing = :timing, days = :days, max_students = :max_students,
        start_date = :start_date, end_date = :end_date, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, batch); err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	return nil
}

// Delete removes a batch with its membership and attendance rows. Tests
// belong to a teacher and course, not a batch, so they survive.
func (r *BatchRepository) Delete(ctx context.Context, id string) error {
	return runInTx(ctx, r.db, func(tx *sqlx.Tx) error {
		steps := []string{
			`DELETE FROM attendances WHERE batch_id = $1`,
			`DELETE FROM batch_students WHERE batch_id = $1`,
			`DELETE FROM batches WHERE id = $1`,
		}
		for _, step := range steps {
			if _, err := tx.ExecContext(ctx, step, id); err != nil {
				return fmt.Errorf("delete batch: %w", err)
			}
		}
		return nil
	})
}

// Enroll adds a student to a batch. The duplicate check and the timing scan
// over the student's existing batches happen inside the insert transaction;
// the composite primary key on batch_students backs the duplicate check up.
func (r *BatchRepository) Enroll(ctx context.Context, batchID, studentID string) error {
	return runInTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var target models.Batch
		const batchQuery = `SELECT id, name, code, course_id, teacher_id, timing, days, max_students,
            start_date, end_date, created_at, updated_at FROM batches WHERE id = $1`
		if err := tx.GetContext(ctx, &target, batchQuery, batchID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "batch not found")
			}
			return fmt.Errorf("load batch: %w", err)
		}

		var enrolled bool
		const dupQuery = `SELECT EXISTS (SELECT 1 FROM batch_students WHERE batch_id = $1 AND student_id = $2)`
		if err := tx.GetContext(ctx, &enrolled, dupQuery, batchID, studentID); err != nil {
			return fmt.Errorf("check enrollment: %w", err)
		}
		if enrolled {
			return appErrors.Clone(appErrors.ErrConflict, "student is already enrolled in this batch")
		}

		if target.MaxStudents > 0 {
			var seats int
			const seatQuery = `SELECT COUNT(*) FROM batch_students WHERE batch_id = $1`
			if err := tx.GetContext(ctx, &seats, seatQuery, batchID); err != nil {
				return fmt.Errorf("count batch seats: %w", err)
			}
			if seats >= target.MaxStudents {
				return appErrors.Clone(appErrors.ErrConflict, "batch is full")
			}
		}

		var clash models.Batch
		const clashQuery = `SELECT b.id, b.name, b.code, b.course_id, b.teacher_id, b.timing, b.days,
            b.max_students, b.start_date, b.end_date, b.created_at, b.updated_at
            FROM batches b JOIN batch_students bs ON bs.batch_id = b.id
            WHERE bs.student_id = $1 AND b.timing = $2 LIMIT 1`
		err := tx.GetContext(ctx, &clash, clashQuery, studentID, target.Timing)
		if err == nil {
			return appErrors.Clone(appErrors.ErrConflict,
				fmt.Sprintf("timing conflict with batch %q (%s)", clash.Name, clash.Timing))
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check timing conflict: %w", err)
		}

		const insertQuery = `INSERT INTO batch_students (batch_id, student_id, enrolled_at) VALUES ($1, $2, $3)`
		if _, err := tx.ExecContext(ctx, insertQuery, batchID, studentID, time.Now().UTC()); err != nil {
			if IsUniqueViolation(err) {
				return appErrors.Clone(appErrors.ErrConflict, "student is already enrolled in this batch")
			}
			return fmt.Errorf("enroll student: %w", err)
		}
		return nil
	})
}

// Unenroll removes a student from a batch.
func (r *BatchRepository) Unenroll(ctx context.Context, batchID, studentID string) error {
	const query = `DELETE FROM batch_students WHERE batch_id = $1 AND student_id = $2`
	result, err := r.db.ExecContext(ctx, query, batchID, studentID)
	if err != nil {
		return fmt.Errorf("unenroll student: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unenroll student: %w", err)
	}
	if rows == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "student is not enrolled in this batch")
	}
	return nil
}

// ListStudents returns the members of a batch.
func (r *BatchRepository) ListStudents(ctx context.Context, batchID string) ([]models.StudentDetail, error) {
	const query = `SELECT s.id, s.user_id, s.course_label, s.status, s.enrollment_date, s.created_at, s.updated_at,
        u.full_name, u.email, u.phone, u.active
        FROM batch_students bs
        JOIN students s ON s.id = bs.student_id
        JOIN users u ON u.id = s.user_id
        WHERE bs.batch_id = $1 ORDER BY u.full_name ASC`
	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, batchID); err != nil {
		return nil, fmt.Errorf("list batch students: %w", err)
	}
	return students, nil
}

// ListByStudent returns the batches a student is enrolled in.
func (r *BatchRepository) ListByStudent(ctx context.Context, studentID string) ([]models.BatchDetail, error) {
	query := fmt.Sprintf(`SELECT %s%s
        JOIN batch_students bs ON bs.batch_id = b.id
        WHERE bs.student_id = $1 ORDER BY b.name ASC`, batchDetailColumns, batchDetailFrom)
	var batches []models.BatchDetail
	if err := r.db.SelectContext(ctx, &batches, query, studentID); err != nil {
		return nil, fmt.Errorf("list student batches: %w", err)
	}
	return batches, nil
}

// ListIDsByStudent returns the ids of batches a student belongs to.
func (r *BatchRepository) ListIDsByStudent(ctx context.Context, studentID string) ([]string, error) {
	const query = `SELECT batch_id FROM batch_students WHERE student_id = $1`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, studentID); err != nil {
		return nil, fmt.Errorf("list student batch ids: %w", err)
	}
	return ids, nil
}

// ListIDsByTeacher returns the ids of batches assigned to a teacher.
func (r *BatchRepository) ListIDsByTeacher(ctx context.Context, teacherID string) ([]string, error) {
	const query = `SELECT id FROM batches WHERE teacher_id = $1`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher batch ids: %w", err)
	}
	return ids, nil
}

// ListByTeacher returns the batches assigned to a teacher with context.
func (r *BatchRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.BatchDetail, error) {
	query := fmt.Sprintf("SELECT %s%s WHERE b.teacher_id = $1 ORDER BY b.name ASC", batchDetailColumns, batchDetailFrom)
	var batches []models.BatchDetail
	if err := r.db.SelectContext(ctx, &batches, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher batches: %w", err)
	}
	return batches, nil
}

// IsMember reports whether the student belongs to the batch.
func (r *BatchRepository) IsMember(ctx context.Context, batchID, studentID string) (bool, error) {
	var member bool
	const query = `SELECT EXISTS (SELECT 1 FROM batch_students WHERE batch_id = $1 AND student_id = $2)`
	if err := r.db.GetContext(ctx, &member, query, batchID, studentID); err != nil {
		return false, fmt.Errorf("check batch membership: %w", err)
	}
	return member, nil
}

// Count returns the total number of batches.
func (r *BatchRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM batches`); err != nil {
		return 0, fmt.Errorf("count batches: %w", err)
	}
	return total, nil
}
