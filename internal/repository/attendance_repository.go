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

// AttendanceRepository handles attendance records. One row exists per
// (student, batch, date); Mark upserts so re-marking overwrites.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Mark records presence for one student, overwriting any earlier mark for
// the same batch and date.
func (r *AttendanceRepository) Mark(ctx context.Context, record *models.Attendance) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO attendances (id, student_id, batch_id, date, present, remarks, marked_by, created_at)
        VALUES (:id, :student_id, :batch_id, :date, :present, :remarks, :marked_by, :created_at)
        ON CONFLICT (student_id, batch_id, date)
        DO UPDATE SET present = EXCLUDED.present, remarks = EXCLUDED.remarks, marked_by = EXCLUDED.marked_by`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("mark attendance: %w", err)
	}
	return nil
}

// MarkBatch records a full batch sheet in one transaction.
func (r *AttendanceRepository) MarkBatch(ctx context.Context, records []models.Attendance) error {
	if len(records) == 0 {
		return nil
	}
	const query = `INSERT INTO attendances (id, student_id, batch_id, date, present, remarks, marked_by, created_at)
        VALUES (:id, :student_id, :batch_id, :date, :present, :remarks, :marked_by, :created_at)
        ON CONFLICT (student_id, batch_id, date)
        DO UPDATE SET present = EXCLUDED.present, remarks = EXCLUDED.remarks, marked_by = EXCLUDED.marked_by`
	return runInTx(ctx, r.db, func(tx *sqlx.Tx) error {
		now := time.Now().UTC()
		for i := range records {
			if records[i].ID == "" {
				records[i].ID = uuid.NewString()
			}
			if records[i].CreatedAt.IsZero() {
				records[i].CreatedAt = now
			}
			if _, err := tx.NamedExecContext(ctx, query, &records[i]); err != nil {
				return fmt.Errorf("mark attendance: %w", err)
			}
		}
		return nil
	})
}

// List returns attendance records narrowed by the filter. An empty BatchIDs
// slice together with empty StudentID/BatchID matches everything; policy
// decides what callers may pass.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, error) {
	query := `SELECT a.id, a.student_id, a.batch_id, a.date, a.present, a.remarks, a.marked_by, a.created_at,
        u.full_name AS student_name, b.name AS batch_name
        FROM attendances a
        JOIN students s ON s.id = a.student_id
        JOIN users u ON u.id = s.user_id
        JOIN batches b ON b.id = a.batch_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("a.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.BatchID != "" {
		conditions = append(conditions, fmt.Sprintf("a.batch_id = $%d", len(args)+1))
		args = append(args, filter.BatchID)
	}
	if len(filter.BatchIDs) > 0 {
		placeholders := make([]string, len(filter.BatchIDs))
		for i, id := range filter.BatchIDs {
			placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
			args = append(args, id)
		}
		conditions = append(conditions, fmt.Sprintf("a.batch_id IN (%s)", strings.Join(placeholders, ", ")))
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("a.date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("a.date <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY a.date DESC, u.full_name ASC"

	var records []models.AttendanceDetail
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return records, nil
}

// SummaryByStudent aggregates presence per batch for one student.
func (r *AttendanceRepository) SummaryByStudent(ctx context.Context, studentID string) ([]models.BatchAttendanceSummary, error) {
	const query = `SELECT a.batch_id, b.name AS batch_name,
        COUNT(*) AS total,
        COUNT(*) FILTER (WHERE a.present) AS present
        FROM attendances a JOIN batches b ON b.id = a.batch_id
        WHERE a.student_id = $1
        GROUP BY a.batch_id, b.name ORDER BY b.name ASC`
	var summaries []models.BatchAttendanceSummary
	if err := r.db.SelectContext(ctx, &summaries, query, studentID); err != nil {
		return nil, fmt.Errorf("summarize student attendance: %w", err)
	}
	for i := range summaries {
		if summaries[i].Total > 0 {
			summaries[i].Percentage = float64(summaries[i].Present) / float64(summaries[i].Total) * 100
		}
	}
	return summaries, nil
}

// Report aggregates presence per student across the institute for the admin
// attendance report. Zero time bounds mean unbounded.
func (r *AttendanceRepository) Report(ctx context.Context, from, to *time.Time) ([]models.StudentAttendanceReport, error) {
	query := `SELECT a.student_id, u.full_name AS student_name, s.course_label,
        COUNT(*) AS total,
        COUNT(*) FILTER (WHERE a.present) AS present
        FROM attendances a
        JOIN students s ON s.id = a.student_id
        JOIN users u ON u.id = s.user_id`
	var conditions []string
	var args []interface{}
	if from != nil {
		conditions = append(conditions, fmt.Sprintf("a.date >= $%d", len(args)+1))
		args = append(args, *from)
	}
	if to != nil {
		conditions = append(conditions, fmt.Sprintf("a.date <= $%d", len(args)+1))
		args = append(args, *to)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " GROUP BY a.student_id, u.full_name, s.course_label ORDER BY u.full_name ASC"

	var rows []models.StudentAttendanceReport
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("attendance report: %w", err)
	}
	for i := range rows {
		if rows[i].Total > 0 {
			rows[i].Percentage = float64(rows[i].Present) / float64(rows[i].Total) * 100
		}
	}
	return rows, nil
}
