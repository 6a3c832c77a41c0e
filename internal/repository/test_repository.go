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

const testColumns = `id, title, description, course_id, teacher_id, total_marks, passing_marks,
        duration_minutes, test_date, published, created_at`

// TestRepository handles tests and their results. A unique index on
// (test_id, student_id) keeps one result per student per test.
type TestRepository struct {
	db *sqlx.DB
}

// NewTestRepository constructs the repository.
func NewTestRepository(db *sqlx.DB) *TestRepository {
	return &TestRepository{db: db}
}

// FindByID returns one test.
func (r *TestRepository) FindByID(ctx context.Context, id string) (*models.Test, error) {
	var test models.Test
	if err := r.db.GetContext(ctx, &test, "SELECT "+testColumns+" FROM tests WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &test, nil
}

// ListByTeacher returns the tests a teacher owns.
func (r *TestRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.Test, error) {
	query := "SELECT " + testColumns + " FROM tests WHERE teacher_id = $1 ORDER BY created_at DESC"
	var tests []models.Test
	if err := r.db.SelectContext(ctx, &tests, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher tests: %w", err)
	}
	return tests, nil
}

// ListAvailable returns published tests for the given courses (plus tests
// without a course), annotated with the student's completion state.
func (r *TestRepository) ListAvailable(ctx context.Context, studentID string, courseIDs []string) ([]models.AvailableTest, error) {
	query := `SELECT t.id, t.title, t.description, t.course_id, t.teacher_id, t.total_marks,
        t.passing_marks, t.duration_minutes, t.test_date, t.published, t.created_at,
        COALESCE(c.name, '') AS course_name, tu.full_name AS teacher_name
        FROM tests t
        LEFT JOIN courses c ON c.id = t.course_id
        JOIN teachers te ON te.id = t.teacher_id
        JOIN users tu ON tu.id = te.user_id
        WHERE t.published = TRUE`
	var args []interface{}
	if len(courseIDs) > 0 {
		placeholders := make([]string, len(courseIDs))
		for i, id := range courseIDs {
			placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
			args = append(args, id)
		}
		query += fmt.Sprintf(" AND (t.course_id IS NULL OR t.course_id IN (%s))", strings.Join(placeholders, ", "))
	} else {
		query += " AND t.course_id IS NULL"
	}
	query += " ORDER BY t.test_date DESC NULLS LAST, t.created_at DESC"

	var available []models.AvailableTest
	if err := r.db.SelectContext(ctx, &available, query, args...); err != nil {
		return nil, fmt.Errorf("list available tests: %w", err)
	}
	if len(available) == 0 {
		return available, nil
	}

	const resultQuery = `SELECT id, test_id, student_id, marks_obtained, percentage, remarks, submitted_at, evaluated_at, created_at
        FROM test_results WHERE student_id = $1`
	var results []models.TestResult
	if err := r.db.SelectContext(ctx, &results, resultQuery, studentID); err != nil {
		return nil, fmt.Errorf("list student results: %w", err)
	}
	byTest := make(map[string]models.TestResult, len(results))
	for _, res := range results {
		byTest[res.TestID] = res
	}
	for i := range available {
		if res, ok := byTest[available[i].ID]; ok {
			marks := res.MarksObtained
			pct := res.Percentage
			available[i].Completed = true
			available[i].Marks = &marks
			available[i].Percentage = &pct
			available[i].SubmittedAt = res.SubmittedAt
		}
	}
	return available, nil
}

// Create inserts a test.
func (r *TestRepository) Create(ctx context.Context, test *models.Test) error {
	if test.ID == "" {
		test.ID = uuid.NewString()
	}
	if test.CreatedAt.IsZero() {
		test.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO tests (id, title, description, course_id, teacher_id, total_marks, passing_marks, duration_minutes, test_date, published, created_at)
        VALUES (:id, :title, :description, :course_id, :teacher_id, :total_marks, :passing_marks, :duration_minutes, :test_date, :published, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, test); err != nil {
		return fmt.Errorf("create test: %w", err)
	}
	return nil
}

// Update mutates a test.
func (r *TestRepository) Update(ctx context.Context, test *models.Test) error {
	const query = `UPDATE tests SET title = :title, description = :description, course_id = :course_id,
        total_marks = :total_marks, passing_marks = :passing_marks, duration_minutes = :duration_minutes,
        test_date = :test_date, published = :published WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, test); err != nil {
		return fmt.Errorf("update test: %w", err)
	}
	return nil
}

// Delete removes a test and its results.
func (r *TestRepository) Delete(ctx context.Context, id string) error {
	return runInTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM test_results WHERE test_id = $1`, id); err != nil {
			return fmt.Errorf("delete test results: %w", err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM tests WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete test: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete test: %w", err)
		}
		if rows == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}

// FindResult returns the result for one (test, student) pair, or nil when
// the student has not submitted.
func (r *TestRepository) FindResult(ctx context.Context, testID, studentID string) (*models.TestResult, error) {
	const query = `SELECT id, test_id, student_id, marks_obtained, percentage, remarks, submitted_at, evaluated_at, created_at
        FROM test_results WHERE test_id = $1 AND student_id = $2`
	var result models.TestResult
	err := r.db.GetContext(ctx, &result, query, testID, studentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find test result: %w", err)
	}
	return &result, nil
}

// CreateResult inserts a result; the unique index maps a double submission
// to a conflict.
func (r *TestRepository) CreateResult(ctx context.Context, result *models.TestResult) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO test_results (id, test_id, student_id, marks_obtained, percentage, remarks, submitted_at, evaluated_at, created_at)
        VALUES (:id, :test_id, :student_id, :marks_obtained, :percentage, :remarks, :submitted_at, :evaluated_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, result); err != nil {
		if IsUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "test already submitted")
		}
		return fmt.Errorf("create test result: %w", err)
	}
	return nil
}

// UpdateResult mutates an existing result; evaluation overwrites marks.
func (r *TestRepository) UpdateResult(ctx context.Context, result *models.TestResult) error {
	const query = `UPDATE test_results SET marks_obtained = :marks_obtained, percentage = :percentage,
        remarks = :remarks, evaluated_at = :evaluated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, result); err != nil {
		return fmt.Errorf("update test result: %w", err)
	}
	return nil
}

// ListResultsByTest returns a test's results with student context.
func (r *TestRepository) ListResultsByTest(ctx context.Context, testID string) ([]models.TestResultDetail, error) {
	const query = `SELECT r.id, r.test_id, r.student_id, r.marks_obtained, r.percentage, r.remarks,
        r.submitted_at, r.evaluated_at, r.created_at,
        t.title AS test_title, t.total_marks, t.course_id, u.full_name AS student_name
        FROM test_results r
        JOIN tests t ON t.id = r.test_id
        JOIN students s ON s.id = r.student_id
        JOIN users u ON u.id = s.user_id
        WHERE r.test_id = $1 ORDER BY u.full_name ASC`
	var results []models.TestResultDetail
	if err := r.db.SelectContext(ctx, &results, query, testID); err != nil {
		return nil, fmt.Errorf("list test results: %w", err)
	}
	return results, nil
}

// ListResultsByStudent returns a student's results with test context.
func (r *TestRepository) ListResultsByStudent(ctx context.Context, studentID string) ([]models.TestResultDetail, error) {
	const query = `SELECT r.id, r.test_id, r.student_id, r.marks_obtained, r.percentage, r.remarks,
        r.submitted_at, r.evaluated_at, r.created_at,
        t.title AS test_title, t.total_marks, t.course_id, u.full_name AS student_name
        FROM test_results r
        JOIN tests t ON t.id = r.test_id
        JOIN students s ON s.id = r.student_id
        JOIN users u ON u.id = s.user_id
        WHERE r.student_id = $1 ORDER BY r.created_at DESC`
	var results []models.TestResultDetail
	if err := r.db.SelectContext(ctx, &results, query, studentID); err != nil {
		return nil, fmt.Errorf("list student results: %w", err)
	}
	return results, nil
}

// ListResultsByStudentForTeacher returns a student's results restricted to
// the tests one teacher owns.
func (r *TestRepository) ListResultsByStudentForTeacher(ctx context.Context, studentID, teacherID string) ([]models.TestResultDetail, error) {
	const query = `SELECT r.id, r.test_id, r.student_id, r.marks_obtained, r.percentage, r.remarks,
        r.submitted_at, r.evaluated_at, r.created_at,
        t.title AS test_title, t.total_marks, t.course_id, u.full_name AS student_name
        FROM test_results r
        JOIN tests t ON t.id = r.test_id
        JOIN students s ON s.id = r.student_id
        JOIN users u ON u.id = s.user_id
        WHERE r.student_id = $1 AND t.teacher_id = $2 ORDER BY r.created_at DESC`
	var results []models.TestResultDetail
	if err := r.db.SelectContext(ctx, &results, query, studentID, teacherID); err != nil {
		return nil, fmt.Errorf("list student results for teacher: %w", err)
	}
	return results, nil
}

// MarksReport aggregates results per test for the admin report. Tests with
// no attempts are included with zero counts.
func (r *TestRepository) MarksReport(ctx context.Context) ([]models.TestMarksReport, error) {
	const query = `SELECT t.id AS test_id, t.title AS test_title,
        COALESCE(c.name, '') AS course_name, tu.full_name AS teacher_name, t.total_marks,
        COUNT(r.id) AS attempts,
        COALESCE(AVG(r.percentage), 0) AS avg_percentage,
        COUNT(r.id) FILTER (WHERE r.marks_obtained >= t.passing_marks) AS pass_count
        FROM tests t
        LEFT JOIN courses c ON c.id = t.course_id
        JOIN teachers te ON te.id = t.teacher_id
        JOIN users tu ON tu.id = te.user_id
        LEFT JOIN test_results r ON r.test_id = t.id
        GROUP BY t.id, t.title, c.name, tu.full_name, t.total_marks
        ORDER BY t.created_at DESC`
	var rows []models.TestMarksReport
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("marks report: %w", err)
	}
	return rows, nil
}
