package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/shrutiigupta24/institute-api/internal/models"
	appErrors "github.com/shrutiigupta24/institute-api/pkg/errors"
)

type batchRepository interface {
	List(ctx context.Context, filter models.BatchFilter) ([]models.BatchDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.BatchDetail, error)
	FindNameConflict(ctx context.Context, name, courseID string, teacherID *string, excludeID string) (*models.Batch, error)
	FindTeacherTimingConflict(ctx context.Context, teacherID, timing, excludeID string) (*models.Batch, error)
	Create(ctx context.Context, batch *models.Batch) error
	Update(ctx context.Context, batch *models.Batch) error
	Delete(ctx context.Context, id string) error
	Enroll(ctx context.Context, batchID, studentID string) error
	Unenroll(ctx context.Context, batchID, studentID string) error
	ListStudents(ctx context.Context, batchID string) ([]models.StudentDetail, error)
}

type batchCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type batchTeacherRepository interface {
	FindByID(ctx context.Context, id string) (*models.TeacherDetail, error)
}

type batchStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

// BatchService coordinates batch scheduling and enrollment.
type BatchService struct {
	batches   batchRepository
	courses   batchCourseRepository
	teachers  batchTeacherRepository
	students  batchStudentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBatchService constructs the batch service.
func NewBatchService(batches batchRepository, courses batchCourseRepository, teachers batchTeacherRepository, students batchStudentRepository, validate *validator.Validate, logger *zap.Logger) *BatchService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchService{batches: batches, courses: courses, teachers: teachers, students: students, validator: validate, logger: logger}
}

// BatchRequest is the create/update payload.
type BatchRequest struct {
	Name        string     `json:"name" validate:"required"`
	Code        string     `json:"code"`
	CourseID    string     `json:"course_id" validate:"required"`
	TeacherID   *string    `json:"teacher_id"`
	Timing      string     `json:"timing" validate:"required"`
	Days        string     `json:"days"`
	MaxStudents int        `json:"max_students" validate:"gte=0"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

// List returns batches with pagination.
func (s *BatchService) List(ctx context.Context, filter models.BatchFilter) ([]models.BatchDetail, *models.Pagination, error) {
	batches, total, err := s.batches.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err)
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return batches, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one batch.
func (s *BatchService) Get(ctx context.Context, id string) (*models.BatchDetail, error) {
	batch, err := s.batches.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return nil, appErrors.Internal(err)
	}
	return batch, nil
}

// Create validates references and both uniqueness rules before inserting.
func (s *BatchService) Create(ctx context.Context, req BatchRequest) (*models.BatchDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if err := s.checkReferences(ctx, req); err != nil {
		return nil, err
	}
	if err := s.checkConflicts(ctx, req, ""); err != nil {
		return nil, err
	}

	batch := &models.Batch{
		Name:        req.Name,
		Code:        req.Code,
		CourseID:    req.CourseID,
		TeacherID:   req.TeacherID,
		Timing:      req.Timing,
		Days:        req.Days,
		MaxStudents: req.MaxStudents,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}
	if err := s.batches.Create(ctx, batch); err != nil {
		return nil, appErrors.Internal(err)
	}
	s.logger.Info("batch created", zap.String("batch_id", batch.ID), zap.String("timing", batch.Timing))
	return s.Get(ctx, batch.ID)
}

// Update revalidates both uniqueness rules excluding the batch itself.
func (s *BatchService) Update(ctx context.Context, id string, req BatchRequest) (*models.BatchDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, req); err != nil {
		return nil, err
	}
	if err := s.checkConflicts(ctx, req, id); err != nil {
		return nil, err
	}

	batch := existing.Batch
	batch.Name = req.Name
	batch.Code = req.Code
	batch.CourseID = req.CourseID
	batch.TeacherID = req.TeacherID
	batch.Timing = req.Timing
	batch.Days = req.Days
	batch.MaxStudents = req.MaxStudents
	batch.StartDate = req.StartDate
	batch.EndDate = req.EndDate
	if err := s.batches.Update(ctx, &batch); err != nil {
		return nil, appErrors.Internal(err)
	}
	return s.Get(ctx, id)
}

// Delete removes a batch with its membership and schedule artifacts.
func (s *BatchService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.batches.Delete(ctx, id); err != nil {
		return appErrors.Internal(err)
	}
	s.logger.Info("batch deleted", zap.String("batch_id", id))
	return nil
}

// Enroll adds a student to a batch; duplicate membership, capacity and
// timing clashes surface as conflicts from the repository.
func (s *BatchService) Enroll(ctx context.Context, batchID, studentID string) error {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Internal(err)
	}
	if err := s.batches.Enroll(ctx, batchID, studentID); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return err
		}
		return appErrors.Internal(err)
	}
	s.logger.Info("student enrolled", zap.String("batch_id", batchID), zap.String("student_id", studentID))
	return nil
}

// Unenroll removes a student from a batch.
func (s *BatchService) Unenroll(ctx context.Context, batchID, studentID string) error {
	if err := s.batches.Unenroll(ctx, batchID, studentID); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return err
		}
		return appErrors.Internal(err)
	}
	s.logger.Info("student unenrolled", zap.String("batch_id", batchID), zap.String("student_id", studentID))
	return nil
}

// ListStudents returns the roster of a batch.
func (s *BatchService) ListStudents(ctx context.Context, batchID string) ([]models.StudentDetail, error) {
	if _, err := s.Get(ctx, batchID); err != nil {
		return nil, err
	}
	students, err := s.batches.ListStudents(ctx, batchID)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	return students, nil
}

func (s *BatchService) checkReferences(ctx context.Context, req BatchRequest) error {
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Internal(err)
	}
	if req.TeacherID != nil && *req.TeacherID != "" {
		if _, err := s.teachers.FindByID(ctx, *req.TeacherID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
			}
			return appErrors.Internal(err)
		}
	}
	return nil
}

func (s *BatchService) checkConflicts(ctx context.Context, req BatchRequest, excludeID string) error {
	dup, err := s.batches.FindNameConflict(ctx, req.Name, req.CourseID, req.TeacherID, excludeID)
	if err != nil {
		return appErrors.Internal(err)
	}
	if dup != nil {
		return appErrors.Clone(appErrors.ErrConflict, "a batch with this name already exists for the course and teacher")
	}
	if req.TeacherID != nil && *req.TeacherID != "" {
		clash, err := s.batches.FindTeacherTimingConflict(ctx, *req.TeacherID, req.Timing, excludeID)
		if err != nil {
			return appErrors.Internal(err)
		}
		if clash != nil {
			return appErrors.Clone(appErrors.ErrConflict,
				fmt.Sprintf("teacher already has batch %q at %s", clash.Name, clash.Timing))
		}
	}
	return nil
}
