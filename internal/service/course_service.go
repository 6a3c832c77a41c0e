package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/shrutiigupta24/institute-api/internal/models"
	appErrors "github.com/shrutiigupta24/institute-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, category, search string) ([]models.Course, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
	HasBatches(ctx context.Context, id string) (bool, error)
}

// CourseService manages the course catalog.
type CourseService struct {
	courses   courseRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs the course service.
func NewCourseService(courses courseRepository, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{courses: courses, validator: validate, logger: logger}
}

// CourseRequest is the create/update payload.
type CourseRequest struct {
	Name        string `json:"name" validate:"required"`
	Category    string `json:"category"`
	Duration    string `json:"duration"`
	MonthlyFee  string `json:"monthly_fee"`
	YearlyFee   string `json:"yearly_fee"`
	Description string `json:"description"`
}

// List returns the catalog, optionally filtered.
func (s *CourseService) List(ctx context.Context, category, search string) ([]models.Course, error) {
	courses, err := s.courses.List(ctx, category, search)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	return courses, nil
}

// Get returns one course.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Internal(err)
	}
	return course, nil
}

// Create adds a catalog entry.
func (s *CourseService) Create(ctx context.Context, req CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	course := &models.Course{
		Name:        req.Name,
		Category:    req.Category,
		Duration:    req.Duration,
		MonthlyFee:  req.MonthlyFee,
		YearlyFee:   req.YearlyFee,
		Description: req.Description,
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, appErrors.Internal(err)
	}
	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("name", course.Name))
	return course, nil
}

// Update mutates a catalog entry.
func (s *CourseService) Update(ctx context.Context, id string, req CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	course.Name = req.Name
	course.Category = req.Category
	course.Duration = req.Duration
	course.MonthlyFee = req.MonthlyFee
	course.YearlyFee = req.YearlyFee
	course.Description = req.Description
	if err := s.courses.Update(ctx, course); err != nil {
		return nil, appErrors.Internal(err)
	}
	return course, nil
}

// Delete removes a catalog entry unless batches still reference it.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	inUse, err := s.courses.HasBatches(ctx, id)
	if err != nil {
		return appErrors.Internal(err)
	}
	if inUse {
		return appErrors.Clone(appErrors.ErrConflict, "course has active batches")
	}
	if err := s.courses.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Internal(err)
	}
	s.logger.Info("course deleted", zap.String("course_id", id))
	return nil
}
