package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/shrutiigupta24/institute-api/internal/models"
	"github.com/shrutiigupta24/institute-api/internal/policy"
	appErrors "github.com/shrutiigupta24/institute-api/pkg/errors"
)

type studentProfileRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type studentBatchRepository interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.BatchDetail, error)
}

type studentCourseRepository interface {
	ListIDsByStudent(ctx context.Context, studentID string) ([]string, error)
}

type studentAttendanceRepository interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, error)
	SummaryByStudent(ctx context.Context, studentID string) ([]models.BatchAttendanceSummary, error)
}

type studentFeeRepository interface {
	List(ctx context.Context, filter models.FeeFilter) ([]models.Fee, error)
	SummaryByStudent(ctx context.Context, studentID string) (*models.FeeSummary, error)
}

type studentTestRepository interface {
	FindByID(ctx context.Context, id string) (*models.Test, error)
	ListAvailable(ctx context.Context, studentID string, courseIDs []string) ([]models.AvailableTest, error)
	FindResult(ctx context.Context, testID, studentID string) (*models.TestResult, error)
	CreateResult(ctx context.Context, result *models.TestResult) error
	ListResultsByStudent(ctx context.Context, studentID string) ([]models.TestResultDetail, error)
}

type studentMaterialRepository interface {
	ListForCourses(ctx context.Context, courseIDs []string) ([]models.StudyMaterialDetail, error)
}

// StudentService serves the student portal. Every operation scopes to the
// profile id carried by the actor's token.
type StudentService struct {
	students    studentProfileRepository
	batches     studentBatchRepository
	courses     studentCourseRepository
	attendances studentAttendanceRepository
	fees        studentFeeRepository
	tests       studentTestRepository
	materials   studentMaterialRepository
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewStudentService constructs the student portal service.
func NewStudentService(students studentProfileRepository, batches studentBatchRepository, courses studentCourseRepository, attendances studentAttendanceRepository, fees studentFeeRepository, tests studentTestRepository, materials studentMaterialRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		students:    students,
		batches:     batches,
		courses:     courses,
		attendances: attendances,
		fees:        fees,
		tests:       tests,
		materials:   materials,
		validator:   validate,
		logger:      logger,
	}
}

// StudentDashboard aggregates the portal landing view.
type StudentDashboard struct {
	Profile       *models.StudentDetail           `json:"profile"`
	Batches       []models.BatchDetail            `json:"batches"`
	Attendance    []models.BatchAttendanceSummary `json:"attendance"`
	FeeSummary    *models.FeeSummary              `json:"fee_summary"`
	RecentResults []models.TestResultDetail       `json:"recent_results"`
}

// SubmitTestRequest is the payload for a student submitting marks.
type SubmitTestRequest struct {
	TestID        string `json:"test_id" validate:"required"`
	MarksObtained int    `json:"marks_obtained" validate:"gte=0"`
}

// CourseResults groups evaluated results under one course with a grade.
type CourseResults struct {
	CourseID string                    `json:"course_id"`
	Results  []models.TestResultDetail `json:"results"`
	Average  float64                   `json:"average_percentage"`
	Grade    string                    `json:"grade"`
}

// Dashboard builds the aggregate portal view for the actor.
func (s *StudentService) Dashboard(ctx context.Context, actor policy.Actor) (*StudentDashboard, error) {
	studentID, err := s.requireStudent(actor)
	if err != nil {
		return nil, err
	}
	profile, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Internal(err)
	}
	batches, err := s.batches.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	attendance, err := s.attendances.SummaryByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	feeSummary, err := s.fees.SummaryByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	results, err := s.tests.ListResultsByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	if len(results) > 5 {
		results = results[:5]
	}
	return &StudentDashboard{
		Profile:       profile,
		Batches:       batches,
		Attendance:    attendance,
		FeeSummary:    feeSummary,
		RecentResults: results,
	}, nil
}

// Batches returns the actor's enrolled batches.
func (s *StudentService) Batches(ctx context.Context, actor policy.Actor) ([]models.BatchDetail, error) {
	studentID, err := s.requireStudent(actor)
	if err != nil {
		return nil, err
	}
	batches, err := s.batches.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	return batches, nil
}

// Attendance lists the actor's attendance with per-batch summaries.
func (s *StudentService) Attendance(ctx context.Context, actor policy.Actor, from, to *time.Time) ([]models.AttendanceDetail, []models.BatchAttendanceSummary, error) {
	scope, err := policy.Attendance(actor, nil)
	if err != nil {
		return nil, nil, err
	}
	records, err := s.attendances.List(ctx, models.AttendanceFilter{StudentID: scope.StudentID, From: from, To: to})
	if err != nil {
		return nil, nil, appErrors.Internal(err)
	}
	summaries, err := s.attendances.SummaryByStudent(ctx, scope.StudentID)
	if err != nil {
		return nil, nil, appErrors.Internal(err)
	}
	return records, summaries, nil
}

// Fees lists the actor's fees with the summary.
func (s *StudentService) Fees(ctx context.Context, actor policy.Actor) ([]models.Fee, *models.FeeSummary, error) {
	scope, err := policy.Fees(actor)
	if err != nil {
		return nil, nil, err
	}
	filter := models.FeeFilter{StudentID: scope.StudentID}
	fees, err := s.fees.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err)
	}
	summary, err := s.fees.SummaryByStudent(ctx, scope.StudentID)
	if err != nil {
		return nil, nil, appErrors.Internal(err)
	}
	return fees, summary, nil
}

// AvailableTests lists published tests for the actor's enrolled courses.
func (s *StudentService) AvailableTests(ctx context.Context, actor policy.Actor) ([]models.AvailableTest, error) {
	studentID, err := s.requireStudent(actor)
	if err != nil {
		return nil, err
	}
	courseIDs, err := s.courses.ListIDsByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	if _, err := policy.Tests(actor, courseIDs); err != nil {
		return nil, err
	}
	tests, err := s.tests.ListAvailable(ctx, studentID, courseIDs)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	return tests, nil
}

// SubmitTest records the actor's marks for a published test. The percentage
// is rounded to the nearest integer; a zero total is rejected before the
// division.
func (s *StudentService) SubmitTest(ctx context.Context, actor policy.Actor, req SubmitTestRequest) (*models.TestResult, error) {
	studentID, err := s.requireStudent(actor)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	test, err := s.tests.FindByID(ctx, req.TestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "test not found")
		}
		return nil, appErrors.Internal(err)
	}
	if !test.Published {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "test not found")
	}
	if test.TotalMarks <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "test has no total marks configured")
	}
	if req.MarksObtained > test.TotalMarks {
		return nil, appErrors.Clone(appErrors.ErrValidation, "marks obtained exceed total marks")
	}

	existing, err := s.tests.FindResult(ctx, req.TestID, studentID)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	if existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "test already submitted")
	}

	now := time.Now().UTC()
	result := &models.TestResult{
		TestID:        req.TestID,
		StudentID:     studentID,
		MarksObtained: req.MarksObtained,
		Percentage:    int(math.Round(float64(req.MarksObtained) / float64(test.TotalMarks) * 100)),
		SubmittedAt:   &now,
	}
	if err := s.tests.CreateResult(ctx, result); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, appErrors.Internal(err)
	}
	s.logger.Info("test submitted", zap.String("test_id", req.TestID), zap.String("student_id", studentID))
	return result, nil
}

// Results groups the actor's results per course with an average and grade.
func (s *StudentService) Results(ctx context.Context, actor policy.Actor) ([]CourseResults, error) {
	scope, err := policy.TestResults(actor)
	if err != nil {
		return nil, err
	}
	results, err := s.tests.ListResultsByStudent(ctx, scope.StudentID)
	if err != nil {
		return nil, appErrors.Internal(err)
	}

	grouped := make(map[string][]models.TestResultDetail)
	var order []string
	for _, res := range results {
		key := ""
		if res.CourseID != nil {
			key = *res.CourseID
		}
		if _, seen := grouped[key]; !seen {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], res)
	}

	out := make([]CourseResults, 0, len(order))
	for _, key := range order {
		group := grouped[key]
		var sum float64
		for _, res := range group {
			sum += float64(res.Percentage)
		}
		avg := sum / float64(len(group))
		out = append(out, CourseResults{
			CourseID: key,
			Results:  group,
			Average:  avg,
			Grade:    letterGrade(avg),
		})
	}
	return out, nil
}

// Materials lists study materials for the actor's enrolled courses.
func (s *StudentService) Materials(ctx context.Context, actor policy.Actor) ([]models.StudyMaterialDetail, error) {
	studentID, err := s.requireStudent(actor)
	if err != nil {
		return nil, err
	}
	courseIDs, err := s.courses.ListIDsByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	if _, err := policy.StudyMaterials(actor, courseIDs); err != nil {
		return nil, err
	}
	materials, err := s.materials.ListForCourses(ctx, courseIDs)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	return materials, nil
}

func (s *StudentService) requireStudent(actor policy.Actor) (string, error) {
	if actor.Role != models.RoleStudent {
		return "", appErrors.Clone(appErrors.ErrForbidden, "student access required")
	}
	if actor.StudentID == "" {
		return "", appErrors.Clone(appErrors.ErrForbidden, "no student profile linked to this account")
	}
	return actor.StudentID, nil
}

func letterGrade(avg float64) string {
	switch {
	case avg >= 90:
		return "A+"
	case avg >= 80:
		return "A"
	case avg >= 70:
		return "B"
	case avg >= 60:
		return "C"
	case avg >= 50:
		return "D"
	default:
		return "F"
	}
}
