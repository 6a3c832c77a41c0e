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

type teacherProfileRepository interface {
	FindByID(ctx context.Context, id string) (*models.TeacherDetail, error)
}

type teacherBatchRepository interface {
	FindByID(ctx context.Context, id string) (*models.BatchDetail, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.BatchDetail, error)
	ListIDsByTeacher(ctx context.Context, teacherID string) ([]string, error)
	ListIDsByStudent(ctx context.Context, studentID string) ([]string, error)
	ListStudents(ctx context.Context, batchID string) ([]models.StudentDetail, error)
	IsMember(ctx context.Context, batchID, studentID string) (bool, error)
}

type teacherAttendanceRepository interface {
	MarkBatch(ctx context.Context, records []models.Attendance) error
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, error)
	SummaryByStudent(ctx context.Context, studentID string) ([]models.BatchAttendanceSummary, error)
}

type teacherTestRepository interface {
	FindByID(ctx context.Context, id string) (*models.Test, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Test, error)
	Create(ctx context.Context, test *models.Test) error
	Update(ctx context.Context, test *models.Test) error
	Delete(ctx context.Context, id string) error
	FindResult(ctx context.Context, testID, studentID string) (*models.TestResult, error)
	CreateResult(ctx context.Context, result *models.TestResult) error
	UpdateResult(ctx context.Context, result *models.TestResult) error
	ListResultsByTest(ctx context.Context, testID string) ([]models.TestResultDetail, error)
	ListResultsByStudentForTeacher(ctx context.Context, studentID, teacherID string) ([]models.TestResultDetail, error)
}

type teacherMaterialRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudyMaterialDetail, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.StudyMaterialDetail, error)
	Create(ctx context.Context, material *models.StudyMaterial) error
	Update(ctx context.Context, material *models.StudyMaterial) error
	Delete(ctx context.Context, id string) error
}

type teacherStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

// TeacherService serves the teacher portal. Ownership checks fence every
// mutation: batches by assignment, tests and materials by creator.
type TeacherService struct {
	teachers    teacherProfileRepository
	batches     teacherBatchRepository
	attendances teacherAttendanceRepository
	tests       teacherTestRepository
	materials   teacherMaterialRepository
	students    teacherStudentRepository
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewTeacherService constructs the teacher portal service.
func NewTeacherService(teachers teacherProfileRepository, batches teacherBatchRepository, attendances teacherAttendanceRepository, tests teacherTestRepository, materials teacherMaterialRepository, students teacherStudentRepository, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{
		teachers:    teachers,
		batches:     batches,
		attendances: attendances,
		tests:       tests,
		materials:   materials,
		students:    students,
		validator:   validate,
		logger:      logger,
	}
}

// AttendanceEntry is one student's mark in a batch sheet.
type AttendanceEntry struct {
	StudentID string `json:"student_id" validate:"required"`
	Present   bool   `json:"present"`
	Remarks   string `json:"remarks"`
}

// MarkAttendanceRequest is the batch sheet payload.
type MarkAttendanceRequest struct {
	BatchID string            `json:"batch_id" validate:"required"`
	Date    time.Time         `json:"date" validate:"required"`
	Records []AttendanceEntry `json:"records" validate:"required,min=1,dive"`
}

// TestRequest is the create/update payload for a test.
type TestRequest struct {
	Title           string     `json:"title" validate:"required"`
	Description     string     `json:"description"`
	CourseID        *string    `json:"course_id"`
	TotalMarks      int        `json:"total_marks" validate:"required,gt=0"`
	PassingMarks    int        `json:"passing_marks" validate:"gte=0"`
	DurationMinutes int        `json:"duration_minutes" validate:"gte=0"`
	TestDate        *time.Time `json:"test_date"`
	Published       bool       `json:"published"`
}

// MaterialRequest is the create/update payload for a study material.
type MaterialRequest struct {
	Title       string  `json:"title" validate:"required"`
	Description string  `json:"description"`
	FileURL     string  `json:"file_url" validate:"required,url"`
	FileType    string  `json:"file_type"`
	FileSize    int64   `json:"file_size" validate:"gte=0"`
	CourseID    *string `json:"course_id"`
	Public      bool    `json:"public"`
}

// ResultEntry is one evaluated score in a results upload.
type ResultEntry struct {
	StudentID     string `json:"student_id" validate:"required"`
	MarksObtained int    `json:"marks_obtained" validate:"gte=0"`
	Remarks       string `json:"remarks"`
}

// UploadResultsRequest carries evaluated scores for one test.
type UploadResultsRequest struct {
	TestID  string        `json:"test_id" validate:"required"`
	Results []ResultEntry `json:"results" validate:"required,min=1,dive"`
}

// TeacherDashboard aggregates the portal landing view.
type TeacherDashboard struct {
	Profile   *models.TeacherDetail `json:"profile"`
	Batches   []models.BatchDetail  `json:"batches"`
	Tests     []models.Test         `json:"tests"`
	Materials int                   `json:"material_count"`
}

// StudentPerformance is a teacher's view of one student across shared
// batches: attendance plus results on the teacher's own tests.
type StudentPerformance struct {
	Student    *models.StudentDetail           `json:"student"`
	Attendance []models.BatchAttendanceSummary `json:"attendance"`
	Results    []models.TestResultDetail       `json:"results"`
}

// Dashboard builds the aggregate portal view for the actor.
func (s *TeacherService) Dashboard(ctx context.Context, actor policy.Actor) (*TeacherDashboard, error) {
	teacherID, err := s.requireTeacher(actor)
	if err != nil {
		return nil, err
	}
	profile, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher profile not found")
		}
		return nil, appErrors.Internal(err)
	}
	batches, err := s.batches.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	tests, err := s.tests.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	materials, err := s.materials.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	return &TeacherDashboard{Profile: profile, Batches: batches, Tests: tests, Materials: len(materials)}, nil
}

// Batches returns the actor's assigned batches.
func (s *TeacherService) Batches(ctx context.Context, actor policy.Actor) ([]models.BatchDetail, error) {
	teacherID, err := s.requireTeacher(actor)
	if err != nil {
		return nil, err
	}
	batches, err := s.batches.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	return batches, nil
}

// BatchStudents returns the roster of one of the actor's batches.
func (s *TeacherService) BatchStudents(ctx context.Context, actor policy.Actor, batchID string) ([]models.StudentDetail, error) {
	if _, err := s.ownedBatch(ctx, actor, batchID); err != nil {
		return nil, err
	}
	students, err := s.batches.ListStudents(ctx, batchID)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	return students, nil
}

// MarkAttendance records a sheet for one of the actor's batches. Entries
// for students outside the batch are rejected before anything is written.
func (s *TeacherService) MarkAttendance(ctx context.Context, actor policy.Actor, req MarkAttendanceRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if _, err := s.ownedBatch(ctx, actor, req.BatchID); err != nil {
		return err
	}

	records := make([]models.Attendance, 0, len(req.Records))
	for _, entry := range req.Records {
		member, err := s.batches.IsMember(ctx, req.BatchID, entry.StudentID)
		if err != nil {
			return appErrors.Internal(err)
		}
		if !member {
			return appErrors.Clone(appErrors.ErrValidation, "student is not enrolled in this batch")
		}
		records = append(records, models.Attendance{
			StudentID: entry.StudentID,
			BatchID:   req.BatchID,
			Date:      req.Date,
			Present:   entry.Present,
			Remarks:   entry.Remarks,
			MarkedBy:  actor.TeacherID,
		})
	}
	if err := s.attendances.MarkBatch(ctx, records); err != nil {
		return appErrors.Internal(err)
	}
	s.logger.Info("attendance marked",
		zap.String("batch_id", req.BatchID),
		zap.Time("date", req.Date),
		zap.Int("records", len(records)))
	return nil
}

// Attendance lists records across the actor's batches.
func (s *TeacherService) Attendance(ctx context.Context, actor policy.Actor, batchID string, from, to *time.Time) ([]models.AttendanceDetail, error) {
	teacherID, err := s.requireTeacher(actor)
	if err != nil {
		return nil, err
	}
	batchIDs, err := s.batches.ListIDsByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	scope, err := policy.Attendance(actor, batchIDs)
	if err != nil {
		return nil, err
	}
	filter := models.AttendanceFilter{BatchIDs: scope.BatchIDs, From: from, To: to}
	if batchID != "" {
		if _, err := s.ownedBatch(ctx, actor, batchID); err != nil {
			return nil, err
		}
		filter = models.AttendanceFilter{BatchID: batchID, From: from, To: to}
	}
	records, err := s.attendances.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	return records, nil
}

// Tests returns the actor's tests.
func (s *TeacherService) Tests(ctx context.Context, actor policy.Actor) ([]models.Test, error) {
	teacherID, err := s.requireTeacher(actor)
	if err != nil {
		return nil, err
	}
	tests, err := s.tests.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	return tests, nil
}

// CreateTest creates a test owned by the actor.
func (s *TeacherService) CreateTest(ctx context.Context, actor policy.Actor, req TestRequest) (*models.Test, error) {
	teacherID, err := s.requireTeacher(actor)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if req.PassingMarks > req.TotalMarks {
		return nil, appErrors.Clone(appErrors.ErrValidation, "passing marks exceed total marks")
	}
	test := &models.Test{
		Title:           req.Title,
		Description:     req.Description,
		CourseID:        req.CourseID,
		TeacherID:       teacherID,
		TotalMarks:      req.TotalMarks,
		PassingMarks:    req.PassingMarks,
		DurationMinutes: req.DurationMinutes,
		TestDate:        req.TestDate,
		Published:       req.Published,
	}
	if err := s.tests.Create(ctx, test); err != nil {
		return nil, appErrors.Internal(err)
	}
	s.logger.Info("test created", zap.String("test_id", test.ID), zap.String("teacher_id", teacherID))
	return test, nil
}

// UpdateTest mutates one of the actor's tests.
func (s *TeacherService) UpdateTest(ctx context.Context, actor policy.Actor, testID string, req TestRequest) (*models.Test, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if req.PassingMarks > req.TotalMarks {
		return nil, appErrors.Clone(appErrors.ErrValidation, "passing marks exceed total marks")
	}
	test, err := s.ownedTest(ctx, actor, testID)
	if err != nil {
		return nil, err
	}
	test.Title = req.Title
	test.Description = req.Description
	test.CourseID = req.CourseID
	test.TotalMarks = req.TotalMarks
	test.PassingMarks = req.PassingMarks
	test.DurationMinutes = req.DurationMinutes
	test.TestDate = req.TestDate
	test.Published = req.Published
	if err := s.tests.Update(ctx, test); err != nil {
		return nil, appErrors.Internal(err)
	}
	return test, nil
}

// DeleteTest removes one of the actor's tests along with its results.
func (s *TeacherService) DeleteTest(ctx context.Context, actor policy.Actor, testID string) error {
	if _, err := s.ownedTest(ctx, actor, testID); err != nil {
		return err
	}
	if err := s.tests.Delete(ctx, testID); err != nil {
		return appErrors.Internal(err)
	}
	s.logger.Info("test deleted", zap.String("test_id", testID))
	return nil
}

// TestResults lists the results of one of the actor's tests.
func (s *TeacherService) TestResults(ctx context.Context, actor policy.Actor, testID string) ([]models.TestResultDetail, error) {
	if _, err := s.ownedTest(ctx, actor, testID); err != nil {
		return nil, err
	}
	results, err := s.tests.ListResultsByTest(ctx, testID)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	return results, nil
}

// UploadResults records evaluated scores for one of the actor's tests.
// Existing rows are overwritten and stamped evaluated, so re-uploading the
// same sheet is idempotent.
func (s *TeacherService) UploadResults(ctx context.Context, actor policy.Actor, req UploadResultsRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	test, err := s.ownedTest(ctx, actor, req.TestID)
	if err != nil {
		return err
	}
	if test.TotalMarks <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "test has no total marks configured")
	}

	now := time.Now().UTC()
	for _, entry := range req.Results {
		if entry.MarksObtained > test.TotalMarks {
			return appErrors.Clone(appErrors.ErrValidation, "marks obtained exceed total marks")
		}
		percentage := int(math.Round(float64(entry.MarksObtained) / float64(test.TotalMarks) * 100))

		existing, err := s.tests.FindResult(ctx, req.TestID, entry.StudentID)
		if err != nil {
			return appErrors.Internal(err)
		}
		if existing != nil {
			existing.MarksObtained = entry.MarksObtained
			existing.Percentage = percentage
			existing.Remarks = entry.Remarks
			existing.EvaluatedAt = &now
			if err := s.tests.UpdateResult(ctx, existing); err != nil {
				return appErrors.Internal(err)
			}
			continue
		}
		result := &models.TestResult{
			TestID:        req.TestID,
			StudentID:     entry.StudentID,
			MarksObtained: entry.MarksObtained,
			Percentage:    percentage,
			Remarks:       entry.Remarks,
			EvaluatedAt:   &now,
		}
		if err := s.tests.CreateResult(ctx, result); err != nil {
			var appErr *appErrors.Error
			if errors.As(err, &appErr) {
				return err
			}
			return appErrors.Internal(err)
		}
	}
	s.logger.Info("test results uploaded", zap.String("test_id", req.TestID), zap.Int("results", len(req.Results)))
	return nil
}

// Materials returns the actor's study materials.
func (s *TeacherService) Materials(ctx context.Context, actor policy.Actor) ([]models.StudyMaterialDetail, error) {
	teacherID, err := s.requireTeacher(actor)
	if err != nil {
		return nil, err
	}
	materials, err := s.materials.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	return materials, nil
}

// CreateMaterial publishes a study material owned by the actor.
func (s *TeacherService) CreateMaterial(ctx context.Context, actor policy.Actor, req MaterialRequest) (*models.StudyMaterial, error) {
	teacherID, err := s.requireTeacher(actor)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	material := &models.StudyMaterial{
		Title:       req.Title,
		Description: req.Description,
		FileURL:     req.FileURL,
		FileType:    req.FileType,
		FileSize:    req.FileSize,
		CourseID:    req.CourseID,
		TeacherID:   teacherID,
		Public:      req.Public,
	}
	if err := s.materials.Create(ctx, material); err != nil {
		return nil, appErrors.Internal(err)
	}
	return material, nil
}

// UpdateMaterial mutates one of the actor's materials.
func (s *TeacherService) UpdateMaterial(ctx context.Context, actor policy.Actor, materialID string, req MaterialRequest) (*models.StudyMaterial, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	detail, err := s.ownedMaterial(ctx, actor, materialID)
	if err != nil {
		return nil, err
	}
	material := detail.StudyMaterial
	material.Title = req.Title
	material.Description = req.Description
	material.FileURL = req.FileURL
	material.FileType = req.FileType
	material.FileSize = req.FileSize
	material.CourseID = req.CourseID
	material.Public = req.Public
	if err := s.materials.Update(ctx, &material); err != nil {
		return nil, appErrors.Internal(err)
	}
	return &material, nil
}

// DeleteMaterial removes one of the actor's materials.
func (s *TeacherService) DeleteMaterial(ctx context.Context, actor policy.Actor, materialID string) error {
	if _, err := s.ownedMaterial(ctx, actor, materialID); err != nil {
		return err
	}
	if err := s.materials.Delete(ctx, materialID); err != nil {
		return appErrors.Internal(err)
	}
	return nil
}

// Performance returns attendance and results for a student who shares at
// least one batch with the actor. Attendance is restricted to the actor's
// batches and results to the actor's tests.
func (s *TeacherService) Performance(ctx context.Context, actor policy.Actor, studentID string) (*StudentPerformance, error) {
	teacherID, err := s.requireTeacher(actor)
	if err != nil {
		return nil, err
	}
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err)
	}

	teacherBatchIDs, err := s.batches.ListIDsByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	studentBatchIDs, err := s.batches.ListIDsByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	if err := policy.CanViewStudentPerformance(actor, teacherBatchIDs, studentBatchIDs); err != nil {
		return nil, err
	}

	summaries, err := s.attendances.SummaryByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	owned := make(map[string]struct{}, len(teacherBatchIDs))
	for _, id := range teacherBatchIDs {
		owned[id] = struct{}{}
	}
	scoped := summaries[:0]
	for _, summary := range summaries {
		if _, ok := owned[summary.BatchID]; ok {
			scoped = append(scoped, summary)
		}
	}

	results, err := s.tests.ListResultsByStudentForTeacher(ctx, studentID, teacherID)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	return &StudentPerformance{Student: student, Attendance: scoped, Results: results}, nil
}

func (s *TeacherService) requireTeacher(actor policy.Actor) (string, error) {
	if actor.Role != models.RoleTeacher {
		return "", appErrors.Clone(appErrors.ErrForbidden, "teacher access required")
	}
	if actor.TeacherID == "" {
		return "", appErrors.Clone(appErrors.ErrForbidden, "no teacher profile linked to this account")
	}
	return actor.TeacherID, nil
}

func (s *TeacherService) ownedBatch(ctx context.Context, actor policy.Actor, batchID string) (*models.BatchDetail, error) {
	if _, err := s.requireTeacher(actor); err != nil {
		return nil, err
	}
	batch, err := s.batches.FindByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return nil, appErrors.Internal(err)
	}
	if err := policy.CanManageBatch(actor, &batch.Batch); err != nil {
		return nil, err
	}
	return batch, nil
}

func (s *TeacherService) ownedTest(ctx context.Context, actor policy.Actor, testID string) (*models.Test, error) {
	if _, err := s.requireTeacher(actor); err != nil {
		return nil, err
	}
	test, err := s.tests.FindByID(ctx, testID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "test not found")
		}
		return nil, appErrors.Internal(err)
	}
	if err := policy.CanManageTest(actor, test); err != nil {
		return nil, err
	}
	return test, nil
}

func (s *TeacherService) ownedMaterial(ctx context.Context, actor policy.Actor, materialID string) (*models.StudyMaterialDetail, error) {
	teacherID, err := s.requireTeacher(actor)
	if err != nil {
		return nil, err
	}
	material, err := s.materials.FindByID(ctx, materialID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "study material not found")
		}
		return nil, appErrors.Internal(err)
	}
	if material.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "study material belongs to another teacher")
	}
	return material, nil
}
