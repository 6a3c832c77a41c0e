package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/shrutiigupta24/institute-api/internal/models"
	appErrors "github.com/shrutiigupta24/institute-api/pkg/errors"
)

type adminUserRepository interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
}

type adminStudentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	CreateWithUser(ctx context.Context, user *models.User, student *models.Student) error
	Update(ctx context.Context, student *models.Student, fullName, phone string) error
	Delete(ctx context.Context, id string) error
}

type adminTeacherRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.TeacherDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.TeacherDetail, error)
	CreateWithUser(ctx context.Context, user *models.User, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher, fullName, phone string) error
	Delete(ctx context.Context, id string) error
}

// AdminService manages student and teacher records on behalf of the back
// office. Account and profile writes share one transaction in the
// repository layer.
type AdminService struct {
	users     adminUserRepository
	students  adminStudentRepository
	teachers  adminTeacherRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAdminService constructs the admin service.
func NewAdminService(users adminUserRepository, students adminStudentRepository, teachers adminTeacherRepository, validate *validator.Validate, logger *zap.Logger) *AdminService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{users: users, students: students, teachers: teachers, validator: validate, logger: logger}
}

// CreateStudentRequest is the admin payload for enrolling a new student.
type CreateStudentRequest struct {
	FullName       string     `json:"full_name" validate:"required"`
	Email          string     `json:"email" validate:"required,email"`
	Username       string     `json:"username" validate:"required,min=3"`
	Password       string     `json:"password" validate:"required,min=6"`
	Phone          string     `json:"phone"`
	CourseLabel    string     `json:"course_label"`
	EnrollmentDate *time.Time `json:"enrollment_date"`
}

// UpdateStudentRequest is the admin payload for editing a student.
type UpdateStudentRequest struct {
	FullName       string     `json:"full_name"`
	Phone          string     `json:"phone"`
	CourseLabel    string     `json:"course_label"`
	Status         string     `json:"status"`
	EnrollmentDate *time.Time `json:"enrollment_date"`
}

// CreateTeacherRequest is the admin payload for onboarding a teacher.
type CreateTeacherRequest struct {
	FullName      string `json:"full_name" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Username      string `json:"username" validate:"required,min=3"`
	Password      string `json:"password" validate:"required,min=6"`
	Phone         string `json:"phone"`
	Subject       string `json:"subject"`
	Qualification string `json:"qualification"`
	Experience    string `json:"experience"`
}

// UpdateTeacherRequest is the admin payload for editing a teacher.
type UpdateTeacherRequest struct {
	FullName      string `json:"full_name"`
	Phone         string `json:"phone"`
	Subject       string `json:"subject"`
	Qualification string `json:"qualification"`
	Experience    string `json:"experience"`
	Status        string `json:"status"`
}

// ListStudents returns students with pagination.
func (s *AdminService) ListStudents(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err)
	}
	return students, paginationFor(filter.Page, filter.PageSize, total), nil
}

// GetStudent returns one student.
func (s *AdminService) GetStudent(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err)
	}
	return student, nil
}

// CreateStudent creates the account and profile together.
func (s *AdminService) CreateStudent(ctx context.Context, req CreateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if err := s.checkIdentity(ctx, req.Email, req.Username); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Internal(err)
	}

	user := &models.User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Phone:        req.Phone,
		Role:         models.RoleStudent,
		Active:       true,
	}
	student := &models.Student{
		CourseLabel:    req.CourseLabel,
		Status:         "active",
		EnrollmentDate: req.EnrollmentDate,
	}
	if err := s.students.CreateWithUser(ctx, user, student); err != nil {
		return nil, appErrors.Internal(err)
	}
	s.logger.Info("student created", zap.String("student_id", student.ID), zap.String("email", user.Email))
	return s.GetStudent(ctx, student.ID)
}

// UpdateStudent mutates profile and account fields.
func (s *AdminService) UpdateStudent(ctx context.Context, id string, req UpdateStudentRequest) (*models.StudentDetail, error) {
	existing, err := s.GetStudent(ctx, id)
	if err != nil {
		return nil, err
	}
	student := existing.Student
	if req.CourseLabel != "" {
		student.CourseLabel = req.CourseLabel
	}
	if req.Status != "" {
		student.Status = req.Status
	}
	if req.EnrollmentDate != nil {
		student.EnrollmentDate = req.EnrollmentDate
	}
	if err := s.students.Update(ctx, &student, req.FullName, req.Phone); err != nil {
		return nil, appErrors.Internal(err)
	}
	return s.GetStudent(ctx, id)
}

// DeleteStudent removes the student, its history and its account.
func (s *AdminService) DeleteStudent(ctx context.Context, id string) error {
	if _, err := s.GetStudent(ctx, id); err != nil {
		return err
	}
	if err := s.students.Delete(ctx, id); err != nil {
		return appErrors.Internal(err)
	}
	s.logger.Info("student deleted", zap.String("student_id", id))
	return nil
}

// ListTeachers returns teachers with pagination.
func (s *AdminService) ListTeachers(ctx context.Context, filter models.TeacherFilter) ([]models.TeacherDetail, *models.Pagination, error) {
	teachers, total, err := s.teachers.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err)
	}
	return teachers, paginationFor(filter.Page, filter.PageSize, total), nil
}

// GetTeacher returns one teacher.
func (s *AdminService) GetTeacher(ctx context.Context, id string) (*models.TeacherDetail, error) {
	teacher, err := s.teachers.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Internal(err)
	}
	return teacher, nil
}

// CreateTeacher creates the account and profile together.
func (s *AdminService) CreateTeacher(ctx context.Context, req CreateTeacherRequest) (*models.TeacherDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if err := s.checkIdentity(ctx, req.Email, req.Username); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Internal(err)
	}

	user := &models.User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Phone:        req.Phone,
		Role:         models.RoleTeacher,
		Active:       true,
	}
	teacher := &models.Teacher{
		Subject:       req.Subject,
		Qualification: req.Qualification,
		Experience:    req.Experience,
		Status:        "active",
	}
	if err := s.teachers.CreateWithUser(ctx, user, teacher); err != nil {
		return nil, appErrors.Internal(err)
	}
	s.logger.Info("teacher created", zap.String("teacher_id", teacher.ID), zap.String("email", user.Email))
	return s.GetTeacher(ctx, teacher.ID)
}

// UpdateTeacher mutates profile and account fields.
func (s *AdminService) UpdateTeacher(ctx context.Context, id string, req UpdateTeacherRequest) (*models.TeacherDetail, error) {
	existing, err := s.GetTeacher(ctx, id)
	if err != nil {
		return nil, err
	}
	teacher := existing.Teacher
	if req.Subject != "" {
		teacher.Subject = req.Subject
	}
	if req.Qualification != "" {
		teacher.Qualification = req.Qualification
	}
	if req.Experience != "" {
		teacher.Experience = req.Experience
	}
	if req.Status != "" {
		teacher.Status = req.Status
	}
	if err := s.teachers.Update(ctx, &teacher, req.FullName, req.Phone); err != nil {
		return nil, appErrors.Internal(err)
	}
	return s.GetTeacher(ctx, id)
}

// DeleteTeacher removes the teacher and its account; batches survive with
// the assignment cleared.
func (s *AdminService) DeleteTeacher(ctx context.Context, id string) error {
	if _, err := s.GetTeacher(ctx, id); err != nil {
		return err
	}
	if err := s.teachers.Delete(ctx, id); err != nil {
		return appErrors.Internal(err)
	}
	s.logger.Info("teacher deleted", zap.String("teacher_id", id))
	return nil
}

func (s *AdminService) checkIdentity(ctx context.Context, email, username string) error {
	emailTaken, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return appErrors.Internal(err)
	}
	if emailTaken {
		return appErrors.Clone(appErrors.ErrConflict, "a user with this email already exists")
	}
	usernameTaken, err := s.users.UsernameExists(ctx, username)
	if err != nil {
		return appErrors.Internal(err)
	}
	if usernameTaken {
		return appErrors.Clone(appErrors.ErrConflict, "a user with this username already exists")
	}
	return nil
}

func paginationFor(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
