package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/shrutiigupta24/institute-api/internal/models"
	"github.com/shrutiigupta24/institute-api/internal/policy"
	appErrors "github.com/shrutiigupta24/institute-api/pkg/errors"
)

type feeRepository interface {
	List(ctx context.Context, filter models.FeeFilter) ([]models.Fee, error)
	FindByID(ctx context.Context, id string) (*models.Fee, error)
	Create(ctx context.Context, fee *models.Fee) error
	Update(ctx context.Context, fee *models.Fee) error
	Delete(ctx context.Context, id string) error
	ApplyPayment(ctx context.Context, feeID string, amount int64, method models.PaymentMethod, transactionID string) (*models.Fee, error)
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
	SummaryByStudent(ctx context.Context, studentID string) (*models.FeeSummary, error)
	Report(ctx context.Context) (*models.FeeReport, error)
}

type feeStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

// FeeService manages billing records. Teachers have no fee access at all;
// students reach only their own rows through the policy scope.
type FeeService struct {
	fees      feeRepository
	students  feeStudentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFeeService constructs the fee service.
func NewFeeService(fees feeRepository, students feeStudentRepository, validate *validator.Validate, logger *zap.Logger) *FeeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeeService{fees: fees, students: students, validator: validate, logger: logger}
}

// FeeRequest is the admin create/update payload. Amounts are minor units.
type FeeRequest struct {
	StudentID string    `json:"student_id" validate:"required"`
	Amount    int64     `json:"amount" validate:"required,gt=0"`
	DueDate   time.Time `json:"due_date" validate:"required"`
	Remarks   string    `json:"remarks"`
}

// RecordPaymentRequest settles an amount against a fee out of band (cash,
// bank transfer); gateway payments go through PaymentService.
type RecordPaymentRequest struct {
	Amount        int64                `json:"amount" validate:"required,gt=0"`
	Method        models.PaymentMethod `json:"method" validate:"required"`
	TransactionID string               `json:"transaction_id"`
}

// List returns fees visible to the actor.
func (s *FeeService) List(ctx context.Context, actor policy.Actor, status models.PaymentStatus) ([]models.Fee, error) {
	scope, err := policy.Fees(actor)
	if err != nil {
		return nil, err
	}
	filter := models.FeeFilter{Status: status}
	if !scope.All {
		filter.StudentID = scope.StudentID
	}
	fees, err := s.fees.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	return fees, nil
}

// Get returns one fee if the actor may see it.
func (s *FeeService) Get(ctx context.Context, actor policy.Actor, id string) (*models.Fee, error) {
	scope, err := policy.Fees(actor)
	if err != nil {
		return nil, err
	}
	fee, err := s.fees.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee record not found")
		}
		return nil, appErrors.Internal(err)
	}
	if !scope.All && fee.StudentID != scope.StudentID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "fee record not found")
	}
	return fee, nil
}

// Create adds a billing line for a student.
func (s *FeeService) Create(ctx context.Context, req FeeRequest) (*models.Fee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err)
	}
	fee := &models.Fee{
		StudentID: req.StudentID,
		Amount:    req.Amount,
		DueDate:   req.DueDate,
		Status:    models.PaymentPending,
		Remarks:   req.Remarks,
	}
	if err := s.fees.Create(ctx, fee); err != nil {
		return nil, appErrors.Internal(err)
	}
	s.logger.Info("fee created", zap.String("fee_id", fee.ID), zap.String("student_id", fee.StudentID), zap.Int64("amount", fee.Amount))
	return fee, nil
}

// Update mutates amount, due date and remarks on an unsettled fee.
func (s *FeeService) Update(ctx context.Context, id string, req FeeRequest) (*models.Fee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	fee, err := s.fees.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee record not found")
		}
		return nil, appErrors.Internal(err)
	}
	if fee.Status == models.PaymentPaid {
		return nil, appErrors.Clone(appErrors.ErrConflict, "fee is already fully paid")
	}
	if req.Amount < fee.PaidAmount {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount cannot drop below the amount already paid")
	}
	fee.Amount = req.Amount
	fee.DueDate = req.DueDate
	fee.Remarks = req.Remarks
	if err := s.fees.Update(ctx, fee); err != nil {
		return nil, appErrors.Internal(err)
	}
	return fee, nil
}

// Delete removes a fee record.
func (s *FeeService) Delete(ctx context.Context, id string) error {
	if err := s.fees.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "fee record not found")
		}
		return appErrors.Internal(err)
	}
	s.logger.Info("fee deleted", zap.String("fee_id", id))
	return nil
}

// RecordPayment settles an out-of-band payment against a fee.
func (s *FeeService) RecordPayment(ctx context.Context, id string, req RecordPaymentRequest) (*models.Fee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	fee, err := s.fees.ApplyPayment(ctx, id, req.Amount, req.Method, req.TransactionID)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, appErrors.Internal(err)
	}
	s.logger.Info("payment recorded",
		zap.String("fee_id", id),
		zap.Int64("amount", req.Amount),
		zap.String("method", string(req.Method)))
	return fee, nil
}

// StudentSummary returns one student's fee position.
func (s *FeeService) StudentSummary(ctx context.Context, actor policy.Actor, studentID string) (*models.FeeSummary, error) {
	scope, err := policy.Fees(actor)
	if err != nil {
		return nil, err
	}
	if !scope.All {
		studentID = scope.StudentID
	}
	summary, err := s.fees.SummaryByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	return summary, nil
}

// MarkOverdue flips pending fees past due to overdue.
func (s *FeeService) MarkOverdue(ctx context.Context) (int64, error) {
	changed, err := s.fees.MarkOverdue(ctx, time.Now().UTC())
	if err != nil {
		return 0, appErrors.Internal(err)
	}
	if changed > 0 {
		s.logger.Info("fees marked overdue", zap.Int64("count", changed))
	}
	return changed, nil
}

// Report returns the institute-wide collection report.
func (s *FeeService) Report(ctx context.Context) (*models.FeeReport, error) {
	report, err := s.fees.Report(ctx)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	return report, nil
}
