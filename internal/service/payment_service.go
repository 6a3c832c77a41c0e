package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/shrutiigupta24/institute-api/internal/models"
	"github.com/shrutiigupta24/institute-api/internal/policy"
	appErrors "github.com/shrutiigupta24/institute-api/pkg/errors"
	"github.com/shrutiigupta24/institute-api/pkg/payment"
)

type paymentFeeRepository interface {
	FindByID(ctx context.Context, id string) (*models.Fee, error)
	ApplyPayment(ctx context.Context, feeID string, amount int64, method models.PaymentMethod, transactionID string) (*models.Fee, error)
}

// PaymentService drives gateway-backed fee settlement. The gateway is
// consumed behind its contract; order creation and signature verification
// are its whole surface.
type PaymentService struct {
	fees      paymentFeeRepository
	gateway   payment.Gateway
	currency  string
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPaymentService constructs the payment service.
func NewPaymentService(fees paymentFeeRepository, gateway payment.Gateway, currency string, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if currency == "" {
		currency = "INR"
	}
	return &PaymentService{fees: fees, gateway: gateway, currency: currency, validator: validate, logger: logger}
}

// CreateOrderRequest opens a gateway order against a fee.
type CreateOrderRequest struct {
	FeeID  string `json:"fee_id" validate:"required"`
	Amount int64  `json:"amount" validate:"required,gt=0"`
}

// ConfirmRequest carries the gateway callback parameters.
type ConfirmRequest struct {
	FeeID     string `json:"fee_id" validate:"required"`
	OrderID   string `json:"order_id" validate:"required"`
	PaymentID string `json:"payment_id" validate:"required"`
	Signature string `json:"signature" validate:"required"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
}

// OrderResponse returns the gateway order reference to the client.
type OrderResponse struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// CreateOrder validates ownership and balance, then opens a gateway order.
func (s *PaymentService) CreateOrder(ctx context.Context, actor policy.Actor, req CreateOrderRequest) (*OrderResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	fee, err := s.visibleFee(ctx, actor, req.FeeID)
	if err != nil {
		return nil, err
	}
	if fee.Status == models.PaymentPaid {
		return nil, appErrors.Clone(appErrors.ErrConflict, "fee is already fully paid")
	}
	if req.Amount > fee.Amount-fee.PaidAmount {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount exceeds outstanding balance")
	}

	order, err := s.gateway.CreateOrder(req.Amount, s.currency)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	s.logger.Info("payment order created",
		zap.String("fee_id", fee.ID),
		zap.String("order_id", order.ID),
		zap.Int64("amount", req.Amount))
	return &OrderResponse{OrderID: order.ID, Amount: req.Amount, Currency: s.currency}, nil
}

// Confirm verifies the gateway signature and settles the fee.
func (s *PaymentService) Confirm(ctx context.Context, actor policy.Actor, req ConfirmRequest) (*models.Fee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if _, err := s.visibleFee(ctx, actor, req.FeeID); err != nil {
		return nil, err
	}
	if !s.gateway.VerifySignature(req.OrderID, req.PaymentID, req.Signature) {
		s.logger.Warn("payment signature rejected",
			zap.String("fee_id", req.FeeID),
			zap.String("order_id", req.OrderID))
		return nil, appErrors.Clone(appErrors.ErrValidation, "payment signature verification failed")
	}

	fee, err := s.fees.ApplyPayment(ctx, req.FeeID, req.Amount, models.MethodOnline, req.PaymentID)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, appErrors.Internal(err)
	}
	s.logger.Info("payment confirmed",
		zap.String("fee_id", fee.ID),
		zap.String("payment_id", req.PaymentID),
		zap.String("status", string(fee.Status)))
	return fee, nil
}

// visibleFee loads the fee and enforces that students only touch their own.
func (s *PaymentService) visibleFee(ctx context.Context, actor policy.Actor, feeID string) (*models.Fee, error) {
	scope, err := policy.Fees(actor)
	if err != nil {
		return nil, err
	}
	fee, err := s.fees.FindByID(ctx, feeID)
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
