package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrutiigupta24/institute-api/internal/models"
	"github.com/shrutiigupta24/institute-api/internal/policy"
	appErrors "github.com/shrutiigupta24/institute-api/pkg/errors"
	"github.com/shrutiigupta24/institute-api/pkg/payment"
)

type mockPaymentFees struct {
	fees    map[string]*models.Fee
	applied *models.Fee
	method  models.PaymentMethod
	txnID   string
}

func (m *mockPaymentFees) FindByID(ctx context.Context, id string) (*models.Fee, error) {
	if fee, ok := m.fees[id]; ok {
		return fee, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPaymentFees) ApplyPayment(ctx context.Context, feeID string, amount int64, method models.PaymentMethod, transactionID string) (*models.Fee, error) {
	fee, ok := m.fees[feeID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	fee.PaidAmount += amount
	if fee.PaidAmount >= fee.Amount {
		fee.Status = models.PaymentPaid
	} else {
		fee.Status = models.PaymentPartial
	}
	m.applied = fee
	m.method = method
	m.txnID = transactionID
	return fee, nil
}

type mockGateway struct {
	valid   bool
	orderID string
}

func (m *mockGateway) CreateOrder(amount int64, currency string) (*payment.Order, error) {
	return &payment.Order{ID: m.orderID, Amount: amount, Currency: currency}, nil
}

func (m *mockGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return m.valid
}

func pendingFee(id, studentID string, amount, paid int64) *models.Fee {
	status := models.PaymentPending
	if paid > 0 {
		status = models.PaymentPartial
	}
	return &models.Fee{ID: id, StudentID: studentID, Amount: amount, PaidAmount: paid, Status: status}
}

func TestPaymentServiceCreateOrder(t *testing.T) {
	fees := &mockPaymentFees{fees: map[string]*models.Fee{
		"fee-1": pendingFee("fee-1", "student-1", 5000, 1000),
	}}
	svc := NewPaymentService(fees, &mockGateway{orderID: "order_abc"}, "", nil, nil)

	order, err := svc.CreateOrder(context.Background(), studentActor("student-1"), CreateOrderRequest{FeeID: "fee-1", Amount: 4000})
	require.NoError(t, err)
	assert.Equal(t, "order_abc", order.OrderID)
	assert.Equal(t, "INR", order.Currency)
}

func TestPaymentServiceCreateOrderOverBalance(t *testing.T) {
	fees := &mockPaymentFees{fees: map[string]*models.Fee{
		"fee-1": pendingFee("fee-1", "student-1", 5000, 1000),
	}}
	svc := NewPaymentService(fees, &mockGateway{orderID: "order_abc"}, "INR", nil, nil)

	_, err := svc.CreateOrder(context.Background(), studentActor("student-1"), CreateOrderRequest{FeeID: "fee-1", Amount: 4500})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestPaymentServiceCreateOrderPaidFee(t *testing.T) {
	fee := pendingFee("fee-1", "student-1", 5000, 5000)
	fee.Status = models.PaymentPaid
	fees := &mockPaymentFees{fees: map[string]*models.Fee{"fee-1": fee}}
	svc := NewPaymentService(fees, &mockGateway{}, "INR", nil, nil)

	_, err := svc.CreateOrder(context.Background(), studentActor("student-1"), CreateOrderRequest{FeeID: "fee-1", Amount: 100})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))
}

func TestPaymentServiceCreateOrderForeignFee(t *testing.T) {
	fees := &mockPaymentFees{fees: map[string]*models.Fee{
		"fee-1": pendingFee("fee-1", "student-2", 5000, 0),
	}}
	svc := NewPaymentService(fees, &mockGateway{}, "INR", nil, nil)

	// another student's fee reads as not found, not forbidden
	_, err := svc.CreateOrder(context.Background(), studentActor("student-1"), CreateOrderRequest{FeeID: "fee-1", Amount: 100})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}

func TestPaymentServiceConfirm(t *testing.T) {
	fees := &mockPaymentFees{fees: map[string]*models.Fee{
		"fee-1": pendingFee("fee-1", "student-1", 5000, 0),
	}}
	svc := NewPaymentService(fees, &mockGateway{valid: true}, "INR", nil, nil)

	fee, err := svc.Confirm(context.Background(), studentActor("student-1"), ConfirmRequest{
		FeeID: "fee-1", OrderID: "order_abc", PaymentID: "pay_xyz", Signature: "sig", Amount: 5000,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, fee.Status)
	assert.Equal(t, models.MethodOnline, fees.method)
	assert.Equal(t, "pay_xyz", fees.txnID)
}

func TestPaymentServiceConfirmBadSignature(t *testing.T) {
	fees := &mockPaymentFees{fees: map[string]*models.Fee{
		"fee-1": pendingFee("fee-1", "student-1", 5000, 0),
	}}
	svc := NewPaymentService(fees, &mockGateway{valid: false}, "INR", nil, nil)

	_, err := svc.Confirm(context.Background(), studentActor("student-1"), ConfirmRequest{
		FeeID: "fee-1", OrderID: "order_abc", PaymentID: "pay_xyz", Signature: "forged", Amount: 5000,
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	assert.Nil(t, fees.applied)
}

func TestPaymentServiceTeacherDenied(t *testing.T) {
	svc := NewPaymentService(&mockPaymentFees{fees: map[string]*models.Fee{}}, &mockGateway{}, "INR", nil, nil)

	actor := policy.Actor{Role: models.RoleTeacher, UserID: "user-9", TeacherID: "teacher-1"}
	_, err := svc.CreateOrder(context.Background(), actor, CreateOrderRequest{FeeID: "fee-1", Amount: 100})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden.Code))
}
