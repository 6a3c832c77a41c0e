package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrutiigupta24/institute-api/internal/models"
	appErrors "github.com/shrutiigupta24/institute-api/pkg/errors"
)

func newFeeMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func feeRow(id string, amount, paid int64, status models.PaymentStatus) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "student_id", "amount", "paid_amount", "due_date", "payment_date", "status", "payment_method", "transaction_id", "remarks", "receipt_url", "created_at", "updated_at"}).
		AddRow(id, "student-1", amount, paid, time.Now(), nil, status, nil, nil, "", "", time.Now(), time.Now())
}

func TestFeeRepositoryApplyPaymentPartial(t *testing.T) {
	db, mock, cleanup := newFeeMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM fees WHERE id = \\$1 FOR UPDATE").
		WithArgs("fee-1").
		WillReturnRows(feeRow("fee-1", 5000, 0, models.PaymentPending))
	mock.ExpectExec("UPDATE fees SET paid_amount").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	fee, err := repo.ApplyPayment(context.Background(), "fee-1", 2000, models.MethodUPI, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), fee.PaidAmount)
	assert.Equal(t, models.PaymentPartial, fee.Status)
	require.NotNil(t, fee.TransactionID)
	assert.Equal(t, "txn-1", *fee.TransactionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryApplyPaymentSettles(t *testing.T) {
	db, mock, cleanup := newFeeMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM fees WHERE id = \\$1 FOR UPDATE").
		WithArgs("fee-1").
		WillReturnRows(feeRow("fee-1", 5000, 3000, models.PaymentPartial))
	mock.ExpectExec("UPDATE fees SET paid_amount").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	fee, err := repo.ApplyPayment(context.Background(), "fee-1", 2000, models.MethodCash, "")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, fee.Status)
	assert.Equal(t, int64(5000), fee.PaidAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryApplyPaymentOverBalance(t *testing.T) {
	db, mock, cleanup := newFeeMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM fees WHERE id = \\$1 FOR UPDATE").
		WithArgs("fee-1").
		WillReturnRows(feeRow("fee-1", 5000, 4000, models.PaymentPartial))
	mock.ExpectRollback()

	_, err := repo.ApplyPayment(context.Background(), "fee-1", 2000, models.MethodCash, "")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryApplyPaymentAlreadyPaid(t *testing.T) {
	db, mock, cleanup := newFeeMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM fees WHERE id = \\$1 FOR UPDATE").
		WithArgs("fee-1").
		WillReturnRows(feeRow("fee-1", 5000, 5000, models.PaymentPaid))
	mock.ExpectRollback()

	_, err := repo.ApplyPayment(context.Background(), "fee-1", 100, models.MethodCash, "")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositorySummaryByStudent(t *testing.T) {
	db, mock, cleanup := newFeeMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	rows := sqlmock.NewRows([]string{"total_fees", "total_paid"}).AddRow(10000, 7500)
	mock.ExpectQuery("FROM fees WHERE student_id = \\$1").
		WithArgs("student-1").
		WillReturnRows(rows)

	summary, err := repo.SummaryByStudent(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2500), summary.TotalPending)
	assert.InDelta(t, 75.0, summary.PaidPercentage, 0.01)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryMarkOverdue(t *testing.T) {
	db, mock, cleanup := newFeeMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	mock.ExpectExec("UPDATE fees SET status").
		WithArgs(models.PaymentOverdue, sqlmock.AnyArg(), models.PaymentPending, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	changed, err := repo.MarkOverdue(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(3), changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
