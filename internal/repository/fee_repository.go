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

const feeColumns = `id, student_id, amount, paid_amount, due_date, payment_date, status,
        payment_method, transaction_id, remarks, receipt_url, created_at, updated_at`

// FeeRepository handles fee records and payment application.
type FeeRepository struct {
	db *sqlx.DB
}

// NewFeeRepository constructs the repository.
func NewFeeRepository(db *sqlx.DB) *FeeRepository {
	return &FeeRepository{db: db}
}

// List returns fee records narrowed by the filter.
func (r *FeeRepository) List(ctx context.Context, filter models.FeeFilter) ([]models.Fee, error) {
	query := "SELECT " + feeColumns + " FROM fees"
	var conditions []string
	var args []interface{}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY due_date DESC"

	var fees []models.Fee
	if err := r.db.SelectContext(ctx, &fees, query, args...); err != nil {
		return nil, fmt.Errorf("list fees: %w", err)
	}
	return fees, nil
}

// FindByID returns one fee record.
func (r *FeeRepository) FindByID(ctx context.Context, id string) (*models.Fee, error) {
	var fee models.Fee
	if err := r.db.GetContext(ctx, &fee, "SELECT "+feeColumns+" FROM fees WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &fee, nil
}

// Create inserts a fee record.
func (r *FeeRepository) Create(ctx context.Context, fee *models.Fee) error {
	if fee.ID == "" {
		fee.ID = uuid.NewString()
	}
	if fee.Status == "" {
		fee.Status = models.PaymentPending
	}
	now := time.Now().UTC()
	fee.CreatedAt = now
	fee.UpdatedAt = now
	const query = `INSERT INTO fees (id, student_id, amount, paid_amount, due_date, payment_date, status, payment_method, transaction_id, remarks, receipt_url, created_at, updated_at)
        VALUES (:id, :student_id, :amount, :paid_amount, :due_date, :payment_date, :status, :payment_method, :transaction_id, :remarks, :receipt_url, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, fee); err != nil {
		return fmt.Errorf("create fee: %w", err)
	}
	return nil
}

// Update mutates a fee record.
func (r *FeeRepository) Update(ctx context.Context, fee *models.Fee) error {
	fee.UpdatedAt = time.Now().UTC()
	const query = `UPDATE fees SET amount = :amount, paid_amount = :paid_amount, due_date = :due_date,
        payment_date = :payment_date, status = :status, payment_method = :payment_method,
        transaction_id = :transaction_id, remarks = :remarks, receipt_url = :receipt_url,
        updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, fee); err != nil {
		return fmt.Errorf("update fee: %w", err)
	}
	return nil
}

// Delete removes a fee record.
func (r *FeeRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM fees WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete fee: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete fee: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ApplyPayment settles an amount against a fee inside a transaction so the
// amount check and the balance update cannot race a concurrent payment. The
// derived status follows the paid amount: partial below the total, paid at
// or above it.
func (r *FeeRepository) ApplyPayment(ctx context.Context, feeID string, amount int64, method models.PaymentMethod, transactionID string) (*models.Fee, error) {
	var applied models.Fee
	err := runInTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var fee models.Fee
		if err := tx.GetContext(ctx, &fee, "SELECT "+feeColumns+" FROM fees WHERE id = $1 FOR UPDATE", feeID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "fee record not found")
			}
			return fmt.Errorf("load fee: %w", err)
		}
		if fee.Status == models.PaymentPaid {
			return appErrors.Clone(appErrors.ErrConflict, "fee is already fully paid")
		}
		if amount <= 0 {
			return appErrors.Clone(appErrors.ErrValidation, "payment amount must be positive")
		}
		remaining := fee.Amount - fee.PaidAmount
		if amount > remaining {
			return appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("payment of %d exceeds outstanding balance %d", amount, remaining))
		}

		fee.PaidAmount += amount
		now := time.Now().UTC()
		fee.PaymentDate = &now
		fee.PaymentMethod = &method
		if transactionID != "" {
			fee.TransactionID = &transactionID
		}
		if fee.PaidAmount >= fee.Amount {
			fee.Status = models.PaymentPaid
		} else {
			fee.Status = models.PaymentPartial
		}
		fee.UpdatedAt = now

		const query = `UPDATE fees SET paid_amount = :paid_amount, payment_date = :payment_date,
            status = :status, payment_method = :payment_method, transaction_id = :transaction_id,
            updated_at = :updated_at WHERE id = :id`
		if _, err := tx.NamedExecContext(ctx, query, &fee); err != nil {
			return fmt.Errorf("apply payment: %w", err)
		}
		applied = fee
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &applied, nil
}

// MarkOverdue flips pending fees past their due date to overdue and returns
// how many rows changed.
func (r *FeeRepository) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	const query = `UPDATE fees SET status = $1, updated_at = $2 WHERE status = $3 AND due_date < $4`
	result, err := r.db.ExecContext(ctx, query, models.PaymentOverdue, time.Now().UTC(), models.PaymentPending, asOf)
	if err != nil {
		return 0, fmt.Errorf("mark overdue fees: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark overdue fees: %w", err)
	}
	return rows, nil
}

// SummaryByStudent aggregates one student's fee position.
func (r *FeeRepository) SummaryByStudent(ctx context.Context, studentID string) (*models.FeeSummary, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) AS total_fees, COALESCE(SUM(paid_amount), 0) AS total_paid
        FROM fees WHERE student_id = $1`
	var row struct {
		TotalFees int64 `db:"total_fees"`
		TotalPaid int64 `db:"total_paid"`
	}
	if err := r.db.GetContext(ctx, &row, query, studentID); err != nil {
		return nil, fmt.Errorf("summarize student fees: %w", err)
	}
	summary := &models.FeeSummary{
		TotalFees:    row.TotalFees,
		TotalPaid:    row.TotalPaid,
		TotalPending: row.TotalFees - row.TotalPaid,
	}
	if summary.TotalFees > 0 {
		summary.PaidPercentage = float64(summary.TotalPaid) / float64(summary.TotalFees) * 100
	}
	return summary, nil
}

// Report aggregates the institute-wide collection position.
func (r *FeeRepository) Report(ctx context.Context) (*models.FeeReport, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) AS total_fees,
        COALESCE(SUM(paid_amount), 0) AS collected_fees,
        COUNT(*) FILTER (WHERE status = 'pending') AS pending_count,
        COUNT(*) FILTER (WHERE status = 'paid') AS paid_count,
        COUNT(*) FILTER (WHERE status = 'overdue') AS overdue_count
        FROM fees`
	var report models.FeeReport
	if err := r.db.GetContext(ctx, &report, query); err != nil {
		return nil, fmt.Errorf("fee report: %w", err)
	}
	report.PendingAmount = report.TotalFees - report.CollectedFees
	return &report, nil
}

// PendingTotal returns the outstanding amount across all fees.
func (r *FeeRepository) PendingTotal(ctx context.Context) (int64, error) {
	const query = `SELECT COALESCE(SUM(amount - paid_amount), 0) FROM fees WHERE status <> 'paid'`
	var total int64
	if err := r.db.GetContext(ctx, &total, query); err != nil {
		return 0, fmt.Errorf("pending fee total: %w", err)
	}
	return total, nil
}
