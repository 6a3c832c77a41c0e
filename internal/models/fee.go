package models

import "time"

// PaymentStatus is derived from amount vs paid_amount.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentOverdue PaymentStatus = "overdue"
	PaymentPartial PaymentStatus = "partial"
)

// PaymentMethod enumerates how a fee was settled.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodCard         PaymentMethod = "card"
	MethodUPI          PaymentMethod = "upi"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodOnline       PaymentMethod = "online"
)

// Fee is one billing line for a student.
type Fee struct {
	ID            string         `db:"id" json:"id"`
	StudentID     string         `db:"student_id" json:"student_id"`
	Amount        int64          `db:"amount" json:"amount"`
	PaidAmount    int64          `db:"paid_amount" json:"paid_amount"`
	DueDate       time.Time      `db:"due_date" json:"due_date"`
	PaymentDate   *time.Time     `db:"payment_date" json:"payment_date,omitempty"`
	Status        PaymentStatus  `db:"status" json:"status"`
	PaymentMethod *PaymentMethod `db:"payment_method" json:"payment_method,omitempty"`
	TransactionID *string        `db:"transaction_id" json:"transaction_id,omitempty"`
	Remarks       string         `db:"remarks" json:"remarks"`
	ReceiptURL    string         `db:"receipt_url" json:"receipt_url"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// FeeFilter narrows fee queries.
type FeeFilter struct {
	StudentID string
	Status    PaymentStatus
}

// FeeSummary aggregates a student's fee position.
type FeeSummary struct {
	TotalFees      int64   `json:"total_fees"`
	TotalPaid      int64   `json:"total_paid"`
	TotalPending   int64   `json:"total_pending"`
	PaidPercentage float64 `json:"paid_percentage"`
}

// FeeReport is the admin-wide collection report.
type FeeReport struct {
	TotalFees     int64 `db:"total_fees" json:"total_fees"`
	CollectedFees int64 `db:"collected_fees" json:"collected_fees"`
	PendingAmount int64 `json:"pending_amount"`
	PendingCount  int   `db:"pending_count" json:"pending_count"`
	PaidCount     int   `db:"paid_count" json:"paid_count"`
	OverdueCount  int   `db:"overdue_count" json:"overdue_count"`
}
