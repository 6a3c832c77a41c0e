package models

import "time"

// SignupRequestStatus is the signup approval state machine. Transitions only
// leave pending; approved and rejected are terminal.
type SignupRequestStatus string

const (
	SignupPending  SignupRequestStatus = "pending"
	SignupApproved SignupRequestStatus = "approved"
	SignupRejected SignupRequestStatus = "rejected"
)

// SignupRequest is a pending account creation awaiting admin review. The
// password hash is computed at submission and copied verbatim to the user on
// approval.
type SignupRequest struct {
	ID            string              `db:"id" json:"id"`
	FullName      string              `db:"full_name" json:"full_name"`
	Email         string              `db:"email" json:"email"`
	Phone         string              `db:"phone" json:"phone"`
	DesiredRole   UserRole            `db:"desired_role" json:"desired_role"`
	AcademicFocus string              `db:"academic_focus" json:"academic_focus"`
	Motivations   string              `db:"motivations" json:"motivations"`
	Username      string              `db:"username" json:"username"`
	PasswordHash  string              `db:"password_hash" json:"-"`
	Status        SignupRequestStatus `db:"status" json:"status"`
	AdminNote     *string             `db:"admin_note" json:"admin_note,omitempty"`
	DecidedAt     *time.Time          `db:"decided_at" json:"decided_at,omitempty"`
	DecidedBy     *string             `db:"decided_by" json:"decided_by,omitempty"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time           `db:"updated_at" json:"updated_at"`
}
